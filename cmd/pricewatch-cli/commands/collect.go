package commands

import (
	"errors"
	"log/slog"
	"time"

	"pricewatch-backend/lib/configutil"
	"pricewatch-backend/lib/currency"
	"pricewatch-backend/lib/scrapers/retail"
	"pricewatch-backend/lib/serviceutil"
	"pricewatch-backend/lib/sqliteutil"
	"pricewatch-backend/services/collector"
	"pricewatch-backend/services/pricestore"
	pricestoredb "pricewatch-backend/services/pricestore/db"

	"github.com/spf13/cobra"
)

type collectConfig struct {
	RateApi    string              `json:"rate_api"`
	Regions    []string            `json:"regions"`
	Categories map[string][]string `json:"categories"`
	MaxItems   int                 `json:"max_items"`
	DelayMs    int                 `json:"delay_ms"`
}

var collectDb *string
var collectRegions *[]string

func init() {
	collectDb = collectCmd.Flags().String("db", "pricewatch.db", "The database to write observations to.")
	collectRegions = collectCmd.Flags().StringSlice("regions", nil, "Region codes to collect, overrides the config.")
	rootCmd.AddCommand(collectCmd)
}

var collectCmd = &cobra.Command{
	Use:   "collect [--db <path/to/output.db>] [--regions tr,us,de]",
	Short: "Runs one collection pass over the configured storefronts.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[collectConfig]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		regions := cfg.Regions
		if len(*collectRegions) > 0 {
			regions = *collectRegions
		}
		if len(regions) == 0 {
			serviceutil.Fatal("no regions configured", errors.New("specify --regions or set regions in config.json5"))
		}

		db, err := sqliteutil.OpenDB(pricestoredb.Schema, *collectDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer db.Close()

		scraper, err := retail.NewClient(retail.ClientOptions{})
		if err != nil {
			serviceutil.Fatal("failed to initialize scraper", err)
		}
		rates := currency.NewClient(currency.ClientOptions{BaseUrl: cfg.RateApi})

		service := collector.NewService(scraper, rates, pricestore.NewService(db), collector.Options{
			Regions:    regions,
			Categories: cfg.Categories,
			MaxItems:   cfg.MaxItems,
			Delay:      time.Duration(cfg.DelayMs) * time.Millisecond,
		})

		t1 := time.Now()
		stats, err := service.Collect(cmd.Context())
		if err != nil {
			serviceutil.Fatal("collection run failed", err)
		}
		t2 := time.Now()

		slog.Info("collection time",
			"seconds", t2.Sub(t1).Seconds(),
			"requests", stats.Requests,
			"failures", stats.Failures,
			"products", stats.Products,
		)
	},
}
