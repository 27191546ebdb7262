package main

import (
	"context"
	"sort"
	"time"

	"pricewatch-backend/lib/configutil"
	"pricewatch-backend/lib/currency"
	"pricewatch-backend/lib/scrapers/retail"
	"pricewatch-backend/lib/serviceutil"
	"pricewatch-backend/lib/sqliteutil"
	"pricewatch-backend/lib/telemetry"
	"pricewatch-backend/services/collector"
	"pricewatch-backend/services/pricestore"
	pricestoredb "pricewatch-backend/services/pricestore/db"
)

type Config struct {
	Database   string              `json:"database"`
	RateApi    string              `json:"rate_api"`
	Regions    []string            `json:"regions"`
	Categories map[string][]string `json:"categories"`
	MaxItems   int                 `json:"max_items"`
	DelayMs    int                 `json:"delay_ms"`
	RunHours   []int               `json:"run_hours"`
}

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.InitSlog(false)

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	err = telemetry.SetupFromEnv(ctx, "collectd")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	db, err := sqliteutil.OpenDB(pricestoredb.Schema, config.Database)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	defer db.Close()

	scraper, err := retail.NewClient(retail.ClientOptions{})
	if err != nil {
		serviceutil.Fatal("failed to initialize scraper", err)
	}
	rates := currency.NewClient(currency.ClientOptions{BaseUrl: config.RateApi})
	store := pricestore.NewService(db)

	regions := config.Regions
	if len(regions) == 0 {
		for code := range retail.Regions {
			regions = append(regions, code)
		}
		sort.Strings(regions)
	}

	service := collector.NewService(scraper, rates, store, collector.Options{
		Regions:    regions,
		Categories: config.Categories,
		MaxItems:   config.MaxItems,
		Delay:      time.Duration(config.DelayMs) * time.Millisecond,
		RunHours:   config.RunHours,
	})
	go service.Daemon(ctx)

	<-ctx.Done()
}
