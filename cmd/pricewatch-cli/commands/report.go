package commands

import (
	"fmt"
	"os"

	"pricewatch-backend/lib/serviceutil"
	"pricewatch-backend/lib/sqliteutil"
	"pricewatch-backend/services/analytics"
	"pricewatch-backend/services/pricestore"
	pricestoredb "pricewatch-backend/services/pricestore/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var reportDb *string
var reportBaseline *string
var reportThreshold *float64

func init() {
	reportDb = reportCmd.PersistentFlags().String("db", "pricewatch.db", "The database to report over.")
	reportBaseline = reportCmd.PersistentFlags().String("baseline", "us", "Baseline region for the parity index.")
	reportThreshold = reportCmd.PersistentFlags().Float64(
		"threshold", analytics.DefaultArbitrageThresholdPct,
		"Gap percentage above which an arbitrage opportunity is flagged.")

	reportCmd.AddCommand(parityCmd)
	reportCmd.AddCommand(arbitrageCmd)
	reportCmd.AddCommand(discountsCmd)
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Renders pricing analytics over a collected database.",
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func openAnalytics() analytics.Service {
	db, err := sqliteutil.OpenDB(pricestoredb.Schema, *reportDb)
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	return analytics.NewService(pricestore.NewService(db))
}

var parityCmd = &cobra.Command{
	Use:   "parity",
	Short: "Shows each region's price level relative to the baseline region.",
	Run: func(cmd *cobra.Command, args []string) {
		service := openAnalytics()

		rows, err := service.ParityIndex(cmd.Context(), *reportBaseline)
		if err != nil {
			serviceutil.Fatal("failed to compute parity index", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Region", "Shared Articles", "Avg USD", "Baseline Avg USD", "Index"})
		for _, row := range rows {
			t.AppendRow(table.Row{
				row.Region,
				row.SharedArticles,
				fmt.Sprintf("%.2f", row.AvgPriceUsd),
				fmt.Sprintf("%.2f", row.BaselineAvgUsd),
				fmt.Sprintf("%.1f", row.Index),
			})
		}
		t.Render()
	},
}

var arbitrageCmd = &cobra.Command{
	Use:   "arbitrage",
	Short: "Shows the cross-region price spread per article.",
	Run: func(cmd *cobra.Command, args []string) {
		service := openAnalytics()

		gaps, err := service.ArbitrageGaps(cmd.Context(), *reportThreshold)
		if err != nil {
			serviceutil.Fatal("failed to compute arbitrage gaps", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Article", "Name", "Cheapest", "Most Expensive", "Min USD", "Max USD", "Gap %", "Flagged"})
		for _, gap := range gaps {
			t.AppendRow(table.Row{
				gap.ArticleCode,
				gap.Name,
				gap.MinRegion,
				gap.MaxRegion,
				fmt.Sprintf("%.2f", gap.MinPriceUsd),
				fmt.Sprintf("%.2f", gap.MaxPriceUsd),
				fmt.Sprintf("%.1f", gap.GapPct),
				gap.Flagged,
			})
		}
		t.Render()
	},
}

var discountsCmd = &cobra.Command{
	Use:   "discounts",
	Short: "Shows how aggressively each region is discounting.",
	Run: func(cmd *cobra.Command, args []string) {
		service := openAnalytics()

		rows, err := service.DiscountStats(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to compute discount stats", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Region", "Observed", "Discounted", "Avg Discount %", "Max Discount %"})
		for _, row := range rows {
			t.AppendRow(table.Row{
				row.Region,
				row.Observed,
				row.Discounted,
				fmt.Sprintf("%.1f", row.AvgDiscountPct),
				fmt.Sprintf("%.1f", row.MaxDiscountPct),
			})
		}
		t.Render()
	},
}
