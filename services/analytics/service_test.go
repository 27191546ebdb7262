package analytics

import (
	"context"
	"testing"
	"time"

	"pricewatch-backend/lib/testutil"
	"pricewatch-backend/lib/timezone"
	"pricewatch-backend/services/pricestore"
	"pricewatch-backend/services/pricestore/db"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T, ctx context.Context, store pricestore.Service) {
	err := store.Record(ctx, pricestore.RecordRequest{
		Time: timezone.Now(),
		Listings: []pricestore.ObservedListing{
			// article A: sold everywhere, cheap in turkey
			{ArticleCode: "1000001001", Name: "Wrap Dress", Region: "us", PriceLocal: 40, Currency: "USD", PriceUsd: 40, InStock: true},
			{ArticleCode: "1000001001", Name: "Wrap Dress", Region: "de", PriceLocal: 41.67, Currency: "EUR", PriceUsd: 45, InStock: true},
			{ArticleCode: "1000001001", Name: "Wrap Dress", Region: "tr", PriceLocal: 1071, Currency: "TRY", PriceUsd: 30, InStock: true},
			// article B: us + de, discounted in de
			{ArticleCode: "1000002001", Name: "Slip Dress", Region: "us", PriceLocal: 20, Currency: "USD", PriceUsd: 20, InStock: true},
			{ArticleCode: "1000002001", Name: "Slip Dress", Region: "de", PriceLocal: 20.37, OriginalPriceLocal: 27.16, DiscountPct: 25, Currency: "EUR", PriceUsd: 22, InStock: true},
			// article C: only in sweden, must never show up in parity or arbitrage
			{ArticleCode: "1000003001", Name: "Knit Dress", Region: "se", PriceLocal: 349, Currency: "SEK", PriceUsd: 33.5, InStock: true},
		},
	})
	require.NoError(t, err)
}

func TestParityIndex(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/analytics",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := pricestore.NewService(setup.DB)
	service := NewService(store)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	seedStore(t, ctx, store)

	rows, err := service.ParityIndex(ctx, "us")
	require.NoError(t, err)

	expect := []ParityRow{
		// (45+22)/2 vs (40+20)/2 -> 111.67
		{Region: "de", SharedArticles: 2, AvgPriceUsd: 33.5, BaselineAvgUsd: 30, Index: 67.0 / 60.0 * 100},
		// turkey only shares the wrap dress
		{Region: "tr", SharedArticles: 1, AvgPriceUsd: 30, BaselineAvgUsd: 40, Index: 75},
		{Region: "us", SharedArticles: 2, AvgPriceUsd: 30, BaselineAvgUsd: 30, Index: 100},
	}
	if diff := cmp.Diff(expect, rows, cmpopts.EquateApprox(0, 0.001)); diff != "" {
		t.Fatalf("parity mismatch (-want +got):\n%s", diff)
	}
}

func TestParityIndexNoBaseline(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/analytics",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := pricestore.NewService(setup.DB)
	service := NewService(store)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := service.ParityIndex(ctx, "us")
	require.Error(t, err)
}

func TestArbitrageGaps(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/analytics",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := pricestore.NewService(setup.DB)
	service := NewService(store)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	seedStore(t, ctx, store)

	gaps, err := service.ArbitrageGaps(ctx, DefaultArbitrageThresholdPct)
	require.NoError(t, err)
	// the sweden-only article never appears
	require.Len(t, gaps, 2)

	// biggest gap first: wrap dress 30 -> 45 is 50%
	require.Equal(t, "1000001001", gaps[0].ArticleCode)
	require.Equal(t, "tr", gaps[0].MinRegion)
	require.Equal(t, "de", gaps[0].MaxRegion)
	require.InDelta(t, 50, gaps[0].GapPct, 0.001)
	require.True(t, gaps[0].Flagged)

	// slip dress 20 -> 22 is 10%, not worth a flag
	require.Equal(t, "1000002001", gaps[1].ArticleCode)
	require.InDelta(t, 10, gaps[1].GapPct, 0.001)
	require.False(t, gaps[1].Flagged)
}

func TestDiscountStats(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/analytics",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := pricestore.NewService(setup.DB)
	service := NewService(store)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	seedStore(t, ctx, store)

	rows, err := service.DiscountStats(ctx)
	require.NoError(t, err)

	expect := []DiscountRow{
		{Region: "de", Observed: 2, Discounted: 1, AvgDiscountPct: 25, MaxDiscountPct: 25},
		{Region: "se", Observed: 1},
		{Region: "tr", Observed: 1},
		{Region: "us", Observed: 2},
	}
	if diff := cmp.Diff(expect, rows, cmpopts.EquateApprox(0, 0.001)); diff != "" {
		t.Fatalf("discount stats mismatch (-want +got):\n%s", diff)
	}
}
