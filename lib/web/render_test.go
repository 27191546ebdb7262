package web

import (
	"bytes"
	"testing"
	"time"

	"pricewatch-backend/lib/timezone"
	"pricewatch-backend/services/analytics"

	"github.com/stretchr/testify/require"
)

func TestRenderParity(t *testing.T) {
	var buf bytes.Buffer
	err := RenderParity(&buf, ParityContext{
		BaseContext: BaseContext{
			LastUpdated: time.Date(2024, time.June, 1, 12, 0, 0, 0, timezone.Location),
		},
		Baseline: "us",
		Rows: []analytics.ParityRow{
			{Region: "de", SharedArticles: 12, AvgPriceUsd: 33.5, BaselineAvgUsd: 30, Index: 111.7},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "<b>us</b>")
	require.Contains(t, out, "111.7")
	require.Contains(t, out, "2024-06-01")
}

func TestRenderArbitrage(t *testing.T) {
	var buf bytes.Buffer
	err := RenderArbitrage(&buf, ArbitrageContext{
		ThresholdPct: 20,
		Gaps: []analytics.ArbitrageGap{
			{ArticleCode: "1227155001", Name: "Ribbed Jersey Dress", MinRegion: "tr", MaxRegion: "de", MinPriceUsd: 30, MaxPriceUsd: 45, GapPct: 50, Flagged: true},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "1227155001")
	require.Contains(t, out, "class=\"flagged\"")
	require.Contains(t, out, "Last updated: never")
}

func TestRenderHomeAndDiscounts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHome(&buf, BaseContext{}))
	require.Contains(t, buf.String(), "Global Price Tracker")

	buf.Reset()
	err := RenderDiscounts(&buf, DiscountsContext{
		Rows: []analytics.DiscountRow{
			{Region: "de", Observed: 10, Discounted: 4, AvgDiscountPct: 25, MaxDiscountPct: 50},
		},
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "25.0%")
}
