package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pricewatch-backend/lib/currency"
	"pricewatch-backend/lib/scrapers/retail"
	"pricewatch-backend/lib/testutil"
	"pricewatch-backend/services/pricestore"
	"pricewatch-backend/services/pricestore/db"

	"github.com/stretchr/testify/require"
)

const listingFixture = `<!DOCTYPE html>
<html><body>
<li class="product-item">
	<article class="hm-product-item" data-articlecode="1227155001">
		<h3 class="link">Ribbed Jersey Dress</h3>
		<span class="price">29,99 €</span>
	</article>
</li>
<li class="product-item">
	<article class="hm-product-item" data-articlecode="1197490002">
		<h3 class="link">Satin Slip Dress</h3>
		<span class="price">24,99 €</span>
		<span class="price-old">49,99 €</span>
	</article>
</li>
</body></html>`

func TestCollect(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/collector",
		DbSchema: db.Schema,
	})
	defer cleanup()

	var listingRequests int
	storefront := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		listingRequests++
		w.Write([]byte(listingFixture))
	}))
	defer storefront.Close()

	rateApi := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": "success", "base_code": "USD", "rates": {"USD": 1, "EUR": 0.5}}`))
	}))
	defer rateApi.Close()

	scraper, err := retail.NewClient(retail.ClientOptions{BaseUrl: storefront.URL})
	require.NoError(t, err)
	rates := currency.NewClient(currency.ClientOptions{BaseUrl: rateApi.URL})
	store := pricestore.NewService(setup.DB)

	service := NewService(scraper, rates, store, Options{
		Regions: []string{"de"},
		Categories: map[string][]string{
			"de": {"/damen/produkte/kleider.html"},
		},
		Delay: time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	stats, err := service.Collect(ctx)
	require.NoError(t, err)
	require.Equal(t, RunStats{Requests: 1, Successes: 1, Products: 2}, stats)
	require.Equal(t, 1, listingRequests)

	observations, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, observations, 2)

	var ribbed pricestore.Observation
	for _, o := range observations {
		if o.ArticleCode == "1227155001" {
			ribbed = o
		}
	}
	require.Equal(t, "de", ribbed.Region)
	require.Equal(t, "kleider", ribbed.Category)
	require.InDelta(t, 29.99, ribbed.PriceLocal, 0.001)
	// 1 EUR = 2 USD with the fixture rate table
	require.InDelta(t, 59.98, ribbed.PriceUsd, 0.001)
}

func TestCollectSkipsFailingRegion(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/collector",
		DbSchema: db.Schema,
	})
	defer cleanup()

	storefront := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/damen/produkte/kleider.html" {
			w.Write([]byte(listingFixture))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer storefront.Close()

	rateApi := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": "success", "base_code": "USD", "rates": {"USD": 1, "EUR": 0.5, "GBP": 0.8}}`))
	}))
	defer rateApi.Close()

	scraper, err := retail.NewClient(retail.ClientOptions{BaseUrl: storefront.URL})
	require.NoError(t, err)
	rates := currency.NewClient(currency.ClientOptions{BaseUrl: rateApi.URL})
	store := pricestore.NewService(setup.DB)

	service := NewService(scraper, rates, store, Options{
		Regions: []string{"uk", "de"},
		Categories: map[string][]string{
			"uk": {"/ladies/products/dresses.html"},
			"de": {"/damen/produkte/kleider.html"},
		},
		Delay: time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	stats, err := service.Collect(ctx)
	require.NoError(t, err)
	// the uk 404 is recorded but does not abort the run
	require.Equal(t, RunStats{Requests: 2, Successes: 1, Failures: 1, Products: 2}, stats)

	observations, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, observations, 2)
	for _, o := range observations {
		require.Equal(t, "de", o.Region)
	}
}
