package currency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pricewatch-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:lib/currency")
	defer cleanup()

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.Equal(t, "/v6/latest/USD", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"result": "success",
			"base_code": "USD",
			"rates": {"USD": 1, "EUR": 0.925, "TRY": 34.2, "GBP": 0.79, "SEK": 10.4}
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseUrl: server.URL})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		usd, err := client.ToBase(ctx, 100, "USD")
		require.NoError(t, err)
		require.Equal(t, float64(100), usd)
		// base currency conversions never hit the API
		require.Equal(t, 0, requests)
	}
	{
		usd, err := client.ToBase(ctx, 92.5, "EUR")
		require.NoError(t, err)
		require.InDelta(t, 100, usd, 0.001)
		require.Equal(t, 1, requests)
	}
	{
		// table is cached for the session
		_, err := client.ToBase(ctx, 50, "SEK")
		require.NoError(t, err)
		require.Equal(t, 1, requests)
	}
	{
		_, err := client.Rate(ctx, "XXX")
		require.Error(t, err)
	}
}

func TestClientFallback(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:lib/currency")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseUrl: server.URL})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	rate, err := client.Rate(ctx, "EUR")
	require.NoError(t, err)
	require.InDelta(t, 1.08, rate, 0.001)
}

func TestClientStaleTable(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:lib/currency")
	defer cleanup()

	// a fetched rate far from the compiled-in approximation, so a stale
	// hit is distinguishable from the static fallback
	failing := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": "success", "base_code": "USD", "rates": {"EUR": 0.5}}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseUrl: server.URL, Ttl: time.Millisecond * 10})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	rate, err := client.Rate(ctx, "EUR")
	require.NoError(t, err)
	require.InDelta(t, 2, rate, 0.001)

	failing = true
	time.Sleep(time.Millisecond * 20)

	// the table expired and the API is down: serve the last successful
	// fetch, not the static approximation
	rate, err = client.Rate(ctx, "EUR")
	require.NoError(t, err)
	require.InDelta(t, 2, rate, 0.001)
}
