package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"pricewatch-backend/lib/configutil"
	"pricewatch-backend/lib/serviceutil"
	"pricewatch-backend/lib/sqliteutil"
	"pricewatch-backend/lib/telemetry"
	"pricewatch-backend/lib/web"
	"pricewatch-backend/services/analytics"
	"pricewatch-backend/services/pricestore"
	pricestoredb "pricewatch-backend/services/pricestore/db"
)

type Config struct {
	Database     string  `json:"database"`
	Port         int     `json:"port"`
	Baseline     string  `json:"baseline"`
	ThresholdPct float64 `json:"arbitrage_threshold_pct"`
}

type handlers struct {
	store        pricestore.Service
	analytics    analytics.Service
	baseline     string
	thresholdPct float64
}

func (h handlers) base(ctx context.Context) web.BaseContext {
	last, err := h.store.LastObservedAt(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read last observation time", "err", err)
	}
	return web.BaseContext{LastUpdated: last}
}

func (h handlers) renderError(w http.ResponseWriter, err error) {
	slog.Error("failed to render page", "err", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (h handlers) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	err := web.RenderHome(w, h.base(r.Context()))
	if err != nil {
		h.renderError(w, err)
	}
}

func (h handlers) parity(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.ParityIndex(r.Context(), h.baseline)
	if err != nil {
		h.renderError(w, err)
		return
	}
	err = web.RenderParity(w, web.ParityContext{
		BaseContext: h.base(r.Context()),
		Baseline:    h.baseline,
		Rows:        rows,
	})
	if err != nil {
		h.renderError(w, err)
	}
}

func (h handlers) arbitrage(w http.ResponseWriter, r *http.Request) {
	gaps, err := h.analytics.ArbitrageGaps(r.Context(), h.thresholdPct)
	if err != nil {
		h.renderError(w, err)
		return
	}
	err = web.RenderArbitrage(w, web.ArbitrageContext{
		BaseContext:  h.base(r.Context()),
		ThresholdPct: h.thresholdPct,
		Gaps:         gaps,
	})
	if err != nil {
		h.renderError(w, err)
	}
}

func (h handlers) discounts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.DiscountStats(r.Context())
	if err != nil {
		h.renderError(w, err)
		return
	}
	err = web.RenderDiscounts(w, web.DiscountsContext{
		BaseContext: h.base(r.Context()),
		Rows:        rows,
	})
	if err != nil {
		h.renderError(w, err)
	}
}

func writeJson(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func (h handlers) apiParity(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.ParityIndex(r.Context(), h.baseline)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJson(w, rows)
}

func (h handlers) apiArbitrage(w http.ResponseWriter, r *http.Request) {
	gaps, err := h.analytics.ArbitrageGaps(r.Context(), h.thresholdPct)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJson(w, gaps)
}

func (h handlers) apiDiscounts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.DiscountStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJson(w, rows)
}

func (h handlers) apiObservations(w http.ResponseWriter, r *http.Request) {
	observations, err := h.store.Latest(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJson(w, observations)
}

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.InitSlog(false)

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8470
	}
	if config.Baseline == "" {
		config.Baseline = "us"
	}
	if config.ThresholdPct == 0 {
		config.ThresholdPct = analytics.DefaultArbitrageThresholdPct
	}

	err = telemetry.SetupFromEnv(ctx, "dashboard")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())

	db, err := sqliteutil.OpenDB(pricestoredb.Schema, config.Database)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	defer db.Close()

	store := pricestore.NewService(db)
	h := handlers{
		store:        store,
		analytics:    analytics.NewService(store),
		baseline:     config.Baseline,
		thresholdPct: config.ThresholdPct,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.home)
	mux.HandleFunc("/parity", h.parity)
	mux.HandleFunc("/arbitrage", h.arbitrage)
	mux.HandleFunc("/discounts", h.discounts)
	mux.HandleFunc("/api/parity", h.apiParity)
	mux.HandleFunc("/api/arbitrage", h.apiArbitrage)
	mux.HandleFunc("/api/discounts", h.apiDiscounts)
	mux.HandleFunc("/api/observations", h.apiObservations)
	go serviceutil.StartHttpServer(config.Port, mux)

	<-ctx.Done()
}
