package currency

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pricewatch-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/currency")

// Base is the common currency every observation is normalized to.
const Base = "USD"

// approximate rates (USD per unit) used when the rate API is unreachable,
// so a collection run degrades instead of aborting
var fallbackRates = map[string]float64{
	"TRY": 0.028,
	"EUR": 1.08,
	"GBP": 1.26,
	"SEK": 0.096,
	"USD": 1.0,
}

// ApproximateRate returns the compiled-in fallback rate (USD per unit)
// for tooling that must work without the rate API.
func ApproximateRate(currency string) (float64, bool) {
	rate, ok := fallbackRates[currency]
	return rate, ok
}

type ClientOptions struct {
	// rate API base url, e.g. "https://open.er-api.com"
	BaseUrl string
	// how long a fetched rate table stays valid, defaults to 12h
	Ttl time.Duration
}

type Client struct {
	http *resty.Client
	ttl  time.Duration

	mu        sync.Mutex
	rates     map[string]float64
	fetchedAt time.Time
}

func NewClient(opts ClientOptions) *Client {
	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(time.Second * 15)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(time.Second)

	telemetry.InstrumentResty(client, "currency/http")

	ttl := opts.Ttl
	if ttl == 0 {
		ttl = time.Hour * 12
	}
	return &Client{
		http: client,
		ttl:  ttl,
	}
}

type ratesResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

func (c *Client) fetchRates(ctx context.Context) (map[string]float64, error) {
	ctx, span := tracer.Start(ctx, "fetchRates")
	defer span.End()

	var body ratesResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/v6/latest/" + Base)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch rates")
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("rate api returned status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate api error status")
		return nil, err
	}
	if body.Result != "success" || len(body.Rates) == 0 {
		err := fmt.Errorf("rate api returned result %q", body.Result)
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate api bad payload")
		return nil, err
	}

	// the API reports units of currency per 1 USD, flip it so lookups
	// answer "how many USD is 1 unit of X worth"
	rates := make(map[string]float64, len(body.Rates))
	for cur, perBase := range body.Rates {
		if perBase <= 0 {
			continue
		}
		rates[cur] = 1 / perBase
	}

	span.SetAttributes(attribute.Int("rate_count", len(rates)))
	return rates, nil
}

// table returns the session rate table, refreshing it when stale and
// falling back to compiled-in approximations when the API is down.
func (c *Client) table(ctx context.Context) map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rates != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.rates
	}

	rates, err := c.fetchRates(ctx)
	if err != nil {
		slog.WarnContext(ctx, "using fallback exchange rates", "err", err)
		if c.rates != nil {
			// stale beats static
			return c.rates
		}
		return fallbackRates
	}

	c.rates = rates
	c.fetchedAt = time.Now()
	return c.rates
}

// Rate returns how many USD one unit of `currency` is worth.
func (c *Client) Rate(ctx context.Context, currency string) (float64, error) {
	if currency == Base {
		return 1, nil
	}

	ctx, span := tracer.Start(ctx, "Rate")
	defer span.End()
	span.SetAttributes(attribute.String("currency", currency))

	rate, ok := c.table(ctx)[currency]
	if !ok {
		err := fmt.Errorf("unknown currency %q", currency)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown currency")
		return 0, err
	}
	return rate, nil
}

// ToBase converts an amount in `currency` to USD.
func (c *Client) ToBase(ctx context.Context, amount float64, currency string) (float64, error) {
	rate, err := c.Rate(ctx, currency)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}
