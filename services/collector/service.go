package collector

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"pricewatch-backend/lib/currency"
	"pricewatch-backend/lib/scrapers/retail"
	"pricewatch-backend/lib/timezone"
	"pricewatch-backend/services/pricestore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/collector")

type Options struct {
	// region codes to collect, in order
	Regions []string
	// listing paths per region, defaults to retail.DefaultCategories
	Categories map[string][]string
	// cap per listing page, defaults to 30
	MaxItems int
	// polite delay between page fetches, defaults to 2s
	Delay time.Duration
	// hours of the day (storefront home time) the daemon collects at,
	// defaults to 06:00 and 18:00
	RunHours []int
}

type Service struct {
	scraper *retail.Client
	rates   *currency.Client
	store   pricestore.Service
	opts    Options
}

func NewService(scraper *retail.Client, rates *currency.Client, store pricestore.Service, opts Options) Service {
	if opts.Categories == nil {
		opts.Categories = retail.DefaultCategories
	}
	if opts.MaxItems == 0 {
		opts.MaxItems = 30
	}
	if opts.Delay == 0 {
		opts.Delay = time.Second * 2
	}
	if len(opts.RunHours) == 0 {
		opts.RunHours = []int{6, 18}
	}
	return Service{
		scraper: scraper,
		rates:   rates,
		store:   store,
		opts:    opts,
	}
}

type RunStats struct {
	Requests  int
	Successes int
	Failures  int
	Products  int
}

// categoryLabel turns "/damen/produkte/kleider.html" into "kleider" for
// the product catalog.
func categoryLabel(categoryPath string) string {
	base := path.Base(categoryPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Collect runs one scrape over every configured region and category,
// normalizes prices to USD and persists the batch under a single
// timestamp. A failing page is counted and skipped, not fatal.
func (s Service) Collect(ctx context.Context) (RunStats, error) {
	ctx, span := tracer.Start(ctx, "Collect")
	defer span.End()

	now := timezone.Now()
	var stats RunStats
	var batch []pricestore.ObservedListing
	first := true

	for _, code := range s.opts.Regions {
		region, err := retail.LookupRegion(code)
		if err != nil {
			slog.ErrorContext(ctx, "skipping unknown region", "region", code, "err", err)
			stats.Failures++
			continue
		}

		for _, category := range s.opts.Categories[code] {
			if !first {
				select {
				case <-ctx.Done():
					return stats, ctx.Err()
				case <-time.After(s.opts.Delay):
				}
			}
			first = false

			stats.Requests++
			listings, err := s.scraper.FetchCategory(ctx, region, category, s.opts.MaxItems)
			if err != nil {
				slog.ErrorContext(ctx, "failed to scrape category",
					"region", code, "category", category, "err", err)
				stats.Failures++
				continue
			}
			stats.Successes++

			label := categoryLabel(category)
			for _, listing := range listings {
				priceUsd, err := s.rates.ToBase(ctx, listing.PriceLocal, listing.Currency)
				if err != nil {
					slog.WarnContext(ctx, "skipping listing with unconvertible price",
						"article", listing.ArticleCode, "currency", listing.Currency, "err", err)
					continue
				}

				batch = append(batch, pricestore.ObservedListing{
					ArticleCode:        listing.ArticleCode,
					Name:               listing.Name,
					Category:           label,
					Region:             listing.Region,
					PriceLocal:         listing.PriceLocal,
					OriginalPriceLocal: listing.OriginalPriceLocal,
					DiscountPct:        listing.DiscountPct,
					Currency:           listing.Currency,
					PriceUsd:           priceUsd,
					InStock:            listing.InStock,
				})
				stats.Products++
			}
		}
	}

	span.SetAttributes(
		attribute.Int("requests", stats.Requests),
		attribute.Int("failures", stats.Failures),
		attribute.Int("products", stats.Products),
	)

	if len(batch) > 0 {
		err := s.store.Record(ctx, pricestore.RecordRequest{
			Time:     now,
			Listings: batch,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to persist batch")
			return stats, err
		}
	}

	slog.InfoContext(ctx, "collection run finished",
		"requests", stats.Requests,
		"successes", stats.Successes,
		"failures", stats.Failures,
		"products", stats.Products,
	)
	return stats, nil
}
