package pricestore

import (
	"context"
	"database/sql"
	"time"

	"pricewatch-backend/services/pricestore/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/pricestore")

type Service struct {
	db  *sql.DB
	qry *db.Queries
}

func NewService(database *sql.DB) Service {
	return Service{
		db:  database,
		qry: db.New(database),
	}
}

// ObservedListing is one scraped product price ready to be persisted.
type ObservedListing struct {
	ArticleCode string
	Name        string
	Category    string
	ImageUrl    string
	Region      string
	PriceLocal  float64
	// zero when the product was not discounted
	OriginalPriceLocal float64
	DiscountPct        float64
	Currency           string
	PriceUsd           float64
	InStock            bool
}

type RecordRequest struct {
	Time     time.Time
	Listings []ObservedListing
}

// Record persists a batch of observations taken at one time, upserting
// the product catalog rows along the way. The batch is a single
// transaction so a partially scraped run never leaves half a batch.
func (s Service) Record(ctx context.Context, req RecordRequest) error {
	ctx, span := tracer.Start(ctx, "Record")
	defer span.End()
	span.SetAttributes(attribute.Int("listing_count", len(req.Listings)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	for _, listing := range req.Listings {
		err := txqry.UpsertProduct(ctx, db.UpsertProductParams{
			ArticleCode: listing.ArticleCode,
			Name:        listing.Name,
			Category:    listing.Category,
			ImageUrl:    listing.ImageUrl,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		var original sql.NullFloat64
		if listing.OriginalPriceLocal > 0 {
			original = sql.NullFloat64{Float64: listing.OriginalPriceLocal, Valid: true}
		}
		var inStock int64
		if listing.InStock {
			inStock = 1
		}

		err = txqry.CreateObservation(ctx, db.CreateObservationParams{
			ArticleCode:        listing.ArticleCode,
			Region:             listing.Region,
			PriceLocal:         listing.PriceLocal,
			OriginalPriceLocal: original,
			DiscountPct:        listing.DiscountPct,
			Currency:           listing.Currency,
			PriceUsd:           listing.PriceUsd,
			InStock:            inStock,
			ObservedAt:         req.Time.Unix(),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Observation is a stored price point joined with its catalog entry.
type Observation struct {
	ArticleCode        string
	Name               string
	Category           string
	Region             string
	PriceLocal         float64
	OriginalPriceLocal float64
	DiscountPct        float64
	Currency           string
	PriceUsd           float64
	InStock            bool
	ObservedAt         time.Time
}

// Latest returns the most recent observation per (article, region).
func (s Service) Latest(ctx context.Context) ([]Observation, error) {
	ctx, span := tracer.Start(ctx, "Latest")
	defer span.End()

	rows, err := s.qry.GetLatestObservations(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	observations := make([]Observation, len(rows))
	for i, r := range rows {
		observations[i] = Observation{
			ArticleCode:        r.ArticleCode,
			Name:               r.Name,
			Category:           r.Category,
			Region:             r.Region,
			PriceLocal:         r.PriceLocal,
			OriginalPriceLocal: r.OriginalPriceLocal.Float64,
			DiscountPct:        r.DiscountPct,
			Currency:           r.Currency,
			PriceUsd:           r.PriceUsd,
			InStock:            r.InStock != 0,
			ObservedAt:         time.Unix(r.ObservedAt, 0),
		}
	}
	return observations, nil
}

// History returns every observation for an article in a region, oldest
// first.
func (s Service) History(ctx context.Context, articleCode, region string) ([]Observation, error) {
	ctx, span := tracer.Start(ctx, "History")
	defer span.End()
	span.SetAttributes(
		attribute.String("article", articleCode),
		attribute.String("region", region),
	)

	product, err := s.qry.GetProduct(ctx, articleCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rows, err := s.qry.GetObservationHistory(ctx, db.GetObservationHistoryParams{
		ArticleCode: articleCode,
		Region:      region,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	observations := make([]Observation, len(rows))
	for i, o := range rows {
		observations[i] = Observation{
			ArticleCode:        o.ArticleCode,
			Name:               product.Name,
			Category:           product.Category,
			Region:             o.Region,
			PriceLocal:         o.PriceLocal,
			OriginalPriceLocal: o.OriginalPriceLocal.Float64,
			DiscountPct:        o.DiscountPct,
			Currency:           o.Currency,
			PriceUsd:           o.PriceUsd,
			InStock:            o.InStock != 0,
			ObservedAt:         time.Unix(o.ObservedAt, 0),
		}
	}
	return observations, nil
}

func (s Service) Products(ctx context.Context) ([]db.Product, error) {
	ctx, span := tracer.Start(ctx, "Products")
	defer span.End()

	products, err := s.qry.ListProducts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return products, nil
}

// LastObservedAt reports when the newest observation was taken, the zero
// time when the store is empty.
func (s Service) LastObservedAt(ctx context.Context) (time.Time, error) {
	last, err := s.qry.GetLastObservedAt(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if last == 0 {
		return time.Time{}, nil
	}
	return time.Unix(last, 0), nil
}
