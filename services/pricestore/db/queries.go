package db

import (
	"context"
	"database/sql"
)

const upsertProduct = `
INSERT INTO products (article_code, name, category, image_url)
VALUES (?, ?, ?, ?)
ON CONFLICT (article_code) DO UPDATE SET
    name = excluded.name,
    category = CASE WHEN excluded.category != '' THEN excluded.category ELSE products.category END,
    image_url = CASE WHEN excluded.image_url != '' THEN excluded.image_url ELSE products.image_url END
`

type UpsertProductParams struct {
	ArticleCode string
	Name        string
	Category    string
	ImageUrl    string
}

func (q *Queries) UpsertProduct(ctx context.Context, arg UpsertProductParams) error {
	_, err := q.db.ExecContext(ctx, upsertProduct,
		arg.ArticleCode, arg.Name, arg.Category, arg.ImageUrl)
	return err
}

const createObservation = `
INSERT INTO price_observations (
    article_code, region, price_local, original_price_local,
    discount_pct, currency, price_usd, in_stock, observed_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateObservationParams struct {
	ArticleCode        string
	Region             string
	PriceLocal         float64
	OriginalPriceLocal sql.NullFloat64
	DiscountPct        float64
	Currency           string
	PriceUsd           float64
	InStock            int64
	ObservedAt         int64
}

func (q *Queries) CreateObservation(ctx context.Context, arg CreateObservationParams) error {
	_, err := q.db.ExecContext(ctx, createObservation,
		arg.ArticleCode, arg.Region, arg.PriceLocal, arg.OriginalPriceLocal,
		arg.DiscountPct, arg.Currency, arg.PriceUsd, arg.InStock, arg.ObservedAt)
	return err
}

const getProduct = `
SELECT article_code, name, category, image_url FROM products WHERE article_code = ?
`

func (q *Queries) GetProduct(ctx context.Context, articleCode string) (Product, error) {
	row := q.db.QueryRowContext(ctx, getProduct, articleCode)
	var p Product
	err := row.Scan(&p.ArticleCode, &p.Name, &p.Category, &p.ImageUrl)
	return p, err
}

const listProducts = `
SELECT article_code, name, category, image_url FROM products ORDER BY article_code
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.QueryContext(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ArticleCode, &p.Name, &p.Category, &p.ImageUrl); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const getLatestObservations = `
SELECT
    o.article_code, p.name, p.category, o.region, o.price_local,
    o.original_price_local, o.discount_pct, o.currency, o.price_usd,
    o.in_stock, o.observed_at
FROM price_observations o
JOIN products p ON p.article_code = o.article_code
JOIN (
    SELECT article_code, region, MAX(observed_at) AS observed_at
    FROM price_observations
    GROUP BY article_code, region
) latest
    ON latest.article_code = o.article_code
    AND latest.region = o.region
    AND latest.observed_at = o.observed_at
GROUP BY o.article_code, o.region
ORDER BY o.article_code, o.region
`

type GetLatestObservationsRow struct {
	ArticleCode        string
	Name               string
	Category           string
	Region             string
	PriceLocal         float64
	OriginalPriceLocal sql.NullFloat64
	DiscountPct        float64
	Currency           string
	PriceUsd           float64
	InStock            int64
	ObservedAt         int64
}

func (q *Queries) GetLatestObservations(ctx context.Context) ([]GetLatestObservationsRow, error) {
	rows, err := q.db.QueryContext(ctx, getLatestObservations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GetLatestObservationsRow
	for rows.Next() {
		var r GetLatestObservationsRow
		err := rows.Scan(
			&r.ArticleCode, &r.Name, &r.Category, &r.Region, &r.PriceLocal,
			&r.OriginalPriceLocal, &r.DiscountPct, &r.Currency, &r.PriceUsd,
			&r.InStock, &r.ObservedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getObservationHistory = `
SELECT
    id, article_code, region, price_local, original_price_local,
    discount_pct, currency, price_usd, in_stock, observed_at
FROM price_observations
WHERE article_code = ? AND region = ?
ORDER BY observed_at
`

type GetObservationHistoryParams struct {
	ArticleCode string
	Region      string
}

func (q *Queries) GetObservationHistory(ctx context.Context, arg GetObservationHistoryParams) ([]PriceObservation, error) {
	rows, err := q.db.QueryContext(ctx, getObservationHistory, arg.ArticleCode, arg.Region)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PriceObservation
	for rows.Next() {
		var o PriceObservation
		err := rows.Scan(
			&o.ID, &o.ArticleCode, &o.Region, &o.PriceLocal, &o.OriginalPriceLocal,
			&o.DiscountPct, &o.Currency, &o.PriceUsd, &o.InStock, &o.ObservedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const getLastObservedAt = `
SELECT COALESCE(MAX(observed_at), 0) FROM price_observations
`

func (q *Queries) GetLastObservedAt(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, getLastObservedAt)
	var t int64
	err := row.Scan(&t)
	return t, err
}
