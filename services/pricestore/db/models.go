package db

import "database/sql"

type Product struct {
	ArticleCode string
	Name        string
	Category    string
	ImageUrl    string
}

type PriceObservation struct {
	ID                 int64
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
