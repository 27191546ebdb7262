package analytics

import (
	"context"
	"fmt"
	"sort"

	"pricewatch-backend/services/pricestore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/analytics")

// DefaultArbitrageThresholdPct flags cross-region gaps above this value.
const DefaultArbitrageThresholdPct = 20.0

type Service struct {
	store pricestore.Service
}

func NewService(store pricestore.Service) Service {
	return Service{store: store}
}

// ParityRow is one region's price level relative to the baseline region,
// computed over the articles both regions currently sell.
type ParityRow struct {
	Region         string
	SharedArticles int
	AvgPriceUsd    float64
	BaselineAvgUsd float64
	// baseline = 100, so 112 reads "12% more expensive than baseline"
	Index float64
}

func (s Service) ParityIndex(ctx context.Context, baseline string) ([]ParityRow, error) {
	ctx, span := tracer.Start(ctx, "ParityIndex")
	defer span.End()
	span.SetAttributes(attribute.String("baseline", baseline))

	byArticle, err := s.latestByArticle(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	baselinePrices := map[string]float64{}
	regions := map[string]bool{}
	for article, prices := range byArticle {
		for region := range prices {
			regions[region] = true
		}
		if price, ok := prices[baseline]; ok {
			baselinePrices[article] = price
		}
	}
	if len(baselinePrices) == 0 {
		err := fmt.Errorf("baseline region %q has no observations", baseline)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var rows []ParityRow
	for region := range regions {
		var shared int
		var sum, baselineSum float64
		for article, baselinePrice := range baselinePrices {
			price, ok := byArticle[article][region]
			if !ok {
				continue
			}
			shared++
			sum += price
			baselineSum += baselinePrice
		}
		// a region with no overlap with the baseline cannot be compared
		if shared == 0 {
			continue
		}

		rows = append(rows, ParityRow{
			Region:         region,
			SharedArticles: shared,
			AvgPriceUsd:    sum / float64(shared),
			BaselineAvgUsd: baselineSum / float64(shared),
			Index:          sum / baselineSum * 100,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Region < rows[j].Region
	})
	return rows, nil
}

// ArbitrageGap is the spread between the cheapest and most expensive
// region currently selling an article.
type ArbitrageGap struct {
	ArticleCode string
	Name        string
	MinRegion   string
	MaxRegion   string
	MinPriceUsd float64
	MaxPriceUsd float64
	GapPct      float64
	Flagged     bool
}

func (s Service) ArbitrageGaps(ctx context.Context, thresholdPct float64) ([]ArbitrageGap, error) {
	ctx, span := tracer.Start(ctx, "ArbitrageGaps")
	defer span.End()
	span.SetAttributes(attribute.Float64("threshold_pct", thresholdPct))

	observations, err := s.store.Latest(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	type articleState struct {
		name string
		min  pricestore.Observation
		max  pricestore.Observation
		seen int
	}
	articles := map[string]*articleState{}
	for _, o := range observations {
		state, ok := articles[o.ArticleCode]
		if !ok {
			articles[o.ArticleCode] = &articleState{name: o.Name, min: o, max: o, seen: 1}
			continue
		}
		state.seen++
		if o.PriceUsd < state.min.PriceUsd {
			state.min = o
		}
		if o.PriceUsd > state.max.PriceUsd {
			state.max = o
		}
	}

	var gaps []ArbitrageGap
	for article, state := range articles {
		// an article sold in a single region has nothing to arbitrage
		if state.seen < 2 || state.min.PriceUsd <= 0 {
			continue
		}
		gapPct := (state.max.PriceUsd - state.min.PriceUsd) / state.min.PriceUsd * 100
		gaps = append(gaps, ArbitrageGap{
			ArticleCode: article,
			Name:        state.name,
			MinRegion:   state.min.Region,
			MaxRegion:   state.max.Region,
			MinPriceUsd: state.min.PriceUsd,
			MaxPriceUsd: state.max.PriceUsd,
			GapPct:      gapPct,
			Flagged:     gapPct > thresholdPct,
		})
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].GapPct != gaps[j].GapPct {
			return gaps[i].GapPct > gaps[j].GapPct
		}
		return gaps[i].ArticleCode < gaps[j].ArticleCode
	})
	span.SetAttributes(attribute.Int("gap_count", len(gaps)))
	return gaps, nil
}

// DiscountRow summarizes how aggressively a region is discounting right now.
type DiscountRow struct {
	Region         string
	Observed       int
	Discounted     int
	AvgDiscountPct float64
	MaxDiscountPct float64
}

func (s Service) DiscountStats(ctx context.Context) ([]DiscountRow, error) {
	ctx, span := tracer.Start(ctx, "DiscountStats")
	defer span.End()

	observations, err := s.store.Latest(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	byRegion := map[string]*DiscountRow{}
	sums := map[string]float64{}
	for _, o := range observations {
		row, ok := byRegion[o.Region]
		if !ok {
			row = &DiscountRow{Region: o.Region}
			byRegion[o.Region] = row
		}
		row.Observed++
		if o.DiscountPct > 0 {
			row.Discounted++
			sums[o.Region] += o.DiscountPct
			if o.DiscountPct > row.MaxDiscountPct {
				row.MaxDiscountPct = o.DiscountPct
			}
		}
	}

	var rows []DiscountRow
	for region, row := range byRegion {
		if row.Discounted > 0 {
			row.AvgDiscountPct = sums[region] / float64(row.Discounted)
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Region < rows[j].Region
	})
	return rows, nil
}

func (s Service) latestByArticle(ctx context.Context) (map[string]map[string]float64, error) {
	observations, err := s.store.Latest(ctx)
	if err != nil {
		return nil, err
	}

	byArticle := map[string]map[string]float64{}
	for _, o := range observations {
		prices, ok := byArticle[o.ArticleCode]
		if !ok {
			prices = map[string]float64{}
			byArticle[o.ArticleCode] = prices
		}
		prices[o.Region] = o.PriceUsd
	}
	return byArticle, nil
}
