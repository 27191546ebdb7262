package commands

import (
	"fmt"
	"log/slog"
	"math"

	"pricewatch-backend/lib/currency"
	"pricewatch-backend/lib/scrapers/retail"
	"pricewatch-backend/lib/serviceutil"
	"pricewatch-backend/lib/sqliteutil"
	"pricewatch-backend/lib/timezone"
	"pricewatch-backend/services/pricestore"
	pricestoredb "pricewatch-backend/services/pricestore/db"

	"github.com/mazen160/go-random"
	"github.com/spf13/cobra"
)

var seedDb *string
var seedProducts *int

func init() {
	seedDb = seedCmd.Flags().String("db", "pricewatch.db", "The database to seed.")
	seedProducts = seedCmd.Flags().Int("products", 40, "How many products to generate.")
	rootCmd.AddCommand(seedCmd)
}

type seedCategory struct {
	name      string
	nouns     []string
	minUsd    int
	maxUsd    int
	imageSlug string
}

var seedCategories = []seedCategory{
	{
		name:      "Dresses",
		nouns:     []string{"Wrap Dress", "Slip Dress", "Shirt Dress", "Maxi Dress", "Knit Dress"},
		minUsd:    20,
		maxUsd:    80,
		imageSlug: "dresses",
	},
	{
		name:      "Tops",
		nouns:     []string{"Ribbed Top", "Blouse", "Tee", "Tank Top", "Bodysuit"},
		minUsd:    8,
		maxUsd:    35,
		imageSlug: "tops",
	},
	{
		name:      "Bottoms",
		nouns:     []string{"Wide Trousers", "Denim Shorts", "Pleated Skirt", "Straight Jeans", "Leggings"},
		minUsd:    15,
		maxUsd:    60,
		imageSlug: "bottoms",
	},
	{
		name:      "Outerwear",
		nouns:     []string{"Trench Coat", "Puffer Jacket", "Blazer", "Cardigan", "Parka"},
		minUsd:    35,
		maxUsd:    150,
		imageSlug: "outerwear",
	},
}

var seedAdjectives = []string{
	"Oversized", "Fitted", "Cropped", "Relaxed", "Pleated",
	"Linen-blend", "Cotton", "Satin", "Textured", "Printed",
}

// Regions do not price identically. These multipliers mirror the level
// differences the scraper tends to observe.
var seedRegionMultipliers = map[string]float64{
	"tr": 0.75,
	"us": 1.00,
	"uk": 1.08,
	"de": 1.12,
	"se": 1.15,
}

var seedDiscountTiers = []float64{10, 15, 20, 25, 30, 40, 50}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fills a database with a realistic demo dataset.",
	Run: func(cmd *cobra.Command, args []string) {
		database, err := sqliteutil.OpenDB(pricestoredb.Schema, *seedDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		store := pricestore.NewService(database)

		now := timezone.Now()
		weekAgo := timezone.StartOfDay(now.AddDate(0, 0, -7))

		var current []pricestore.ObservedListing
		var historical []pricestore.ObservedListing

		articleCounter := 1000000
		for i := 0; i < *seedProducts; i++ {
			category := seedPick(seedCategories)
			adjective := seedPick(seedAdjectives)
			noun := seedPick(category.nouns)

			articleCode := fmt.Sprintf("%07d001", articleCounter)
			articleCounter++

			baseUsd := float64(seedIntRange(category.minUsd, category.maxUsd+1))
			name := adjective + " " + noun

			for _, regionCode := range seedPickRegions() {
				region := retail.Regions[regionCode]
				rate, ok := currency.ApproximateRate(region.Currency)
				if !ok {
					serviceutil.Fatal("no approximate rate for currency", fmt.Errorf("currency %q", region.Currency))
				}

				price := seedRound(baseUsd * seedRegionMultipliers[regionCode] / rate)

				listing := pricestore.ObservedListing{
					ArticleCode: articleCode,
					Name:        name,
					Category:    category.name,
					ImageUrl:    fmt.Sprintf("https://image.hm.com/assets/%s/%s.jpg", category.imageSlug, articleCode),
					Region:      regionCode,
					PriceLocal:  price,
					Currency:    region.Currency,
					PriceUsd:    seedRound(price * rate),
					InStock:     true,
				}

				// roughly 40% of listings carry a discount
				if seedIntRange(0, 100) < 40 {
					tier := seedPick(seedDiscountTiers)
					listing.OriginalPriceLocal = price
					listing.PriceLocal = seedRound(price * (1 - tier/100))
					listing.PriceUsd = seedRound(listing.PriceLocal * rate)
					listing.DiscountPct = tier
				}
				current = append(current, listing)

				// last week's price drifts up to 5% either way
				past := listing
				drift := 1 + float64(seedIntRange(-5, 6))/100
				past.PriceLocal = seedRound(past.PriceLocal * drift)
				past.PriceUsd = seedRound(past.PriceLocal * rate)
				if past.OriginalPriceLocal > 0 {
					past.OriginalPriceLocal = seedRound(past.OriginalPriceLocal * drift)
				}
				historical = append(historical, past)
			}
		}

		err = store.Record(cmd.Context(), pricestore.RecordRequest{
			Time:     weekAgo,
			Listings: historical,
		})
		if err != nil {
			serviceutil.Fatal("failed to record historical batch", err)
		}
		err = store.Record(cmd.Context(), pricestore.RecordRequest{
			Time:     now,
			Listings: current,
		})
		if err != nil {
			serviceutil.Fatal("failed to record current batch", err)
		}

		slog.Info(
			"seeded database",
			"db", *seedDb,
			"products", *seedProducts,
			"observations", len(current)+len(historical),
		)
	},
}

// seedPickRegions spreads a product over storefronts: roughly 40% of
// products are global and sold in 3-5 regions, the rest in 1 or 2.
func seedPickRegions() []string {
	codes := make([]string, 0, len(retail.Regions))
	for code := range retail.Regions {
		codes = append(codes, code)
	}
	for i := len(codes) - 1; i > 0; i-- {
		j := seedIntRange(0, i+1)
		codes[i], codes[j] = codes[j], codes[i]
	}

	var count int
	if seedIntRange(0, 100) < 40 {
		count = seedIntRange(3, 6)
	} else {
		count = seedIntRange(1, 3)
	}
	if count > len(codes) {
		count = len(codes)
	}
	return codes[:count]
}

func seedPick[T any](options []T) T {
	return options[seedIntRange(0, len(options))]
}

func seedIntRange(min, max int) int {
	n, err := random.IntRange(min, max)
	if err != nil {
		serviceutil.Fatal("failed to generate random number", err)
	}
	return n
}

func seedRound(x float64) float64 {
	return math.Round(x*100) / 100
}
