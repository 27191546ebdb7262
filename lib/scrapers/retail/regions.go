package retail

import "fmt"

// Region describes a single regional storefront of the retailer.
type Region struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	BaseUrl  string `json:"base_url"`
	Currency string `json:"currency"`
	Locale   string `json:"locale"`
}

// Regions is the registry of storefronts the scraper knows how to reach.
// Article codes are stable across all of them, which is what makes
// cross-region comparison possible.
var Regions = map[string]Region{
	"tr": {
		Code:     "tr",
		Name:     "Turkey",
		BaseUrl:  "https://www2.hm.com/tr_tr",
		Currency: "TRY",
		Locale:   "tr-tr",
	},
	"us": {
		Code:     "us",
		Name:     "United States",
		BaseUrl:  "https://www2.hm.com/en_us",
		Currency: "USD",
		Locale:   "en-us",
	},
	"uk": {
		Code:     "uk",
		Name:     "United Kingdom",
		BaseUrl:  "https://www2.hm.com/en_gb",
		Currency: "GBP",
		Locale:   "en-gb",
	},
	"de": {
		Code:     "de",
		Name:     "Germany",
		BaseUrl:  "https://www2.hm.com/de_de",
		Currency: "EUR",
		Locale:   "de-de",
	},
	"se": {
		Code:     "se",
		Name:     "Sweden",
		BaseUrl:  "https://www2.hm.com/sv_se",
		Currency: "SEK",
		Locale:   "sv-se",
	},
}

// DefaultCategories maps a region to the category listing paths worth
// tracking there. Paths are storefront-locale specific so they cannot be
// shared across regions.
var DefaultCategories = map[string][]string{
	"tr": {"/kadin/urunler/elbiseler.html"},
	"us": {"/women/products/dresses.html"},
	"uk": {"/ladies/products/dresses.html"},
	"de": {"/damen/produkte/kleider.html"},
	"se": {"/dam/produkter/klanningar.html"},
}

func LookupRegion(code string) (Region, error) {
	region, ok := Regions[code]
	if !ok {
		return Region{}, fmt.Errorf("unknown region code %q", code)
	}
	return region, nil
}
