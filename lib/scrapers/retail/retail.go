package retail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"time"

	"pricewatch-backend/lib/htmlutil"
	"pricewatch-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/retail")

// Listing is one product as it appeared on a listing page.
type Listing struct {
	ArticleCode        string
	Name               string
	Url                string
	PriceLocal         float64
	OriginalPriceLocal float64
	DiscountPct        float64
	Currency           string
	Region             string
	InStock            bool
}

type ClientOptions struct {
	// overrides the per-region storefront base url, used in tests
	BaseUrl string
	// defaults to 30s
	Timeout time.Duration
}

type Client struct {
	http    *resty.Client
	baseUrl string
}

// storefrontHosts is the hostnames redirects are allowed to land on:
// every registered storefront plus the test override if one is set.
func storefrontHosts(override string) []string {
	seen := map[string]bool{}
	var hosts []string
	add := func(rawUrl string) {
		parsed, err := url.Parse(rawUrl)
		if err != nil || parsed.Hostname() == "" || seen[parsed.Hostname()] {
			return
		}
		seen[parsed.Hostname()] = true
		hosts = append(hosts, parsed.Hostname())
	}
	for _, region := range Regions {
		add(region.BaseUrl)
	}
	if override != "" {
		add(override)
	}
	return hosts
}

func NewClient(opts ClientOptions) (*Client, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	// storefronts 403 plain http clients; the previous iteration of this
	// system drove a headless browser to get around that
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(storefrontHosts(opts.BaseUrl)...))
	client.SetRetryCount(2)
	client.SetRetryWaitTime(time.Second * 2)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		return err != nil || res.StatusCode() >= 500 || res.StatusCode() == 429
	})

	telemetry.InstrumentResty(client, "scrapers/retail/http")

	return &Client{
		http:    client,
		baseUrl: opts.BaseUrl,
	}, nil
}

// FetchCategory scrapes one category listing page of a regional
// storefront. Items missing an article code or a parseable price are
// skipped; the page failing to load is an error.
func (c *Client) FetchCategory(ctx context.Context, region Region, categoryPath string, maxItems int) ([]Listing, error) {
	ctx, span := tracer.Start(ctx, "FetchCategory")
	defer span.End()
	span.SetAttributes(
		attribute.String("region", region.Code),
		attribute.String("category", categoryPath),
	)

	baseUrl := region.BaseUrl
	if c.baseUrl != "" {
		baseUrl = c.baseUrl
	}
	link := baseUrl + categoryPath

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("accept-language", region.Locale).
		Get(link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch listing page")
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("listing page returned status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing page error status")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse listing page")
		return nil, err
	}

	items := doc.Find("li.product-item")
	if items.Length() == 0 {
		items = doc.Find("article.hm-product-item")
	}
	if items.Length() == 0 {
		items = doc.Find("[data-articlecode]")
	}

	var listings []Listing
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if maxItems > 0 && len(listings) >= maxItems {
			return false
		}

		code := item.AttrOr("data-articlecode", "")
		if code == "" {
			code = item.Find("article").AttrOr("data-articlecode", "")
		}
		if code == "" {
			// without the retailer's global identifier the product
			// can't be tracked across regions
			return true
		}

		name := htmlutil.CleanText(item.Find(".item-heading, h3.link, a.link").First().Text())
		if name == "" {
			name = "Unknown Product"
		}

		priceText := item.Find(".price, .ae-currency-price, [class*=\"price\"]").First().Text()
		price, err := ParsePrice(priceText)
		if err != nil {
			slog.DebugContext(ctx, "skipping listing without price",
				"article", code, "region", region.Code, "err", err)
			return true
		}

		var original float64
		originalText := item.Find(".price-old, .old-price, [class*=\"original\"]").First().Text()
		if originalText != "" {
			original, err = ParsePrice(originalText)
			if err != nil {
				original = 0
			}
		}

		var discount float64
		if original > price {
			discount = (original - price) / original * 100
		} else {
			original = 0
		}

		listings = append(listings, Listing{
			ArticleCode:        code,
			Name:               name,
			Url:                link,
			PriceLocal:         price,
			OriginalPriceLocal: original,
			DiscountPct:        discount,
			Currency:           region.Currency,
			Region:             region.Code,
			// listed products are treated as in stock, the listing page
			// does not expose availability
			InStock: true,
		})
		return true
	})

	span.SetAttributes(attribute.Int("listing_count", len(listings)))
	return listings, nil
}
