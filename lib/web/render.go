package web

import (
	"embed"
	"html/template"
	"io"
	"time"

	"pricewatch-backend/lib/timezone"
	"pricewatch-backend/services/analytics"
)

//go:embed templates
var templatesFs embed.FS

type BaseContext struct {
	LastUpdated time.Time
}

func (c BaseContext) FormattedLastUpdated() string {
	if c.LastUpdated.IsZero() {
		return "never"
	}
	return c.LastUpdated.In(timezone.Location).Format("2006-01-02 15:04 MST")
}

type ParityContext struct {
	BaseContext
	Baseline string
	Rows     []analytics.ParityRow
}

type ArbitrageContext struct {
	BaseContext
	ThresholdPct float64
	Gaps         []analytics.ArbitrageGap
}

type DiscountsContext struct {
	BaseContext
	Rows []analytics.DiscountRow
}

func render(w io.Writer, page string, c any) error {
	t, err := template.ParseFS(templatesFs, "templates/"+page)
	if err != nil {
		return err
	}
	t, err = t.ParseFS(templatesFs, "templates/common/*")
	if err != nil {
		return err
	}
	return t.Execute(w, c)
}

func RenderHome(w io.Writer, c BaseContext) error {
	return render(w, "index.html.tpl", c)
}

func RenderParity(w io.Writer, c ParityContext) error {
	return render(w, "parity.html.tpl", c)
}

func RenderArbitrage(w io.Writer, c ArbitrageContext) error {
	return render(w, "arbitrage.html.tpl", c)
}

func RenderDiscounts(w io.Writer, c DiscountsContext) error {
	return render(w, "discounts.html.tpl", c)
}
