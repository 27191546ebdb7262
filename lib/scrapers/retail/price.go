package retail

import (
	"fmt"
	"strconv"
	"strings"
)

var currencyMarkers = []string{"TL", "₺", "$", "£", "€", "SEK", "kr", " "}

// ParsePrice extracts a numeric amount from storefront price text.
// Formats vary by locale: "299,99 TL", "$1,299.99", "£29.99", "29,99 €",
// "1.299,99", "349 kr".
func ParsePrice(text string) (float64, error) {
	cleaned := strings.TrimSpace(text)
	for _, marker := range currencyMarkers {
		cleaned = strings.ReplaceAll(cleaned, marker, "")
	}
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty price text %q", text)
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		// european long form: 1.299,99
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case lastComma >= 0 && lastDot >= 0:
		// US long form: 1,299.99
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case lastComma >= 0:
		if len(cleaned)-lastComma-1 == 3 {
			// US thousands with no decimals: 1,299
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			// european decimal comma: 299,99
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
	case lastDot >= 0:
		if len(cleaned)-lastDot-1 == 3 {
			// european thousands with no decimals: 1.299
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q: %w", text, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative price %q", text)
	}
	return value, nil
}
