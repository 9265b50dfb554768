// Package normalize converts raw extraction records into validated
// observation candidates. Normalization is a pure function over its input;
// identity resolution and persistence happen downstream.
package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"pricetrack/internal/domain"
)

// Candidate is a normalized raw record, ready for identity resolution.
// It carries both title forms: the normalized one feeds the resolver, the
// display one ends up on the stored observation.
type Candidate struct {
	Site            string
	Query           string
	NormalizedTitle string
	DisplayTitle    string
	Price           decimal.Decimal
	Currency        string
	URL             string
	ObservedAt      int64

	Availability string
	Rating       *float64
	ReviewsCount *int
}

// Accepted price-string shapes, enumerated rather than guessed:
//   - symbol prefix:   "$9.99", "£1,299.00", "€15"
//   - ISO code:        "USD 9.99", "9.99 USD"
//   - bare number:     "9.99" (currency falls back to the configured default)
//
// Thousands separators are commas; the decimal separator is a point.
var (
	isoCodeRegex = regexp.MustCompile(`\b([A-Z]{3})\b`)
	numberRegex  = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	spaceRegex   = regexp.MustCompile(`\s+`)
)

// symbolCurrencies maps currency symbols to ISO 4217 codes.
var symbolCurrencies = map[string]string{
	"$": "USD",
	"£": "GBP",
	"€": "EUR",
	"¥": "JPY",
}

// Normalizer validates raw records and produces observation candidates.
type Normalizer struct {
	defaultCurrency string
}

// New creates a Normalizer. defaultCurrency is applied when a price string
// carries no currency signal; the chosen currency is always recorded on the
// candidate, never silently dropped.
func New(defaultCurrency string) *Normalizer {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Normalizer{defaultCurrency: defaultCurrency}
}

// Normalize converts a raw record into a candidate or fails with a
// *ValidationError. It has no side effects.
func (n *Normalizer) Normalize(raw *domain.RawRecord) (*Candidate, error) {
	displayTitle := strings.TrimSpace(raw.RawTitle)
	if displayTitle == "" {
		return nil, &ValidationError{Kind: KindMissingTitle, Field: "raw_title", Value: raw.RawTitle}
	}

	if raw.FetchedAt <= 0 {
		return nil, &ValidationError{Kind: KindBadTimestamp, Field: "fetched_at", Value: ""}
	}

	price, currency, err := n.parsePrice(raw.RawPrice)
	if err != nil {
		return nil, err
	}

	if err := validateURL(raw.RawURL); err != nil {
		return nil, err
	}

	return &Candidate{
		Site:            raw.Site,
		Query:           raw.Query,
		NormalizedTitle: NormalizeTitle(displayTitle),
		DisplayTitle:    displayTitle,
		Price:           price,
		Currency:        currency,
		URL:             raw.RawURL,
		ObservedAt:      raw.FetchedAt,
		Availability:    strings.TrimSpace(raw.Availability),
		Rating:          raw.Rating,
		ReviewsCount:    raw.ReviewsCount,
	}, nil
}

// NormalizeTitle lower-cases and collapses whitespace for matching.
func NormalizeTitle(title string) string {
	return spaceRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), " ")
}

// parsePrice extracts a positive decimal amount and a currency code.
func (n *Normalizer) parsePrice(rawPrice string) (decimal.Decimal, string, error) {
	s := strings.TrimSpace(rawPrice)

	numToken := numberRegex.FindString(s)
	if numToken == "" {
		return decimal.Zero, "", &ValidationError{Kind: KindUnparseablePrice, Field: "raw_price", Value: rawPrice}
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(numToken, ",", ""))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, "", &ValidationError{Kind: KindUnparseablePrice, Field: "raw_price", Value: rawPrice}
	}

	return amount, n.detectCurrency(s), nil
}

// detectCurrency returns the ISO code signalled by the price string, or the
// configured default when neither a symbol nor a code is present.
func (n *Normalizer) detectCurrency(s string) string {
	for symbol, code := range symbolCurrencies {
		if strings.Contains(s, symbol) {
			return code
		}
	}
	if m := isoCodeRegex.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return n.defaultCurrency
}

// validateURL requires an absolute http(s) URL with a host.
func validateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Kind: KindMalformedURL, Field: "raw_url", Value: rawURL}
	}
	return nil
}
