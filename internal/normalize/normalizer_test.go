package normalize

import (
	"testing"

	"pricetrack/internal/domain"
)

func validRaw() *domain.RawRecord {
	return &domain.RawRecord{
		Site:      "ebay",
		Query:     "usb cable",
		RawTitle:  "  USB-C   Cable 2m  ",
		RawPrice:  "$9.99",
		RawURL:    "https://ebay.example.com/itm/123",
		FetchedAt: 1700000000000,
	}
}

func TestNormalizeValidRecord(t *testing.T) {
	n := New("USD")

	c, err := n.Normalize(validRaw())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if c.NormalizedTitle != "usb-c cable 2m" {
		t.Errorf("normalized title = %q, want %q", c.NormalizedTitle, "usb-c cable 2m")
	}
	if c.DisplayTitle != "USB-C   Cable 2m" {
		t.Errorf("display title = %q, want trimmed original", c.DisplayTitle)
	}
	if got := c.Price.String(); got != "9.99" {
		t.Errorf("price = %s, want 9.99", got)
	}
	if c.Currency != "USD" {
		t.Errorf("currency = %q, want USD", c.Currency)
	}
	if c.ObservedAt != 1700000000000 {
		t.Errorf("observed_at = %d, want fetched_at", c.ObservedAt)
	}
}

func TestParsePriceFormats(t *testing.T) {
	n := New("USD")

	tests := []struct {
		name     string
		raw      string
		price    string
		currency string
	}{
		{"symbol prefix", "$9.99", "9.99", "USD"},
		{"pound with thousands", "£1,299.00", "1299", "GBP"},
		{"euro integer", "€15", "15", "EUR"},
		{"yen", "¥1500", "1500", "JPY"},
		{"iso code before", "USD 9.99", "9.99", "USD"},
		{"iso code after", "9.99 GBP", "9.99", "GBP"},
		{"bare number uses default", "9.99", "9.99", "USD"},
		{"surrounding text", "Buy now: $24.50 only", "24.5", "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, currency, err := n.parsePrice(tt.raw)
			if err != nil {
				t.Fatalf("parsePrice(%q) failed: %v", tt.raw, err)
			}
			if price.String() != tt.price {
				t.Errorf("price = %s, want %s", price.String(), tt.price)
			}
			if currency != tt.currency {
				t.Errorf("currency = %q, want %q", currency, tt.currency)
			}
		})
	}
}

func TestParsePriceDefaultCurrencyConfigurable(t *testing.T) {
	n := New("EUR")

	_, currency, err := n.parsePrice("42.00")
	if err != nil {
		t.Fatalf("parsePrice failed: %v", err)
	}
	if currency != "EUR" {
		t.Errorf("currency = %q, want configured default EUR", currency)
	}
}

func TestNormalizeRejectsBadRecords(t *testing.T) {
	n := New("USD")

	tests := []struct {
		name   string
		mutate func(r *domain.RawRecord)
		kind   Kind
	}{
		{"empty title", func(r *domain.RawRecord) { r.RawTitle = "   " }, KindMissingTitle},
		{"no number in price", func(r *domain.RawRecord) { r.RawPrice = "call for price" }, KindUnparseablePrice},
		{"zero price", func(r *domain.RawRecord) { r.RawPrice = "$0.00" }, KindUnparseablePrice},
		{"empty price", func(r *domain.RawRecord) { r.RawPrice = "" }, KindUnparseablePrice},
		{"relative url", func(r *domain.RawRecord) { r.RawURL = "/itm/123" }, KindMalformedURL},
		{"wrong scheme", func(r *domain.RawRecord) { r.RawURL = "ftp://host/x" }, KindMalformedURL},
		{"empty url", func(r *domain.RawRecord) { r.RawURL = "" }, KindMalformedURL},
		{"zero timestamp", func(r *domain.RawRecord) { r.FetchedAt = 0 }, KindBadTimestamp},
		{"negative timestamp", func(r *domain.RawRecord) { r.FetchedAt = -5 }, KindBadTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(raw)

			_, err := n.Normalize(raw)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !IsValidation(err) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if got := KindOf(err); got != tt.kind {
				t.Errorf("kind = %q, want %q", got, tt.kind)
			}
		})
	}
}

func TestNormalizeTitleCollapsesWhitespace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"USB-C Cable", "usb-c cable"},
		{"  USB-C \t Cable\n2m ", "usb-c cable 2m"},
		{"ALREADY lower", "already lower"},
	}

	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
