package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is one normalized price sighting of a product on a site.
// Corresponds to observations table. Immutable after append; re-ingestion of
// the same (product_id, site, day) replaces the stored row.
type PriceObservation struct {
	ProductID  string          // FK to product_identities
	Site       string          // retailer identifier
	Price      decimal.Decimal // price amount
	Currency   string          // ISO 4217 code, e.g. "USD"
	URL        string          // product page URL
	Title      string          // display title, original casing
	ObservedAt int64           // Unix timestamp in milliseconds, full precision
	Day        string          // UTC day bucket "2006-01-02", dedup key component

	// Optional extraction extras, carried through for export.
	Availability string   // empty if unknown
	Rating       *float64 // nil if not extracted
	ReviewsCount *int     // nil if not extracted

	CreatedAt int64 // record creation timestamp (ms), set by storage
}

// AppendOutcome reports what Ledger.Append did with an observation.
type AppendOutcome string

const (
	// AppendInserted means no observation existed for the dedup key.
	AppendInserted AppendOutcome = "inserted"
	// AppendOverwritten means an existing observation for the same
	// (product_id, site, day) was replaced.
	AppendOverwritten AppendOutcome = "overwritten"
)

// DayOf truncates a millisecond timestamp to its UTC day bucket.
func DayOf(tsMs int64) string {
	return time.UnixMilli(tsMs).UTC().Format("2006-01-02")
}
