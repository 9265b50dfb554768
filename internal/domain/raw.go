package domain

// RawRecord is the unvalidated output of a site extraction adaptor.
// One record per product listing seen during a scrape of (site, query).
// Raw records are consumed by the normalizer and never persisted. JSON tags
// match the NDJSON dumps adaptors hand to the ingestion boundary.
type RawRecord struct {
	Site      string `json:"site"`       // retailer identifier, e.g. "amazon"
	Query     string `json:"query"`      // search term that produced this record
	RawTitle  string `json:"raw_title"`  // product title as extracted, original casing
	RawPrice  string `json:"raw_price"`  // price string as extracted, e.g. "$1,299.99"
	RawURL    string `json:"raw_url"`    // product page URL as extracted
	FetchedAt int64  `json:"fetched_at"` // Unix timestamp in milliseconds

	// Optional extras some adaptors provide.
	Availability string   `json:"availability,omitempty"`  // e.g. "In Stock", empty if unknown
	Rating       *float64 `json:"rating,omitempty"`        // star rating, nil if not extracted
	ReviewsCount *int     `json:"reviews_count,omitempty"` // review count, nil if not extracted
}
