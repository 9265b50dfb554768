// Package ingestion orchestrates the raw-record pipeline: fetch from
// sources, normalize, resolve identity, append to the ledger.
package ingestion

import (
	"context"

	"pricetrack/internal/domain"
)

// RecordSource produces raw extraction records for one retail site.
// Implementations are independently swappable; the pipeline never depends
// on how a site's results were obtained.
type RecordSource interface {
	// Site is the stable source label recorded on observations.
	Site() string
	// Fetch returns the raw records extracted for a search query.
	Fetch(ctx context.Context, query string) ([]*domain.RawRecord, error)
}
