// Package stub provides a fixture-driven record source for tests and
// local runs without a live adaptor.
package stub

import (
	"context"
	"sync"

	"pricetrack/internal/domain"
	"pricetrack/internal/ingestion"
)

// Source serves canned raw records keyed by query.
type Source struct {
	site string

	mu      sync.Mutex
	records map[string][]*domain.RawRecord
	err     error
}

// New creates an empty stub source for a site.
func New(site string) *Source {
	return &Source{
		site:    site,
		records: make(map[string][]*domain.RawRecord),
	}
}

// Compile-time interface check.
var _ ingestion.RecordSource = (*Source)(nil)

// Add registers records to return for a query. The site field on each
// record is set to the source's site.
func (s *Source) Add(query string, records ...*domain.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		r.Site = s.site
		r.Query = query
		s.records[query] = append(s.records[query], r)
	}
}

// FailWith makes every subsequent Fetch return err.
func (s *Source) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Source) Site() string {
	return s.site
}

func (s *Source) Fetch(ctx context.Context, query string) ([]*domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	out := make([]*domain.RawRecord, len(s.records[query]))
	copy(out, s.records[query])
	return out, nil
}
