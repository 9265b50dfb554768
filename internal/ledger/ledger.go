// Package ledger is the append surface over observation storage. It owns
// the one-observation-per-day rule: appending a second observation for the
// same (product, site, day) overwrites the first instead of growing the
// series.
package ledger

import (
	"context"
	"fmt"
	"log"

	"pricetrack/internal/domain"
	"pricetrack/internal/storage"
)

// Ledger records and reads price observations.
type Ledger struct {
	store  storage.ObservationStore
	logger *log.Logger
}

// New creates a Ledger over an observation store.
func New(store storage.ObservationStore, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.Default()
	}
	return &Ledger{store: store, logger: logger}
}

// Append records an observation under its (product_id, site, day) key.
// The day bucket is derived from ObservedAt if unset. The append is atomic
// per key; readers never see a partially applied overwrite.
func (l *Ledger) Append(ctx context.Context, o *domain.PriceObservation) (domain.AppendOutcome, error) {
	if o == nil || o.ProductID == "" || o.Site == "" {
		return "", storage.ErrInvalidInput
	}
	if o.ObservedAt <= 0 {
		return "", storage.ErrInvalidInput
	}
	if o.Day == "" {
		o.Day = domain.DayOf(o.ObservedAt)
	}

	inserted, err := l.store.Upsert(ctx, o)
	if err != nil {
		return "", fmt.Errorf("append observation: %w", err)
	}

	if inserted {
		return domain.AppendInserted, nil
	}
	l.logger.Printf("[ledger] overwrote %s/%s/%s", o.ProductID, o.Site, o.Day)
	return domain.AppendOverwritten, nil
}

// Read returns the full series for (product_id, site), ordered by
// observed_at ascending. An unknown key yields an empty series, not an
// error.
func (l *Ledger) Read(ctx context.Context, productID, site string) ([]*domain.PriceObservation, error) {
	if productID == "" || site == "" {
		return nil, storage.ErrInvalidInput
	}
	series, err := l.store.GetSeries(ctx, productID, site)
	if err != nil {
		return nil, fmt.Errorf("read series: %w", err)
	}
	return series, nil
}

// ReadRange returns the series restricted to observed_at in [from, to].
func (l *Ledger) ReadRange(ctx context.Context, productID, site string, from, to int64) ([]*domain.PriceObservation, error) {
	if productID == "" || site == "" || from > to {
		return nil, storage.ErrInvalidInput
	}
	series, err := l.store.GetByTimeRange(ctx, productID, site, from, to)
	if err != nil {
		return nil, fmt.Errorf("read series range: %w", err)
	}
	return series, nil
}

// Sites lists the sites that have at least one observation for a product.
func (l *Ledger) Sites(ctx context.Context, productID string) ([]string, error) {
	if productID == "" {
		return nil, storage.ErrInvalidInput
	}
	sites, err := l.store.Sites(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}
