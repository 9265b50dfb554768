package clickhouse

import (
	"context"
	"fmt"

	"pricetrack/internal/domain"
	"pricetrack/internal/storage"
)

// ObservationStore implements storage.ObservationStore using ClickHouse.
//
// The observations table is a ReplacingMergeTree keyed by
// (product_id, site, day) with observed_at as the version column, so
// writing the same day twice converges to the newest fetch after merges.
// All reads use FINAL to see last-write-wins semantics before merges run.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// Upsert writes an observation. ReplacingMergeTree handles the overwrite;
// the exists probe only decides the inserted/overwritten report.
func (s *ObservationStore) Upsert(ctx context.Context, o *domain.PriceObservation) (bool, error) {
	if o == nil || o.ProductID == "" || o.Site == "" || o.Day == "" {
		return false, storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, o.ProductID, o.Site, o.Day)
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}

	query := `
		INSERT INTO observations (
			product_id, site, day, price, currency, url, title, observed_at,
			availability, rating, reviews_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := o.CreatedAt
	if createdAt == 0 {
		createdAt = o.ObservedAt
	}

	var reviews *int32
	if o.ReviewsCount != nil {
		v := int32(*o.ReviewsCount)
		reviews = &v
	}

	err = s.conn.Exec(ctx, query,
		o.ProductID, o.Site, o.Day,
		o.Price, o.Currency, o.URL, o.Title, uint64(o.ObservedAt),
		o.Availability, o.Rating, reviews, uint64(createdAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert observation: %w", err)
	}

	return !exists, nil
}

// GetSeries retrieves all observations for (product_id, site), ordered by
// observed_at ASC.
func (s *ObservationStore) GetSeries(ctx context.Context, productID, site string) ([]*domain.PriceObservation, error) {
	query := `
		SELECT product_id, site, day, price, currency, url, title, observed_at,
		       availability, rating, reviews_count, created_at
		FROM observations FINAL
		WHERE product_id = ? AND site = ?
		ORDER BY observed_at ASC, day ASC
	`

	rows, err := s.conn.Query(ctx, query, productID, site)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByTimeRange retrieves observations within [from, to] (inclusive),
// ordered by observed_at ASC.
func (s *ObservationStore) GetByTimeRange(ctx context.Context, productID, site string, from, to int64) ([]*domain.PriceObservation, error) {
	query := `
		SELECT product_id, site, day, price, currency, url, title, observed_at,
		       availability, rating, reviews_count, created_at
		FROM observations FINAL
		WHERE product_id = ? AND site = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC, day ASC
	`

	rows, err := s.conn.Query(ctx, query, productID, site, uint64(from), uint64(to))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// Sites returns the distinct sites with observations for a product, sorted.
func (s *ObservationStore) Sites(ctx context.Context, productID string) ([]string, error) {
	query := `
		SELECT DISTINCT site
		FROM observations FINAL
		WHERE product_id = ?
		ORDER BY site ASC
	`

	rows, err := s.conn.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("scan site row: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site rows: %w", err)
	}

	return sites, nil
}

// exists checks if an observation with the given dedup key exists.
func (s *ObservationStore) exists(ctx context.Context, productID, site, day string) (bool, error) {
	query := `
		SELECT count(*) FROM observations FINAL
		WHERE product_id = ? AND site = ? AND day = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, productID, site, day).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanObservations scans multiple rows into a slice of PriceObservation.
func scanObservations(rows chRows) ([]*domain.PriceObservation, error) {
	var observations []*domain.PriceObservation

	for rows.Next() {
		var o domain.PriceObservation
		var observedAt, createdAt uint64
		var reviews *int32

		err := rows.Scan(
			&o.ProductID, &o.Site, &o.Day,
			&o.Price, &o.Currency, &o.URL, &o.Title, &observedAt,
			&o.Availability, &o.Rating, &reviews, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}

		o.ObservedAt = int64(observedAt)
		o.CreatedAt = int64(createdAt)
		if reviews != nil {
			v := int(*reviews)
			o.ReviewsCount = &v
		}
		observations = append(observations, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return observations, nil
}
