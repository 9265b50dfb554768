package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"pricetrack/internal/domain"
	"pricetrack/internal/storage"
)

// ObservationStore implements storage.ObservationStore using PostgreSQL.
type ObservationStore struct {
	pool *Pool
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(pool *Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// Upsert writes an observation, replacing any existing row for the same
// (product_id, site, day). The ON CONFLICT upsert is atomic per key;
// xmax = 0 distinguishes a fresh insert from an overwrite.
func (s *ObservationStore) Upsert(ctx context.Context, o *domain.PriceObservation) (bool, error) {
	if o == nil || o.ProductID == "" || o.Site == "" || o.Day == "" {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO observations (
			product_id, site, day, price, currency, url, title, observed_at,
			availability, rating, reviews_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (product_id, site, day) DO UPDATE SET
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			observed_at = EXCLUDED.observed_at,
			availability = EXCLUDED.availability,
			rating = EXCLUDED.rating,
			reviews_count = EXCLUDED.reviews_count
		RETURNING (xmax = 0) AS inserted
	`

	var inserted bool
	err := s.pool.QueryRow(ctx, query,
		o.ProductID,
		o.Site,
		o.Day,
		o.Price.String(),
		o.Currency,
		o.URL,
		o.Title,
		o.ObservedAt,
		o.Availability,
		o.Rating,
		o.ReviewsCount,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert observation: %w", err)
	}
	return inserted, nil
}

// GetSeries retrieves all observations for (product_id, site), ordered by
// observed_at ASC.
func (s *ObservationStore) GetSeries(ctx context.Context, productID, site string) ([]*domain.PriceObservation, error) {
	query := `
		SELECT product_id, site, day, price::text, currency, url, title, observed_at,
		       availability, rating, reviews_count, created_at
		FROM observations
		WHERE product_id = $1 AND site = $2
		ORDER BY observed_at ASC, day ASC
	`

	rows, err := s.pool.Query(ctx, query, productID, site)
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByTimeRange retrieves observations within [from, to] (inclusive),
// ordered by observed_at ASC.
func (s *ObservationStore) GetByTimeRange(ctx context.Context, productID, site string, from, to int64) ([]*domain.PriceObservation, error) {
	query := `
		SELECT product_id, site, day, price::text, currency, url, title, observed_at,
		       availability, rating, reviews_count, created_at
		FROM observations
		WHERE product_id = $1 AND site = $2 AND observed_at >= $3 AND observed_at <= $4
		ORDER BY observed_at ASC, day ASC
	`

	rows, err := s.pool.Query(ctx, query, productID, site, from, to)
	if err != nil {
		return nil, fmt.Errorf("get by time range: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// Sites returns the distinct sites with observations for a product, sorted.
func (s *ObservationStore) Sites(ctx context.Context, productID string) ([]string, error) {
	query := `
		SELECT DISTINCT site
		FROM observations
		WHERE product_id = $1
		ORDER BY site ASC
	`

	rows, err := s.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("get sites: %w", err)
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

// scanObservations scans multiple rows into a slice of PriceObservation.
func scanObservations(rows pgx.Rows) ([]*domain.PriceObservation, error) {
	var observations []*domain.PriceObservation

	for rows.Next() {
		var o domain.PriceObservation
		var priceStr string

		err := rows.Scan(
			&o.ProductID,
			&o.Site,
			&o.Day,
			&priceStr,
			&o.Currency,
			&o.URL,
			&o.Title,
			&o.ObservedAt,
			&o.Availability,
			&o.Rating,
			&o.ReviewsCount,
			&o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}

		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse stored price %q: %w", priceStr, err)
		}
		o.Price = price

		observations = append(observations, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return observations, nil
}
