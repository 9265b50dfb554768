package storage

import (
	"context"

	"pricetrack/internal/domain"
)

// IdentityStore provides access to product_identities storage.
// Identities are created once and never deleted; aliases only grow.
type IdentityStore interface {
	// InsertIfAbsent adds a new identity. Returns ErrDuplicateKey if an
	// identity with the same id already exists (the stored row wins).
	InsertIfAbsent(ctx context.Context, p *domain.ProductIdentity) error

	// GetByID retrieves an identity by its id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.ProductIdentity, error)

	// GetByQuery retrieves all identities first seen under a query,
	// ordered by updated_at DESC (most recently matched first).
	GetByQuery(ctx context.Context, query string) ([]*domain.ProductIdentity, error)

	// AddAlias records a matched title on an identity and bumps updated_at.
	// Adding an alias that is already present still bumps updated_at.
	// Returns ErrNotFound if the identity does not exist.
	AddAlias(ctx context.Context, id, alias string, updatedAt int64) error
}

// ObservationStore provides access to observations storage.
// The dedup key is (product_id, site, day); Upsert overwrites on conflict.
type ObservationStore interface {
	// Upsert writes an observation. Returns true if a new row was inserted,
	// false if an existing row for the same (product_id, site, day) was
	// replaced. Atomic per key.
	Upsert(ctx context.Context, o *domain.PriceObservation) (inserted bool, err error)

	// GetSeries retrieves all observations for (product_id, site),
	// ordered by observed_at ASC.
	GetSeries(ctx context.Context, productID, site string) ([]*domain.PriceObservation, error)

	// GetByTimeRange retrieves observations for (product_id, site) with
	// observed_at within [from, to] (inclusive), ordered by observed_at ASC.
	GetByTimeRange(ctx context.Context, productID, site string, from, to int64) ([]*domain.PriceObservation, error)

	// Sites returns the distinct sites with observations for a product,
	// sorted ascending.
	Sites(ctx context.Context, productID string) ([]string, error)
}
