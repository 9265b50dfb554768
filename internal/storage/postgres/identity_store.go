package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pricetrack/internal/domain"
	"pricetrack/internal/storage"
)

// IdentityStore implements storage.IdentityStore using PostgreSQL.
type IdentityStore struct {
	pool *Pool
}

// NewIdentityStore creates a new IdentityStore.
func NewIdentityStore(pool *Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IdentityStore = (*IdentityStore)(nil)

// InsertIfAbsent adds a new identity. Returns ErrDuplicateKey if the id
// exists; ON CONFLICT DO NOTHING makes the insert race-safe across
// processes without taking a global lock.
func (s *IdentityStore) InsertIfAbsent(ctx context.Context, p *domain.ProductIdentity) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO product_identities (
			id, query, canonical_name, aliases, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		p.ID,
		p.Query,
		p.CanonicalName,
		p.Aliases,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

// GetByID retrieves an identity by its id. Returns ErrNotFound if not exists.
func (s *IdentityStore) GetByID(ctx context.Context, id string) (*domain.ProductIdentity, error) {
	query := `
		SELECT id, query, canonical_name, aliases, created_at, updated_at
		FROM product_identities
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	p, err := scanIdentity(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get identity by id: %w", err)
	}
	return p, nil
}

// GetByQuery retrieves all identities for a query, ordered by updated_at DESC.
func (s *IdentityStore) GetByQuery(ctx context.Context, searchQuery string) ([]*domain.ProductIdentity, error) {
	query := `
		SELECT id, query, canonical_name, aliases, created_at, updated_at
		FROM product_identities
		WHERE query = $1
		ORDER BY updated_at DESC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, searchQuery)
	if err != nil {
		return nil, fmt.Errorf("get identities by query: %w", err)
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// AddAlias records a matched title on an identity and bumps updated_at.
// The append is a single statement so concurrent matchers cannot lose
// aliases to each other.
func (s *IdentityStore) AddAlias(ctx context.Context, id, alias string, updatedAt int64) error {
	if id == "" || alias == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE product_identities
		SET aliases = CASE
				WHEN $2 = ANY(aliases) THEN aliases
				ELSE array_append(aliases, $2)
			END,
			updated_at = GREATEST(updated_at, $3)
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, alias, updatedAt)
	if err != nil {
		return fmt.Errorf("add alias: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanIdentity scans a single row into a ProductIdentity.
func scanIdentity(row pgx.Row) (*domain.ProductIdentity, error) {
	var p domain.ProductIdentity

	err := row.Scan(
		&p.ID,
		&p.Query,
		&p.CanonicalName,
		&p.Aliases,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// scanIdentities scans multiple rows into a slice of ProductIdentity.
func scanIdentities(rows pgx.Rows) ([]*domain.ProductIdentity, error) {
	var identities []*domain.ProductIdentity

	for rows.Next() {
		var p domain.ProductIdentity

		err := rows.Scan(
			&p.ID,
			&p.Query,
			&p.CanonicalName,
			&p.Aliases,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan identity row: %w", err)
		}

		identities = append(identities, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity rows: %w", err)
	}

	return identities, nil
}
