package memory

import (
	"context"
	"sort"
	"sync"

	"pricetrack/internal/domain"
	"pricetrack/internal/storage"
)

// IdentityStore is an in-memory implementation of storage.IdentityStore.
type IdentityStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ProductIdentity // keyed by id
}

// NewIdentityStore creates a new in-memory identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		data: make(map[string]*domain.ProductIdentity),
	}
}

// InsertIfAbsent adds a new identity. Returns ErrDuplicateKey if the id exists.
func (s *IdentityStore) InsertIfAbsent(_ context.Context, p *domain.ProductIdentity) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[p.ID] = copyIdentity(p)
	return nil
}

// GetByID retrieves an identity by its id. Returns ErrNotFound if not exists.
func (s *IdentityStore) GetByID(_ context.Context, id string) (*domain.ProductIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyIdentity(p), nil
}

// GetByQuery retrieves all identities for a query, ordered by updated_at DESC.
func (s *IdentityStore) GetByQuery(_ context.Context, query string) ([]*domain.ProductIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ProductIdentity
	for _, p := range s.data {
		if p.Query == query {
			result = append(result, copyIdentity(p))
		}
	}

	// Most recently matched first; id as deterministic tie-break
	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt != result[j].UpdatedAt {
			return result[i].UpdatedAt > result[j].UpdatedAt
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// AddAlias records a matched title on an identity and bumps updated_at.
func (s *IdentityStore) AddAlias(_ context.Context, id, alias string, updatedAt int64) error {
	if id == "" || alias == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}

	if !p.HasAlias(alias) {
		p.Aliases = append(p.Aliases, alias)
	}
	if updatedAt > p.UpdatedAt {
		p.UpdatedAt = updatedAt
	}
	return nil
}

// copyIdentity returns a deep copy to prevent external mutation.
func copyIdentity(p *domain.ProductIdentity) *domain.ProductIdentity {
	identityCopy := *p
	identityCopy.Aliases = append([]string(nil), p.Aliases...)
	return &identityCopy
}

// Verify interface compliance at compile time.
var _ storage.IdentityStore = (*IdentityStore)(nil)
