package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pricetrack/internal/domain"
	"pricetrack/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceObservation // keyed by (product_id, site, day)
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[string]*domain.PriceObservation),
	}
}

// obsKey generates the dedup key for an observation.
func obsKey(productID, site, day string) string {
	return fmt.Sprintf("%s|%s|%s", productID, site, day)
}

// Upsert writes an observation, replacing any existing row for the same
// (product_id, site, day). Returns true if a new row was inserted.
func (s *ObservationStore) Upsert(_ context.Context, o *domain.PriceObservation) (bool, error) {
	if o == nil || o.ProductID == "" || o.Site == "" || o.Day == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := obsKey(o.ProductID, o.Site, o.Day)
	_, exists := s.data[key]

	obsCopy := copyObservation(o)
	if exists {
		// Keep the original creation timestamp on overwrite
		obsCopy.CreatedAt = s.data[key].CreatedAt
	}
	s.data[key] = obsCopy

	return !exists, nil
}

// GetSeries retrieves all observations for (product_id, site), ordered by
// observed_at ASC.
func (s *ObservationStore) GetSeries(_ context.Context, productID, site string) ([]*domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceObservation
	for _, o := range s.data {
		if o.ProductID == productID && o.Site == site {
			result = append(result, copyObservation(o))
		}
	}

	sortObservations(result)
	return result, nil
}

// GetByTimeRange retrieves observations within [from, to] (inclusive),
// ordered by observed_at ASC.
func (s *ObservationStore) GetByTimeRange(_ context.Context, productID, site string, from, to int64) ([]*domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceObservation
	for _, o := range s.data {
		if o.ProductID == productID && o.Site == site && o.ObservedAt >= from && o.ObservedAt <= to {
			result = append(result, copyObservation(o))
		}
	}

	sortObservations(result)
	return result, nil
}

// Sites returns the distinct sites with observations for a product, sorted.
func (s *ObservationStore) Sites(_ context.Context, productID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, o := range s.data {
		if o.ProductID == productID {
			seen[o.Site] = struct{}{}
		}
	}

	sites := make([]string, 0, len(seen))
	for site := range seen {
		sites = append(sites, site)
	}
	sort.Strings(sites)

	return sites, nil
}

// sortObservations orders by observed_at ASC with day as tie-break.
func sortObservations(obs []*domain.PriceObservation) {
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].ObservedAt != obs[j].ObservedAt {
			return obs[i].ObservedAt < obs[j].ObservedAt
		}
		return obs[i].Day < obs[j].Day
	})
}

// copyObservation returns a copy to prevent external mutation.
func copyObservation(o *domain.PriceObservation) *domain.PriceObservation {
	obsCopy := *o
	if o.Rating != nil {
		r := *o.Rating
		obsCopy.Rating = &r
	}
	if o.ReviewsCount != nil {
		c := *o.ReviewsCount
		obsCopy.ReviewsCount = &c
	}
	return &obsCopy
}

// Verify interface compliance at compile time.
var _ storage.ObservationStore = (*ObservationStore)(nil)
