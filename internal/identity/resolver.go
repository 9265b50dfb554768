// Package identity maps normalized listing titles to stable product
// identities. An identity is created exactly once per (query, first title)
// and only ever gains aliases afterwards; identities are never merged.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"pricetrack/internal/domain"
	"pricetrack/internal/idhash"
	"pricetrack/internal/storage"
)

// DefaultThreshold is the similarity score at or above which a title is
// considered the same product as an existing identity.
const DefaultThreshold = 0.6

// Options configures a Resolver.
type Options struct {
	// Threshold overrides DefaultThreshold when in (0, 1].
	Threshold float64
	// Logger for resolution decisions. Defaults to the standard logger.
	Logger *log.Logger
}

// Resolver matches candidates against known identities for a query and
// creates new identities when nothing matches.
//
// Writers for the same query are serialized on a per-query mutex so that
// two similar titles arriving together cannot both miss the match and
// create twin identities. Different queries proceed in parallel.
type Resolver struct {
	store     storage.IdentityStore
	threshold float64
	logger    *log.Logger

	mu         sync.Mutex
	queryLocks map[string]*sync.Mutex
}

// NewResolver creates a Resolver on top of an identity store.
func NewResolver(store storage.IdentityStore, opts Options) *Resolver {
	threshold := opts.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		store:      store,
		threshold:  threshold,
		logger:     logger,
		queryLocks: make(map[string]*sync.Mutex),
	}
}

// Resolution is the outcome of resolving one candidate title.
type Resolution struct {
	Identity *domain.ProductIdentity
	// Created is true when this call created the identity.
	Created bool
	// AliasAdded is true when the title matched an existing identity under
	// a previously unseen alias.
	AliasAdded bool
}

// Resolve returns the identity for a normalized title within a query,
// creating one if no existing identity matches. now is the timestamp in
// Unix milliseconds recorded on creation or alias updates.
func (r *Resolver) Resolve(ctx context.Context, query, normalizedTitle string, now int64) (*Resolution, error) {
	if query == "" || normalizedTitle == "" {
		return nil, storage.ErrInvalidInput
	}

	lock := r.lockFor(query)
	lock.Lock()
	defer lock.Unlock()

	candidates, err := r.store.GetByQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load identities for query: %w", err)
	}

	if match := r.bestMatch(candidates, normalizedTitle); match != nil {
		if match.HasAlias(normalizedTitle) {
			return &Resolution{Identity: match}, nil
		}
		if err := r.store.AddAlias(ctx, match.ID, normalizedTitle, now); err != nil {
			return nil, fmt.Errorf("add alias: %w", err)
		}
		match.Aliases = append(match.Aliases, normalizedTitle)
		if now > match.UpdatedAt {
			match.UpdatedAt = now
		}
		r.logger.Printf("[identity] alias %q attached to %s", normalizedTitle, match.ID)
		return &Resolution{Identity: match, AliasAdded: true}, nil
	}

	created := &domain.ProductIdentity{
		ID:            idhash.ComputeProductID(query, normalizedTitle),
		Query:         query,
		CanonicalName: normalizedTitle,
		Aliases:       []string{normalizedTitle},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = r.store.InsertIfAbsent(ctx, created)
	if errors.Is(err, storage.ErrDuplicateKey) {
		existing, getErr := r.store.GetByID(ctx, created.ID)
		if getErr != nil {
			return nil, fmt.Errorf("reload identity after duplicate: %w", getErr)
		}
		return &Resolution{Identity: existing}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}

	r.logger.Printf("[identity] created %s for query %q", created.ID, query)
	return &Resolution{Identity: created, Created: true}, nil
}

// bestMatch returns the highest-scoring identity at or above the threshold,
// or nil when nothing qualifies. On equal scores the first candidate wins;
// GetByQuery orders by recency, so ties go to the most recently updated.
func (r *Resolver) bestMatch(candidates []*domain.ProductIdentity, normalizedTitle string) *domain.ProductIdentity {
	var best *domain.ProductIdentity
	bestScore := 0.0

	for _, candidate := range candidates {
		score := r.score(candidate, normalizedTitle)
		if score >= r.threshold && score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best
}

// score takes the maximum similarity over all of the identity's aliases.
func (r *Resolver) score(identity *domain.ProductIdentity, normalizedTitle string) float64 {
	max := 0.0
	for _, alias := range identity.Aliases {
		if s := Similarity(alias, normalizedTitle); s > max {
			max = s
		}
	}
	return max
}

// lockFor returns the mutex serializing writers for a query, creating it on
// first use. Locks are never evicted; the query universe is small.
func (r *Resolver) lockFor(query string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.queryLocks[query]
	if !ok {
		lock = &sync.Mutex{}
		r.queryLocks[query] = lock
	}
	return lock
}
