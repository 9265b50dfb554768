// Package dashboard is the read-only query surface over stored history.
// It never triggers ingestion.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"pricetrack/internal/domain"
	"pricetrack/internal/ledger"
	"pricetrack/internal/storage"
	"pricetrack/internal/trend"
)

// Service answers series and trend queries for the dashboard boundary.
type Service struct {
	identities storage.IdentityStore
	ledger     *ledger.Ledger
	analyzer   *trend.Analyzer
}

// NewService creates a dashboard query service.
func NewService(identities storage.IdentityStore, l *ledger.Ledger, analyzer *trend.Analyzer) *Service {
	return &Service{identities: identities, ledger: l, analyzer: analyzer}
}

// ProductSeries is the full per-site history for one product.
type ProductSeries struct {
	Identity *domain.ProductIdentity
	Series   map[string][]*domain.PriceObservation
}

// GetSeries returns all per-site history for a product. Fails with
// storage.ErrNotFound when the product identity does not exist.
func (s *Service) GetSeries(ctx context.Context, productID string) (*ProductSeries, error) {
	if productID == "" {
		return nil, storage.ErrInvalidInput
	}

	identity, err := s.identities.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}

	sites, err := s.ledger.Sites(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}

	result := &ProductSeries{
		Identity: identity,
		Series:   make(map[string][]*domain.PriceObservation, len(sites)),
	}
	for _, site := range sites {
		series, err := s.ledger.Read(ctx, productID, site)
		if err != nil {
			return nil, fmt.Errorf("read series for %s: %w", site, err)
		}
		result.Series[site] = series
	}
	return result, nil
}

// GetTrend computes the trend for one (product, site) window. A window
// with fewer than two observations surfaces trend.ErrInsufficientData so
// callers can render the "no trend yet" state instead of an error page.
func (s *Service) GetTrend(ctx context.Context, productID, site string, windowDays int) (*domain.TrendResult, error) {
	if productID == "" {
		return nil, storage.ErrInvalidInput
	}
	if _, err := s.identities.GetByID(ctx, productID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}
	return s.analyzer.Analyze(ctx, productID, site, windowDays)
}
