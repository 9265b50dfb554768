// Package trend derives price trend signals from observation series.
// Results are computed on demand and never stored.
package trend

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"pricetrack/internal/domain"
	"pricetrack/internal/storage"
)

// ErrInsufficientData is returned when a window holds fewer than two
// observations. A single point has no direction.
var ErrInsufficientData = errors.New("insufficient data for trend analysis")

// DefaultFlatThresholdPct is the band around zero within which a change
// counts as flat. Keeps sub-percent noise from flapping the direction.
const DefaultFlatThresholdPct = 1.0

const dayMs = int64(24 * 60 * 60 * 1000)

// Options configures an Analyzer.
type Options struct {
	// FlatThresholdPct overrides DefaultFlatThresholdPct when positive.
	FlatThresholdPct float64
	// Logger for analysis decisions. Defaults to the standard logger.
	Logger *log.Logger
}

// Analyzer computes trend results from stored observations.
type Analyzer struct {
	store         storage.ObservationStore
	flatThreshold decimal.Decimal
	logger        *log.Logger
}

// NewAnalyzer creates an Analyzer over an observation store.
func NewAnalyzer(store storage.ObservationStore, opts Options) *Analyzer {
	threshold := opts.FlatThresholdPct
	if threshold <= 0 {
		threshold = DefaultFlatThresholdPct
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Analyzer{
		store:         store,
		flatThreshold: decimal.NewFromFloat(threshold),
		logger:        logger,
	}
}

// Analyze computes the trend for (product_id, site) over the windowDays
// ending at the latest observation. Fails with ErrInsufficientData when the
// window holds fewer than two points.
func (a *Analyzer) Analyze(ctx context.Context, productID, site string, windowDays int) (*domain.TrendResult, error) {
	if productID == "" || site == "" || windowDays <= 0 {
		return nil, storage.ErrInvalidInput
	}

	series, err := a.store.GetSeries(ctx, productID, site)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	if len(series) == 0 {
		return nil, ErrInsufficientData
	}

	// The window is anchored at the latest observation, not wall-clock now,
	// so analysis over historical data stays reproducible.
	latest := series[len(series)-1]
	from := latest.ObservedAt - int64(windowDays)*dayMs

	window := series[:0:0]
	for _, o := range series {
		if o.ObservedAt >= from {
			window = append(window, o)
		}
	}
	if len(window) < 2 {
		return nil, ErrInsufficientData
	}

	earliest := window[0]
	pctChange := latest.Price.Sub(earliest.Price).
		Div(earliest.Price).
		Mul(decimal.NewFromInt(100))

	return &domain.TrendResult{
		ProductID:     productID,
		Site:          site,
		Direction:     a.direction(pctChange),
		PctChange:     pctChange,
		WindowDays:    windowDays,
		Points:        len(window),
		MovingAverage: movingAverage(window),
	}, nil
}

// direction classifies a percentage change against the flat threshold.
func (a *Analyzer) direction(pctChange decimal.Decimal) domain.Direction {
	switch {
	case pctChange.GreaterThan(a.flatThreshold):
		return domain.DirectionRising
	case pctChange.LessThan(a.flatThreshold.Neg()):
		return domain.DirectionFalling
	default:
		return domain.DirectionFlat
	}
}

// movingAverage is the arithmetic mean of the window's prices.
func movingAverage(window []*domain.PriceObservation) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range window {
		sum = sum.Add(o.Price)
	}
	return sum.Div(decimal.NewFromInt(int64(len(window))))
}
