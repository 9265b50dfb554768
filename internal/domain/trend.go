package domain

import "github.com/shopspring/decimal"

// Direction classifies a price trend over a window.
type Direction string

const (
	DirectionRising  Direction = "rising"
	DirectionFalling Direction = "falling"
	DirectionFlat    Direction = "flat"
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is a valid value.
func (d Direction) IsValid() bool {
	return d == DirectionRising || d == DirectionFalling || d == DirectionFlat
}

// TrendResult is a derived trend signal for one (product, site) window.
// Computed on demand, never stored.
type TrendResult struct {
	ProductID     string          // product identity id
	Site          string          // retailer identifier
	Direction     Direction       // rising | falling | flat
	PctChange     decimal.Decimal // (latest - earliest) / earliest * 100
	WindowDays    int             // requested window span
	Points        int             // observations inside the window
	MovingAverage decimal.Decimal // mean price over the window
}
