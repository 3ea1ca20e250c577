package recorder

import (
	"context"
	"time"

	"BasketRisk/internal/model"
)

// PricingRow is one stored headline price.
type PricingRow struct {
	RunID      string
	Timestamp  time.Time
	Kind       string // "vanilla" or "barrier"
	Symbols    string
	Strike     float64
	Barrier    *float64
	Price      float64
	StdErr     float64
	Trials     int
	KnockedOut int
	Seed       uint64
}

// Recorder persists report rows for later analysis. Simulated paths are never stored.
type Recorder interface {
	RecordReport(ctx context.Context, report *model.RiskReport) error
	RecentPricing(ctx context.Context, limit int) ([]PricingRow, error)
	Close() error
}
