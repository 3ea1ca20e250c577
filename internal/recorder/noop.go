package recorder

import (
	"context"

	"BasketRisk/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordReport(context.Context, *model.RiskReport) error { return nil }
func (n *NoopRecorder) RecentPricing(context.Context, int) ([]PricingRow, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
