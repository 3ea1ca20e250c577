package collector

import (
	"context"

	"BasketRisk/internal/model"
)

// Fetcher supplies aligned daily closes for a basket.
type Fetcher interface {
	// FetchCloses returns up to days rows (oldest first), one column per symbol.
	FetchCloses(ctx context.Context, symbols []string, days int) ([][]float64, error)
	Name() string
}

// barSource fetches daily bars for a single symbol.
type barSource func(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
