package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"BasketRisk/internal/model"
)

// MockFetcher serves fixed bars per symbol for development and testing.
type MockFetcher struct {
	Bars map[string][]model.OHLCV
	Err  error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCloses(ctx context.Context, symbols []string, days int) ([][]float64, error) {
	return closesFromBars(ctx, m.FetchDailyBars, symbols, days)
}

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	bars, ok := m.Bars[symbol]
	if !ok {
		return nil, fmt.Errorf("mock: unknown symbol %q", symbol)
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// Collector fetches an aligned close history for a fixed basket.
type Collector struct {
	Fetcher Fetcher
	Symbols []string
	Days    int
	log     zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbols []string, days int, log zerolog.Logger) *Collector {
	return &Collector{Fetcher: fetcher, Symbols: symbols, Days: days, log: log}
}

// minRows is the shortest history calibration accepts.
const minRows = 3

// Collect fetches closes and wraps them in a PriceSeries.
func (c *Collector) Collect(ctx context.Context) (*model.PriceSeries, error) {
	if len(c.Symbols) == 0 {
		return nil, fmt.Errorf("collector: no symbols configured")
	}
	start := time.Now()
	closes, err := c.Fetcher.FetchCloses(ctx, c.Symbols, c.Days)
	if err != nil {
		return nil, fmt.Errorf("fetch closes from %s: %w", c.Fetcher.Name(), err)
	}
	if len(closes) < minRows {
		return nil, fmt.Errorf("fetch closes from %s: only %d aligned rows", c.Fetcher.Name(), len(closes))
	}
	if len(closes) < c.Days {
		c.log.Warn().Int("rows", len(closes)).Int("requested", c.Days).Msg("short price history")
	}
	c.log.Debug().
		Str("source", c.Fetcher.Name()).
		Int("rows", len(closes)).
		Dur("elapsed", time.Since(start)).
		Msg("collected closes")
	return &model.PriceSeries{
		Symbols:   append([]string(nil), c.Symbols...),
		Closes:    closes,
		FetchedAt: time.Now(),
	}, nil
}
