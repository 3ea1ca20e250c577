package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds aligned daily closes for a basket, one column per asset.
type PriceSeries struct {
	Symbols   []string
	Closes    [][]float64 // rows = days (oldest first), cols = assets
	FetchedAt time.Time
}

// LastCloses returns the most recent close of every asset, or nil if the series is empty.
func (p *PriceSeries) LastCloses() []float64 {
	if len(p.Closes) == 0 {
		return nil
	}
	last := p.Closes[len(p.Closes)-1]
	out := make([]float64, len(last))
	copy(out, last)
	return out
}

// MarketState is the per-asset model input shared by every pricing call.
// All vectors and the correlation matrix are index-aligned.
type MarketState struct {
	Spot  []float64
	Drift []float64   // annualized, may be negative
	Vol   []float64   // annualized, >= 0
	Corr  [][]float64 // symmetric, unit diagonal
}

// Assets returns the asset count implied by the spot vector.
func (m MarketState) Assets() int { return len(m.Spot) }

// Clone returns a deep copy so perturbed legs never share backing arrays.
func (m MarketState) Clone() MarketState {
	c := MarketState{
		Spot:  append([]float64(nil), m.Spot...),
		Drift: append([]float64(nil), m.Drift...),
		Vol:   append([]float64(nil), m.Vol...),
		Corr:  make([][]float64, len(m.Corr)),
	}
	for i, row := range m.Corr {
		c.Corr[i] = append([]float64(nil), row...)
	}
	return c
}

// Identity returns an n-by-n identity correlation matrix.
func Identity(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}
