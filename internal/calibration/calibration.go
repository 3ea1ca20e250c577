// Package calibration estimates lognormal model parameters from historical closes.
package calibration

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"BasketRisk/internal/model"
)

// TradingDays is the annualization factor for daily data.
const TradingDays = 252

// Params is the calibrated drift, volatility and correlation of a basket.
type Params struct {
	Drift []float64
	Vol   []float64
	Corr  [][]float64
}

// LogReturns converts closes (rows = days) into daily log returns, one row shorter.
func LogReturns(closes [][]float64) (*mat.Dense, error) {
	if len(closes) < 3 {
		return nil, errors.New("need at least 3 price rows to calibrate")
	}
	n := len(closes[0])
	if n == 0 {
		return nil, errors.New("price rows are empty")
	}
	rows := len(closes) - 1
	r := mat.NewDense(rows, n, nil)
	for t := 0; t < len(closes); t++ {
		if len(closes[t]) != n {
			return nil, fmt.Errorf("row %d has %d prices, want %d", t, len(closes[t]), n)
		}
		for i, p := range closes[t] {
			if !(p > 0) || math.IsInf(p, 0) {
				return nil, fmt.Errorf("row %d asset %d: price %v must be positive", t, i, p)
			}
		}
		if t == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			r.Set(t-1, i, math.Log(closes[t][i]/closes[t-1][i]))
		}
	}
	return r, nil
}

// Calibrate estimates annualized drift and volatility (sample standard
// deviation) per asset and the Pearson correlation of daily log returns.
func Calibrate(closes [][]float64) (*Params, error) {
	r, err := LogReturns(closes)
	if err != nil {
		return nil, err
	}
	rows, n := r.Dims()

	p := &Params{
		Drift: make([]float64, n),
		Vol:   make([]float64, n),
		Corr:  make([][]float64, n),
	}
	col := make([]float64, rows)
	for i := 0; i < n; i++ {
		mat.Col(col, i, r)
		mean, std := stat.MeanStdDev(col, nil)
		p.Drift[i] = mean * TradingDays
		p.Vol[i] = std * math.Sqrt(TradingDays)
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, r, nil)
	for i := 0; i < n; i++ {
		p.Corr[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			c := corr.At(i, j)
			if i == j || math.IsNaN(c) {
				// A flat series has no defined correlation; treat it as independent.
				c = boolToFloat(i == j)
			}
			p.Corr[i][j] = clamp(c, -1, 1)
		}
	}
	return p, nil
}

// MarketState calibrates closes and uses the last row as spot.
func MarketState(series *model.PriceSeries) (model.MarketState, error) {
	p, err := Calibrate(series.Closes)
	if err != nil {
		return model.MarketState{}, fmt.Errorf("calibrate: %w", err)
	}
	return model.MarketState{
		Spot:  series.LastCloses(),
		Drift: p.Drift,
		Vol:   p.Vol,
		Corr:  p.Corr,
	}, nil
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
