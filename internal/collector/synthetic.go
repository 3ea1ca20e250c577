package collector

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"BasketRisk/internal/mc"
)

// Synthetic daily-return model: covariance scaled so its largest entry is
// maxDailyCov, constant drift per day, prices starting at startPrice.
const (
	maxDailyCov = 0.0004
	dailyDrift  = 0.0002
	startPrice  = 100.0
)

// SyntheticFetcher generates correlated daily closes from a random
// covariance matrix. The same seed always yields the same history.
type SyntheticFetcher struct {
	Seed uint64
}

// NewSyntheticFetcher creates a fetcher for the given seed.
func NewSyntheticFetcher(seed uint64) *SyntheticFetcher {
	return &SyntheticFetcher{Seed: seed}
}

func (f *SyntheticFetcher) Name() string { return "synthetic" }

// FetchCloses returns days rows of closes, one column per symbol.
func (f *SyntheticFetcher) FetchCloses(_ context.Context, symbols []string, days int) ([][]float64, error) {
	return GenerateSynthetic(len(symbols), days, f.Seed)
}

// GenerateSynthetic builds numDays rows of prices for numAssets assets.
func GenerateSynthetic(numAssets, numDays int, seed uint64) ([][]float64, error) {
	if numAssets <= 0 || numDays <= 0 {
		return nil, fmt.Errorf("synthetic: assets=%d days=%d must be positive", numAssets, numDays)
	}
	rng := mc.NewSource(seed, 0)

	a := mat.NewDense(numAssets, numAssets, nil)
	for i := 0; i < numAssets; i++ {
		for j := 0; j < numAssets; j++ {
			a.Set(i, j, rng.NormFloat64())
		}
	}
	var cov mat.SymDense
	cov.SymOuterK(1, a)

	maxAbs := 0.0
	for i := 0; i < numAssets; i++ {
		for j := i; j < numAssets; j++ {
			maxAbs = math.Max(maxAbs, math.Abs(cov.At(i, j)))
		}
	}
	cov.ScaleSym(maxDailyCov/maxAbs, &cov)

	var chol mat.Cholesky
	if !chol.Factorize(&cov) {
		return nil, fmt.Errorf("synthetic: random covariance is not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)

	prices := make([][]float64, numDays)
	logPx := make([]float64, numAssets)
	z := make([]float64, numAssets)
	for t := 0; t < numDays; t++ {
		for i := range z {
			z[i] = rng.NormFloat64()
		}
		prices[t] = make([]float64, numAssets)
		for i := 0; i < numAssets; i++ {
			ret := dailyDrift
			for j := 0; j <= i; j++ {
				ret += l.At(i, j) * z[j]
			}
			logPx[i] += ret
			prices[t][i] = startPrice * math.Exp(logPx[i])
		}
	}
	return prices, nil
}
