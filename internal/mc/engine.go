package mc

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"BasketRisk/internal/model"
	"BasketRisk/internal/observability"
)

// Engine is the instrumented entry point used by the analytics layer.
// It holds no mutable pricing state: every call is reproducible in isolation.
type Engine struct {
	log     zerolog.Logger
	metrics *observability.Metrics
}

// NewEngine creates an Engine. metrics may be nil.
func NewEngine(log zerolog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{log: log, metrics: metrics}
}

// Price runs one Monte Carlo pricing call for opt.
func (e *Engine) Price(ctx context.Context, state model.MarketState, opt model.OptionSpec, cfg model.SimulationConfig) (model.PriceEstimate, error) {
	start := time.Now()
	est, err := Price(ctx, state, opt, cfg)
	elapsed := time.Since(start)
	e.metrics.ObservePricing(opt.Kind(), elapsed, est.Trials, est.KnockedOut, err)

	if err != nil {
		e.log.Warn().Err(err).Str("kind", opt.Kind()).Msg("pricing failed")
		return model.PriceEstimate{}, err
	}
	e.log.Debug().
		Str("kind", opt.Kind()).
		Float64("price", est.Price).
		Float64("stderr", est.StdErr).
		Int("trials", est.Trials).
		Int("knocked_out", est.KnockedOut).
		Uint64("seed", est.Seed).
		Dur("elapsed", elapsed).
		Msg("priced")
	return est, nil
}
