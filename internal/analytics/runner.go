// Package analytics turns a price history into a full risk report:
// calibration, vanilla and barrier prices, Greeks and a scenario sweep.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"BasketRisk/internal/calibration"
	"BasketRisk/internal/greeks"
	"BasketRisk/internal/model"
	"BasketRisk/internal/observability"
	"BasketRisk/internal/scenario"
)

// Settings fixes what a report prices and how.
type Settings struct {
	Option model.OptionSpec
	// Pricing drives the headline vanilla and barrier prices.
	Pricing model.SimulationConfig
	// Greeks and Scenarios usually run with fewer trials.
	Greeks    model.SimulationConfig
	Scenarios model.SimulationConfig
	Epsilon   float64
	Sweep     []model.Scenario
	Partial   bool
}

// Runner produces RiskReports. It is safe for concurrent use.
type Runner struct {
	pricer   greeks.Pricer
	settings Settings
	metrics  *observability.Metrics
	log      zerolog.Logger
}

// NewRunner creates a Runner. metrics may be nil.
func NewRunner(p greeks.Pricer, settings Settings, metrics *observability.Metrics, log zerolog.Logger) *Runner {
	if settings.Epsilon == 0 {
		settings.Epsilon = greeks.DefaultEpsilon
	}
	return &Runner{pricer: p, settings: settings, metrics: metrics, log: log}
}

// Settings returns the runner configuration.
func (r *Runner) Settings() Settings { return r.settings }

// Run calibrates series and prices everything in the report.
func (r *Runner) Run(ctx context.Context, series *model.PriceSeries) (*model.RiskReport, error) {
	start := time.Now()
	report, err := r.run(ctx, series)
	r.observe(report, time.Since(start), err)
	if err != nil {
		r.log.Error().Err(err).Msg("risk report failed")
		return nil, err
	}
	report.Elapsed = time.Since(start)
	r.log.Info().
		Str("run_id", report.RunID).
		Float64("vanilla", report.Vanilla.Price).
		Float64("barrier", report.Barrier.Price).
		Float64("delta", report.Greeks.Delta).
		Int("scenarios", len(report.Scenarios)).
		Dur("elapsed", report.Elapsed).
		Msg("risk report done")
	return report, nil
}

func (r *Runner) run(ctx context.Context, series *model.PriceSeries) (*model.RiskReport, error) {
	state, err := calibration.MarketState(series)
	if err != nil {
		return nil, err
	}
	report := &model.RiskReport{
		RunID:     uuid.NewString(),
		Symbols:   series.Symbols,
		Market:    state,
		Option:    r.settings.Option,
		StartedAt: time.Now(),
	}

	vanilla := model.OptionSpec{Strike: r.settings.Option.Strike}
	if report.Vanilla, err = r.pricer.Price(ctx, state, vanilla, r.settings.Pricing); err != nil {
		return nil, fmt.Errorf("price vanilla: %w", err)
	}
	if r.settings.Option.IsBarrier() {
		if report.Barrier, err = r.pricer.Price(ctx, state, r.settings.Option, r.settings.Pricing); err != nil {
			return nil, fmt.Errorf("price barrier: %w", err)
		}
	}

	report.Greeks, err = greeks.Compute(ctx, r.pricer, state, r.settings.Option, r.settings.Greeks, r.settings.Epsilon)
	if err != nil {
		return nil, fmt.Errorf("greeks: %w", err)
	}

	if len(r.settings.Sweep) > 0 {
		report.Scenarios, err = scenario.Run(ctx, r.pricer, state, r.settings.Option, r.settings.Scenarios,
			r.settings.Sweep, scenario.Options{Partial: r.settings.Partial})
		if err != nil {
			return nil, fmt.Errorf("scenarios: %w", err)
		}
	}
	return report, nil
}

// RunGreeks calibrates series and returns only the Greeks of the configured option.
func (r *Runner) RunGreeks(ctx context.Context, series *model.PriceSeries) (model.Greeks, error) {
	state, err := calibration.MarketState(series)
	if err != nil {
		return model.Greeks{}, err
	}
	return greeks.Compute(ctx, r.pricer, state, r.settings.Option, r.settings.Greeks, r.settings.Epsilon)
}

// RunScenarios calibrates series and returns only the scenario sweep.
func (r *Runner) RunScenarios(ctx context.Context, series *model.PriceSeries) ([]model.ScenarioResult, error) {
	state, err := calibration.MarketState(series)
	if err != nil {
		return nil, err
	}
	return scenario.Run(ctx, r.pricer, state, r.settings.Option, r.settings.Scenarios,
		r.settings.Sweep, scenario.Options{Partial: r.settings.Partial})
}

func (r *Runner) observe(report *model.RiskReport, elapsed time.Duration, err error) {
	m := r.metrics
	if m == nil {
		return
	}
	m.ReportDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.ReportRuns.WithLabelValues("error").Inc()
		return
	}
	m.ReportRuns.WithLabelValues("ok").Inc()
	m.ReportPrice.WithLabelValues("vanilla").Set(report.Vanilla.Price)
	if report.Option.IsBarrier() {
		m.ReportPrice.WithLabelValues("barrier").Set(report.Barrier.Price)
	}
	m.GreekValue.WithLabelValues("delta").Set(report.Greeks.Delta)
	m.GreekValue.WithLabelValues("gamma").Set(report.Greeks.Gamma)
	m.GreekValue.WithLabelValues("vega").Set(report.Greeks.Vega)
	for _, sc := range report.Scenarios {
		if sc.Err == nil {
			m.ScenarioPrice.WithLabelValues(sc.Name).Set(sc.Price)
		}
	}
}
