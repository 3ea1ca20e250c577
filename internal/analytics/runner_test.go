package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"BasketRisk/internal/collector"
	"BasketRisk/internal/mc"
	"BasketRisk/internal/model"
	"BasketRisk/internal/observability"
	"BasketRisk/internal/scenario"
)

func syntheticSeries(t *testing.T) *model.PriceSeries {
	t.Helper()
	closes, err := collector.GenerateSynthetic(2, 252, 92)
	if err != nil {
		t.Fatal(err)
	}
	return &model.PriceSeries{Symbols: []string{"A", "B"}, Closes: closes}
}

func testSettings() Settings {
	barrier := 90.0
	sim := model.SimulationConfig{Horizon: 1, Steps: 50, Trials: 600, Rate: 0.01, Workers: 2}
	return Settings{
		Option:    model.OptionSpec{Strike: 100, Barrier: &barrier},
		Pricing:   sim.WithSeed(1234),
		Greeks:    sim,
		Scenarios: sim,
		Sweep:     scenario.Defaults(),
	}
}

func TestRunner_Run(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	engine := mc.NewEngine(zerolog.Nop(), metrics)
	r := NewRunner(engine, testSettings(), metrics, zerolog.Nop())

	report, err := r.Run(context.Background(), syntheticSeries(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RunID == "" {
		t.Error("expected a run id")
	}
	if report.Market.Assets() != 2 {
		t.Errorf("expected 2 assets, got %d", report.Market.Assets())
	}
	if report.Vanilla.Price < 0 || report.Barrier.Price < 0 {
		t.Errorf("negative prices: %+v %+v", report.Vanilla, report.Barrier)
	}
	// Same seed, so the knock-out price can never exceed the vanilla one.
	if report.Barrier.Price > report.Vanilla.Price {
		t.Errorf("barrier %v above vanilla %v", report.Barrier.Price, report.Vanilla.Price)
	}
	if report.Greeks.Epsilon != 0.01 {
		t.Errorf("expected default epsilon, got %v", report.Greeks.Epsilon)
	}
	if len(report.Scenarios) != 5 || report.Scenarios[0].Name != "SpotDown10" {
		t.Errorf("unexpected scenarios %+v", report.Scenarios)
	}

	if got := testutil.ToFloat64(metrics.ReportRuns.WithLabelValues("ok")); got != 1 {
		t.Errorf("report runs ok: got %v", got)
	}
	if got := testutil.ToFloat64(metrics.ReportPrice.WithLabelValues("vanilla")); got != report.Vanilla.Price {
		t.Errorf("vanilla gauge %v, want %v", got, report.Vanilla.Price)
	}
	// 2 headline + 5 greek legs + 5 scenarios.
	ok := testutil.ToFloat64(metrics.PricingCalls.WithLabelValues("barrier", "ok")) +
		testutil.ToFloat64(metrics.PricingCalls.WithLabelValues("vanilla", "ok"))
	if ok != 12 {
		t.Errorf("expected 12 pricing calls, got %v", ok)
	}
}

func TestRunner_Reproducible(t *testing.T) {
	engine := mc.NewEngine(zerolog.Nop(), nil)
	r := NewRunner(engine, testSettings(), nil, zerolog.Nop())
	a, err := r.Run(context.Background(), syntheticSeries(t))
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Run(context.Background(), syntheticSeries(t))
	if err != nil {
		t.Fatal(err)
	}
	if a.Barrier.Price != b.Barrier.Price || a.Greeks != b.Greeks {
		t.Errorf("same inputs gave different reports: %+v vs %+v", a.Greeks, b.Greeks)
	}
	for i := range a.Scenarios {
		if a.Scenarios[i].Price != b.Scenarios[i].Price {
			t.Errorf("scenario %s differs", a.Scenarios[i].Name)
		}
	}
	if a.RunID == b.RunID {
		t.Error("run ids must be unique")
	}
}

func TestRunner_VanillaOnly(t *testing.T) {
	s := testSettings()
	s.Option.Barrier = nil
	s.Sweep = nil
	r := NewRunner(mc.NewEngine(zerolog.Nop(), nil), s, nil, zerolog.Nop())
	report, err := r.Run(context.Background(), syntheticSeries(t))
	if err != nil {
		t.Fatal(err)
	}
	if report.Barrier != (model.PriceEstimate{}) {
		t.Errorf("expected no barrier estimate, got %+v", report.Barrier)
	}
	if len(report.Scenarios) != 0 {
		t.Errorf("expected no scenarios, got %d", len(report.Scenarios))
	}
}

func TestRunner_Errors(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s := testSettings()
	s.Pricing.Steps = 0
	r := NewRunner(mc.NewEngine(zerolog.Nop(), nil), s, metrics, zerolog.Nop())
	if _, err := r.Run(context.Background(), syntheticSeries(t)); !errors.Is(err, mc.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.ReportRuns.WithLabelValues("error")); got != 1 {
		t.Errorf("report runs error: got %v", got)
	}

	short := &model.PriceSeries{Symbols: []string{"A"}, Closes: [][]float64{{1}, {2}}}
	r = NewRunner(mc.NewEngine(zerolog.Nop(), nil), testSettings(), nil, zerolog.Nop())
	if _, err := r.Run(context.Background(), short); err == nil {
		t.Error("expected calibration error")
	}
}

func TestRunner_PartsMatchFullReport(t *testing.T) {
	r := NewRunner(mc.NewEngine(zerolog.Nop(), nil), testSettings(), nil, zerolog.Nop())
	series := syntheticSeries(t)
	full, err := r.Run(context.Background(), series)
	if err != nil {
		t.Fatal(err)
	}
	g, err := r.RunGreeks(context.Background(), series)
	if err != nil {
		t.Fatal(err)
	}
	if g != full.Greeks {
		t.Errorf("greeks differ: %+v vs %+v", g, full.Greeks)
	}
	sc, err := r.RunScenarios(context.Background(), series)
	if err != nil {
		t.Fatal(err)
	}
	for i := range sc {
		if sc[i].Price != full.Scenarios[i].Price {
			t.Errorf("scenario %s differs", sc[i].Name)
		}
	}
}
