package mc

import (
	"context"
	"errors"
	"math"
	"testing"

	"BasketRisk/internal/model"
)

func twoAssets(spot, drift, vol float64, rho float64) model.MarketState {
	return model.MarketState{
		Spot:  []float64{spot, spot},
		Drift: []float64{drift, drift},
		Vol:   []float64{vol, vol},
		Corr:  [][]float64{{1, rho}, {rho, 1}},
	}
}

func seeded(seed uint64, steps, trials int) model.SimulationConfig {
	return model.SimulationConfig{Horizon: 1, Steps: steps, Trials: trials}.WithSeed(seed)
}

func TestPriceVanilla_ZeroVolExamples(t *testing.T) {
	tests := []struct {
		spot float64
		want float64
	}{
		{100, 0},
		{110, 10},
		{95, 0},
	}
	for _, tt := range tests {
		state := twoAssets(tt.spot, 0, 0, 0)
		state.Corr = model.Identity(2)
		est, err := PriceVanilla(context.Background(), state, 100, seeded(7, 10, 500))
		if err != nil {
			t.Fatalf("spot %.0f: %v", tt.spot, err)
		}
		if est.Price != tt.want {
			t.Errorf("spot %.0f: expected exactly %v, got %v", tt.spot, tt.want, est.Price)
		}
		if est.StdErr != 0 {
			t.Errorf("spot %.0f: expected zero stderr, got %v", tt.spot, est.StdErr)
		}
	}
}

func TestPriceVanilla_ZeroVolDeterministicDrift(t *testing.T) {
	state := model.MarketState{
		Spot:  []float64{90, 120},
		Drift: []float64{0.05, -0.02},
		Vol:   []float64{0, 0},
		Corr:  [][]float64{{1, 0.3}, {0.3, 1}},
	}
	cfg := model.SimulationConfig{Horizon: 2, Steps: 24, Trials: 100, Rate: 0.03}
	basketT := (90*math.Exp(0.05*2) + 120*math.Exp(-0.02*2)) / 2
	want := math.Exp(-0.03*2) * math.Max(basketT-100, 0)

	for _, seed := range []uint64{1, 99, 12345} {
		est, err := PriceVanilla(context.Background(), state, 100, cfg.WithSeed(seed))
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(est.Price-want) > 1e-9 {
			t.Errorf("seed %d: expected %.12f, got %.12f", seed, want, est.Price)
		}
	}
}

func TestPriceBarrier_ZeroVol(t *testing.T) {
	ctx := context.Background()

	// Rising path from 105 never touches 90.
	up := twoAssets(105, 0.05, 0, 0)
	cfg := seeded(3, 12, 64)
	vanilla, err := PriceVanilla(ctx, up, 100, cfg)
	if err != nil {
		t.Fatal(err)
	}
	barrier, err := PriceBarrier(ctx, up, 100, 90, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if barrier.Price != vanilla.Price {
		t.Errorf("expected barrier == vanilla when never crossed, got %v vs %v", barrier.Price, vanilla.Price)
	}
	if barrier.KnockedOut != 0 {
		t.Errorf("expected no knock-outs, got %d", barrier.KnockedOut)
	}

	// Falling path from 100 crosses 95 before maturity.
	down := twoAssets(100, -0.2, 0, 0)
	ko, err := PriceBarrier(ctx, down, 50, 95, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if ko.Price != 0 {
		t.Errorf("expected knocked-out price 0, got %v", ko.Price)
	}
	if ko.KnockedOut != cfg.Trials {
		t.Errorf("expected all %d trials knocked out, got %d", cfg.Trials, ko.KnockedOut)
	}
}

func TestPriceBarrier_TouchKnocksOut(t *testing.T) {
	// Flat zero-vol path sits exactly on the barrier after step 1.
	state := twoAssets(100, 0, 0, 0)
	est, err := PriceBarrier(context.Background(), state, 50, 100, seeded(1, 5, 10))
	if err != nil {
		t.Fatal(err)
	}
	if est.Price != 0 || est.KnockedOut != 10 {
		t.Errorf("expected touch to knock out every trial, got price=%v knocked=%d", est.Price, est.KnockedOut)
	}
}

func TestPriceBarrier_NegativeInfinityMatchesVanilla(t *testing.T) {
	ctx := context.Background()
	state := twoAssets(100, 0.03, 0.25, 0.4)
	cfg := seeded(1234, 50, 2000)

	vanilla, err := PriceVanilla(ctx, state, 100, cfg)
	if err != nil {
		t.Fatal(err)
	}
	barrier, err := PriceBarrier(ctx, state, 100, math.Inf(-1), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if vanilla.Price != barrier.Price || vanilla.StdErr != barrier.StdErr {
		t.Errorf("expected bit-identical estimates, vanilla=%v barrier=%v", vanilla, barrier)
	}
}

func TestPriceBarrier_MonotoneInBarrier(t *testing.T) {
	ctx := context.Background()
	state := twoAssets(100, 0, 0.3, 0.5)
	cfg := seeded(42, 52, 3000)

	prev := math.Inf(1)
	for _, b := range []float64{60, 75, 85, 90, 95, 99} {
		est, err := PriceBarrier(ctx, state, 100, b, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if est.Price > prev {
			t.Errorf("barrier %.0f: price %v rose above %v", b, est.Price, prev)
		}
		prev = est.Price
	}
}

func TestPrice_Reproducible(t *testing.T) {
	ctx := context.Background()
	state := twoAssets(100, 0.01, 0.2, -0.3)
	cfg := seeded(1234, 20, 1500)

	a, err := PriceVanilla(ctx, state, 100, cfg)
	if err != nil {
		t.Fatal(err)
	}
	// Unrelated calls in between must not disturb the stream.
	if _, err := PriceBarrier(ctx, state, 95, 80, seeded(5, 7, 300)); err != nil {
		t.Fatal(err)
	}
	b, err := PriceVanilla(ctx, state, 100, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected identical estimates, got %+v and %+v", a, b)
	}

	c, err := PriceVanilla(ctx, state, 100, seeded(4321, 20, 1500))
	if err != nil {
		t.Fatal(err)
	}
	if c.Price == a.Price {
		t.Errorf("expected different seeds to give different prices, both %v", a.Price)
	}
	if math.Abs(c.Price-a.Price) > 5*(a.StdErr+c.StdErr) {
		t.Errorf("seeds disagree beyond noise: %v vs %v", a.Price, c.Price)
	}
}

func TestPrice_IndependentOfWorkers(t *testing.T) {
	ctx := context.Background()
	state := model.MarketState{
		Spot:  []float64{100, 95, 110},
		Drift: []float64{0.02, 0.01, 0.03},
		Vol:   []float64{0.2, 0.3, 0.25},
		Corr:  [][]float64{{1, 0.5, 0.2}, {0.5, 1, 0.1}, {0.2, 0.1, 1}},
	}
	barrier := 85.0
	opt := model.OptionSpec{Strike: 100, Barrier: &barrier}
	base := seeded(77, 30, ChunkSize*5+17)

	want, err := Price(ctx, state, opt, base)
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range []int{2, 3, 8} {
		cfg := base
		cfg.Workers = w
		got, err := Price(ctx, state, opt, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("workers=%d: expected %+v, got %+v", w, want, got)
		}
	}
}

func TestPrice_NilSeedIsReplayable(t *testing.T) {
	ctx := context.Background()
	state := twoAssets(100, 0, 0.2, 0)
	cfg := model.SimulationConfig{Horizon: 1, Steps: 5, Trials: 400}

	first, err := PriceVanilla(ctx, state, 100, cfg)
	if err != nil {
		t.Fatal(err)
	}
	replay, err := PriceVanilla(ctx, state, 100, cfg.WithSeed(first.Seed))
	if err != nil {
		t.Fatal(err)
	}
	if replay.Price != first.Price {
		t.Errorf("expected replay with seed %d to match, got %v vs %v", first.Seed, replay.Price, first.Price)
	}
}

func TestPriceVanilla_Convergence(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	ctx := context.Background()
	state := twoAssets(100, 0, 0.2, 0.3)

	spread := func(trials int) float64 {
		const reps = 24
		prices := make([]float64, reps)
		for i := range prices {
			est, err := PriceVanilla(ctx, state, 100, seeded(uint64(1000+i), 4, trials))
			if err != nil {
				t.Fatal(err)
			}
			prices[i] = est.Price
		}
		var mean float64
		for _, p := range prices {
			mean += p
		}
		mean /= reps
		var ss float64
		for _, p := range prices {
			ss += (p - mean) * (p - mean)
		}
		return math.Sqrt(ss / (reps - 1))
	}

	small := spread(100)
	large := spread(10000)
	ratio := small / large
	if ratio < 5 || ratio > 20 {
		t.Errorf("expected ~10x stderr reduction for 100x trials, got %.2f (%.4f -> %.4f)", ratio, small, large)
	}
}

func TestPrice_Errors(t *testing.T) {
	ctx := context.Background()
	good := twoAssets(100, 0, 0.2, 0.1)
	cfg := seeded(1, 10, 10)

	badCorr := good.Clone()
	badCorr.Corr = [][]float64{{1, 1.2}, {1.2, 1}}

	indefinite := model.MarketState{
		Spot:  []float64{100, 100, 100},
		Drift: []float64{0, 0, 0},
		Vol:   []float64{0.2, 0.2, 0.2},
		Corr:  [][]float64{{1, 0.9, -0.9}, {0.9, 1, 0.9}, {-0.9, 0.9, 1}},
	}

	shortDrift := good.Clone()
	shortDrift.Drift = []float64{0}

	shortVol := good.Clone()
	shortVol.Vol = []float64{0.1, 0.1, 0.1}

	negVol := good.Clone()
	negVol.Vol[1] = -0.1

	asym := good.Clone()
	asym.Corr[0][1] = 0.2

	zeroSteps := cfg
	zeroSteps.Steps = 0
	zeroTrials := cfg
	zeroTrials.Trials = 0
	zeroHorizon := cfg
	zeroHorizon.Horizon = 0

	tests := []struct {
		name    string
		state   model.MarketState
		cfg     model.SimulationConfig
		strike  float64
		barrier *float64
		want    error
	}{
		{"entry above one", badCorr, cfg, 100, nil, ErrInvalidCorrelation},
		{"indefinite", indefinite, cfg, 100, nil, ErrInvalidCorrelation},
		{"asymmetric", asym, cfg, 100, nil, ErrInvalidCorrelation},
		{"short drift", shortDrift, cfg, 100, nil, ErrDimensionMismatch},
		{"long vol", shortVol, cfg, 100, nil, ErrDimensionMismatch},
		{"negative vol", negVol, cfg, 100, nil, ErrInvalidConfiguration},
		{"zero steps", good, zeroSteps, 100, nil, ErrInvalidConfiguration},
		{"zero trials", good, zeroTrials, 100, nil, ErrInvalidConfiguration},
		{"zero horizon", good, zeroHorizon, 100, nil, ErrInvalidConfiguration},
		{"zero strike", good, cfg, 0, nil, ErrInvalidConfiguration},
		{"zero barrier", good, cfg, 100, ptr(0), ErrInvalidConfiguration},
		{"negative barrier", good, cfg, 100, ptr(-5), ErrInvalidConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := Price(ctx, tt.state, model.OptionSpec{Strike: tt.strike, Barrier: tt.barrier}, tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if est != (model.PriceEstimate{}) {
				t.Errorf("expected zero estimate on error, got %+v", est)
			}
		})
	}
}

func TestPrice_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := PriceVanilla(ctx, twoAssets(100, 0, 0.2, 0), 100, seeded(1, 10, 1000))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func ptr(v float64) *float64 { return &v }
