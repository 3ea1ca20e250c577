package mc

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"BasketRisk/internal/model"
)

// ChunkSize is the number of trials scheduled as one unit of work. Trial i
// always draws from stream i of the call's seed, so an estimate depends only on
// the seed and the trial count, never on the worker count or chunking.
const ChunkSize = 256

// trial simulates one path and returns its undiscounted payoff and whether it knocked out.
type trial func(st *Stepper, spot, z, dz []float64, rng *rand.Rand) (payoff float64, knockedOut bool)

type chunkSum struct {
	sum, sumSq float64
	knockedOut int
}

// PriceVanilla estimates E[e^{-rT} max(mean(S_T) - K, 0)].
func PriceVanilla(ctx context.Context, state model.MarketState, strike float64, cfg model.SimulationConfig) (model.PriceEstimate, error) {
	if err := validateOption(strike, nil); err != nil {
		return model.PriceEstimate{}, err
	}
	return estimate(ctx, state, cfg, vanillaTrial(strike))
}

// PriceBarrier estimates the knock-out basket call: a trial pays zero as soon
// as the basket average is at or below barrier at any monitored step 1..Steps.
// A barrier of -Inf never knocks out and reproduces PriceVanilla exactly.
func PriceBarrier(ctx context.Context, state model.MarketState, strike, barrier float64, cfg model.SimulationConfig) (model.PriceEstimate, error) {
	if err := validateOption(strike, &barrier); err != nil {
		return model.PriceEstimate{}, err
	}
	return estimate(ctx, state, cfg, barrierTrial(strike, barrier))
}

// Price dispatches on the option kind.
func Price(ctx context.Context, state model.MarketState, opt model.OptionSpec, cfg model.SimulationConfig) (model.PriceEstimate, error) {
	if opt.Barrier != nil {
		return PriceBarrier(ctx, state, opt.Strike, *opt.Barrier, cfg)
	}
	return PriceVanilla(ctx, state, opt.Strike, cfg)
}

func vanillaTrial(strike float64) trial {
	return func(st *Stepper, spot, z, dz []float64, rng *rand.Rand) (float64, bool) {
		for t := 0; t < st.steps; t++ {
			st.Advance(spot, z, dz, rng)
		}
		return callPayoff(basket(spot), strike), false
	}
}

func barrierTrial(strike, barrier float64) trial {
	return func(st *Stepper, spot, z, dz []float64, rng *rand.Rand) (float64, bool) {
		for t := 0; t < st.steps; t++ {
			st.Advance(spot, z, dz, rng)
			// Knocked out: payoff is fixed at zero, the rest of the path is irrelevant.
			if basket(spot) <= barrier {
				return 0, true
			}
		}
		return callPayoff(basket(spot), strike), false
	}
}

func callPayoff(b, strike float64) float64 {
	return math.Max(b-strike, 0)
}

func estimate(ctx context.Context, state model.MarketState, cfg model.SimulationConfig, run trial) (model.PriceEstimate, error) {
	st, err := NewStepper(state, cfg)
	if err != nil {
		return model.PriceEstimate{}, err
	}

	seed := rand.Uint64()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}

	chunks := (cfg.Trials + ChunkSize - 1) / ChunkSize
	sums := make([]chunkSum, chunks)

	runChunk := func(k int) {
		lo := k * ChunkSize
		hi := min(lo+ChunkSize, cfg.Trials)
		sums[k] = simulateChunk(st, state.Spot, seed, lo, hi, run)
	}

	if cfg.Workers <= 1 || chunks == 1 {
		for k := 0; k < chunks; k++ {
			if err := ctx.Err(); err != nil {
				return model.PriceEstimate{}, err
			}
			runChunk(k)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for k := 0; k < chunks; k++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				runChunk(k)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return model.PriceEstimate{}, err
		}
	}

	// Reduce in chunk order so the floating-point sum is independent of scheduling.
	var total chunkSum
	for _, s := range sums {
		total.sum += s.sum
		total.sumSq += s.sumSq
		total.knockedOut += s.knockedOut
	}

	n := float64(cfg.Trials)
	mean := total.sum / n
	variance := 0.0
	if cfg.Trials > 1 {
		variance = math.Max((total.sumSq-n*mean*mean)/(n-1), 0)
	}
	df := math.Exp(-cfg.Rate * cfg.Horizon)

	est := model.PriceEstimate{
		Price:      df * mean,
		StdErr:     df * math.Sqrt(variance/n),
		Trials:     cfg.Trials,
		KnockedOut: total.knockedOut,
		Seed:       seed,
	}
	if !finite(est.Price) || !finite(est.StdErr) {
		return model.PriceEstimate{}, fmt.Errorf("%w: price=%v stderr=%v", ErrNumerical, est.Price, est.StdErr)
	}
	return est, nil
}

func simulateChunk(st *Stepper, spot0 []float64, seed uint64, lo, hi int, run trial) chunkSum {
	n := st.Assets()
	spot := make([]float64, n)
	z := make([]float64, n)
	dz := make([]float64, n)
	src := rand.NewPCG(0, 0)
	rng := rand.New(src)

	var out chunkSum
	for i := lo; i < hi; i++ {
		src.Seed(seed, streamKey(uint64(i)))
		copy(spot, spot0)
		p, ko := run(st, spot, z, dz, rng)
		out.sum += p
		out.sumSq += p * p
		if ko {
			out.knockedOut++
		}
	}
	return out
}
