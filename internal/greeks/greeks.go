// Package greeks computes finite-difference sensitivities of a basket option
// with respect to the first asset.
package greeks

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"BasketRisk/internal/mc"
	"BasketRisk/internal/model"
)

// DefaultSeed pins every leg when the caller supplies no seed.
const DefaultSeed uint64 = 1234

// DefaultEpsilon is the spot bump; the vol bump is VolBumpScale times it.
const DefaultEpsilon = 1e-2

// VolBumpScale converts the spot bump into the vol bump.
const VolBumpScale = 0.01

// Pricer prices one option under one market state.
type Pricer interface {
	Price(ctx context.Context, state model.MarketState, opt model.OptionSpec, cfg model.SimulationConfig) (model.PriceEstimate, error)
}

type leg int

const (
	legBase leg = iota
	legSpotUp
	legSpotDown
	legVolUp
	legVolDown
	numLegs
)

var legNames = [numLegs]string{"base", "spot+", "spot-", "vol+", "vol-"}

// Compute prices the five legs concurrently with one shared seed and combines
// them by central differences. Any failed leg fails the whole computation.
func Compute(ctx context.Context, p Pricer, state model.MarketState, opt model.OptionSpec, cfg model.SimulationConfig, epsilon float64) (model.Greeks, error) {
	if !(epsilon > 0) || math.IsInf(epsilon, 0) {
		return model.Greeks{}, fmt.Errorf("%w: epsilon %v must be positive", mc.ErrInvalidConfiguration, epsilon)
	}
	if state.Assets() == 0 || len(state.Vol) == 0 {
		return model.Greeks{}, fmt.Errorf("%w: empty basket", mc.ErrDimensionMismatch)
	}
	volBump := epsilon * VolBumpScale
	if state.Spot[0]-epsilon <= 0 {
		return model.Greeks{}, fmt.Errorf("%w: spot %v minus bump %v is not positive",
			mc.ErrInvalidConfiguration, state.Spot[0], epsilon)
	}
	if state.Vol[0]-volBump < 0 {
		return model.Greeks{}, fmt.Errorf("%w: vol %v minus bump %v is negative",
			mc.ErrInvalidConfiguration, state.Vol[0], volBump)
	}

	if cfg.Seed == nil {
		cfg = cfg.WithSeed(DefaultSeed)
	}

	states := [numLegs]model.MarketState{}
	for i := range states {
		states[i] = state.Clone()
	}
	states[legSpotUp].Spot[0] += epsilon
	states[legSpotDown].Spot[0] -= epsilon
	states[legVolUp].Vol[0] += volBump
	states[legVolDown].Vol[0] -= volBump

	var prices [numLegs]float64
	g, gctx := errgroup.WithContext(ctx)
	for i := range states {
		g.Go(func() error {
			est, err := p.Price(gctx, states[i], opt, cfg)
			if err != nil {
				return fmt.Errorf("greeks %s leg: %w", legNames[i], err)
			}
			prices[i] = est.Price
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Greeks{}, err
	}

	base := prices[legBase]
	up, down := prices[legSpotUp], prices[legSpotDown]
	return model.Greeks{
		Base:    base,
		Delta:   (up - down) / (2 * epsilon),
		Gamma:   (up - 2*base + down) / (epsilon * epsilon),
		Vega:    (prices[legVolUp] - prices[legVolDown]) / (2 * volBump),
		Epsilon: epsilon,
	}, nil
}
