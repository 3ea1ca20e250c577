package mc

import (
	"math"
	"math/rand/v2"

	"BasketRisk/internal/model"
)

// Stepper advances a spot vector by one exact lognormal transition.
// It is built once per call and shared read-only by every trial.
type Stepper struct {
	factor    *CovFactor
	driftTerm []float64 // (mu - 0.5*sigma^2) * dt
	sqrtDt    float64
	steps     int
}

// NewStepper validates the inputs and factors the covariance once.
func NewStepper(state model.MarketState, cfg model.SimulationConfig) (*Stepper, error) {
	if err := Validate(state, cfg); err != nil {
		return nil, err
	}
	factor, err := FactorCovariance(state.Vol, state.Corr)
	if err != nil {
		return nil, err
	}
	dt := cfg.Dt()
	drift := make([]float64, len(state.Spot))
	for i := range drift {
		drift[i] = (state.Drift[i] - 0.5*state.Vol[i]*state.Vol[i]) * dt
	}
	return &Stepper{
		factor:    factor,
		driftTerm: drift,
		sqrtDt:    math.Sqrt(dt),
		steps:     cfg.Steps,
	}, nil
}

// Steps returns the number of transitions per path.
func (s *Stepper) Steps() int { return s.steps }

// Assets returns the basket size.
func (s *Stepper) Assets() int { return len(s.driftTerm) }

// Factor returns the shared covariance factor.
func (s *Stepper) Factor() *CovFactor { return s.factor }

// Advance draws one vector of standard normals from rng and moves spot in place:
//
//	S[i] *= exp(driftTerm[i] + (L·z)[i]*sqrt(dt))
//
// z and dz are caller-owned scratch buffers of the basket size.
func (s *Stepper) Advance(spot, z, dz []float64, rng *rand.Rand) {
	for i := range z {
		z[i] = rng.NormFloat64()
	}
	s.factor.Mul(dz, z)
	for i := range spot {
		spot[i] *= math.Exp(s.driftTerm[i] + dz[i]*s.sqrtDt)
	}
}

// NewSource returns a PCG-backed generator for one (seed, stream) pair.
// The same pair always yields the same deviates. The pricers use stream i for
// trial i, so a knocked-out trial never shifts the draws of the next one.
func NewSource(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, streamKey(stream)))
}

// streamKey spreads consecutive stream indices over the PCG state (splitmix64 finalizer).
func streamKey(i uint64) uint64 {
	i += 0x9e3779b97f4a7c15
	i = (i ^ (i >> 30)) * 0xbf58476d1ce4e5b9
	i = (i ^ (i >> 27)) * 0x94d049bb133111eb
	return i ^ (i >> 31)
}

// basket is the equal-weighted arithmetic mean of the spot vector.
func basket(spot []float64) float64 {
	var sum float64
	for _, s := range spot {
		sum += s
	}
	return sum / float64(len(spot))
}
