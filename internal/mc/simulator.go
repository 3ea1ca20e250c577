package mc

import (
	"math/rand/v2"

	"BasketRisk/internal/model"
)

// Simulate generates one full trajectory of cfg.Steps+1 spot vectors.
// Only cfg.Horizon and cfg.Steps are used; trials and seed belong to the pricer.
func Simulate(state model.MarketState, cfg model.SimulationConfig, rng *rand.Rand) (model.Trajectory, error) {
	if err := Validate(state, withTrials(cfg)); err != nil {
		return nil, err
	}
	path := make(model.Trajectory, 0, cfg.Steps+1)
	err := Walk(state, cfg, rng, func(_ int, spot []float64) bool {
		path = append(path, append([]float64(nil), spot...))
		return true
	})
	if err != nil {
		return nil, err
	}
	return path, nil
}

// Walk streams one trajectory through visit without retaining it. visit sees
// step 0 (the initial spot) first; the slice is reused between calls. Returning
// false stops the walk.
func Walk(state model.MarketState, cfg model.SimulationConfig, rng *rand.Rand, visit func(step int, spot []float64) bool) error {
	st, err := NewStepper(state, withTrials(cfg))
	if err != nil {
		return err
	}
	n := st.Assets()
	spot := append([]float64(nil), state.Spot...)
	z := make([]float64, n)
	dz := make([]float64, n)

	if !visit(0, spot) {
		return nil
	}
	for t := 1; t <= st.Steps(); t++ {
		st.Advance(spot, z, dz, rng)
		if !visit(t, spot) {
			return nil
		}
	}
	return nil
}

// withTrials fills in a single trial so path-level callers pass validation.
func withTrials(cfg model.SimulationConfig) model.SimulationConfig {
	if cfg.Trials == 0 {
		cfg.Trials = 1
	}
	return cfg
}
