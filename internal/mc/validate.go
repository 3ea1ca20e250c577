package mc

import (
	"fmt"
	"math"

	"BasketRisk/internal/model"
)

// Validate checks a market state and simulation config before any random draw is consumed.
func Validate(state model.MarketState, cfg model.SimulationConfig) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	return validateState(state)
}

func validateConfig(cfg model.SimulationConfig) error {
	if cfg.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidConfiguration, cfg.Steps)
	}
	if cfg.Trials <= 0 {
		return fmt.Errorf("%w: trials must be positive, got %d", ErrInvalidConfiguration, cfg.Trials)
	}
	if !(cfg.Horizon > 0) || math.IsInf(cfg.Horizon, 0) {
		return fmt.Errorf("%w: horizon must be positive and finite, got %v", ErrInvalidConfiguration, cfg.Horizon)
	}
	if !finite(cfg.Rate) {
		return fmt.Errorf("%w: rate must be finite, got %v", ErrInvalidConfiguration, cfg.Rate)
	}
	return nil
}

func validateState(state model.MarketState) error {
	n := len(state.Spot)
	if n == 0 {
		return fmt.Errorf("%w: empty basket", ErrDimensionMismatch)
	}
	if len(state.Drift) != n || len(state.Vol) != n || len(state.Corr) != n {
		return fmt.Errorf("%w: spot=%d drift=%d vol=%d corr=%d",
			ErrDimensionMismatch, n, len(state.Drift), len(state.Vol), len(state.Corr))
	}
	for i, row := range state.Corr {
		if len(row) != n {
			return fmt.Errorf("%w: correlation row %d has %d entries, want %d", ErrDimensionMismatch, i, len(row), n)
		}
	}

	for i := 0; i < n; i++ {
		if !(state.Spot[i] > 0) || math.IsInf(state.Spot[i], 0) {
			return fmt.Errorf("%w: spot[%d]=%v must be positive and finite", ErrInvalidConfiguration, i, state.Spot[i])
		}
		if !finite(state.Drift[i]) {
			return fmt.Errorf("%w: drift[%d]=%v must be finite", ErrInvalidConfiguration, i, state.Drift[i])
		}
		if !(state.Vol[i] >= 0) || math.IsInf(state.Vol[i], 0) {
			return fmt.Errorf("%w: vol[%d]=%v must be non-negative and finite", ErrInvalidConfiguration, i, state.Vol[i])
		}
	}

	for i := 0; i < n; i++ {
		if state.Corr[i][i] != 1 {
			return fmt.Errorf("%w: diagonal entry %d is %v, want 1", ErrInvalidCorrelation, i, state.Corr[i][i])
		}
		for j := 0; j < n; j++ {
			c := state.Corr[i][j]
			if !(c >= -1 && c <= 1) {
				return fmt.Errorf("%w: entry (%d,%d)=%v outside [-1, 1]", ErrInvalidCorrelation, i, j, c)
			}
			if c != state.Corr[j][i] {
				return fmt.Errorf("%w: not symmetric at (%d,%d)", ErrInvalidCorrelation, i, j)
			}
		}
	}
	return nil
}

// validateOption rejects strikes and barriers the payoff cannot use.
// A barrier of -Inf is accepted and never knocks out.
func validateOption(strike float64, barrier *float64) error {
	if !(strike > 0) || math.IsInf(strike, 0) {
		return fmt.Errorf("%w: strike must be positive and finite, got %v", ErrInvalidConfiguration, strike)
	}
	if barrier == nil {
		return nil
	}
	b := *barrier
	if math.IsInf(b, -1) {
		return nil
	}
	if !(b > 0) || math.IsInf(b, 0) {
		return fmt.Errorf("%w: barrier must be positive and finite, got %v", ErrInvalidConfiguration, b)
	}
	return nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
