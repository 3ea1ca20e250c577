package model

import "time"

// Greeks holds finite-difference sensitivities with respect to asset 0.
type Greeks struct {
	Base    float64
	Delta   float64
	Gamma   float64
	Vega    float64
	Epsilon float64
}

// Scenario is a named perturbation of the baseline market.
// Nil fields mean no shift; the three shifts are applied independently.
type Scenario struct {
	Name               string   `yaml:"name"`
	SpotShiftPercent   *float64 `yaml:"spot_shift_percent"`
	VolShiftAbsolute   *float64 `yaml:"vol_shift_absolute"`
	DriftShiftAbsolute *float64 `yaml:"drift_shift_absolute"`
}

// ScenarioResult is one row of a scenario sweep.
type ScenarioResult struct {
	Name  string
	Price float64
	Err   error // only set when partial results were requested
}

// RiskReport is the full output of one analytics run.
type RiskReport struct {
	RunID     string
	Symbols   []string
	Market    MarketState
	Option    OptionSpec
	Vanilla   PriceEstimate
	Barrier   PriceEstimate
	Greeks    Greeks
	Scenarios []ScenarioResult
	StartedAt time.Time
	Elapsed   time.Duration
}
