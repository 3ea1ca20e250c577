package model

// SimulationConfig controls one pricing call.
type SimulationConfig struct {
	Horizon float64 // T in years
	Steps   int
	Trials  int
	Rate    float64 // continuously compounded discount rate
	Seed    *uint64 // nil draws a fresh seed, reported back in PriceEstimate
	Workers int     // <= 1 runs trials sequentially
}

// Dt returns the discretization interval.
func (c SimulationConfig) Dt() float64 { return c.Horizon / float64(c.Steps) }

// WithSeed returns a copy of c pinned to seed.
func (c SimulationConfig) WithSeed(seed uint64) SimulationConfig {
	c.Seed = &seed
	return c
}

// Trajectory is a full simulated path: row 0 is the initial spot, row t the spot after step t.
type Trajectory [][]float64

// Terminal returns the last spot vector of the path.
func (t Trajectory) Terminal() []float64 {
	if len(t) == 0 {
		return nil
	}
	return t[len(t)-1]
}

// OptionSpec describes the basket call being priced. A nil Barrier means vanilla.
type OptionSpec struct {
	Strike  float64
	Barrier *float64
}

// IsBarrier reports whether the option is knock-out monitored.
func (o OptionSpec) IsBarrier() bool { return o.Barrier != nil }

// Kind returns "barrier" or "vanilla".
func (o OptionSpec) Kind() string {
	if o.IsBarrier() {
		return "barrier"
	}
	return "vanilla"
}

// PriceEstimate is the Monte Carlo result of one pricing call.
type PriceEstimate struct {
	Price      float64 // discounted mean payoff
	StdErr     float64 // discounted standard error of the mean
	Trials     int
	KnockedOut int // barrier only
	Seed       uint64
}
