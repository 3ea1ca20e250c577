// Package mc implements correlated lognormal path simulation and the Monte
// Carlo basket-call estimators built on it.
package mc

import "errors"

var (
	// ErrDimensionMismatch means spot, drift, volatility and correlation disagree on the asset count.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidCorrelation means the correlation matrix is malformed or not positive semi-definite.
	ErrInvalidCorrelation = errors.New("invalid correlation")
	// ErrInvalidConfiguration covers non-positive steps, trials, horizon, strike or barrier and negative volatility.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrNumerical is returned instead of a NaN or infinite price.
	ErrNumerical = errors.New("non-finite estimate")
)
