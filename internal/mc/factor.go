package mc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// psdTolerance is the relative pivot tolerance of the semidefinite fallback.
const psdTolerance = 1e-10

// CovFactor is a lower-triangular L with L·Lᵀ = diag(vol)·corr·diag(vol).
// It is immutable once built and safe to share between goroutines.
type CovFactor struct {
	n int
	l []float64 // row-major, only j <= i is populated
}

// Covariance builds diag(vol)·corr·diag(vol).
func Covariance(vol []float64, corr [][]float64) *mat.SymDense {
	n := len(vol)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, vol[i]*corr[i][j]*vol[j])
		}
	}
	return cov
}

// FactorCovariance factors the covariance implied by vol and corr.
//
// The correlation matrix itself is factored and each row of its factor is
// scaled by the asset volatility, so a zero volatility never hides a
// correlation matrix that is not positive semi-definite. Positive definite
// matrices go through gonum's Cholesky; rank-deficient ones fall back to a
// semidefinite Cholesky that accepts zero pivots.
func FactorCovariance(vol []float64, corr [][]float64) (*CovFactor, error) {
	n := len(vol)
	if len(corr) != n {
		return nil, fmt.Errorf("%w: vol=%d corr=%d", ErrDimensionMismatch, n, len(corr))
	}
	c := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(corr[i]) != n {
			return nil, fmt.Errorf("%w: correlation row %d has %d entries", ErrDimensionMismatch, i, len(corr[i]))
		}
		for j := i; j < n; j++ {
			c.SetSym(i, j, corr[i][j])
		}
	}

	l, err := factorCorrelation(c)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			l[i*n+j] *= vol[i]
		}
	}
	return &CovFactor{n: n, l: l}, nil
}

func factorCorrelation(c *mat.SymDense) ([]float64, error) {
	n := c.SymmetricDim()
	var chol mat.Cholesky
	if chol.Factorize(c) {
		var lt mat.TriDense
		chol.LTo(&lt)
		l := make([]float64, n*n)
		for i := 0; i < n; i++ {
			for j := 0; j <= i; j++ {
				l[i*n+j] = lt.At(i, j)
			}
		}
		return l, nil
	}
	return semidefiniteCholesky(c)
}

// semidefiniteCholesky factors a positive semi-definite matrix, zeroing the
// column of every pivot that vanishes within tolerance. A negative pivot, or
// an off-diagonal remainder against a zero pivot larger than the pivots allow,
// means the matrix is indefinite.
func semidefiniteCholesky(a *mat.SymDense) ([]float64, error) {
	n := a.SymmetricDim()
	scale := 1.0
	for i := 0; i < n; i++ {
		scale = math.Max(scale, math.Abs(a.At(i, i)))
	}
	tol := psdTolerance * scale

	l := make([]float64, n*n)
	for j := 0; j < n; j++ {
		d := a.At(j, j)
		for k := 0; k < j; k++ {
			d -= l[j*n+k] * l[j*n+k]
		}
		if d < -tol {
			return nil, fmt.Errorf("%w: negative pivot %g at %d", ErrInvalidCorrelation, d, j)
		}
		if d <= tol {
			// Every 2x2 minor of the remaining Schur complement must stay
			// non-negative: s² <= d·dii, both pivots padded by tol.
			for i := j + 1; i < n; i++ {
				s := a.At(i, j)
				dii := a.At(i, i)
				for k := 0; k < j; k++ {
					s -= l[i*n+k] * l[j*n+k]
					dii -= l[i*n+k] * l[i*n+k]
				}
				if s*s > (math.Max(d, 0)+tol)*(math.Max(dii, 0)+tol) {
					return nil, fmt.Errorf("%w: not positive semi-definite at (%d,%d)", ErrInvalidCorrelation, i, j)
				}
			}
			continue
		}
		ljj := math.Sqrt(d)
		l[j*n+j] = ljj
		for i := j + 1; i < n; i++ {
			s := a.At(i, j)
			for k := 0; k < j; k++ {
				s -= l[i*n+k] * l[j*n+k]
			}
			l[i*n+j] = s / ljj
		}
	}
	return l, nil
}

// Dim returns the asset count.
func (f *CovFactor) Dim() int { return f.n }

// At returns L[i][j].
func (f *CovFactor) At(i, j int) float64 { return f.l[i*f.n+j] }

// Mul writes dz = L·z.
func (f *CovFactor) Mul(dz, z []float64) {
	n := f.n
	for i := 0; i < n; i++ {
		row := f.l[i*n : i*n+i+1]
		var acc float64
		for j, v := range row {
			acc += v * z[j]
		}
		dz[i] = acc
	}
}

// Dense returns L as a gonum matrix.
func (f *CovFactor) Dense() *mat.TriDense {
	t := mat.NewTriDense(f.n, mat.Lower, nil)
	for i := 0; i < f.n; i++ {
		for j := 0; j <= i; j++ {
			t.SetTri(i, j, f.l[i*f.n+j])
		}
	}
	return t
}
