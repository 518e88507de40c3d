// Package spaces provides concrete control spaces for the optimization
// driver: the flat Euclidean space and a mass-matrix-weighted space of the
// kind produced by finite-element discretizations.
package spaces

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/tarnmoor/ASPEN/internal/optimization"
)

// Euclidean is R^n with the standard dot product. Vectors are []float64.
type Euclidean struct {
	dim int
}

// NewEuclidean returns the Euclidean space of the given dimension.
func NewEuclidean(dim int) *Euclidean {
	if dim <= 0 {
		panic("spaces: dimension must be positive")
	}
	return &Euclidean{dim: dim}
}

// Dim returns the dimension of the space.
func (e *Euclidean) Dim() int { return e.dim }

func (e *Euclidean) NewVector() optimization.Vector {
	return make([]float64, e.dim)
}

func (e *Euclidean) Copy(dst, src optimization.Vector) {
	copy(dst.([]float64), src.([]float64))
}

func (e *Euclidean) Inner(a, b optimization.Vector) float64 {
	return floats.Dot(a.([]float64), b.([]float64))
}

func (e *Euclidean) AXPY(dst optimization.Vector, alpha float64, x optimization.Vector) {
	floats.AddScaled(dst.([]float64), alpha, x.([]float64))
}

func (e *Euclidean) Scale(v optimization.Vector, alpha float64) {
	floats.Scale(alpha, v.([]float64))
}

func (e *Euclidean) MaxAbs(v optimization.Vector) float64 {
	max := 0.0
	for _, x := range v.([]float64) {
		if a := math.Abs(x); a > max {
			max = a
		}
	}
	return max
}
