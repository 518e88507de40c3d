package spaces

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tarnmoor/ASPEN/internal/optimization"
)

// MassWeighted is R^n equipped with the inner product <a,b> = a^T M b for a
// symmetric positive definite mass matrix M, the discrete counterpart of an
// L2 inner product over a non-uniform mesh. Vectors are *mat.VecDense.
type MassWeighted struct {
	mass    *mat.SymDense
	scratch *mat.VecDense
}

// NewMassWeighted returns the space weighted by mass. Positive definiteness
// is the caller's responsibility; it is not checked here.
func NewMassWeighted(mass *mat.SymDense) *MassWeighted {
	n := mass.SymmetricDim()
	return &MassWeighted{
		mass:    mass,
		scratch: mat.NewVecDense(n, nil),
	}
}

// NewLumped returns a mass-weighted space with a diagonal (lumped) mass
// matrix built from the given positive weights.
func NewLumped(weights []float64) *MassWeighted {
	n := len(weights)
	m := mat.NewSymDense(n, nil)
	for i, w := range weights {
		if w <= 0 {
			panic("spaces: lumped mass weights must be positive")
		}
		m.SetSym(i, i, w)
	}
	return NewMassWeighted(m)
}

// Dim returns the dimension of the space.
func (s *MassWeighted) Dim() int { return s.mass.SymmetricDim() }

func (s *MassWeighted) NewVector() optimization.Vector {
	return mat.NewVecDense(s.Dim(), nil)
}

func (s *MassWeighted) Copy(dst, src optimization.Vector) {
	dst.(*mat.VecDense).CopyVec(src.(*mat.VecDense))
}

func (s *MassWeighted) Inner(a, b optimization.Vector) float64 {
	s.scratch.MulVec(s.mass, b.(*mat.VecDense))
	return mat.Dot(a.(*mat.VecDense), s.scratch)
}

func (s *MassWeighted) AXPY(dst optimization.Vector, alpha float64, x optimization.Vector) {
	d := dst.(*mat.VecDense)
	d.AddScaledVec(d, alpha, x.(*mat.VecDense))
}

func (s *MassWeighted) Scale(v optimization.Vector, alpha float64) {
	w := v.(*mat.VecDense)
	w.ScaleVec(alpha, w)
}

func (s *MassWeighted) MaxAbs(v optimization.Vector) float64 {
	w := v.(*mat.VecDense)
	max := 0.0
	for i := 0; i < w.Len(); i++ {
		if a := math.Abs(w.AtVec(i)); a > max {
			max = a
		}
	}
	return max
}
