package optimization

import "math"

// testSpace is R^n over []float64 with an optional diagonal weighting, so
// tests can confirm the driver delegates every inner product to the space.
type testSpace struct {
	dim     int
	weights []float64
}

func newTestSpace(dim int) *testSpace { return &testSpace{dim: dim} }

func newWeightedTestSpace(weights []float64) *testSpace {
	return &testSpace{dim: len(weights), weights: weights}
}

func (s *testSpace) NewVector() Vector { return make([]float64, s.dim) }

func (s *testSpace) Copy(dst, src Vector) { copy(dst.([]float64), src.([]float64)) }

func (s *testSpace) Inner(a, b Vector) float64 {
	av, bv := a.([]float64), b.([]float64)
	sum := 0.0
	for i := range av {
		w := 1.0
		if s.weights != nil {
			w = s.weights[i]
		}
		sum += w * av[i] * bv[i]
	}
	return sum
}

func (s *testSpace) AXPY(dst Vector, alpha float64, x Vector) {
	dv, xv := dst.([]float64), x.([]float64)
	for i := range dv {
		dv[i] += alpha * xv[i]
	}
}

func (s *testSpace) Scale(v Vector, alpha float64) {
	vv := v.([]float64)
	for i := range vv {
		vv[i] *= alpha
	}
}

func (s *testSpace) MaxAbs(v Vector) float64 {
	max := 0.0
	for _, x := range v.([]float64) {
		if a := math.Abs(x); a > max {
			max = a
		}
	}
	return max
}

// funcProblem adapts plain objective/gradient closures to the external
// collaborator contracts, with the same cache-validity protocol a real
// state/adjoint solver would have.
type funcProblem struct {
	space   *testSpace
	control []float64
	grad    []float64

	f func(x []float64) float64
	g func(x, out []float64)

	evalErr error

	value  float64
	normSq float64

	stateValid    bool
	gradientValid bool
	stateSolves   int
	adjointSolves int
}

func newFuncProblem(space *testSpace, x0 []float64, f func([]float64) float64, g func(x, out []float64)) *funcProblem {
	control := make([]float64, len(x0))
	copy(control, x0)
	return &funcProblem{
		space:   space,
		control: control,
		grad:    make([]float64, len(x0)),
		f:       f,
		g:       g,
	}
}

func (p *funcProblem) Evaluate() (float64, error) {
	if p.evalErr != nil {
		return 0, p.evalErr
	}
	if !p.stateValid {
		p.value = p.f(p.control)
		p.stateValid = true
		p.stateSolves++
	}
	return p.value, nil
}

func (p *funcProblem) InvalidateState() { p.stateValid = false }
func (p *funcProblem) StateSolves() int { return p.stateSolves }

func (p *funcProblem) Solve() error {
	if p.gradientValid {
		return nil
	}
	p.g(p.control, p.grad)
	p.normSq = p.space.Inner(p.grad, p.grad)
	p.gradientValid = true
	p.adjointSolves++
	return nil
}

func (p *funcProblem) Gradient() Vector { return p.grad }

func (p *funcProblem) GradientNormSquared() float64 { return p.normSq }

func (p *funcProblem) InvalidateGradient() { p.gradientValid = false }
func (p *funcProblem) AdjointSolves() int  { return p.adjointSolves }
