package problems

import (
	"math"

	"github.com/tarnmoor/ASPEN/internal/optimization"
	"github.com/tarnmoor/ASPEN/internal/optimization/spaces"
)

// Rosenbrock is the extended Rosenbrock function over the flat Euclidean
// space,
//
//	f(x) = sum_{i<n-1} 100 (x_{i+1} - x_i^2)^2 + (1 - x_i)^2,
//
// with its analytic gradient. The minimizer is x = (1,...,1); the default
// start alternates -1.2 and 1. It is the standard ill-conditioned smoke test
// for curvature memory: steepest descent crawls through the valley while
// L-BFGS does not.
type Rosenbrock struct {
	space   *spaces.Euclidean
	control []float64
	grad    []float64

	value  float64
	normSq float64

	stateValid    bool
	gradientValid bool
	stateSolves   int
	adjointSolves int
}

// NewRosenbrock builds the problem with the default starting point. The
// dimension must be at least 2.
func NewRosenbrock(dim int) (*Rosenbrock, error) {
	if dim < 2 {
		dim = 2
	}
	control := make([]float64, dim)
	for i := range control {
		if i%2 == 0 {
			control[i] = -1.2
		} else {
			control[i] = 1
		}
	}
	return &Rosenbrock{
		space:   spaces.NewEuclidean(dim),
		control: control,
		grad:    make([]float64, dim),
	}, nil
}

func (p *Rosenbrock) Name() string                    { return "rosenbrock" }
func (p *Rosenbrock) Space() optimization.VectorSpace { return p.space }
func (p *Rosenbrock) Control() optimization.Vector    { return p.control }

func (p *Rosenbrock) Evaluate() (float64, error) {
	if !p.stateValid {
		f := 0.0
		x := p.control
		for i := 0; i < len(x)-1; i++ {
			t := x[i+1] - x[i]*x[i]
			u := 1 - x[i]
			f += 100*t*t + u*u
		}
		p.value = f
		p.stateValid = true
		p.stateSolves++
	}
	return p.value, nil
}

func (p *Rosenbrock) InvalidateState() { p.stateValid = false }
func (p *Rosenbrock) StateSolves() int { return p.stateSolves }

func (p *Rosenbrock) Solve() error {
	if p.gradientValid {
		return nil
	}
	x := p.control
	g := p.grad
	for i := range g {
		g[i] = 0
	}
	for i := 0; i < len(x)-1; i++ {
		t := x[i+1] - x[i]*x[i]
		g[i] += -400*x[i]*t - 2*(1-x[i])
		g[i+1] += 200 * t
	}
	p.normSq = p.space.Inner(g, g)
	p.gradientValid = true
	p.adjointSolves++
	return nil
}

func (p *Rosenbrock) Gradient() optimization.Vector { return p.grad }

func (p *Rosenbrock) GradientNormSquared() float64 {
	if !p.gradientValid {
		return math.NaN()
	}
	return p.normSq
}

func (p *Rosenbrock) InvalidateGradient() { p.gradientValid = false }
func (p *Rosenbrock) AdjointSolves() int  { return p.adjointSolves }
