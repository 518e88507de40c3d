package optimization

import (
	"context"
	"math"

	"github.com/tarnmoor/ASPEN/internal/errors"
)

// curvaturePair is one (step, gradient change) pair of the limited memory,
// with rho = 1/<y,s> precomputed. Pairs are only ever stored when the
// curvature condition <y,s> > 0 held, so rho is finite and positive.
type curvaturePair struct {
	s   Vector
	y   Vector
	rho float64
}

// LBFGS drives the limited-memory BFGS iteration: gradient evaluation via
// the external solvers, two-loop recursion over a bounded curvature history,
// Armijo globalization and the convergence bookkeeping.
//
// The control vector passed at construction is exclusively owned by the
// optimizer for the duration of Run; on return it holds the best point
// found, whatever the terminal status.
type LBFGS struct {
	space     VectorSpace
	objective ObjectiveEvaluator
	gradient  GradientSolver
	control   Vector
	settings  Settings
	search    *ArmijoSearch
	reporter  Reporter

	// history is most-recent-first and never longer than MemoryVectors.
	// Insertion is at the front, eviction from the back, and it is cleared
	// wholesale whenever a pair violates the curvature condition.
	history []curvaturePair

	iteration           int
	objectiveValue      float64
	gradientNormInitial float64
	relativeNorm        float64

	q            Vector
	gradientPrev Vector
	alphas       []float64
}

// New constructs an L-BFGS optimizer over the given space and collaborators.
// control is the starting point and is mutated in place during the run.
// A nil reporter is replaced by NopReporter.
func New(space VectorSpace, control Vector, objective ObjectiveEvaluator, gradient GradientSolver, settings Settings, reporter Reporter) (*LBFGS, error) {
	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid optimization settings").WithComponent("lbfgs")
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &LBFGS{
		space:     space,
		objective: objective,
		gradient:  gradient,
		control:   control,
		settings:  settings,
		search:    NewArmijoSearch(space, objective, settings),
		reporter:  reporter,
		history:   make([]curvaturePair, 0, settings.MemoryVectors),
		q:         space.NewVector(),
		alphas:    make([]float64, 0, settings.MemoryVectors),
	}, nil
}

// computeSearchDirection applies the inverse Hessian approximation to grad
// with the standard two-loop recursion and returns the negated result. With
// an empty history (including the memory-free configuration) this is plain
// steepest descent. The returned vector is scratch owned by the optimizer
// and is overwritten on the next call.
func (l *LBFGS) computeSearchDirection(grad Vector) Vector {
	l.space.Copy(l.q, grad)

	if len(l.history) == 0 {
		l.space.Scale(l.q, -1)
		return l.q
	}

	// First pass, most recent pair first.
	l.alphas = l.alphas[:0]
	for _, p := range l.history {
		alpha := p.rho * l.space.Inner(p.s, l.q)
		l.alphas = append(l.alphas, alpha)
		l.space.AXPY(l.q, -alpha, p.y)
	}

	// Scale the initial inverse Hessian approximation by gamma from the
	// most recent pair. Skipped on the very first iteration, where the
	// history cannot yet carry meaningful scale information.
	gamma := 1.0
	if l.settings.UseScaling && l.iteration > 0 {
		p := l.history[0]
		gamma = l.space.Inner(p.y, p.s) / l.space.Inner(p.y, p.y)
	}
	l.space.Scale(l.q, gamma)

	// Second pass, oldest pair first.
	for i := len(l.history) - 1; i >= 0; i-- {
		p := l.history[i]
		beta := p.rho * l.space.Inner(p.y, l.q)
		l.space.AXPY(l.q, l.alphas[i]-beta, p.s)
	}

	l.space.Scale(l.q, -1)
	return l.q
}

// updateHistory forms the curvature pair of the accepted step and pushes it
// to the front of the history. A pair with non-positive curvature poisons
// the product structure the two-loop recursion relies on, so the entire
// history is discarded instead of just the offending pair.
func (l *LBFGS) updateHistory(direction Vector, stepsize float64, grad Vector) {
	y := l.space.NewVector()
	l.space.Copy(y, grad)
	l.space.AXPY(y, -1, l.gradientPrev)

	s := l.space.NewVector()
	l.space.Copy(s, direction)
	l.space.Scale(s, stepsize)

	curvature := l.space.Inner(y, s)
	if curvature <= 0 {
		l.history = l.history[:0]
		return
	}

	l.history = append(l.history, curvaturePair{})
	copy(l.history[1:], l.history[:len(l.history)-1])
	l.history[0] = curvaturePair{s: s, y: y, rho: 1 / curvature}

	if len(l.history) > l.settings.MemoryVectors {
		l.history = l.history[:l.settings.MemoryVectors]
	}
}

// solveGradient refreshes the gradient and the relative norm after the
// control changed.
func (l *LBFGS) solveGradient() error {
	l.gradient.InvalidateGradient()
	if err := l.gradient.Solve(); err != nil {
		return errors.Wrap(err, "adjoint gradient solve failed").
			WithComponent("lbfgs").
			WithOperation("solve_gradient")
	}
	return nil
}

func (l *LBFGS) result(status RunStatus) *Result {
	return &Result{
		Status:        status,
		Iterations:    l.iteration,
		Objective:     l.objectiveValue,
		RelativeNorm:  l.relativeNorm,
		Stepsize:      l.search.Stepsize(),
		StateSolves:   l.objective.StateSolves(),
		AdjointSolves: l.gradient.AdjointSolves(),
	}
}

func (l *LBFGS) finish(status RunStatus) *Result {
	res := l.result(status)
	l.reporter.ReportSummary(res)
	return res
}

// Run performs the optimization. It returns the final statistics, or an
// error if an external solve fails or ctx is cancelled between iterations.
// An exhausted line search is a terminal status, not an error: the last
// accepted control stays installed and the result reports what was reached.
// An in-flight state or adjoint solve is never interrupted.
func (l *LBFGS) Run(ctx context.Context) (*Result, error) {
	l.iteration = 0

	l.objective.InvalidateState()
	value, err := l.objective.Evaluate()
	if err != nil {
		return nil, errors.Wrap(err, "initial objective evaluation failed").
			WithComponent("lbfgs").
			WithOperation("evaluate")
	}
	l.objectiveValue = value

	if err := l.solveGradient(); err != nil {
		return nil, err
	}
	l.gradientNormInitial = math.Sqrt(l.gradient.GradientNormSquared())
	l.relativeNorm = 1.0

	if l.gradientNormInitial == 0 {
		// Already stationary; there is no direction to search along.
		l.relativeNorm = 0
		l.reportIteration()
		return l.finish(StatusConverged), nil
	}

	if l.settings.MemoryVectors > 0 && l.gradientPrev == nil {
		l.gradientPrev = l.space.NewVector()
	}

	l.reportIteration()

	for l.relativeNorm > l.settings.Tolerance {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		grad := l.gradient.Gradient()
		direction := l.computeSearchDirection(grad)
		directionalDerivative := l.space.Inner(direction, grad)

		sr, err := l.search.Search(l.control, direction, l.iteration, l.objectiveValue, directionalDerivative, false)
		if err != nil {
			return nil, err
		}
		if sr.Status == SearchExhausted {
			return l.finish(StatusLineSearchExhausted), nil
		}
		l.objectiveValue = sr.Objective

		if l.settings.MemoryVectors > 0 {
			l.space.Copy(l.gradientPrev, grad)
		}

		if err := l.solveGradient(); err != nil {
			return nil, err
		}
		l.relativeNorm = math.Sqrt(l.gradient.GradientNormSquared()) / l.gradientNormInitial

		if l.settings.MemoryVectors > 0 {
			l.updateHistory(direction, sr.Stepsize, l.gradient.Gradient())
		}

		l.iteration++
		l.reportIteration()

		if l.iteration >= l.settings.MaximumIterations {
			if l.relativeNorm <= l.settings.Tolerance {
				break
			}
			return l.finish(StatusIterationLimit), nil
		}

		l.search.GrowStep()
	}

	return l.finish(StatusConverged), nil
}

func (l *LBFGS) reportIteration() {
	rec := IterationRecord{
		Iteration: l.iteration,
		Objective: l.objectiveValue,
		Stepsize:  l.search.Stepsize(),
	}
	if l.iteration == 0 {
		rec.GradientNorm = l.gradientNormInitial
	} else {
		rec.GradientNorm = l.relativeNorm
		rec.Relative = true
	}
	l.reporter.ReportIteration(rec)
}
