// Package optimization implements the quasi-Newton driver at the heart of
// ASPEN: a limited-memory BFGS method with Armijo backtracking, generic over
// the discretized control space and the external state/adjoint solvers.
package optimization

// Vector is an opaque handle to an element of a control space. Its concrete
// representation is owned by the VectorSpace that created it; the driver only
// ever manipulates vectors through space operations.
type Vector any

// VectorSpace supplies the linear-algebra capabilities the driver is generic
// over: element creation and copy, in-place axpy and scaling, the weighted
// inner product of the discretization, and the elementwise max-abs norm.
//
// Inner must return the inner product of the underlying function space (for
// finite-element controls typically mass-matrix weighted), never a flat
// coordinate dot product. Every scalar product in the driver and the line
// search is delegated here.
type VectorSpace interface {
	// NewVector returns a fresh zero vector of the space.
	NewVector() Vector

	// Copy copies the value of src into dst.
	Copy(dst, src Vector)

	// Inner returns the inner product of a and b.
	Inner(a, b Vector) float64

	// AXPY performs dst += alpha*x in place.
	AXPY(dst Vector, alpha float64, x Vector)

	// Scale performs v *= alpha in place.
	Scale(v Vector, alpha float64)

	// MaxAbs returns the largest absolute entry of v.
	MaxAbs(v Vector) float64
}

// ObjectiveEvaluator recomputes the reduced objective at the current value of
// the control variable. For PDE-constrained problems an evaluation involves a
// full state solve, so implementations are expected to memoize: Evaluate
// returns the cached value until InvalidateState is called.
type ObjectiveEvaluator interface {
	// Evaluate returns the objective at the current control, solving the
	// state system first if the cached solution is stale. A failed solve is
	// a hard error and is never retried by the driver.
	Evaluate() (float64, error)

	// InvalidateState marks the cached state solution stale, forcing the
	// next Evaluate to solve afresh.
	InvalidateState()

	// StateSolves reports how many state solves have been performed.
	StateSolves() int
}

// GradientSolver computes the gradient of the reduced objective at the
// current control, typically via an adjoint solve. The gradient vector it
// exposes is reused across solves; callers that need the previous gradient
// must copy it before calling Solve again.
type GradientSolver interface {
	// Solve populates the gradient at the current control.
	Solve() error

	// Gradient returns the most recently computed gradient.
	Gradient() Vector

	// GradientNormSquared returns the squared norm of the current gradient
	// in the space's inner product.
	GradientNormSquared() float64

	// InvalidateGradient marks the cached adjoint solution stale.
	InvalidateGradient()

	// AdjointSolves reports how many adjoint solves have been performed.
	AdjointSolves() int
}

// RunStatus classifies how a Run terminated.
type RunStatus int

const (
	// StatusConverged means the relative gradient norm fell below the
	// configured tolerance.
	StatusConverged RunStatus = iota
	// StatusLineSearchExhausted means the Armijo search could not find an
	// acceptable step. The last accepted control remains installed.
	StatusLineSearchExhausted
	// StatusIterationLimit means the iteration cap was reached first.
	StatusIterationLimit
)

// String returns a short human-readable form of the status.
func (s RunStatus) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusLineSearchExhausted:
		return "line search exhausted"
	case StatusIterationLimit:
		return "iteration limit"
	default:
		return "unknown"
	}
}

// Result carries the final statistics of an optimization run.
type Result struct {
	Status        RunStatus
	Iterations    int
	Objective     float64
	RelativeNorm  float64
	Stepsize      float64
	StateSolves   int
	AdjointSolves int
}
