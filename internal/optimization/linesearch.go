package optimization

import (
	"github.com/tarnmoor/ASPEN/internal/errors"
)

const (
	// displacementFloor bounds the physical displacement of a trial step.
	// Below it the step is numerically negligible and the search gives up.
	displacementFloor = 1e-10
	// collapseFloor bounds the step size relative to the first accepted
	// step. It only applies to the curvature-free configuration, where a
	// collapsing step signals stagnation rather than a short quasi-Newton
	// step.
	collapseFloor = 1e-8
)

// SearchStatus tags the outcome of a line search.
type SearchStatus int

const (
	// SearchAccepted means a step satisfying the Armijo condition was found
	// and is installed in the control variable.
	SearchAccepted SearchStatus = iota
	// SearchExhausted means no acceptable step exists above the numerical
	// floors. The control variable is left at its pre-search value.
	SearchExhausted
)

// SearchResult is the tagged outcome of ArmijoSearch.Search.
type SearchResult struct {
	Status    SearchStatus
	Stepsize  float64
	Objective float64
}

// ArmijoSearch finds a step length along a descent direction satisfying the
// Armijo sufficient-decrease condition by backtracking. The step size is
// warm-started: it carries over from one outer iteration to the next and is
// grown again after acceptance, so the search starts near the last step that
// worked.
type ArmijoSearch struct {
	space     VectorSpace
	objective ObjectiveEvaluator

	epsilon float64
	beta    float64
	// memoryFree marks the steepest-descent configuration, which is subject
	// to the relative-collapse failure guard.
	memoryFree bool

	stepsize        float64
	initialStepsize float64

	snapshot Vector
}

// NewArmijoSearch constructs a line search over the given space, evaluating
// trial points through objective. Settings must have been validated.
func NewArmijoSearch(space VectorSpace, objective ObjectiveEvaluator, s Settings) *ArmijoSearch {
	return &ArmijoSearch{
		space:           space,
		objective:       objective,
		epsilon:         s.EpsilonArmijo,
		beta:            s.BetaArmijo,
		memoryFree:      s.MemoryVectors == 0,
		stepsize:        s.StepInitial,
		initialStepsize: s.StepInitial,
		snapshot:        space.NewVector(),
	}
}

// Stepsize returns the current carried-over trial step size.
func (ls *ArmijoSearch) Stepsize() float64 {
	return ls.stepsize
}

// GrowStep partially restores the trial step after an accepted iteration so
// the next search does not start from a fully backtracked step.
func (ls *ArmijoSearch) GrowStep() {
	ls.stepsize *= ls.beta
}

// Search backtracks along direction from the value currently installed in
// control until the Armijo condition
//
//	f(x + t*d) < f(x) + epsilon * t * <d, g>
//
// holds. directionalDerivative is <direction, gradient>, supplied by the
// caller; it must be negative for the condition to be satisfiable. fullStep
// forces the first trial to the unit step, for Newton-type directions with
// curvature information; otherwise the carried step size is used.
//
// On acceptance the trial point stays installed in control and the cached
// state of the evaluator reflects it. On exhaustion control is exactly the
// snapshot taken on entry, restored by copy rather than by subtracting the
// step back. An evaluator error aborts the search with the control restored.
func (ls *ArmijoSearch) Search(control, direction Vector, iteration int, objective, directionalDerivative float64, fullStep bool) (SearchResult, error) {
	if fullStep {
		ls.stepsize = 1.0
	}

	ls.space.Copy(ls.snapshot, control)
	directionInf := ls.space.MaxAbs(direction)

	for {
		// Both failure guards run before a trial is paid for.
		if ls.stepsize*directionInf <= displacementFloor {
			return SearchResult{Status: SearchExhausted, Stepsize: ls.stepsize}, nil
		}
		if ls.memoryFree && iteration > 0 && ls.stepsize/ls.initialStepsize <= collapseFloor {
			return SearchResult{Status: SearchExhausted, Stepsize: ls.stepsize}, nil
		}

		ls.space.AXPY(control, ls.stepsize, direction)
		ls.objective.InvalidateState()

		trial, err := ls.objective.Evaluate()
		if err != nil {
			ls.space.Copy(control, ls.snapshot)
			return SearchResult{}, errors.Wrap(err, "objective evaluation failed during line search").
				WithComponent("linesearch").
				WithOperation("evaluate")
		}

		if trial < objective+ls.epsilon*ls.stepsize*directionalDerivative {
			if iteration == 0 {
				ls.initialStepsize = ls.stepsize
			}
			return SearchResult{Status: SearchAccepted, Stepsize: ls.stepsize, Objective: trial}, nil
		}

		ls.stepsize /= ls.beta
		ls.space.Copy(control, ls.snapshot)
	}
}
