package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFailsBeforeEvaluatingTinyStep(t *testing.T) {
	space := newTestSpace(2)
	p := quadraticProblem(space, []float64{1, 1})

	s := DefaultSettings()
	s.StepInitial = 1e-9
	ls := NewArmijoSearch(space, p, s)

	// stepsize * max|direction| = 1e-9 * 1e-2 = 1e-11 <= 1e-10: the guard
	// must fire without a single objective evaluation.
	direction := []float64{-1e-2, 1e-2}
	res, err := ls.Search(p.control, direction, 0, 1.0, -1e-4, false)
	require.NoError(t, err)
	assert.Equal(t, SearchExhausted, res.Status)
	assert.Zero(t, p.StateSolves())
	assert.Equal(t, []float64{1, 1}, p.control)
}

func TestSearchRelativeCollapseOnlyWithoutMemory(t *testing.T) {
	newSearch := func(memory int) (*ArmijoSearch, *funcProblem) {
		space := newTestSpace(1)
		p := quadraticProblem(space, []float64{1})
		s := DefaultSettings()
		s.MemoryVectors = memory
		ls := NewArmijoSearch(space, p, s)
		// Simulate a collapsed carried step relative to the first accepted
		// one.
		ls.initialStepsize = 1.0
		ls.stepsize = 1e-9
		return ls, p
	}

	direction := []float64{-1}

	// Memory-free and past the first iteration: guard fires untried.
	ls, p := newSearch(0)
	res, err := ls.Search(p.control, direction, 1, 0.5, -1.0, false)
	require.NoError(t, err)
	assert.Equal(t, SearchExhausted, res.Status)
	assert.Zero(t, p.StateSolves())

	// Same state on iteration 0: no collapse guard yet.
	ls, p = newSearch(0)
	res, err = ls.Search(p.control, direction, 0, 0.5, -1.0, false)
	require.NoError(t, err)
	assert.Equal(t, SearchAccepted, res.Status)

	// With curvature memory the collapse guard never applies.
	ls, p = newSearch(5)
	res, err = ls.Search(p.control, direction, 1, 0.5, -1.0, false)
	require.NoError(t, err)
	assert.Equal(t, SearchAccepted, res.Status)
}

func TestSearchBacktracksUntilAccepted(t *testing.T) {
	space := newTestSpace(1)
	p := quadraticProblem(space, []float64{1})

	s := DefaultSettings()
	s.StepInitial = 64.0
	ls := NewArmijoSearch(space, p, s)

	obj, err := p.Evaluate()
	require.NoError(t, err)

	direction := []float64{-1}
	dd := space.Inner(direction, []float64{1})

	res, err := ls.Search(p.control, direction, 0, obj, dd, false)
	require.NoError(t, err)
	require.Equal(t, SearchAccepted, res.Status)
	assert.Less(t, res.Stepsize, 64.0, "the huge initial step must be backtracked")
	assert.Less(t, res.Objective, obj)
	// Accepted on iteration 0 latches the reference step size.
	assert.Equal(t, res.Stepsize, ls.initialStepsize)
	// Several trials were paid for along the way.
	assert.Greater(t, p.StateSolves(), 1)
}

func TestSearchRestoresControlExactly(t *testing.T) {
	space := newTestSpace(3)
	x0 := []float64{0.1, -0.2, 0.30000000000000004}
	// An objective that never satisfies sufficient decrease.
	p := newFuncProblem(space, x0,
		func(x []float64) float64 { return 1e6 },
		func(x, out []float64) { copy(out, x) },
	)

	ls := NewArmijoSearch(space, p, DefaultSettings())
	res, err := ls.Search(p.control, []float64{1, 1, 1}, 0, 0.0, -1.0, false)
	require.NoError(t, err)
	require.Equal(t, SearchExhausted, res.Status)

	// Bit-for-bit: restore comes from the snapshot, not from arithmetic.
	for i := range x0 {
		assert.Equal(t, x0[i], p.control[i])
	}
}

func TestSearchFullStepOverridesCarriedStep(t *testing.T) {
	space := newTestSpace(1)
	p := quadraticProblem(space, []float64{1})
	s := DefaultSettings()
	s.StepInitial = 0.125
	ls := NewArmijoSearch(space, p, s)

	obj, err := p.Evaluate()
	require.NoError(t, err)

	res, err := ls.Search(p.control, []float64{-1}, 0, obj, -1.0, true)
	require.NoError(t, err)
	require.Equal(t, SearchAccepted, res.Status)
	assert.Equal(t, 1.0, res.Stepsize)
}

func TestSearchPropagatesEvaluatorError(t *testing.T) {
	space := newTestSpace(2)
	x0 := []float64{1, 2}
	p := quadraticProblem(space, x0)
	p.evalErr = assert.AnError

	ls := NewArmijoSearch(space, p, DefaultSettings())
	_, err := ls.Search(p.control, []float64{-1, -1}, 0, 2.5, -1.0, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, x0, p.control, "control must be restored after a failed solve")
}

func TestGrowStep(t *testing.T) {
	space := newTestSpace(1)
	p := quadraticProblem(space, []float64{1})
	s := DefaultSettings()
	s.StepInitial = 0.5
	s.BetaArmijo = 2.0
	ls := NewArmijoSearch(space, p, s)

	ls.GrowStep()
	assert.Equal(t, 1.0, ls.Stepsize())
}
