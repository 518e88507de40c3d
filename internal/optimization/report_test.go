package optimization

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleReporterFormat(t *testing.T) {
	var b strings.Builder
	c := ConsoleReporter{Out: &b}

	c.ReportIteration(IterationRecord{
		Iteration:    0,
		Objective:    52.0,
		GradientNorm: 12.3456,
		Relative:     false,
		Stepsize:     1.0,
	})
	c.ReportIteration(IterationRecord{
		Iteration:    1,
		Objective:    3.25,
		GradientNorm: 0.0421,
		Relative:     true,
		Stepsize:     0.03125,
	})

	out := b.String()
	assert.Contains(t, out, "Iteration    0 - Objective value:  5.200e+01    Gradient norm:  1.235e+01 (abs)    Step size:  1.000e+00")
	assert.Contains(t, out, "Iteration    1 - Objective value:  3.250e+00    Gradient norm:  4.210e-02 (rel)    Step size:  3.125e-02")
}

func TestConsoleReporterSummary(t *testing.T) {
	var b strings.Builder
	c := ConsoleReporter{Out: &b}

	c.ReportSummary(&Result{
		Status:        StatusConverged,
		Iterations:    17,
		Objective:     1.5e-9,
		RelativeNorm:  4.2e-7,
		StateSolves:   40,
		AdjointSolves: 18,
	})

	out := b.String()
	assert.Contains(t, out, "Statistics --- Total iterations:   17 --- Final objective value:  1.500e-09 --- Final gradient norm:  4.200e-07 (rel)")
	assert.Contains(t, out, "State equations solved: 40 --- Adjoint equations solved: 18")
	assert.NotContains(t, out, "Armijo rule failed")
}

func TestConsoleReporterSummaryOnExhaustedSearch(t *testing.T) {
	var b strings.Builder
	c := ConsoleReporter{Out: &b}

	c.ReportSummary(&Result{Status: StatusLineSearchExhausted})
	assert.Contains(t, b.String(), "Armijo rule failed")
}

func TestRecordingReporter(t *testing.T) {
	r := &RecordingReporter{}
	assert.Nil(t, r.Result())

	r.ReportIteration(IterationRecord{Iteration: 0, Objective: 1})
	r.ReportIteration(IterationRecord{Iteration: 1, Objective: 0.5})
	r.ReportSummary(&Result{Status: StatusConverged, Iterations: 1})

	records := r.Records()
	assert.Len(t, records, 2)
	assert.Equal(t, 1, records[1].Iteration)
	assert.Equal(t, StatusConverged, r.Result().Status)
}

func TestRunStatusString(t *testing.T) {
	assert.Equal(t, "converged", StatusConverged.String())
	assert.Equal(t, "line search exhausted", StatusLineSearchExhausted.String())
	assert.Equal(t, "iteration limit", StatusIterationLimit.String())
}
