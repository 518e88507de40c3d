package optimization

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// IterationRecord is the per-iteration status handed to a Reporter. On
// iteration 0 GradientNorm is the absolute initial norm; afterwards it is
// relative to the initial norm.
type IterationRecord struct {
	Iteration    int
	Objective    float64
	GradientNorm float64
	Relative     bool
	Stepsize     float64
}

// Reporter is the sink for iteration status and final statistics. It is
// injected at optimizer construction; the driver holds no ambient logging
// state of its own.
type Reporter interface {
	ReportIteration(rec IterationRecord)
	ReportSummary(res *Result)
}

// NopReporter discards all reports.
type NopReporter struct{}

func (NopReporter) ReportIteration(IterationRecord) {}
func (NopReporter) ReportSummary(*Result)           {}

// ConsoleReporter writes the classic fixed-width iteration lines to Out.
type ConsoleReporter struct {
	Out io.Writer
}

func (c ConsoleReporter) ReportIteration(rec IterationRecord) {
	tag := "rel"
	if !rec.Relative {
		tag = "abs"
	}
	fmt.Fprintf(c.Out, "Iteration %4d - Objective value:  %.3e    Gradient norm:  %.3e (%s)    Step size:  %.3e\n",
		rec.Iteration, rec.Objective, rec.GradientNorm, tag, rec.Stepsize)
}

func (c ConsoleReporter) ReportSummary(res *Result) {
	if res.Status == StatusLineSearchExhausted {
		fmt.Fprintln(c.Out, "Armijo rule failed")
	}
	fmt.Fprintf(c.Out, "\nStatistics --- Total iterations: %4d --- Final objective value:  %.3e --- Final gradient norm:  %.3e (rel)\n",
		res.Iterations, res.Objective, res.RelativeNorm)
	fmt.Fprintf(c.Out, "           --- State equations solved: %d --- Adjoint equations solved: %d\n\n",
		res.StateSolves, res.AdjointSolves)
}

// ZapReporter emits structured iteration and summary records through a zap
// logger, for runs driven by the service.
type ZapReporter struct {
	Logger *zap.Logger
}

func (z ZapReporter) ReportIteration(rec IterationRecord) {
	norm := "rel"
	if !rec.Relative {
		norm = "abs"
	}
	z.Logger.Info("iteration",
		zap.Int("iteration", rec.Iteration),
		zap.Float64("objective", rec.Objective),
		zap.Float64("gradient_norm", rec.GradientNorm),
		zap.String("norm", norm),
		zap.Float64("stepsize", rec.Stepsize),
	)
}

func (z ZapReporter) ReportSummary(res *Result) {
	z.Logger.Info("run finished",
		zap.String("status", res.Status.String()),
		zap.Int("iterations", res.Iterations),
		zap.Float64("objective", res.Objective),
		zap.Float64("relative_norm", res.RelativeNorm),
		zap.Int("state_solves", res.StateSolves),
		zap.Int("adjoint_solves", res.AdjointSolves),
	)
}

// RecordingReporter keeps the full iteration trace in memory. It is safe for
// concurrent use so a status endpoint can read while a run is in flight.
type RecordingReporter struct {
	mu      sync.RWMutex
	records []IterationRecord
	result  *Result
}

func (r *RecordingReporter) ReportIteration(rec IterationRecord) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

func (r *RecordingReporter) ReportSummary(res *Result) {
	r.mu.Lock()
	r.result = res
	r.mu.Unlock()
}

// Records returns a copy of the iteration trace so far.
func (r *RecordingReporter) Records() []IterationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]IterationRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Result returns the final statistics, or nil while the run is in flight.
func (r *RecordingReporter) Result() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.result
}

// MultiReporter fans reports out to several sinks.
type MultiReporter []Reporter

func (m MultiReporter) ReportIteration(rec IterationRecord) {
	for _, r := range m {
		r.ReportIteration(rec)
	}
}

func (m MultiReporter) ReportSummary(res *Result) {
	for _, r := range m {
		r.ReportSummary(res)
	}
}
