// Package server exposes optimization runs over HTTP: start a run on a
// registered benchmark problem, poll its iteration trace, cancel it.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tarnmoor/ASPEN/internal/config"
	"github.com/tarnmoor/ASPEN/internal/logging"
	"github.com/tarnmoor/ASPEN/internal/metrics"
	"github.com/tarnmoor/ASPEN/internal/optimization"
	"github.com/tarnmoor/ASPEN/internal/optimization/problems"
)

// Logger is the logging capability the server needs. Any implementation with
// leveled, fielded logging will do.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// RunState tracks one optimization run. Status moves from pending to running
// to one of the terminal states; the recorder accumulates the iteration
// trace while the run is in flight.
type RunState struct {
	ID          string
	Problem     string
	Dimension   int
	Status      string // "pending", "running", "completed", "failed", "cancelled"
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	Recorder    *optimization.RecordingReporter
	Result      *optimization.Result
	Err         string
	CancelFunc  context.CancelFunc
}

// Server manages optimization runs and their HTTP surface.
type Server struct {
	cfg     *config.Config
	logger  Logger
	metrics *metrics.Metrics

	runs   map[string]*RunState
	runsMu sync.RWMutex
}

// NewServer creates a server instance. metrics may be nil, in which case runs
// are not instrumented.
func NewServer(cfg *config.Config, logger Logger, m *metrics.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		runs:    make(map[string]*RunState),
	}
}

// RegisterRoutes mounts the API on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/solve", s.handleSolve)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/solve/{id}", s.handleCancel)
		r.Get("/problems", s.handleProblems)
	})
}

// solveRequest is the body of POST /api/v1/solve. Settings fields left at
// zero fall back to the service defaults.
type solveRequest struct {
	Problem   string `json:"problem"`
	Dimension int    `json:"dimension"`
	Settings  struct {
		StepInitial       *float64 `json:"step_initial,omitempty"`
		Tolerance         *float64 `json:"tolerance,omitempty"`
		EpsilonArmijo     *float64 `json:"epsilon_armijo,omitempty"`
		BetaArmijo        *float64 `json:"beta_armijo,omitempty"`
		MaximumIterations *int     `json:"maximum_iterations,omitempty"`
		MemoryVectors     *int     `json:"memory_vectors,omitempty"`
		UseScaling        *bool    `json:"use_bfgs_scaling,omitempty"`
	} `json:"settings"`
}

func (s *Server) settingsFor(req *solveRequest) optimization.Settings {
	st := s.cfg.RoutineSettings()
	if v := req.Settings.StepInitial; v != nil {
		st.StepInitial = *v
	}
	if v := req.Settings.Tolerance; v != nil {
		st.Tolerance = *v
	}
	if v := req.Settings.EpsilonArmijo; v != nil {
		st.EpsilonArmijo = *v
	}
	if v := req.Settings.BetaArmijo; v != nil {
		st.BetaArmijo = *v
	}
	if v := req.Settings.MaximumIterations; v != nil {
		st.MaximumIterations = *v
	}
	if v := req.Settings.MemoryVectors; v != nil {
		st.MemoryVectors = *v
	}
	if v := req.Settings.UseScaling; v != nil {
		st.UseScaling = *v
	}
	return st
}

// handleSolve starts a new optimization run.
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Problem == "" {
		s.respondError(w, http.StatusBadRequest, "problem is required")
		return
	}
	if req.Dimension == 0 {
		req.Dimension = 2
	}

	problem, err := problems.New(req.Problem, req.Dimension)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings := s.settingsFor(&req)
	recorder := &optimization.RecordingReporter{}
	reporter := optimization.MultiReporter{
		recorder,
		optimization.ZapReporter{Logger: logging.NewZapLogger(s.logger.WithFields(map[string]interface{}{
			"problem": problem.Name(),
		}))},
	}

	opt, err := optimization.New(problem.Space(), problem.Control(), problem, problem, settings, reporter)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := fmt.Sprintf("run_%d", time.Now().UnixNano())
	state := &RunState{
		ID:          id,
		Problem:     problem.Name(),
		Dimension:   req.Dimension,
		Status:      "pending",
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
		Recorder:    recorder,
		CancelFunc:  cancel,
	}

	s.runsMu.Lock()
	s.runs[id] = state
	s.runsMu.Unlock()

	go s.runOptimization(ctx, state, opt)

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"run_id": id,
		"status": "pending",
	})
}

// runOptimization executes one run in its own goroutine.
func (s *Server) runOptimization(ctx context.Context, state *RunState, opt *optimization.LBFGS) {
	s.setStatus(state, "running")
	start := time.Now()

	result, err := opt.Run(ctx)
	elapsed := time.Since(start).Seconds()

	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	switch {
	case err != nil && ctx.Err() != nil:
		state.Status = "cancelled"
		state.Err = err.Error()
	case err != nil:
		state.Status = "failed"
		state.Err = err.Error()
		s.logger.Error("Optimization run failed", map[string]interface{}{
			"run_id": state.ID,
			"error":  err.Error(),
		})
		if s.metrics != nil {
			s.metrics.ObserveFailure(elapsed)
		}
	default:
		state.Status = "completed"
		state.Result = result
		s.logger.Info("Optimization run finished", map[string]interface{}{
			"run_id":     state.ID,
			"status":     result.Status.String(),
			"iterations": result.Iterations,
		})
		if s.metrics != nil {
			s.metrics.ObserveRun(result, elapsed)
		}
	}
}

func (s *Server) setStatus(state *RunState, status string) {
	s.runsMu.Lock()
	state.Status = status
	state.LastUpdated = time.Now()
	s.runsMu.Unlock()
}

// handleStatus reports the state and iteration trace of a run.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "missing run ID")
		return
	}

	s.runsMu.RLock()
	state, ok := s.runs[id]
	s.runsMu.RUnlock()
	if !ok {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	s.runsMu.RLock()
	response := map[string]interface{}{
		"run_id":      state.ID,
		"problem":     state.Problem,
		"dimension":   state.Dimension,
		"status":      state.Status,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Err != "" {
		response["error"] = state.Err
	}
	result := state.Result
	s.runsMu.RUnlock()

	records := state.Recorder.Records()
	if len(records) > 0 {
		trace := make([]map[string]interface{}, len(records))
		for i, rec := range records {
			norm := "rel"
			if !rec.Relative {
				norm = "abs"
			}
			trace[i] = map[string]interface{}{
				"iteration":     rec.Iteration,
				"objective":     rec.Objective,
				"gradient_norm": rec.GradientNorm,
				"norm":          norm,
				"stepsize":      rec.Stepsize,
			}
		}
		response["trace"] = trace
	}

	if result != nil {
		response["result"] = map[string]interface{}{
			"status":         result.Status.String(),
			"iterations":     result.Iterations,
			"objective":      result.Objective,
			"relative_norm":  result.RelativeNorm,
			"state_solves":   result.StateSolves,
			"adjoint_solves": result.AdjointSolves,
		}
	}

	s.respondJSON(w, http.StatusOK, response)
}

// handleCancel cancels a running run. Cancellation takes effect between
// outer iterations; an in-flight solve is never interrupted.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "missing run ID")
		return
	}

	s.runsMu.Lock()
	state, ok := s.runs[id]
	if !ok {
		s.runsMu.Unlock()
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		status := state.Status
		s.runsMu.Unlock()
		s.respondError(w, http.StatusConflict, fmt.Sprintf("cannot cancel run with status %q", status))
		return
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}
	state.LastUpdated = time.Now()
	s.runsMu.Unlock()

	s.logger.Info("Run cancellation requested", map[string]interface{}{"run_id": id})
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

// handleProblems lists the available benchmark problems.
func (s *Server) handleProblems(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"problems": problems.Names()})
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})
	s.respondJSON(w, code, map[string]interface{}{"error": message})
}

// Close cancels all in-flight runs.
func (s *Server) Close() error {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	for _, run := range s.runs {
		if run.CancelFunc != nil {
			run.CancelFunc()
		}
	}
	return nil
}
