package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarnmoor/ASPEN/internal/config"
	"github.com/tarnmoor/ASPEN/internal/logging"
)

// testConfig creates a test configuration with default routine values.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{Environment: "test"}

	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second

	cfg.Logging.Level = "error"
	cfg.Logging.Output = "stderr"

	cfg.Routine.StepInitial = 1.0
	cfg.Routine.Tolerance = 1e-6
	cfg.Routine.EpsilonArmijo = 1e-4
	cfg.Routine.BetaArmijo = 2.0
	cfg.Routine.MaximumIterations = 200
	cfg.Routine.MemoryVectors = 5
	cfg.Routine.UseScaling = true

	return cfg
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(&logging.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	return logger
}

func testRouter(t *testing.T) (*Server, chi.Router) {
	t.Helper()
	srv := NewServer(testConfig(t), testLogger(t), nil)
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

func TestNewServer(t *testing.T) {
	srv := NewServer(testConfig(t), testLogger(t), nil)
	assert.NotNil(t, srv)
	assert.NoError(t, srv.Close())
}

func TestRegisterRoutes(t *testing.T) {
	_, r := testRouter(t)

	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"POST", "/api/v1/solve", true},
		{"GET", "/api/v1/status/123", true},
		{"DELETE", "/api/v1/solve/123", true},
		{"GET", "/api/v1/problems", true},
		{"GET", "/nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			if tt.shouldExist && rr.Code == http.StatusNotFound {
				t.Errorf("route %s %s should exist but returned 404", tt.method, tt.path)
			}
		})
	}
}

func TestListProblems(t *testing.T) {
	_, r := testRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/problems", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string][]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Contains(t, body["problems"], "quadratic")
	assert.Contains(t, body["problems"], "rosenbrock")
}

func TestSolveRejectsBadRequests(t *testing.T) {
	_, r := testRouter(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", "{", http.StatusBadRequest},
		{"missing problem", `{"dimension": 2}`, http.StatusBadRequest},
		{"unknown problem", `{"problem": "nope"}`, http.StatusBadRequest},
		{"bad settings", `{"problem": "quadratic", "settings": {"beta_armijo": 0.5}}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/solve", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, tt.code, rr.Code)
		})
	}
}

func startRun(t *testing.T, r chi.Router, body string) string {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/solve", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	id, ok := resp["run_id"].(string)
	require.True(t, ok, "response must carry a run_id")
	return id
}

func pollStatus(t *testing.T, r chi.Router, id string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		req := httptest.NewRequest("GET", fmt.Sprintf("/api/v1/status/%s", id), nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var status map[string]interface{}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))

		switch status["status"] {
		case "completed", "failed", "cancelled":
			return status
		}
		if time.Now().After(deadline) {
			t.Fatalf("run %s did not finish in time: %v", id, status["status"])
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSolveQuadraticEndToEnd(t *testing.T) {
	srv, r := testRouter(t)
	defer srv.Close()

	id := startRun(t, r, `{"problem": "quadratic", "dimension": 4}`)
	status := pollStatus(t, r, id)

	assert.Equal(t, "completed", status["status"])

	result, ok := status["result"].(map[string]interface{})
	require.True(t, ok, "completed run must carry a result")
	assert.Equal(t, "converged", result["status"])
	assert.LessOrEqual(t, result["relative_norm"].(float64), 1e-6)

	trace, ok := status["trace"].([]interface{})
	require.True(t, ok, "completed run must carry an iteration trace")
	assert.NotEmpty(t, trace)

	first, ok := trace[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "abs", first["norm"])
}

func TestStatusUnknownRun(t *testing.T) {
	_, r := testRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/status/run_0", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCancelFinishedRunConflicts(t *testing.T) {
	srv, r := testRouter(t)
	defer srv.Close()

	id := startRun(t, r, `{"problem": "quadratic", "dimension": 2}`)
	pollStatus(t, r, id)

	req := httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/solve/%s", id), nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCancelUnknownRun(t *testing.T) {
	_, r := testRouter(t)

	req := httptest.NewRequest("DELETE", "/api/v1/solve/run_0", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
