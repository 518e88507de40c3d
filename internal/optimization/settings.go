package optimization

import "fmt"

// Settings holds the options of the optimization routine. The zero value is
// not usable; start from DefaultSettings and override.
type Settings struct {
	// StepInitial is the first trial step size of the Armijo search.
	StepInitial float64
	// Tolerance is the relative gradient norm below which the run stops.
	Tolerance float64
	// EpsilonArmijo is the sufficient-decrease constant, in (0,1).
	EpsilonArmijo float64
	// BetaArmijo is the backtracking factor, greater than 1. Rejected trials
	// shrink the step by 1/BetaArmijo; accepted iterations grow the next
	// trial step by BetaArmijo.
	BetaArmijo float64
	// MaximumIterations caps the number of outer iterations.
	MaximumIterations int
	// MemoryVectors is the number of curvature pairs retained. Zero disables
	// curvature memory and the method degenerates to steepest descent.
	MemoryVectors int
	// UseScaling enables the gamma scaling of the initial inverse Hessian
	// approximation in the two-loop recursion.
	UseScaling bool
}

// DefaultSettings returns the routine defaults.
func DefaultSettings() Settings {
	return Settings{
		StepInitial:       1.0,
		Tolerance:         1e-6,
		EpsilonArmijo:     1e-4,
		BetaArmijo:        2.0,
		MaximumIterations: 250,
		MemoryVectors:     5,
		UseScaling:        true,
	}
}

// Validate reports the first misconfiguration found, or nil.
func (s Settings) Validate() error {
	if s.StepInitial <= 0 {
		return fmt.Errorf("step_initial must be positive, got %g", s.StepInitial)
	}
	if s.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %g", s.Tolerance)
	}
	if s.EpsilonArmijo <= 0 || s.EpsilonArmijo >= 1 {
		return fmt.Errorf("epsilon_armijo must be in (0,1), got %g", s.EpsilonArmijo)
	}
	if s.BetaArmijo <= 1 {
		return fmt.Errorf("beta_armijo must be greater than 1, got %g", s.BetaArmijo)
	}
	if s.MaximumIterations < 0 {
		return fmt.Errorf("maximum_iterations must be non-negative, got %d", s.MaximumIterations)
	}
	if s.MemoryVectors < 0 {
		return fmt.Errorf("memory_vectors must be non-negative, got %d", s.MemoryVectors)
	}
	return nil
}
