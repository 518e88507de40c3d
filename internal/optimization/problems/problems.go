// Package problems ships analytic benchmark problems implementing the
// objective and gradient collaborator contracts of the optimization driver.
// They mimic the caching protocol of a real state/adjoint solver, including
// solve counting and explicit cache invalidation, and back the CLI, the
// service and the end-to-end tests.
package problems

import (
	"fmt"
	"sort"

	"github.com/tarnmoor/ASPEN/internal/optimization"
)

// Problem bundles the collaborators of one benchmark: the control space, the
// control vector the optimizer mutates, and the objective/gradient solvers.
type Problem interface {
	optimization.ObjectiveEvaluator
	optimization.GradientSolver

	// Space returns the control space of the problem.
	Space() optimization.VectorSpace
	// Control returns the control vector, shared with the optimizer.
	Control() optimization.Vector
	// Name returns the registry name of the problem.
	Name() string
}

// constructors maps registry names to problem factories.
var constructors = map[string]func(dim int) (Problem, error){
	"quadratic":  func(dim int) (Problem, error) { return NewQuadratic(dim) },
	"rosenbrock": func(dim int) (Problem, error) { return NewRosenbrock(dim) },
}

// New builds the named benchmark problem with the given control dimension.
func New(name string, dim int) (Problem, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem %q (available: %v)", name, Names())
	}
	if dim <= 0 {
		return nil, fmt.Errorf("problem dimension must be positive, got %d", dim)
	}
	return ctor(dim)
}

// Names lists the registered problem names, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
