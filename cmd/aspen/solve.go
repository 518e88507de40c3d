package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tarnmoor/ASPEN/internal/optimization"
	"github.com/tarnmoor/ASPEN/internal/optimization/problems"
)

var (
	problemName string
	dimension   int
	stepInitial float64
	tolerance   float64
	epsArmijo   float64
	betaArmijo  float64
	maxIter     int
	memory      int
	scaling     bool
	quiet       bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Run an optimization on a benchmark problem",
	Long:  `Runs the L-BFGS driver on a registered benchmark problem and prints the per-iteration report.`,
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&problemName, "problem", "quadratic", "Benchmark problem name")
	solveCmd.Flags().IntVar(&dimension, "dim", 2, "Control dimension")
	solveCmd.Flags().Float64Var(&stepInitial, "step", 1.0, "Initial Armijo step size")
	solveCmd.Flags().Float64Var(&tolerance, "tol", 1e-6, "Relative gradient norm tolerance")
	solveCmd.Flags().Float64Var(&epsArmijo, "eps-armijo", 1e-4, "Armijo sufficient-decrease constant")
	solveCmd.Flags().Float64Var(&betaArmijo, "beta-armijo", 2.0, "Armijo backtracking factor")
	solveCmd.Flags().IntVar(&maxIter, "max-iter", 250, "Maximum outer iterations")
	solveCmd.Flags().IntVar(&memory, "memory", 5, "Curvature pairs retained (0 = steepest descent)")
	solveCmd.Flags().BoolVar(&scaling, "scaling", true, "Scale the initial inverse Hessian approximation")
	solveCmd.Flags().BoolVar(&quiet, "quiet", false, "Only print the final statistics")

	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	problem, err := problems.New(problemName, dimension)
	if err != nil {
		return err
	}

	settings := optimization.Settings{
		StepInitial:       stepInitial,
		Tolerance:         tolerance,
		EpsilonArmijo:     epsArmijo,
		BetaArmijo:        betaArmijo,
		MaximumIterations: maxIter,
		MemoryVectors:     memory,
		UseScaling:        scaling,
	}

	var reporter optimization.Reporter = optimization.ConsoleReporter{Out: os.Stdout}
	if quiet {
		reporter = summaryOnlyReporter{optimization.ConsoleReporter{Out: os.Stdout}}
	}

	opt, err := optimization.New(problem.Space(), problem.Control(), problem, problem, settings, reporter)
	if err != nil {
		return err
	}

	res, err := opt.Run(context.Background())
	if err != nil {
		return err
	}
	if res.Status != optimization.StatusConverged {
		return fmt.Errorf("run ended without convergence: %s", res.Status)
	}
	return nil
}

// summaryOnlyReporter suppresses the per-iteration lines.
type summaryOnlyReporter struct {
	inner optimization.ConsoleReporter
}

func (r summaryOnlyReporter) ReportIteration(optimization.IterationRecord) {}

func (r summaryOnlyReporter) ReportSummary(res *optimization.Result) {
	r.inner.ReportSummary(res)
}
