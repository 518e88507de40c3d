package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aspen",
	Short: "Quasi-Newton optimization driver for PDE-constrained problems",
	Long: `ASPEN runs the limited-memory BFGS method with Armijo backtracking
against registered benchmark problems, printing the iteration history the
way the service logs it.`,
	SilenceUsage: true,
}
