// Package config loads the service configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/tarnmoor/ASPEN/internal/optimization"
)

// Config is the full configuration of the ASPEN service.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	// Routine carries the defaults of the optimization routine; individual
	// runs may override them per request.
	Routine struct {
		StepInitial       float64 `env:"OPT_STEP_INITIAL" envDefault:"1.0"`
		Tolerance         float64 `env:"OPT_TOLERANCE" envDefault:"1e-6"`
		EpsilonArmijo     float64 `env:"OPT_EPSILON_ARMIJO" envDefault:"1e-4"`
		BetaArmijo        float64 `env:"OPT_BETA_ARMIJO" envDefault:"2.0"`
		MaximumIterations int     `env:"OPT_MAX_ITERATIONS" envDefault:"250"`
		MemoryVectors     int     `env:"OPT_MEMORY_VECTORS" envDefault:"5"`
		UseScaling        bool    `env:"OPT_BFGS_SCALING" envDefault:"true"`
	}
}

// Load parses the configuration from environment variables and validates
// the routine section.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.RoutineSettings().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RoutineSettings converts the routine section into optimizer settings.
func (c *Config) RoutineSettings() optimization.Settings {
	return optimization.Settings{
		StepInitial:       c.Routine.StepInitial,
		Tolerance:         c.Routine.Tolerance,
		EpsilonArmijo:     c.Routine.EpsilonArmijo,
		BetaArmijo:        c.Routine.BetaArmijo,
		MaximumIterations: c.Routine.MaximumIterations,
		MemoryVectors:     c.Routine.MemoryVectors,
		UseScaling:        c.Routine.UseScaling,
	}
}
