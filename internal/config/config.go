// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/gominuit/internal/fit"
	"github.com/copyleftdev/gominuit/internal/logging"
	"github.com/copyleftdev/gominuit/internal/optimization"
)

// Fit holds the defaults applied to every session the service creates.
type Fit struct {
	Errordef    float64 `env:"ERRORDEF" envDefault:"1"`
	Strategy    int     `env:"STRATEGY" envDefault:"1"`
	Tolerance   float64 `env:"TOLERANCE" envDefault:"0.1"`
	ThrowNaN    bool    `env:"THROW_NAN" envDefault:"false"`
	NCall       int     `env:"NCALL" envDefault:"0"`
	NSplit      int     `env:"NSPLIT" envDefault:"1"`
	ScanWorkers int     `env:"SCAN_WORKERS" envDefault:"1"`
	Strict      bool    `env:"STRICT" envDefault:"false"`
	Renderer    string  `env:"RENDERER" envDefault:"text"`
	// MaxSessions caps the number of stored fits; 0 means unlimited.
	MaxSessions int `env:"MAX_SESSIONS" envDefault:"1000"`
}

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		MaxBodyBytes    int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`
	}
	Logging logging.Config `envPrefix:"LOG_"`
	Fit     Fit            `envPrefix:"FIT_"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no session could run with.
func (c *Config) Validate() error {
	switch {
	case !(c.Fit.Errordef > 0):
		return fmt.Errorf("FIT_ERRORDEF must be positive, got %g", c.Fit.Errordef)
	case !(c.Fit.Tolerance > 0):
		return fmt.Errorf("FIT_TOLERANCE must be positive, got %g", c.Fit.Tolerance)
	case c.Fit.Strategy < 0 || c.Fit.Strategy > 2:
		return fmt.Errorf("FIT_STRATEGY must be 0, 1 or 2, got %d", c.Fit.Strategy)
	case c.Fit.NCall < 0:
		return fmt.Errorf("FIT_NCALL must not be negative, got %d", c.Fit.NCall)
	case c.Fit.NSplit < 1:
		return fmt.Errorf("FIT_NSPLIT must be at least 1, got %d", c.Fit.NSplit)
	case c.Fit.ScanWorkers < 1:
		return fmt.Errorf("FIT_SCAN_WORKERS must be at least 1, got %d", c.Fit.ScanWorkers)
	case c.HTTP.Port <= 0 || c.HTTP.Port > 65535:
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTP.Port)
	}
	return nil
}

// SessionOptions turns the fit defaults into session options.
func (f Fit) SessionOptions() []fit.Option {
	opts := []fit.Option{
		fit.WithErrordef(f.Errordef),
		fit.WithStrategy(optimization.Strategy(f.Strategy)),
		fit.WithTolerance(f.Tolerance),
		fit.WithThrowNaN(f.ThrowNaN),
		fit.WithNCall(f.NCall),
		fit.WithNSplit(f.NSplit),
		fit.WithScanWorkers(f.ScanWorkers),
	}
	if f.Strict {
		opts = append(opts, fit.WithStrictDiagnostics())
	}
	return opts
}
