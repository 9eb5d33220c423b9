package engine

import (
	"log/slog"

	"github.com/roach88/hqp/internal/ir"
	"github.com/roach88/hqp/internal/level"
	"github.com/roach88/hqp/internal/nullspace"
	"github.com/roach88/hqp/internal/qp"
)

// Config is the explicit per-solve configuration.
// Nothing is read from process-wide state.
type Config struct {
	ir.SolverSettings

	// NewEngine creates the QP engine for one solve. Nil selects
	// qp.ActiveSet configured from the settings.
	NewEngine qp.Factory

	// Logger receives per-level Debug and per-solve Info records.
	// Nil selects slog.Default().
	Logger *slog.Logger

	// KeepProjectors copies every P_k into its LevelReport.
	KeepProjectors bool
}

// Option configures a Solver.
type Option func(*Config)

// DefaultConfig returns the defaults every zero setting falls back to.
func DefaultConfig() Config {
	return Config{
		SolverSettings: ir.SolverSettings{
			RankThreshold:        nullspace.DefaultRankThreshold,
			ZeroTolerance:        nullspace.DefaultZeroTolerance,
			Regularization:       level.DefaultRegularization,
			FeasibilityTolerance: level.DefaultFeasibilityTolerance,
		},
	}
}

// WithRankThreshold sets the relative singular value cutoff ε.
func WithRankThreshold(eps float64) Option {
	return func(c *Config) { c.RankThreshold = eps }
}

// WithZeroTolerance sets the singular value floor, relative to the norm of
// each level's unprojected Jacobian.
func WithZeroTolerance(tol float64) Option {
	return func(c *Config) { c.ZeroTolerance = tol }
}

// WithRegularization sets the relative damping μ of each level QP.
// Zero, the default, adds no damping.
func WithRegularization(mu float64) Option {
	return func(c *Config) { c.Regularization = mu }
}

// WithFeasibilityTolerance sets the accepted bound violation.
func WithFeasibilityTolerance(tol float64) Option {
	return func(c *Config) { c.FeasibilityTolerance = tol }
}

// WithMaxIterations caps QP iterations per level.
//
// Default: 10·(n+2m)+50 for a level with n reduced variables and m rows.
func WithMaxIterations(limit int) Option {
	return func(c *Config) { c.MaxIterations = limit }
}

// WithEngineFactory replaces the default QP engine.
func WithEngineFactory(f qp.Factory) Option {
	return func(c *Config) { c.NewEngine = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithProjectors keeps each level's projector in its report.
func WithProjectors(keep bool) Option {
	return func(c *Config) { c.KeepProjectors = keep }
}

// WithSettings replaces all numeric settings at once, typically from a
// compiled stack file. Zero fields still fall back to defaults.
func WithSettings(s ir.SolverSettings) Option {
	return func(c *Config) { c.SolverSettings = s }
}

// resolved fills zero fields with defaults.
func (c Config) resolved() Config {
	d := DefaultConfig()
	if c.RankThreshold <= 0 {
		c.RankThreshold = d.RankThreshold
	}
	if c.ZeroTolerance <= 0 {
		c.ZeroTolerance = d.ZeroTolerance
	}
	if c.Regularization <= 0 {
		c.Regularization = d.Regularization
	}
	if c.FeasibilityTolerance <= 0 {
		c.FeasibilityTolerance = d.FeasibilityTolerance
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.NewEngine == nil {
		maxIter, tol := c.MaxIterations, c.FeasibilityTolerance
		c.NewEngine = func() qp.Engine {
			return &qp.ActiveSet{MaxIterations: maxIter, Tolerance: tol}
		}
	}
	return c
}
