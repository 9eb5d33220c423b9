package engine

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/roach88/hqp/internal/ir"
	"github.com/roach88/hqp/internal/level"
	"github.com/roach88/hqp/internal/nullspace"
)

// Solver runs cascades with a fixed configuration.
//
// A Solver holds no state between calls: every Solve builds its own
// projector chain, QP engine and clock. It is therefore safe to share one
// Solver between goroutines as long as the configured engine factory hands
// out independent engines.
type Solver struct {
	cfg Config
}

// New creates a Solver from DefaultConfig and the given options.
func New(opts ...Option) *Solver {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Solver{cfg: cfg}
}

// Config returns the Solver's configuration.
func (s *Solver) Config() Config {
	return s.cfg
}

// Settings returns the numeric settings a solve actually runs with, after
// zero fields fall back to defaults. Record these to make a solve replayable.
func (s *Solver) Settings() ir.SolverSettings {
	return s.cfg.resolved().SolverSettings
}

// Solve runs the cascade over stack.
func (s *Solver) Solve(stack ir.TaskStack) (*ir.Solution, error) {
	return Solve(stack, s.cfg)
}

// Solve validates stack and runs the cascade with cfg.
//
// Levels are processed strictly in priority order. Each level is projected
// into the null space of the levels above it, solved as a QP, and folded
// into the command. A fully constrained or infeasible level is reported and
// skipped over; only validation failures and engine failures abort.
func Solve(stack ir.TaskStack, cfg Config) (*ir.Solution, error) {
	cfg = cfg.resolved()
	log := cfg.Logger

	if violations := stack.Check(); len(violations) > 0 {
		err := NewValidationError(violations)
		log.Debug("stack rejected", "code", err.Code, "violations", len(violations))
		return nil, err
	}
	stackHash, err := ir.StackHash(stack)
	if err != nil {
		return nil, fmt.Errorf("hash stack: %w", err)
	}

	n := stack.Dim()
	projector := nullspace.Projector{
		RankThreshold: cfg.RankThreshold,
		ZeroTolerance: cfg.ZeroTolerance,
	}
	solver := level.Solver{
		Engine:               cfg.NewEngine(),
		Regularization:       cfg.Regularization,
		FeasibilityTolerance: cfg.FeasibilityTolerance,
	}

	c := newCascade(stack.Len())
	tasks := make([]*level.Task, stack.Len())
	reports := make([]ir.LevelReport, stack.Len())
	p := nullspace.Identity(n)
	x := mat.NewVecDense(n, nil)

	for k, t := range stack.Tasks {
		name := t.Label(k)
		task := level.FromIR(t)
		tasks[k] = task

		proj, err := projector.Project(p, task.J)
		if err != nil {
			return nil, NewEngineFailure(k, name, err)
		}
		if err := c.transition(StatePending, StateProjected); err != nil {
			return nil, err
		}

		step, err := solver.Solve(task, proj, x)
		if err != nil {
			return nil, NewEngineFailure(k, name, err)
		}
		x.AddVec(x, step.Delta)
		if err := c.transition(StateProjected, StateSolved); err != nil {
			return nil, err
		}

		report := ir.LevelReport{
			Index:             k,
			Name:              name,
			Kind:              t.Kind,
			Rank:              proj.Rank,
			NullRank:          nullspace.ProjectorRank(proj.Projector),
			Residual:          task.Residual(x),
			Slack:             task.Slack(x),
			Feasible:          step.Feasible,
			FullyConstrained:  proj.FullyConstrained(),
			Iterations:        step.Iterations,
			ActiveConstraints: len(step.Active),
			SingularValues:    append([]float64{}, proj.Singular...),
		}
		if proj.FullyConstrained() {
			report.Diagnostics = append(report.Diagnostics, ir.DiagRankDegenerate)
		}
		if !step.Feasible {
			report.Diagnostics = append(report.Diagnostics, ir.DiagLevelInfeasible)
		}
		if cfg.KeepProjectors {
			report.Projector = nullspace.Rows(proj.Projector)
		}
		reports[k] = report

		log.Debug("level solved",
			"level", k,
			"task", name,
			"rank", report.Rank,
			"null_rank", report.NullRank,
			"residual", report.Residual,
			"feasible", report.Feasible,
			"iterations", report.Iterations,
		)

		p = proj.Projector
		if err := c.finish(); err != nil {
			return nil, err
		}
	}

	for k, task := range tasks {
		reports[k].FinalResidual = task.Residual(x)
		reports[k].FinalSlack = task.Slack(x)
	}

	sol := &ir.Solution{
		Command:   append([]float64(nil), x.RawVector().Data...),
		Levels:    reports,
		Trace:     c.trace,
		StackHash: stackHash,
	}
	log.Info("solve complete",
		"levels", len(reports),
		"dim", n,
		"feasible", sol.Feasible(),
		"stack_hash", stackHash[:12],
	)
	return sol, nil
}
