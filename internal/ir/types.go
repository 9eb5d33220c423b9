package ir

import "fmt"

// TaskKind distinguishes equality objectives from bounded ones.
type TaskKind string

const (
	// KindEquality asks J·x to track the reference as closely as possible.
	KindEquality TaskKind = "equality"

	// KindInequality keeps J·x inside [Lower, Upper], optionally tracking a
	// reference within those bounds.
	KindInequality TaskKind = "inequality"
)

// ValidKinds defines allowed task kinds.
var ValidKinds = map[TaskKind]bool{
	KindEquality:   true,
	KindInequality: true,
}

// Task is one priority level's objective.
//
// Jacobian is m×n row-major, where m is the task dimension and n the command
// dimension. Reference has length m. Lower and Upper are Inequality only.
// Weight is an optional m×m symmetric positive semi-definite matrix; nil
// means identity.
type Task struct {
	Name      string      `json:"name,omitempty"`
	Kind      TaskKind    `json:"kind"`
	Jacobian  [][]float64 `json:"jacobian"`
	Reference []float64   `json:"reference,omitempty"`
	Lower     Bounds      `json:"lower,omitempty"`
	Upper     Bounds      `json:"upper,omitempty"`
	Weight    [][]float64 `json:"weight,omitempty"`
}

// Rows returns the task dimension m.
func (t Task) Rows() int {
	return len(t.Jacobian)
}

// Cols returns the command dimension n as seen by this task.
// Returns 0 for an empty Jacobian.
func (t Task) Cols() int {
	if len(t.Jacobian) == 0 {
		return 0
	}
	return len(t.Jacobian[0])
}

// Label returns the task name, or a positional name when unnamed.
func (t Task) Label(index int) string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("level-%d", index)
}

// TaskStack is the ordered hierarchy, highest priority first.
type TaskStack struct {
	Tasks []Task `json:"tasks"`
}

// NewTaskStack creates a stack from tasks in priority order.
func NewTaskStack(tasks ...Task) TaskStack {
	return TaskStack{Tasks: tasks}
}

// Len returns the number of priority levels.
func (s TaskStack) Len() int {
	return len(s.Tasks)
}

// Dim returns the command dimension n, taken from the first task.
// Returns 0 for an empty stack.
func (s TaskStack) Dim() int {
	if len(s.Tasks) == 0 {
		return 0
	}
	return s.Tasks[0].Cols()
}

// SolverSettings carries the numeric knobs of a solve.
// A zero field means "use the engine default".
type SolverSettings struct {
	// RankThreshold is ε: singular values below ε·σ_max count as zero.
	RankThreshold float64 `json:"rank_threshold,omitempty"`

	// ZeroTolerance is the floor, relative to the norm of the unprojected
	// Jacobian, below which a projected singular value is round-off.
	ZeroTolerance float64 `json:"zero_tolerance,omitempty"`

	// Regularization is the damping μ added to each level's QP Hessian,
	// relative to its largest diagonal entry. The default is none.
	Regularization float64 `json:"regularization,omitempty"`

	// FeasibilityTolerance is the allowed bound violation.
	FeasibilityTolerance float64 `json:"feasibility_tolerance,omitempty"`

	// MaxIterations caps the QP engine's active-set iterations.
	MaxIterations int `json:"max_iterations,omitempty"`
}

// Diagnostic is a per-level, non-fatal condition attached to a Solution.
type Diagnostic string

const (
	// DiagRankDegenerate marks a level whose projected Jacobian has
	// numerical rank 0: higher levels consumed every direction it needs.
	DiagRankDegenerate Diagnostic = "RANK_DEGENERATE"

	// DiagLevelInfeasible marks a level whose QP had no feasible point;
	// the unconstrained least-squares step was used instead.
	DiagLevelInfeasible Diagnostic = "LEVEL_INFEASIBLE"
)

// LevelReport captures what happened at one priority level.
type LevelReport struct {
	Index             int          `json:"index"`
	Name              string       `json:"name"`
	Kind              TaskKind     `json:"kind"`
	Rank              int          `json:"rank"`      // rank of J_k·P_{k-1}
	NullRank          int          `json:"null_rank"` // rank of P_k
	Residual          float64      `json:"residual"`  // ‖J_k·x_k − ref_k‖ right after this level
	FinalResidual     float64      `json:"final_residual"`
	Slack             float64      `json:"slack"` // largest bound violation at x_k
	FinalSlack        float64      `json:"final_slack"`
	Feasible          bool         `json:"feasible"`
	FullyConstrained  bool         `json:"fully_constrained"`
	Iterations        int          `json:"iterations"`
	ActiveConstraints int          `json:"active_constraints"`
	SingularValues    []float64    `json:"singular_values"`
	Diagnostics       []Diagnostic `json:"diagnostics,omitempty"`

	// Projector is P_k, retained only when the solve was configured to
	// keep projectors.
	Projector [][]float64 `json:"-"`
}

// HasDiagnostic reports whether the level carries the given diagnostic.
func (r LevelReport) HasDiagnostic(d Diagnostic) bool {
	for _, have := range r.Diagnostics {
		if have == d {
			return true
		}
	}
	return false
}

// TraceEvent records one state transition of the cascade.
// Seq comes from a logical clock, never wall time.
type TraceEvent struct {
	Seq   int64  `json:"seq"`
	Level int    `json:"level"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// Solution is the output of one cascade.
type Solution struct {
	Command   []float64     `json:"command"`
	Levels    []LevelReport `json:"levels"`
	Trace     []TraceEvent  `json:"trace,omitempty"`
	StackHash string        `json:"stack_hash"`
}

// Feasible reports whether every level was feasible.
func (s *Solution) Feasible() bool {
	for _, l := range s.Levels {
		if !l.Feasible {
			return false
		}
	}
	return true
}

// Level returns the report for the named level.
func (s *Solution) Level(name string) (LevelReport, bool) {
	for _, l := range s.Levels {
		if l.Name == name {
			return l, true
		}
	}
	return LevelReport{}, false
}
