package level

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/roach88/hqp/internal/ir"
	"github.com/roach88/hqp/internal/nullspace"
	"github.com/roach88/hqp/internal/qp"
	"github.com/roach88/hqp/internal/testutil"
)

func project(t *testing.T, prev *mat.Dense, task *Task) *nullspace.Projection {
	t.Helper()
	proj, err := nullspace.Projector{}.Project(prev, task.J)
	require.NoError(t, err)
	return proj
}

func newSolver() Solver {
	return Solver{Engine: qp.NewActiveSet()}
}

func TestSolveEqualityFromOrigin(t *testing.T) {
	task := FromIR(testutil.Equality("x", [][]float64{{1, 0}}, 1))
	step, err := newSolver().Solve(task, project(t, nullspace.Identity(2), task), mat.NewVecDense(2, nil))
	require.NoError(t, err)

	assert.True(t, step.Feasible)
	testutil.AssertVectorNear(t, []float64{1, 0}, step.Delta.RawVector().Data, 1e-9)
	assert.InDelta(t, 0, task.Residual(step.Delta), 1e-9)
}

func TestSolveStaysInNullSpace(t *testing.T) {
	first := FromIR(testutil.Equality("sum", [][]float64{{1, 1}}, 2))
	p1 := project(t, nullspace.Identity(2), first)
	x := mat.NewVecDense(2, []float64{1, 1})

	second := FromIR(testutil.Equality("x", [][]float64{{1, 0}}, 3))
	step, err := newSolver().Solve(second, project(t, p1.Projector, second), x)
	require.NoError(t, err)

	// The step must not disturb x1 + x2.
	d := step.Delta.RawVector().Data
	assert.InDelta(t, 0, d[0]+d[1], 1e-9)
	testutil.AssertVectorNear(t, []float64{2, -2}, d, 1e-9)
}

func TestSolveBoundOnly(t *testing.T) {
	task := FromIR(testutil.Inequality("range", [][]float64{{1, 0}}, ir.Bounds{2}, ir.Bounds{3}))
	step, err := newSolver().Solve(task, project(t, nullspace.Identity(2), task), mat.NewVecDense(2, nil))
	require.NoError(t, err)

	assert.True(t, step.Feasible)
	testutil.AssertVectorNear(t, []float64{2, 0}, step.Delta.RawVector().Data, 1e-9)
	require.Len(t, step.Active, 1)
	assert.Equal(t, qp.SideLower, step.Active[0].Side)
}

func TestSolveBoundAlreadySatisfied(t *testing.T) {
	task := FromIR(testutil.Inequality("range", [][]float64{{1, 0}}, ir.Bounds{2}, ir.Bounds{3}))
	x := mat.NewVecDense(2, []float64{2.5, 7})
	step, err := newSolver().Solve(task, project(t, nullspace.Identity(2), task), x)
	require.NoError(t, err)

	assert.True(t, step.Feasible)
	testutil.AssertVectorNear(t, []float64{0, 0}, step.Delta.RawVector().Data, 1e-9)
}

func TestSolveInfeasibleFallsBack(t *testing.T) {
	task := FromIR(testutil.InfeasibleStack().Tasks[0])
	step, err := newSolver().Solve(task, project(t, nullspace.Identity(2), task), mat.NewVecDense(2, nil))
	require.NoError(t, err)

	assert.False(t, step.Feasible)
	assert.Empty(t, step.Active)
	testutil.AssertVectorNear(t, []float64{0, 0}, step.Delta.RawVector().Data, 1e-9)
}

func TestSolveInfeasibleTracksReference(t *testing.T) {
	// Contradictory bounds with a reference: the fallback still tracks it.
	task := &Task{
		Kind:  ir.KindInequality,
		J:     testutil.Dense([][]float64{{1, 0}, {1, 0}}),
		Ref:   []float64{4, 4},
		Lower: []float64{5, math.Inf(-1)},
		Upper: []float64{math.Inf(1), 1},
	}
	step, err := newSolver().Solve(task, project(t, nullspace.Identity(2), task), mat.NewVecDense(2, nil))
	require.NoError(t, err)

	assert.False(t, step.Feasible)
	testutil.AssertVectorNear(t, []float64{4, 0}, step.Delta.RawVector().Data, 1e-9)
}

func TestSolveFullyConstrained(t *testing.T) {
	first := FromIR(testutil.Equality("x", [][]float64{{1, 0}}, 1))
	p1 := project(t, nullspace.Identity(2), first)

	bound := FromIR(testutil.Inequality("range", [][]float64{{1, 0}}, ir.Bounds{2}, ir.Bounds{3}))
	proj := project(t, p1.Projector, bound)
	require.True(t, proj.FullyConstrained())

	step, err := newSolver().Solve(bound, proj, mat.NewVecDense(2, []float64{1, 0}))
	require.NoError(t, err)
	assert.False(t, step.Feasible)
	testutil.AssertVectorNear(t, []float64{0, 0}, step.Delta.RawVector().Data, 0)

	step, err = newSolver().Solve(bound, proj, mat.NewVecDense(2, []float64{2.5, 0}))
	require.NoError(t, err)
	assert.True(t, step.Feasible)
}

func TestSolveWeighted(t *testing.T) {
	task := FromIR(ir.Task{
		Kind:      ir.KindEquality,
		Jacobian:  [][]float64{{1, 0}, {0, 1}},
		Reference: []float64{1, 1},
		Weight:    [][]float64{{1, 0}, {0, 0}},
	})
	step, err := newSolver().Solve(task, project(t, nullspace.Identity(2), task), mat.NewVecDense(2, nil))
	require.NoError(t, err)

	// A zero weight on the second row leaves only the damping, so that
	// component stays at zero.
	testutil.AssertVectorNear(t, []float64{1, 0}, step.Delta.RawVector().Data, 1e-9)
}

func TestSolveSmallScaleJacobian(t *testing.T) {
	task := FromIR(testutil.Equality("xy", [][]float64{{1, 0}, {0, 1e-6}}, 1, 1))
	step, err := newSolver().Solve(task, project(t, nullspace.Identity(2), task), mat.NewVecDense(2, nil))
	require.NoError(t, err)

	assert.InEpsilon(t, 1.0, step.Delta.AtVec(0), 1e-9)
	assert.InEpsilon(t, 1e6, step.Delta.AtVec(1), 1e-9)
	assert.InDelta(t, 0, task.Residual(step.Delta), 1e-12)
}

func TestSolveDampingIsRelative(t *testing.T) {
	// μ = 1 halves the step whatever the units of J.
	for _, scale := range []float64{1, 1e-6} {
		task := FromIR(testutil.Equality("x", [][]float64{{scale}}, scale))
		s := Solver{Engine: qp.NewActiveSet(), Regularization: 1}
		step, err := s.Solve(task, project(t, nullspace.Identity(1), task), mat.NewVecDense(1, nil))
		require.NoError(t, err)
		assert.InDelta(t, 0.5, step.Delta.AtVec(0), 1e-9, "scale %g", scale)
	}
}

type failingEngine struct {
	calls int
}

func (f *failingEngine) Solve(*qp.Problem) (*qp.Result, error) {
	f.calls++
	return nil, qp.NewMaxIterations(3)
}

func TestSolvePropagatesEngineError(t *testing.T) {
	task := FromIR(testutil.Equality("x", [][]float64{{1, 0}}, 1))
	engine := &failingEngine{}

	_, err := Solver{Engine: engine}.Solve(task, project(t, nullspace.Identity(2), task), mat.NewVecDense(2, nil))
	require.Error(t, err)

	var ee *qp.EngineError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, qp.ModeMaxIterations, ee.Mode)
	assert.Equal(t, 1, engine.calls)
}

func TestSolveRejectsDimensionMismatch(t *testing.T) {
	task := FromIR(testutil.Equality("x", [][]float64{{1, 0}}, 1))
	_, err := newSolver().Solve(task, project(t, nullspace.Identity(2), task), mat.NewVecDense(3, nil))
	assert.Error(t, err)
}

func TestTaskResidualAndSlack(t *testing.T) {
	task := &Task{
		Kind:  ir.KindInequality,
		J:     testutil.Dense([][]float64{{1, 0}, {0, 1}}),
		Ref:   []float64{0, 0},
		Lower: []float64{0, math.Inf(-1)},
		Upper: []float64{1, 1},
	}
	x := mat.NewVecDense(2, []float64{3, 4})

	assert.InDelta(t, 5, task.Residual(x), 1e-12)
	assert.InDelta(t, 3, task.Slack(x), 1e-12)

	eq := FromIR(testutil.Equality("x", [][]float64{{1, 0}}, 1))
	assert.Equal(t, 0.0, eq.Slack(x))
}
