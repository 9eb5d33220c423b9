package compiler

import (
	"math"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hqp/internal/ir"
)

func compileString(t *testing.T, src string) (*Compiled, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return CompileStack(v)
}

func TestCompileStackBasic(t *testing.T) {
	c, err := compileString(t, `
		solver: {
			rank_threshold: 1e-6
			regularization: 0
			max_iterations: 50
		}
		stack: [
			{name: "x", kind: "equality", jacobian: [[1, 0]], reference: [1]},
			{name: "y", kind: "equality", jacobian: [[0, 1]], reference: [2]},
		]
	`)
	require.NoError(t, err)

	assert.Equal(t, 1e-6, c.Settings.RankThreshold)
	assert.Equal(t, 50, c.Settings.MaxIterations)
	assert.Zero(t, c.Settings.Regularization)

	require.Equal(t, 2, c.Stack.Len())
	assert.Equal(t, 2, c.Stack.Dim())
	assert.Equal(t, "x", c.Stack.Tasks[0].Name)
	assert.Equal(t, ir.KindEquality, c.Stack.Tasks[1].Kind)
	assert.Equal(t, [][]float64{{0, 1}}, c.Stack.Tasks[1].Jacobian)
	assert.Equal(t, []float64{2}, c.Stack.Tasks[1].Reference)
	assert.Nil(t, c.Stack.Tasks[0].Weight)
}

func TestCompileStackWithoutSolverUsesZeroSettings(t *testing.T) {
	c, err := compileString(t, `
		stack: [{kind: "equality", jacobian: [[1]], reference: [3]}]
	`)
	require.NoError(t, err)
	assert.Equal(t, ir.SolverSettings{}, c.Settings)
	assert.Equal(t, "level-0", c.Stack.Tasks[0].Label(0))
}

func TestCompileStackInfiniteBounds(t *testing.T) {
	c, err := compileString(t, `
		stack: [{
			kind: "inequality"
			jacobian: [[1, 0], [0, 1]]
			lower: ["-inf", 0]
			upper: [1.5, "+inf"]
		}]
	`)
	require.NoError(t, err)

	task := c.Stack.Tasks[0]
	require.Len(t, task.Lower, 2)
	assert.True(t, math.IsInf(task.Lower[0], -1))
	assert.Equal(t, 0.0, task.Lower[1])
	assert.Equal(t, 1.5, task.Upper[0])
	assert.True(t, math.IsInf(task.Upper[1], 1))
	assert.Nil(t, task.Reference)
}

func TestCompileStackRejectsUnknownField(t *testing.T) {
	_, err := compileString(t, `
		stack: [{kind: "equality", jacobian: [[1]], referense: [1]}]
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referense")
}

func TestCompileStackRejectsUnknownKind(t *testing.T) {
	_, err := compileString(t, `
		stack: [{kind: "soft", jacobian: [[1]], reference: [1]}]
	`)
	require.Error(t, err)
}

func TestCompileStackRequiresStack(t *testing.T) {
	_, err := compileString(t, `
		solver: {rank_threshold: 1e-9}
	`)
	require.Error(t, err)
}

func TestCompileStackRejectsNegativeSettings(t *testing.T) {
	_, err := compileString(t, `
		solver: {regularization: -1}
		stack: [{kind: "equality", jacobian: [[1]], reference: [1]}]
	`)
	require.Error(t, err)
}

func TestCompileStackMaskSelectsRows(t *testing.T) {
	c, err := compileString(t, `
		stack: [{
			kind: "equality"
			jacobian: [[1, 0], [0, 1], [1, 1]]
			reference: [1, 2, 3]
			weight: [[1, 0, 0], [0, 2, 0], [0, 0, 3]]
			mask: [true, false, true]
		}]
	`)
	require.NoError(t, err)

	task := c.Stack.Tasks[0]
	assert.Equal(t, [][]float64{{1, 0}, {1, 1}}, task.Jacobian)
	assert.Equal(t, []float64{1, 3}, task.Reference)
	assert.Equal(t, [][]float64{{1, 0}, {0, 3}}, task.Weight)
}

func TestCompileStackMaskWrongLength(t *testing.T) {
	_, err := compileString(t, `
		stack: [{
			kind: "equality"
			jacobian: [[1, 0], [0, 1]]
			reference: [1, 2]
			mask: [true]
		}]
	`)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "stack[0].mask", ce.Field)
}

func TestCompileStackPDReference(t *testing.T) {
	c, err := compileString(t, `
		stack: [{
			name: "frame"
			kind: "equality"
			jacobian: [[1, 0], [0, 1]]
			pd: {
				kp: 4
				exp_decay: true
				error: [1, 0.5]
				velocity_error: [0.1, 0]
			}
		}]
	`)
	require.NoError(t, err)

	task := c.Stack.Tasks[0]
	assert.Equal(t, "frame", task.Name)
	assert.Equal(t, ir.KindEquality, task.Kind)
	// kv = 2·√4 = 4, so a_des = −4·e − 4·ė.
	assert.InDeltaSlice(t, []float64{-4.4, -2}, task.Reference, 1e-12)
}

func TestCompileStackPDWithMaskAndDrift(t *testing.T) {
	c, err := compileString(t, `
		stack: [{
			kind: "equality"
			jacobian: [[1, 0], [0, 1]]
			mask: [false, true]
			pd: {
				kp: 1
				kv: 0
				error: [5, 2]
				drift: [0, 0.5]
				feedforward: [0, 1]
			}
		}]
	`)
	require.NoError(t, err)

	task := c.Stack.Tasks[0]
	assert.Equal(t, [][]float64{{0, 1}}, task.Jacobian)
	// −1·2 + 1 − 0.5
	assert.InDeltaSlice(t, []float64{-1.5}, task.Reference, 1e-12)
}

func TestCompileStackPDAdaptiveGain(t *testing.T) {
	c, err := compileString(t, `
		stack: [{
			kind: "equality"
			jacobian: [[1]]
			pd: {
				kp: 100
				error: [0]
				adaptive: {kmin: 2, kmax: 10, beta: 1}
			}
		}]
	`)
	require.NoError(t, err)
	// Zero error gives the adaptive gain kmin, and −kmin·0 = 0.
	assert.InDeltaSlice(t, []float64{0}, c.Stack.Tasks[0].Reference, 1e-12)
}

func TestCompileStackPDRequiresEquality(t *testing.T) {
	_, err := compileString(t, `
		stack: [{
			kind: "inequality"
			jacobian: [[1]]
			upper: [1]
			pd: {kp: 1, error: [0]}
		}]
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "equality")
}

func TestCompileStackPDConflictsWithReference(t *testing.T) {
	_, err := compileString(t, `
		stack: [{
			kind: "equality"
			jacobian: [[1]]
			reference: [1]
			pd: {kp: 1, error: [0]}
		}]
	`)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "stack[0].reference", ce.Field)
}

func TestCompileStackPDErrorLength(t *testing.T) {
	_, err := compileString(t, `
		stack: [{
			kind: "equality"
			jacobian: [[1, 0], [0, 1]]
			pd: {kp: 1, error: [0]}
		}]
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error has length 1")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "stack[0].mask", Message: "mask selects no rows"}
	assert.Equal(t, "stack[0].mask: mask selects no rows", err.Error())
}
