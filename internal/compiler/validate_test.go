package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hqp/internal/ir"
	"github.com/roach88/hqp/internal/testutil"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValidStack(t *testing.T) {
	errs := Validate(testutil.OrthogonalStack())
	assert.Empty(t, errs)
}

func TestValidateEmptyStack(t *testing.T) {
	errs := Validate(ir.TaskStack{})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrStackEmpty, errs[0].Code)
	assert.Equal(t, -1, errs[0].Level)
	assert.Equal(t, "tasks", errs[0].Field)
}

func TestValidateShapeMismatch(t *testing.T) {
	stack := ir.NewTaskStack(
		testutil.Equality("a", [][]float64{{1, 0}}, 1),
		testutil.Equality("b", [][]float64{{1, 0, 0}}, 1),
	)
	errs := Validate(stack)
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrStackShape, errs[0].Code)
	assert.Equal(t, "stack[1].jacobian", errs[0].Field)
	assert.Equal(t, 1, errs[0].Level)
}

func TestValidateCrossedBounds(t *testing.T) {
	stack := ir.NewTaskStack(
		testutil.Inequality("box", [][]float64{{1}}, []float64{2}, []float64{1}),
	)
	errs := Validate(stack)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrStackValue, errs[0].Code)
	assert.Contains(t, errs[0].Error(), "[E202] stack[0].bounds")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	stack := ir.NewTaskStack(
		ir.Task{Kind: "soft", Jacobian: [][]float64{{1, 0}}, Reference: []float64{1}},
		ir.Task{Kind: ir.KindEquality, Jacobian: [][]float64{{1, 0}}, Reference: []float64{1, 2}},
	)
	errs := Validate(stack)
	assert.ElementsMatch(t, []string{ErrStackValue, ErrStackShape}, codes(errs))
}

func TestFromCompileError(t *testing.T) {
	e := FromCompileError(&CompileError{Field: "stack[0].mask", Message: "bad"})
	assert.Equal(t, ErrStackSchema, e.Code)
	assert.Equal(t, "stack[0].mask", e.Field)
	assert.Equal(t, -1, e.Level)

	e = FromCompileError(assert.AnError)
	assert.Equal(t, "stack", e.Field)
	assert.Equal(t, assert.AnError.Error(), e.Message)
}
