package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eq(j [][]float64, ref ...float64) Task {
	return Task{Kind: KindEquality, Jacobian: j, Reference: ref}
}

func TestCheckValidStack(t *testing.T) {
	stack := NewTaskStack(
		eq([][]float64{{1, 0}}, 1),
		Task{
			Kind:     KindInequality,
			Jacobian: [][]float64{{0, 1}},
			Lower:    Bounds{math.Inf(-1)},
			Upper:    Bounds{2},
		},
		Task{
			Kind:      KindEquality,
			Jacobian:  [][]float64{{1, 1}, {1, -1}},
			Reference: []float64{0, 0},
			Weight:    [][]float64{{2, 1}, {1, 2}},
		},
	)

	assert.Empty(t, stack.Check())
	assert.Equal(t, 2, stack.Dim())
	assert.Equal(t, 3, stack.Len())
}

func TestCheckEmptyStack(t *testing.T) {
	violations := TaskStack{}.Check()
	require.Len(t, violations, 1)
	assert.Equal(t, ViolationShape, violations[0].Code)
	assert.Equal(t, -1, violations[0].Level)
}

func TestCheckViolations(t *testing.T) {
	tests := []struct {
		name  string
		task  Task
		code  ViolationCode
		field string
	}{
		{
			name:  "ragged jacobian",
			task:  eq([][]float64{{1, 0, 0}}, 1),
			code:  ViolationShape,
			field: "jacobian",
		},
		{
			name:  "no rows",
			task:  Task{Kind: KindEquality, Jacobian: [][]float64{}, Reference: []float64{}},
			code:  ViolationShape,
			field: "jacobian",
		},
		{
			name:  "reference length",
			task:  eq([][]float64{{1, 0}}, 1, 2),
			code:  ViolationShape,
			field: "reference",
		},
		{
			name:  "missing reference",
			task:  Task{Kind: KindEquality, Jacobian: [][]float64{{1, 0}}},
			code:  ViolationShape,
			field: "reference",
		},
		{
			name:  "non-finite jacobian",
			task:  eq([][]float64{{math.NaN(), 0}}, 1),
			code:  ViolationValue,
			field: "jacobian",
		},
		{
			name:  "non-finite reference",
			task:  eq([][]float64{{1, 0}}, math.Inf(1)),
			code:  ViolationValue,
			field: "reference",
		},
		{
			name:  "unknown kind",
			task:  Task{Kind: "soft", Jacobian: [][]float64{{1, 0}}, Reference: []float64{1}},
			code:  ViolationValue,
			field: "kind",
		},
		{
			name: "equality with bounds",
			task: Task{Kind: KindEquality, Jacobian: [][]float64{{1, 0}}, Reference: []float64{1},
				Lower: Bounds{0}},
			code:  ViolationValue,
			field: "bounds",
		},
		{
			name:  "inequality without bounds",
			task:  Task{Kind: KindInequality, Jacobian: [][]float64{{1, 0}}},
			code:  ViolationValue,
			field: "bounds",
		},
		{
			name: "lower above upper",
			task: Task{Kind: KindInequality, Jacobian: [][]float64{{1, 0}},
				Lower: Bounds{3}, Upper: Bounds{2}},
			code:  ViolationValue,
			field: "bounds",
		},
		{
			name: "bound length",
			task: Task{Kind: KindInequality, Jacobian: [][]float64{{1, 0}},
				Upper: Bounds{1, 2}},
			code:  ViolationShape,
			field: "upper",
		},
		{
			name: "lower at +inf",
			task: Task{Kind: KindInequality, Jacobian: [][]float64{{1, 0}},
				Lower: Bounds{math.Inf(1)}},
			code:  ViolationValue,
			field: "lower",
		},
		{
			name: "weight shape",
			task: Task{Kind: KindEquality, Jacobian: [][]float64{{1, 0}}, Reference: []float64{1},
				Weight: [][]float64{{1, 0}, {0, 1}}},
			code:  ViolationShape,
			field: "weight",
		},
		{
			name: "weight asymmetric",
			task: Task{Kind: KindEquality, Jacobian: [][]float64{{1, 0}, {0, 1}}, Reference: []float64{1, 1},
				Weight: [][]float64{{1, 0.5}, {0, 1}}},
			code:  ViolationValue,
			field: "weight",
		},
		{
			name: "weight indefinite",
			task: Task{Kind: KindEquality, Jacobian: [][]float64{{1, 0}, {0, 1}}, Reference: []float64{1, 1},
				Weight: [][]float64{{1, 2}, {2, 1}}},
			code:  ViolationValue,
			field: "weight",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stack := NewTaskStack(eq([][]float64{{1, 0}}, 0), tt.task)
			violations := stack.Check()
			require.NotEmpty(t, violations)

			found := false
			for _, v := range violations {
				if v.Code == tt.code && v.Field == tt.field && v.Level == 1 {
					found = true
				}
			}
			assert.True(t, found, "want %s on %s, got %v", tt.code, tt.field, violations)
		})
	}
}

func TestCheckCollectsAllViolations(t *testing.T) {
	stack := NewTaskStack(
		eq([][]float64{{1, 0}}, 1, 2),
		eq([][]float64{{1}}, math.NaN()),
	)

	violations := stack.Check()
	assert.GreaterOrEqual(t, len(violations), 3)
}

func TestCheckSemiDefiniteWeightAccepted(t *testing.T) {
	stack := NewTaskStack(Task{
		Kind:      KindEquality,
		Jacobian:  [][]float64{{1, 0}, {0, 1}},
		Reference: []float64{1, 1},
		Weight:    [][]float64{{1, 1}, {1, 1}},
	})
	assert.Empty(t, stack.Check())
}

func TestViolationError(t *testing.T) {
	v := Violation{Level: 2, Field: "reference", Code: ViolationShape, Message: "length 1, want 2"}
	assert.Equal(t, "level 2 reference: length 1, want 2", v.Error())

	v = Violation{Level: -1, Field: "tasks", Code: ViolationShape, Message: "stack is empty"}
	assert.Equal(t, "tasks: stack is empty", v.Error())
}
