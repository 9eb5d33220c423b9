package testutil

import (
	"math"

	"github.com/roach88/hqp/internal/ir"
)

// Equality builds a named equality task.
func Equality(name string, jacobian [][]float64, reference ...float64) ir.Task {
	return ir.Task{Name: name, Kind: ir.KindEquality, Jacobian: jacobian, Reference: reference}
}

// Inequality builds a named inequality task with no reference.
// Pass nil for an open side.
func Inequality(name string, jacobian [][]float64, lower, upper ir.Bounds) ir.Task {
	return ir.Task{Name: name, Kind: ir.KindInequality, Jacobian: jacobian, Lower: lower, Upper: upper}
}

// Inf returns +Inf, for readable bound literals.
func Inf() float64 { return math.Inf(1) }

// OrthogonalStack has two orthogonal equality tasks; the solution is [1, 2].
func OrthogonalStack() ir.TaskStack {
	return ir.NewTaskStack(
		Equality("x", [][]float64{{1, 0}}, 1),
		Equality("y", [][]float64{{0, 1}}, 2),
	)
}

// CoupledStack fixes x1 + x2 = 2 first, then asks x1 - x2 = 0 in the
// remaining null space; the solution is [1, 1].
func CoupledStack() ir.TaskStack {
	return ir.NewTaskStack(
		Equality("sum", [][]float64{{1, 1}}, 2),
		Equality("diff", [][]float64{{1, -1}}, 0),
	)
}

// ConflictStack has three 1-D tasks on a 2-D command. After the first two
// the null space is empty, so the third is fully constrained and left with
// a residual of 6. The solution is [3, -1].
func ConflictStack() ir.TaskStack {
	return ir.NewTaskStack(
		Equality("sum", [][]float64{{1, 1}}, 2),
		Equality("x", [][]float64{{1, 0}}, 3),
		Equality("y", [][]float64{{0, 1}}, 5),
	)
}

// BoundedStack keeps x1 inside [2, 3] while a lower-priority task pulls it
// toward 0; the solution is [2, 0].
func BoundedStack() ir.TaskStack {
	return ir.NewTaskStack(
		Inequality("x-range", [][]float64{{1, 0}}, ir.Bounds{2}, ir.Bounds{3}),
		Equality("x-zero", [][]float64{{1, 0}}, 0),
	)
}

// InfeasibleStack asks x1 - x2 ≥ 1 and x1 - x2 ≤ -1 at the same level,
// followed by an equality that must still be honoured.
func InfeasibleStack() ir.TaskStack {
	return ir.NewTaskStack(
		ir.Task{
			Name:     "contradiction",
			Kind:     ir.KindInequality,
			Jacobian: [][]float64{{1, -1}, {1, -1}},
			Lower:    ir.Bounds{1, math.Inf(-1)},
			Upper:    ir.Bounds{math.Inf(1), -1},
		},
		Equality("sum", [][]float64{{1, 1}}, 4),
	)
}

// Scaled returns a copy of stack with every Jacobian, reference and bound
// multiplied by s. It describes the same tasks in other units, so the
// solution does not change.
func Scaled(stack ir.TaskStack, s float64) ir.TaskStack {
	tasks := make([]ir.Task, len(stack.Tasks))
	for i, t := range stack.Tasks {
		t.Jacobian = scaleRows(t.Jacobian, s)
		t.Reference = scaleVec(t.Reference, s)
		t.Lower = scaleVec(t.Lower, s)
		t.Upper = scaleVec(t.Upper, s)
		tasks[i] = t
	}
	return ir.NewTaskStack(tasks...)
}

func scaleRows(rows [][]float64, s float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = scaleVec(r, s)
	}
	return out
}

// scaleVec keeps nil as nil and ±Inf as ±Inf for positive s.
func scaleVec(v []float64, s float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * s
	}
	return out
}
