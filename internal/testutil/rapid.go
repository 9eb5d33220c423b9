package testutil

import (
	"fmt"
	"math"

	"pgregory.net/rapid"

	"github.com/roach88/hqp/internal/ir"
)

// DrawMatrix draws a rows×cols matrix with entries in [-bound, bound].
// Entries are rounded to a 1/8 grid so that exact rank deficiencies
// (repeated or zero rows) survive as exact values.
func DrawMatrix(t *rapid.T, label string, rows, cols int, bound float64) [][]float64 {
	steps := int(bound * 8)
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
		for j := range out[i] {
			out[i][j] = float64(rapid.IntRange(-steps, steps).Draw(t, fmt.Sprintf("%s[%d][%d]", label, i, j))) / 8
		}
	}
	return out
}

// DrawVector draws n entries in [-bound, bound].
func DrawVector(t *rapid.T, label string, n int, bound float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rapid.Float64Range(-bound, bound).Draw(t, fmt.Sprintf("%s[%d]", label, i))
	}
	return out
}

// DrawScale draws a unit factor 10^k with k in [-6, 3]. Multiplying a
// task's Jacobian, reference and bounds by it describes the same task in
// other units.
func DrawScale(t *rapid.T, label string) float64 {
	return math.Pow(10, float64(rapid.IntRange(-6, 3).Draw(t, label)))
}

// DrawEqualityStack draws a stack of 1..maxLevels equality tasks over an
// n-dimensional command, each level in its own units. Some rows are
// parallel to earlier ones so that rank deficiency and full constraint are
// exercised.
func DrawEqualityStack(t *rapid.T, n, maxLevels int) ir.TaskStack {
	return drawStack(t, n, maxLevels, false)
}

// DrawStack is DrawEqualityStack with single-row inequality levels mixed
// in. Their bounds may be one-sided, and some also carry a reference.
func DrawStack(t *rapid.T, n, maxLevels int) ir.TaskStack {
	return drawStack(t, n, maxLevels, true)
}

func drawStack(t *rapid.T, n, maxLevels int, inequalities bool) ir.TaskStack {
	levels := rapid.IntRange(1, maxLevels).Draw(t, "levels")
	var tasks []ir.Task
	var seen [][]float64
	for k := 0; k < levels; k++ {
		scale := DrawScale(t, fmt.Sprintf("scale%d", k))
		bounded := inequalities && rapid.Bool().Draw(t, fmt.Sprintf("inequality%d", k))

		m := 1
		if !bounded {
			m = rapid.IntRange(1, n).Draw(t, fmt.Sprintf("m%d", k))
		}
		j := DrawMatrix(t, fmt.Sprintf("J%d", k), m, n, 2)
		if len(seen) > 0 && rapid.Bool().Draw(t, fmt.Sprintf("repeat%d", k)) {
			src := rapid.IntRange(0, len(seen)-1).Draw(t, fmt.Sprintf("src%d", k))
			j[0] = append([]float64(nil), seen[src]...)
		} else {
			j = scaleRows(j, scale)
		}
		seen = append(seen, j...)

		task := ir.Task{Name: fmt.Sprintf("task-%d", k), Kind: ir.KindEquality, Jacobian: j}
		if !bounded || rapid.Bool().Draw(t, fmt.Sprintf("tracked%d", k)) {
			task.Reference = scaleVec(DrawVector(t, fmt.Sprintf("ref%d", k), m, 5), scale)
		}
		if bounded {
			task.Kind = ir.KindInequality
			task.Lower, task.Upper = drawBounds(t, k, scale)
		}
		tasks = append(tasks, task)
	}
	return ir.NewTaskStack(tasks...)
}

// drawBounds draws one row's bounds around a centre in [-5, 5]. Either side
// may be open.
func drawBounds(t *rapid.T, k int, scale float64) (ir.Bounds, ir.Bounds) {
	centre := rapid.Float64Range(-5, 5).Draw(t, fmt.Sprintf("centre%d", k))
	half := rapid.Float64Range(0.5, 3).Draw(t, fmt.Sprintf("half%d", k))
	lower := ir.Bounds{(centre - half) * scale}
	upper := ir.Bounds{(centre + half) * scale}
	switch rapid.IntRange(0, 2).Draw(t, fmt.Sprintf("sides%d", k)) {
	case 1:
		lower[0] = math.Inf(-1)
	case 2:
		upper[0] = math.Inf(1)
	}
	return lower, upper
}
