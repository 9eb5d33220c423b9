package level

import (
	"gonum.org/v1/gonum/mat"

	"github.com/roach88/hqp/internal/ir"
)

// Task is the dense form of one ir.Task.
type Task struct {
	Kind ir.TaskKind
	J    *mat.Dense

	// Ref is nil for a bound-only inequality.
	Ref []float64

	// Lower and Upper are nil for equality tasks. Open rows hold ±Inf.
	Lower []float64
	Upper []float64

	// W is nil for the identity weight.
	W *mat.SymDense
}

// FromIR converts a validated ir.Task.
func FromIR(t ir.Task) *Task {
	m, n := t.Rows(), t.Cols()
	out := &Task{
		Kind: t.Kind,
		J:    mat.NewDense(m, n, nil),
	}
	for i, row := range t.Jacobian {
		out.J.SetRow(i, row)
	}
	if t.Reference != nil {
		out.Ref = append([]float64(nil), t.Reference...)
	}
	if t.Kind == ir.KindInequality {
		out.Lower = t.LowerBounds()
		out.Upper = t.UpperBounds()
	}
	if t.Weight != nil {
		out.W = mat.NewSymDense(m, nil)
		for i := 0; i < m; i++ {
			for j := i; j < m; j++ {
				out.W.SetSym(i, j, t.Weight[i][j])
			}
		}
	}
	return out
}

// Rows returns the task dimension.
func (t *Task) Rows() int {
	m, _ := t.J.Dims()
	return m
}

// Residual returns ‖J·x − ref‖, or 0 for a bound-only task.
func (t *Task) Residual(x mat.Vector) float64 {
	if t.Ref == nil {
		return 0
	}
	jx := mat.NewVecDense(t.Rows(), nil)
	jx.MulVec(t.J, x)
	jx.SubVec(jx, mat.NewVecDense(len(t.Ref), append([]float64(nil), t.Ref...)))
	return mat.Norm(jx, 2)
}

// Slack returns the largest bound violation of J·x, or 0 when every row
// is inside its bounds.
func (t *Task) Slack(x mat.Vector) float64 {
	if t.Lower == nil && t.Upper == nil {
		return 0
	}
	jx := mat.NewVecDense(t.Rows(), nil)
	jx.MulVec(t.J, x)
	return violation(jx.RawVector().Data, t.Lower, t.Upper)
}

func violation(v, lower, upper []float64) float64 {
	worst := 0.0
	for i, vi := range v {
		if lower != nil && lower[i]-vi > worst {
			worst = lower[i] - vi
		}
		if upper != nil && vi-upper[i] > worst {
			worst = vi - upper[i]
		}
	}
	return worst
}
