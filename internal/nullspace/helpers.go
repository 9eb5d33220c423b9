package nullspace

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Identity returns the n×n identity, the projector before any level.
func Identity(n int) *mat.Dense {
	id := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		id.Set(i, i, 1)
	}
	return id
}

// IsIdempotent reports whether ‖P·P − P‖_max ≤ tol.
func IsIdempotent(p mat.Matrix, tol float64) bool {
	var pp mat.Dense
	pp.Mul(p, p)
	return maxAbsDiff(&pp, p) <= tol
}

// IsSymmetric reports whether ‖P − Pᵀ‖_max ≤ tol.
func IsSymmetric(p mat.Matrix, tol float64) bool {
	return maxAbsDiff(p, p.T()) <= tol
}

// ProjectorRank returns the rank of an orthogonal projector, which equals
// its trace.
func ProjectorRank(p mat.Matrix) int {
	return int(math.Round(mat.Trace(p)))
}

// Rows copies a matrix into row-major slices.
func Rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

func maxAbsDiff(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	worst := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			worst = math.Max(worst, math.Abs(a.At(i, j)-b.At(i, j)))
		}
	}
	return worst
}
