package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// Dense converts row-major data into a gonum matrix.
func Dense(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}

// AssertMatrixNear fails the test when any entry of got differs from want by
// more than tol.
func AssertMatrixNear(t testing.TB, want [][]float64, got mat.Matrix, tol float64) bool {
	t.Helper()
	r, c := got.Dims()
	if !assert.Equal(t, len(want), r, "rows") {
		return false
	}
	ok := true
	for i := 0; i < r; i++ {
		if !assert.Equal(t, len(want[i]), c, "columns of row %d", i) {
			return false
		}
		for j := 0; j < c; j++ {
			ok = assert.InDelta(t, want[i][j], got.At(i, j), tol, "entry (%d,%d)", i, j) && ok
		}
	}
	return ok
}

// AssertVectorNear fails the test when any entry of got differs from want
// by more than tol.
func AssertVectorNear(t testing.TB, want, got []float64, tol float64) bool {
	t.Helper()
	if !assert.Len(t, got, len(want)) {
		return false
	}
	ok := true
	for i := range want {
		ok = assert.InDelta(t, want[i], got[i], tol, "entry %d", i) && ok
	}
	return ok
}

// MaxAbsDiff returns the largest entrywise difference of two equally sized
// matrices.
func MaxAbsDiff(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	worst := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			worst = math.Max(worst, math.Abs(a.At(i, j)-b.At(i, j)))
		}
	}
	return worst
}
