package reference

import "fmt"

// Task-space dimensions of the common task families.
const (
	FrameDim     = 6 // SE(3): 3 linear + 3 angular
	CoMDim       = 3
	FloatingBase = 6
)

// Mask selects task rows. A nil Mask keeps every row.
type Mask []bool

// FullMask keeps all n rows.
func FullMask(n int) Mask {
	m := make(Mask, n)
	for i := range m {
		m[i] = true
	}
	return m
}

// Count returns the number of rows kept from an m-row task.
func (m Mask) Count(rows int) int {
	if m == nil {
		return rows
	}
	c := 0
	for _, keep := range m {
		if keep {
			c++
		}
	}
	return c
}

// Check verifies that the mask fits an m-row task and keeps at least one row.
func (m Mask) Check(rows int) error {
	if m == nil {
		return nil
	}
	if len(m) != rows {
		return fmt.Errorf("mask has %d entries, task has %d rows", len(m), rows)
	}
	if m.Count(rows) == 0 {
		return fmt.Errorf("mask selects no rows")
	}
	return nil
}

// Vector returns the kept entries of v.
func (m Mask) Vector(v []float64) []float64 {
	if v == nil {
		return nil
	}
	if m == nil {
		return append([]float64(nil), v...)
	}
	out := make([]float64, 0, m.Count(len(v)))
	for i, keep := range m {
		if keep {
			out = append(out, v[i])
		}
	}
	return out
}

// Rows returns copies of the kept rows of a row-major matrix.
func (m Mask) Rows(j [][]float64) [][]float64 {
	out := make([][]float64, 0, m.Count(len(j)))
	for i, row := range j {
		if m == nil || m[i] {
			out = append(out, append([]float64(nil), row...))
		}
	}
	return out
}

// Square returns the kept rows and columns of a square matrix, for weights.
func (m Mask) Square(w [][]float64) [][]float64 {
	if w == nil {
		return nil
	}
	rows := m.Rows(w)
	if m == nil {
		return rows
	}
	for i, row := range rows {
		rows[i] = m.Vector(row)
	}
	return rows
}
