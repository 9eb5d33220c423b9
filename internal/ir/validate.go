package ir

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ViolationCode classifies a stack defect.
type ViolationCode string

const (
	// ViolationShape covers dimension problems: ragged or empty Jacobians,
	// references, bounds or weights of the wrong length.
	ViolationShape ViolationCode = "SHAPE_MISMATCH"

	// ViolationValue covers content problems: non-finite numbers,
	// lower > upper, unknown kinds, asymmetric or indefinite weights.
	ViolationValue ViolationCode = "INVALID_VALUE"
)

// Violation describes one defect found by TaskStack.Check.
// Level is -1 for defects of the stack as a whole.
type Violation struct {
	Level   int           `json:"level"`
	Field   string        `json:"field"`
	Code    ViolationCode `json:"code"`
	Message string        `json:"message"`
}

func (v Violation) Error() string {
	if v.Level < 0 {
		return fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return fmt.Sprintf("level %d %s: %s", v.Level, v.Field, v.Message)
}

// weightTolerance bounds asymmetry and negative eigenvalues of a weight,
// relative to its largest entry.
const weightTolerance = 1e-9

// Check validates the whole stack and returns every violation found.
// An empty result means the stack can be solved.
func (s TaskStack) Check() []Violation {
	var out []Violation
	if len(s.Tasks) == 0 {
		return append(out, Violation{Level: -1, Field: "tasks", Code: ViolationShape, Message: "stack is empty"})
	}

	n := s.Dim()
	if n == 0 {
		out = append(out, Violation{Level: 0, Field: "jacobian", Code: ViolationShape,
			Message: "command dimension must be at least 1"})
	}
	for k, t := range s.Tasks {
		out = append(out, t.check(k, n)...)
	}
	return out
}

func (t Task) check(k, n int) []Violation {
	var out []Violation
	add := func(field string, code ViolationCode, format string, args ...any) {
		out = append(out, Violation{Level: k, Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if !ValidKinds[t.Kind] {
		add("kind", ViolationValue, "unknown task kind %q", t.Kind)
	}

	m := t.Rows()
	if m == 0 {
		add("jacobian", ViolationShape, "task has no rows")
	}
	for i, row := range t.Jacobian {
		if n > 0 && len(row) != n {
			add("jacobian", ViolationShape, "row %d has %d columns, want %d", i, len(row), n)
		}
		if j, ok := firstNonFinite(row); ok {
			add("jacobian", ViolationValue, "entry (%d,%d) is not finite", i, j)
		}
	}

	switch t.Kind {
	case KindEquality:
		if t.Reference == nil {
			add("reference", ViolationShape, "equality task needs a reference of length %d", m)
		}
		if t.Lower.Present() || t.Upper.Present() {
			add("bounds", ViolationValue, "equality task cannot carry bounds")
		}
	case KindInequality:
		if !t.Lower.Present() && !t.Upper.Present() {
			add("bounds", ViolationValue, "inequality task needs a lower or upper bound")
		}
	}

	if t.Reference != nil {
		if len(t.Reference) != m {
			add("reference", ViolationShape, "length %d, want %d", len(t.Reference), m)
		}
		if i, ok := firstNonFinite(t.Reference); ok {
			add("reference", ViolationValue, "entry %d is not finite", i)
		}
	}

	out = append(out, t.checkBounds(k, m)...)

	if t.Weight != nil {
		out = append(out, checkWeight(k, m, t.Weight)...)
	}
	return out
}

func (t Task) checkBounds(k, m int) []Violation {
	var out []Violation
	for _, side := range []struct {
		name string
		b    Bounds
		bad  float64
	}{
		{"lower", t.Lower, math.Inf(1)},
		{"upper", t.Upper, math.Inf(-1)},
	} {
		if !side.b.Present() {
			continue
		}
		if len(side.b) != m {
			out = append(out, Violation{Level: k, Field: side.name, Code: ViolationShape,
				Message: fmt.Sprintf("length %d, want %d", len(side.b), m)})
			continue
		}
		for i, v := range side.b {
			if math.IsNaN(v) || v == side.bad {
				out = append(out, Violation{Level: k, Field: side.name, Code: ViolationValue,
					Message: fmt.Sprintf("entry %d is %v", i, v)})
			}
		}
	}
	if len(t.Lower) == m && len(t.Upper) == m {
		for i := range t.Lower {
			if t.Lower[i] > t.Upper[i] {
				out = append(out, Violation{Level: k, Field: "bounds", Code: ViolationValue,
					Message: fmt.Sprintf("row %d has lower %v > upper %v", i, t.Lower[i], t.Upper[i])})
			}
		}
	}
	return out
}

func checkWeight(k, m int, w [][]float64) []Violation {
	fail := func(code ViolationCode, format string, args ...any) []Violation {
		return []Violation{{Level: k, Field: "weight", Code: code, Message: fmt.Sprintf(format, args...)}}
	}
	if len(w) != m {
		return fail(ViolationShape, "%d rows, want %d", len(w), m)
	}
	scale := 1.0
	for i, row := range w {
		if len(row) != m {
			return fail(ViolationShape, "row %d has %d columns, want %d", i, len(row), m)
		}
		if j, ok := firstNonFinite(row); ok {
			return fail(ViolationValue, "entry (%d,%d) is not finite", i, j)
		}
		for _, v := range row {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	tol := weightTolerance * scale
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			if math.Abs(w[i][j]-w[j][i]) > tol {
				return fail(ViolationValue, "not symmetric at (%d,%d)", i, j)
			}
		}
	}

	sym := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			sym.SetSym(i, j, w[i][j])
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		return fail(ViolationValue, "eigen decomposition did not converge")
	}
	for _, ev := range eig.Values(nil) {
		if ev < -tol {
			return fail(ViolationValue, "not positive semi-definite (eigenvalue %g)", ev)
		}
	}
	return nil
}

func firstNonFinite(xs []float64) (int, bool) {
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i, true
		}
	}
	return 0, false
}
