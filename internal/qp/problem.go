package qp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Engine solves one convex QP.
type Engine interface {
	Solve(p *Problem) (*Result, error)
}

// Factory creates a fresh engine. Each solve owns the engine it creates.
type Factory func() Engine

// Problem is a dense convex QP with two-sided linear constraints.
type Problem struct {
	H *mat.SymDense
	G []float64

	// A is m×n, or nil for an unconstrained problem.
	A *mat.Dense

	// Lower and Upper have length m. A nil slice leaves that side open.
	Lower []float64
	Upper []float64
}

// Dim returns the number of variables.
func (p *Problem) Dim() int {
	if p.H == nil {
		return 0
	}
	return p.H.SymmetricDim()
}

// Rows returns the number of constraint rows.
func (p *Problem) Rows() int {
	if p.A == nil {
		return 0
	}
	r, _ := p.A.Dims()
	return r
}

// Status is the outcome of a solve that did not fail.
type Status string

const (
	// Optimal means X minimizes the objective over the feasible set.
	Optimal Status = "optimal"

	// Infeasible means no X satisfies the constraints.
	Infeasible Status = "infeasible"
)

// Side names which bound of a constraint row is active.
type Side string

const (
	SideLower Side = "lower"
	SideUpper Side = "upper"
	SideEqual Side = "equal"
)

// ActiveConstraint identifies one active bound.
type ActiveConstraint struct {
	Row  int  `json:"row"`
	Side Side `json:"side"`
}

// Result is a solved (or provably infeasible) QP.
type Result struct {
	X          []float64
	Status     Status
	Iterations int

	// Active lists the constraints active at X in activation order, and
	// Multipliers their Lagrange multipliers in the same order.
	Active      []ActiveConstraint
	Multipliers []float64

	Objective float64
}

// validate checks shapes and finiteness before any factorization.
func (p *Problem) validate() error {
	if p == nil || p.H == nil {
		return NewBadArgument("missing Hessian")
	}
	n := p.Dim()
	if n == 0 {
		return NewBadArgument("problem has no variables")
	}
	if len(p.G) != n {
		return NewBadArgument(fmt.Sprintf("gradient has length %d, want %d", len(p.G), n))
	}
	for i := 0; i < n; i++ {
		if !isFinite(p.G[i]) {
			return NewBadArgument(fmt.Sprintf("gradient entry %d is not finite", i))
		}
		for j := i; j < n; j++ {
			if !isFinite(p.H.At(i, j)) {
				return NewBadArgument(fmt.Sprintf("Hessian entry (%d,%d) is not finite", i, j))
			}
		}
	}
	if p.A == nil {
		if len(p.Lower) != 0 || len(p.Upper) != 0 {
			return NewBadArgument("bounds given without a constraint matrix")
		}
		return nil
	}

	m, c := p.A.Dims()
	if c != n {
		return NewBadArgument(fmt.Sprintf("constraint matrix has %d columns, want %d", c, n))
	}
	if p.Lower != nil && len(p.Lower) != m {
		return NewBadArgument(fmt.Sprintf("lower has length %d, want %d", len(p.Lower), m))
	}
	if p.Upper != nil && len(p.Upper) != m {
		return NewBadArgument(fmt.Sprintf("upper has length %d, want %d", len(p.Upper), m))
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			if !isFinite(p.A.At(i, j)) {
				return NewBadArgument(fmt.Sprintf("constraint entry (%d,%d) is not finite", i, j))
			}
		}
		lo, hi := p.bounds(i)
		if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi || math.IsInf(lo, 1) || math.IsInf(hi, -1) {
			return NewBadArgument(fmt.Sprintf("row %d has bounds [%v, %v]", i, lo, hi))
		}
	}
	return nil
}

// bounds returns row i's bounds with missing sides open.
func (p *Problem) bounds(i int) (lo, hi float64) {
	lo, hi = math.Inf(-1), math.Inf(1)
	if p.Lower != nil {
		lo = p.Lower[i]
	}
	if p.Upper != nil {
		hi = p.Upper[i]
	}
	return lo, hi
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
