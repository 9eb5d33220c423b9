package level

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/roach88/hqp/internal/nullspace"
	"github.com/roach88/hqp/internal/qp"
)

// Defaults used when a Solver field is zero.
const (
	DefaultRegularization       = 0
	DefaultFeasibilityTolerance = 1e-9
)

// singularDamping is the relative damping added when the reduced Hessian
// is singular, which only a rank-deficient weight can cause.
const singularDamping = 1e-12

// Solver solves one level at a time with the given QP engine.
type Solver struct {
	Engine qp.Engine

	// Regularization is the damping μ on the reduced variables, relative
	// to the largest diagonal entry of the level Hessian. Zero adds none.
	Regularization float64

	// FeasibilityTolerance is the bound violation still counted as feasible
	// for fully constrained levels.
	FeasibilityTolerance float64
}

// Step is the outcome of one level.
type Step struct {
	// Delta is the update δx, n-dimensional and inside the null space of
	// the higher levels.
	Delta *mat.VecDense

	// Feasible is false when the level's constraints could not be met and
	// the unconstrained step was used instead.
	Feasible bool

	Iterations int
	Active     []qp.ActiveConstraint
}

// Solve computes the step for task given its projection and the command
// accumulated so far. Engine errors are returned unchanged.
func (s Solver) Solve(task *Task, proj *nullspace.Projection, xPrev *mat.VecDense) (*Step, error) {
	n := xPrev.Len()
	m := task.Rows()
	if _, c := task.J.Dims(); c != n {
		return nil, fmt.Errorf("level: jacobian has %d columns, command has %d", c, n)
	}

	jx := mat.NewVecDense(m, nil)
	jx.MulVec(task.J, xPrev)

	if proj.Rank == 0 {
		return &Step{
			Delta:    mat.NewVecDense(n, nil),
			Feasible: violation(jx.RawVector().Data, task.Lower, task.Upper) <= s.tolerance(),
		}, nil
	}

	problem, scale := s.problem(task, proj, jx)
	res, err := s.Engine.Solve(problem)
	if err != nil {
		return nil, err
	}

	step := &Step{Feasible: true, Iterations: res.Iterations, Active: res.Active}
	w := res.X
	if res.Status == qp.Infeasible {
		problem.A, problem.Lower, problem.Upper = nil, nil, nil
		fallback, err := s.Engine.Solve(problem)
		if err != nil {
			return nil, err
		}
		step.Feasible = false
		step.Iterations += fallback.Iterations
		step.Active = nil
		w = fallback.X
	}

	coef := make([]float64, len(w))
	for i, v := range w {
		coef[i] = v * scale[i]
	}
	step.Delta = mat.NewVecDense(n, nil)
	step.Delta.MulVec(proj.RowBasis, mat.NewVecDense(len(coef), coef))
	return step, nil
}

// problem builds the reduced QP and the per-variable scale that maps its
// solution z back to the row-basis coefficients w = scale·z.
//
// With B = J_proj·V_r = U_r·Σ_r, a level with a reference is solved in
// z = Σ_r·w, where the Hessian is U_rᵀ·W·U_r. It is the identity for the
// identity weight, whatever the units of J. A bound-only level keeps w
// itself, so its cost ‖w‖² is the step norm.
func (s Solver) problem(task *Task, proj *nullspace.Projection, jx *mat.VecDense) (*qp.Problem, []float64) {
	r := proj.Rank
	m := task.Rows()

	b := mat.NewDense(m, r, nil)
	b.Mul(proj.Jacobian, proj.RowBasis)

	scale := make([]float64, r)
	h := mat.NewSymDense(r, nil)
	g := make([]float64, r)

	if task.Ref == nil {
		for i := 0; i < r; i++ {
			scale[i] = 1
			h.SetSym(i, i, 1)
		}
	} else {
		for c := 0; c < r; c++ {
			scale[c] = 1 / proj.Singular[c]
			for i := 0; i < m; i++ {
				b.Set(i, c, b.At(i, c)*scale[c])
			}
		}

		// wb = W·B, or B itself for the identity weight.
		var wb mat.Dense
		if task.W != nil {
			wb.Mul(task.W, b)
		} else {
			wb.CloneFrom(b)
		}
		var btwb mat.Dense
		btwb.Mul(b.T(), &wb)
		for i := 0; i < r; i++ {
			for j := i; j < r; j++ {
				h.SetSym(i, j, 0.5*(btwb.At(i, j)+btwb.At(j, i)))
			}
		}
		resid := mat.NewVecDense(m, append([]float64(nil), task.Ref...))
		resid.SubVec(resid, jx)
		grad := mat.NewVecDense(r, nil)
		grad.MulVec(wb.T(), resid)
		for i := range g {
			g[i] = -grad.AtVec(i)
		}
	}
	s.damp(h)

	p := &qp.Problem{H: h, G: g}
	if task.Lower != nil || task.Upper != nil {
		p.A = b
		p.Lower = shift(task.Lower, jx)
		p.Upper = shift(task.Upper, jx)
	}
	return p, scale
}

// damp adds the relative damping μ·max(diag H) to the diagonal of h. A
// singular or near-singular h, from a rank-deficient weight, gets
// singularDamping even when μ is zero.
func (s Solver) damp(h *mat.SymDense) {
	r := h.SymmetricDim()
	peak := 0.0
	for i := 0; i < r; i++ {
		peak = math.Max(peak, h.At(i, i))
	}
	if peak == 0 {
		peak = 1
	}

	mu := s.Regularization
	if mu <= 0 {
		var chol mat.Cholesky
		if chol.Factorize(h) && chol.Cond() < 1/singularDamping {
			return
		}
		mu = singularDamping
	}
	for i := 0; i < r; i++ {
		h.SetSym(i, i, h.At(i, i)+mu*peak)
	}
}

func (s Solver) tolerance() float64 {
	if s.FeasibilityTolerance > 0 {
		return s.FeasibilityTolerance
	}
	return DefaultFeasibilityTolerance
}

// shift returns bound − J·x_prev; infinite entries stay infinite.
func shift(bound []float64, jx *mat.VecDense) []float64 {
	if bound == nil {
		return nil
	}
	out := make([]float64, len(bound))
	for i, v := range bound {
		out[i] = v - jx.AtVec(i)
	}
	return out
}
