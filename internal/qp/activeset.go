package qp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Defaults used when an ActiveSet field is zero.
const (
	DefaultTolerance = 1e-9

	// dependenceTolerance decides when a new normal lies in the span of the
	// active ones: zᵀn ≤ dependenceTolerance·nᵀH⁻¹n.
	dependenceTolerance = 1e-10
)

// DefaultMaxIterations returns the iteration cap used when none is set.
func DefaultMaxIterations(n, m int) int {
	return 10*(n+2*m) + 50
}

// ActiveSet is the Goldfarb–Idnani dual active-set method for strictly
// convex QPs.
//
// It starts from the unconstrained minimum -H⁻¹g, which is dual feasible,
// adds every equality, then repeatedly adds the most violated inequality.
// When adding a constraint would make a multiplier negative it takes a
// partial step and drops that constraint instead. If neither a primal nor a
// dual step is possible the constraints are infeasible.
//
// Ties between equally violated constraints go to the lowest row, so a given
// Problem always produces the same Result. There is no warm start.
type ActiveSet struct {
	// MaxIterations caps adds plus drops. Zero means DefaultMaxIterations.
	MaxIterations int

	// Tolerance is the constraint violation accepted as satisfied.
	Tolerance float64
}

// NewActiveSet returns an ActiveSet engine with default settings.
// It has the Factory signature.
func NewActiveSet() Engine {
	return &ActiveSet{}
}

// constraint is one side of a row, written as normalᵀx ≥ bound, or
// normalᵀx = bound for equalities.
type constraint struct {
	normal []float64
	bound  float64
	row    int
	side   Side
}

// Solve implements Engine.
func (e *ActiveSet) Solve(p *Problem) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	n := p.Dim()

	var chol mat.Cholesky
	if ok := chol.Factorize(p.H); !ok {
		return nil, NewNotConvex("Hessian is not positive definite")
	}
	hinv := mat.NewSymDense(n, nil)
	if err := chol.InverseTo(hinv); err != nil {
		return nil, NewNotConvex(err.Error())
	}

	s := &solveState{
		n:     n,
		hinv:  hinv,
		cons:  splitConstraints(p),
		tol:   e.Tolerance,
		limit: e.MaxIterations,
		x:     mat.NewVecDense(n, nil),
	}
	if s.tol <= 0 {
		s.tol = DefaultTolerance
	}
	if s.limit <= 0 {
		s.limit = DefaultMaxIterations(n, p.Rows())
	}
	s.inSet = make([]bool, len(s.cons))

	// Unconstrained minimum.
	s.x.MulVec(hinv, mat.NewVecDense(n, append([]float64(nil), p.G...)))
	s.x.ScaleVec(-1, s.x)

	status, err := s.run()
	if err != nil {
		return nil, err
	}
	return s.result(p, status), nil
}

func splitConstraints(p *Problem) []constraint {
	var eqs, ineqs []constraint
	for i := 0; i < p.Rows(); i++ {
		row := mat.Row(nil, i, p.A)
		lo, hi := p.bounds(i)
		if lo == hi {
			eqs = append(eqs, constraint{normal: row, bound: lo, row: i, side: SideEqual})
			continue
		}
		if !math.IsInf(lo, -1) {
			ineqs = append(ineqs, constraint{normal: row, bound: lo, row: i, side: SideLower})
		}
		if !math.IsInf(hi, 1) {
			neg := make([]float64, len(row))
			floats.ScaleTo(neg, -1, row)
			ineqs = append(ineqs, constraint{normal: neg, bound: -hi, row: i, side: SideUpper})
		}
	}
	return append(eqs, ineqs...)
}

type solveState struct {
	n    int
	hinv *mat.SymDense
	cons []constraint

	x      *mat.VecDense
	active []int     // indices into cons, in activation order
	u      []float64 // multipliers aligned with active
	inSet  []bool

	iter  int
	limit int
	tol   float64
}

func (s *solveState) run() (Status, error) {
	for ci, c := range s.cons {
		if c.side != SideEqual {
			continue
		}
		if err := s.tick(); err != nil {
			return "", err
		}
		st, err := s.direction(ci)
		if err != nil {
			return "", err
		}
		slack := s.slack(ci)
		if st.dependent() {
			if math.Abs(slack) <= s.tol {
				continue
			}
			return Infeasible, nil
		}
		t := -slack / st.zn
		s.x.AddScaledVec(s.x, t, st.z)
		for j := range s.u {
			s.u[j] -= t * st.r[j]
		}
		s.add(ci, t)
	}

	for {
		p := s.mostViolated()
		if p < 0 {
			return Optimal, nil
		}
		status, err := s.enforce(p)
		if err != nil || status == Infeasible {
			return status, err
		}
	}
}

// enforce brings constraint p into the active set, dropping blocking
// constraints along the way.
func (s *solveState) enforce(p int) (Status, error) {
	up := 0.0
	for {
		if err := s.tick(); err != nil {
			return "", err
		}
		st, err := s.direction(p)
		if err != nil {
			return "", err
		}

		// Dual step length: the first inequality multiplier to reach zero.
		t1, k := math.Inf(1), -1
		for j, ci := range s.active {
			if s.cons[ci].side == SideEqual || st.r[j] <= 0 {
				continue
			}
			if ratio := s.u[j] / st.r[j]; ratio < t1 {
				t1, k = ratio, j
			}
		}

		// Primal step length: the distance to satisfy p.
		t2 := math.Inf(1)
		if !st.dependent() {
			t2 = math.Max(0, -s.slack(p)/st.zn)
		}

		if math.IsInf(t1, 1) && math.IsInf(t2, 1) {
			return Infeasible, nil
		}

		t := math.Min(t1, t2)
		if !math.IsInf(t2, 1) {
			s.x.AddScaledVec(s.x, t, st.z)
		}
		for j := range s.u {
			s.u[j] -= t * st.r[j]
		}
		up += t

		if t2 <= t1 {
			s.add(p, up)
			return Optimal, nil
		}
		s.drop(k)
	}
}

func (s *solveState) tick() error {
	s.iter++
	if s.iter > s.limit {
		return NewMaxIterations(s.limit)
	}
	return nil
}

// mostViolated returns the inactive inequality with the most negative
// slack, or -1 when all are satisfied within tolerance.
func (s *solveState) mostViolated() int {
	p, worst := -1, -s.tol
	for ci, c := range s.cons {
		if c.side == SideEqual || s.inSet[ci] {
			continue
		}
		if slack := s.slack(ci); slack < worst {
			p, worst = ci, slack
		}
	}
	return p
}

func (s *solveState) slack(ci int) float64 {
	c := s.cons[ci]
	return floats.Dot(c.normal, s.x.RawVector().Data) - c.bound
}

func (s *solveState) add(ci int, u float64) {
	s.active = append(s.active, ci)
	s.u = append(s.u, u)
	s.inSet[ci] = true
}

func (s *solveState) drop(k int) {
	s.inSet[s.active[k]] = false
	s.active = append(s.active[:k], s.active[k+1:]...)
	s.u = append(s.u[:k], s.u[k+1:]...)
}

// step holds the primal direction z and the dual direction r for adding
// one constraint to the current active set.
type step struct {
	z   *mat.VecDense
	r   []float64
	zn  float64 // zᵀn
	ref float64 // nᵀH⁻¹n
}

func (st step) dependent() bool {
	return st.zn <= dependenceTolerance*st.ref
}

// direction computes, with N the active normals and M = NᵀH⁻¹N,
//
//	r = M⁻¹NᵀH⁻¹n
//	z = H⁻¹n − H⁻¹N·r
func (s *solveState) direction(ci int) (step, error) {
	normal := mat.NewVecDense(s.n, s.cons[ci].normal)
	hn := mat.NewVecDense(s.n, nil)
	hn.MulVec(s.hinv, normal)
	st := step{z: hn, ref: mat.Dot(normal, hn)}

	q := len(s.active)
	if q == 0 {
		st.zn = st.ref
		return st, nil
	}

	nMat := mat.NewDense(s.n, q, nil)
	for j, aj := range s.active {
		nMat.SetCol(j, s.cons[aj].normal)
	}
	var hN mat.Dense
	hN.Mul(s.hinv, nMat)
	var m mat.Dense
	m.Mul(nMat.T(), &hN)
	msym := mat.NewSymDense(q, nil)
	for i := 0; i < q; i++ {
		for j := i; j < q; j++ {
			msym.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(msym); !ok {
		return step{}, NewDegenerateActiveSet(fmt.Sprintf("%d active normals are dependent", q))
	}
	rhs := mat.NewVecDense(q, nil)
	rhs.MulVec(nMat.T(), hn)
	r := mat.NewVecDense(q, nil)
	if err := chol.SolveVecTo(r, rhs); err != nil {
		return step{}, NewDegenerateActiveSet(err.Error())
	}

	z := mat.NewVecDense(s.n, nil)
	z.MulVec(&hN, r)
	z.SubVec(hn, z)

	st.z = z
	st.r = r.RawVector().Data
	st.zn = mat.Dot(z, normal)
	return st, nil
}

func (s *solveState) result(p *Problem, status Status) *Result {
	res := &Result{
		X:           append([]float64(nil), s.x.RawVector().Data...),
		Status:      status,
		Iterations:  s.iter,
		Active:      make([]ActiveConstraint, len(s.active)),
		Multipliers: append([]float64{}, s.u...),
	}
	for j, ci := range s.active {
		res.Active[j] = ActiveConstraint{Row: s.cons[ci].row, Side: s.cons[ci].side}
	}

	hx := mat.NewVecDense(s.n, nil)
	hx.MulVec(p.H, s.x)
	res.Objective = 0.5*mat.Dot(s.x, hx) + floats.Dot(p.G, res.X)
	return res
}
