package nullspace

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Defaults used when a Projector field is zero.
const (
	DefaultRankThreshold = 1e-9
	DefaultZeroTolerance = 1e-12
)

// ErrNoConvergence is returned when the SVD of a projected Jacobian fails.
var ErrNoConvergence = errors.New("nullspace: SVD did not converge")

// Projector computes pseudo-inverses and null-space projectors.
// The zero value uses the package defaults.
type Projector struct {
	// RankThreshold is the relative cutoff ε on singular values.
	RankThreshold float64

	// ZeroTolerance is the floor on singular values, relative to the
	// Frobenius norm of the unprojected Jacobian. It separates round-off
	// leaking through J·P_prev from directions that are really free.
	ZeroTolerance float64
}

// Projection is the result of projecting one level's Jacobian.
type Projection struct {
	// Projector is P_k, n×n and symmetric.
	Projector *mat.Dense

	// Jacobian is J_proj = J·P_prev, m×n.
	Jacobian *mat.Dense

	// Pinv is the truncated pseudo-inverse of Jacobian, n×m.
	Pinv *mat.Dense

	// RowBasis holds the first Rank right singular vectors of Jacobian as
	// columns, n×Rank. Nil when Rank is 0.
	RowBasis *mat.Dense

	// Singular lists every singular value of Jacobian, descending.
	Singular []float64

	// Rank is the numerical rank of Jacobian.
	Rank int
}

// FullyConstrained reports whether higher levels left this level no freedom.
func (p *Projection) FullyConstrained() bool {
	return p.Rank == 0
}

func (p Projector) thresholds() (eps, floor float64) {
	eps, floor = p.RankThreshold, p.ZeroTolerance
	if eps <= 0 {
		eps = DefaultRankThreshold
	}
	if floor <= 0 {
		floor = DefaultZeroTolerance
	}
	return eps, floor
}

// Rank returns the number of singular values above
// max(ε·σ_max, ZeroTolerance·norm), where norm is the Frobenius norm of the
// Jacobian before projection. sv must be sorted descending, as gonum
// returns it.
func (p Projector) Rank(sv []float64, norm float64) int {
	if len(sv) == 0 {
		return 0
	}
	eps, floor := p.thresholds()
	cut := math.Max(eps*sv[0], floor*norm)
	r := 0
	for _, s := range sv {
		if s > cut {
			r++
		}
	}
	return r
}

// Project projects j into the null space described by prev.
// prev must be n×n where n is the column count of j.
func (p Projector) Project(prev *mat.Dense, j mat.Matrix) (*Projection, error) {
	m, n := j.Dims()
	if pr, pc := prev.Dims(); pr != n || pc != n {
		return nil, fmt.Errorf("nullspace: projector is %d×%d, jacobian has %d columns", pr, pc, n)
	}

	jp := mat.NewDense(m, n, nil)
	jp.Mul(j, prev)

	var svd mat.SVD
	if !svd.Factorize(jp, mat.SVDThin) {
		return nil, ErrNoConvergence
	}
	sv := svd.Values(nil)
	rank := p.Rank(sv, mat.Norm(j, 2))

	out := &Projection{
		Jacobian: jp,
		Pinv:     mat.NewDense(n, m, nil),
		Singular: sv,
		Rank:     rank,
	}
	next := mat.DenseCopyOf(prev)

	// gonum refuses zero-width slices, so the rank-0 case keeps P_prev and a
	// zero pseudo-inverse.
	if rank > 0 {
		var u, v mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)
		vr := mat.DenseCopyOf(v.Slice(0, n, 0, rank))
		ur := u.Slice(0, m, 0, rank)

		scaled := mat.DenseCopyOf(vr)
		for c := 0; c < rank; c++ {
			col := mat.NewVecDense(n, nil)
			col.ScaleVec(1/sv[c], scaled.ColView(c))
			scaled.SetCol(c, col.RawVector().Data)
		}
		out.Pinv.Mul(scaled, ur.T())

		var consumed mat.Dense
		consumed.Mul(out.Pinv, jp)
		next.Sub(next, &consumed)
		out.RowBasis = vr
	}

	symmetrize(next)
	out.Projector = next
	return out, nil
}

// symmetrize replaces p with (p + pᵀ)/2 in place.
func symmetrize(p *mat.Dense) {
	n, _ := p.Dims()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			avg := 0.5 * (p.At(i, j) + p.At(j, i))
			p.Set(i, j, avg)
			p.Set(j, i, avg)
		}
	}
}
