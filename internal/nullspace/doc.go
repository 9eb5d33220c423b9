// Package nullspace computes the null-space projectors that carry priority
// through the cascade.
//
// Given the accumulated projector P_prev of all higher levels and the
// Jacobian J of the current level, Project returns
//
//	J_proj = J·P_prev
//	J_proj⁺ from a thin SVD, truncated at the numerical rank
//	P      = P_prev − J_proj⁺·J_proj
//
// Any later step δx = P·z leaves J_i·x unchanged for every level i already
// processed. P is recomputed from P_prev at every level; there is no rank-one
// update, so accumulated round-off does not drift across levels.
//
// Numerical rank counts singular values above max(ε·σ_max, ZeroTolerance·‖J‖_F).
// Both cutoffs scale with the Jacobian, so rank does not depend on its units.
// The second one catches a projected Jacobian that is only round-off, where
// σ_max itself is noise.
package nullspace
