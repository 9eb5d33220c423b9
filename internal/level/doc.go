// Package level solves a single priority level inside the null space left
// by the levels above it.
//
// The step is parametrized as δx = V_r·w, where the columns of V_r span the
// row space of the projected Jacobian. Every such step lies in the null space
// of the higher levels, and the least-squares optimum in this basis is the
// minimum-norm one. The level QP is
//
//	minimize   ‖B·w − (ref − J·x_prev)‖²_W
//	subject to lower − J·x_prev ≤ B·w ≤ upper − J·x_prev
//
// with B = J_proj·V_r = U_r·Σ_r. It is solved in z = Σ_r·w, where the
// Hessian U_rᵀ·W·U_r does not depend on the units of J. Optional damping is
// relative to that Hessian. Bound-only tasks drop the tracking term and take
// the smallest step that reaches the feasible region.
package level
