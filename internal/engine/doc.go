// Package engine implements the hierarchical cascade.
//
// A solve walks the task stack from the highest priority down. For level k
// it projects J_k into the null space P_{k-1} left by the levels above,
// solves the level QP in that null space, adds the step to the command and
// narrows the null space to P_k. Lower levels can therefore never disturb
// what higher levels achieved.
//
// ARCHITECTURE:
//
// Per-level state machine:
// Every level moves Pending -> Projected -> Solved, then either Pending for
// the next level or Done after the last. Transitions are validated and
// stamped by a logical Clock into Solution.Trace, so two solves of the same
// stack produce identical traces.
//
// Graceful degradation:
// A level with no remaining freedom is reported RANK_DEGENERATE and
// contributes no step. A level whose constraints cannot be met is reported
// LEVEL_INFEASIBLE and contributes its unconstrained step. Neither aborts
// the cascade.
//
// Fatal errors:
// An invalid stack is rejected before any level runs (SHAPE_MISMATCH or
// INVALID_TASK). A QP engine or SVD breakdown aborts with ENGINE_FAILURE.
//
// Determinism:
// No state survives between solves. Levels, rows and constraints are visited
// in index order, and nothing inside a solve runs concurrently.
package engine
