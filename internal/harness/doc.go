// Package harness provides a conformance testing framework for the cascade
// solver.
//
// A scenario is a YAML file that names a CUE stack file and states what the
// solve must produce: the command, per-level ranks and residuals, overall
// feasibility, or the error code of a rejected stack. Run compiles the
// stack, solves it with a fresh engine and collects every mismatch into a
// Result rather than stopping at the first.
//
// # Scenario format
//
//	name: coupled
//	description: equality in the null space of a higher equality
//	stack: ../stacks/coupled.cue
//	tolerance: 1e-6
//	expect:
//	  command: [1, 1]
//	  feasible: true
//	  levels:
//	    - name: sum
//	      rank: 1
//	      null_rank: 1
//	assertions:
//	  - type: trace_count
//	    to: solved
//	    count: 2
//
// Level fields that are omitted are not checked. Paths are resolved
// relative to the scenario file.
//
// # Golden files
//
// RunWithGolden snapshots the solution as canonical JSON with every float
// fixed to six decimals, so that snapshots are stable across platforms
// while still catching real numeric drift. Regenerate with:
//
//	go test ./internal/harness -update
package harness
