// Package testutil provides shared fixtures for solver tests: the reference
// stacks with known solutions, rapid generators for random stacks, and
// tolerance-aware matrix assertions.
//
// Nothing here is imported by production code.
package testutil
