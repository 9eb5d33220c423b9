// Package ir provides the value types exchanged with the hierarchical solver.
//
// This package contains type definitions, validation and canonical encoding
// only. All other internal packages import ir; ir imports nothing internal.
// This keeps the data model the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Tasks and stacks are plain values built fresh per control cycle and
//     never mutated once handed to a solve
//   - Priority is position: TaskStack.Tasks[0] is the highest priority
//   - All JSON tags use snake_case
//   - Content-addressed hashes use canonical JSON with domain separation,
//     so identical inputs hash identically across runs and machines
package ir
