package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/hqp/internal/engine"
	"github.com/roach88/hqp/internal/ir"
)

// createTestStore opens a fresh database in a temp dir with fixed IDs.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(NewFixedGenerator(ids...)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// solveRecord runs stack through the default engine and builds its record.
func solveRecord(t *testing.T, stack ir.TaskStack) SolveRecord {
	t.Helper()
	solver := engine.New()
	sol, err := solver.Solve(stack)
	if err != nil {
		t.Fatalf("Solve() failed: %v", err)
	}
	rec, err := NewSolveRecord(stack, solver.Settings(), sol)
	if err != nil {
		t.Fatalf("NewSolveRecord() failed: %v", err)
	}
	return rec
}
