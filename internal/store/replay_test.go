package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hqp/internal/engine"
	"github.com/roach88/hqp/internal/ir"
	"github.com/roach88/hqp/internal/testutil"
)

func engineSolve(stack ir.TaskStack, settings ir.SolverSettings) (*ir.Solution, error) {
	return engine.New(engine.WithSettings(settings)).Solve(stack)
}

func TestReplaySolves_Deterministic(t *testing.T) {
	s := createTestStore(t, "s1", "s2")
	ctx := context.Background()
	for _, stack := range []ir.TaskStack{testutil.ConflictStack(), testutil.BoundedStack()} {
		_, err := s.WriteSolve(ctx, solveRecord(t, stack))
		require.NoError(t, err)
	}

	results, err := s.ReplaySolves(ctx, engineSolve)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Match(), "solve %s: expected %s, got %s", r.ID, r.Expected, r.Actual)
	}
	assert.Equal(t, "s1", results[0].ID)
	assert.Equal(t, int64(2), results[1].Seq)
}

func TestReplaySolves_DetectsMismatch(t *testing.T) {
	s := createTestStore(t, "s1")
	ctx := context.Background()
	_, err := s.WriteSolve(ctx, solveRecord(t, testutil.CoupledStack()))
	require.NoError(t, err)

	perturbed := func(stack ir.TaskStack, settings ir.SolverSettings) (*ir.Solution, error) {
		sol, err := engineSolve(stack, settings)
		if err != nil {
			return nil, err
		}
		sol.Command[0] += 1e-3
		return sol, nil
	}

	results, err := s.ReplaySolves(ctx, perturbed)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Match())
	assert.NotEmpty(t, results[0].Actual)
}

func TestReplaySolves_RecordsSolveErrors(t *testing.T) {
	s := createTestStore(t, "s1")
	ctx := context.Background()
	_, err := s.WriteSolve(ctx, solveRecord(t, testutil.CoupledStack()))
	require.NoError(t, err)

	boom := errors.New("boom")
	results, err := s.ReplaySolves(ctx, func(ir.TaskStack, ir.SolverSettings) (*ir.Solution, error) {
		return nil, boom
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Match())
	assert.ErrorIs(t, results[0].Err, boom)
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	var g UUIDv7Generator
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
