package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hqp/internal/ir"
	"github.com/roach88/hqp/internal/testutil"
)

func TestWriteSolve_RoundTrip(t *testing.T) {
	s := createTestStore(t, "solve-1")
	ctx := context.Background()
	rec := solveRecord(t, testutil.ConflictStack())

	id, err := s.WriteSolve(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "solve-1", id)

	got, err := s.ReadSolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Seq)
	assert.Equal(t, rec.StackHash, got.StackHash)
	assert.Equal(t, rec.SettingsHash, got.SettingsHash)
	assert.Equal(t, rec.SolutionHash, got.SolutionHash)
	assert.Equal(t, rec.Stack, got.Stack)
	assert.Equal(t, rec.Settings, got.Settings)
	assert.Equal(t, rec.Command, got.Command)
	assert.Equal(t, rec.Feasible, got.Feasible)
	assert.Equal(t, ir.EngineVersion, got.EngineVersion)
	assert.Equal(t, ir.IRVersion, got.IRVersion)

	// The stored stack hashes to the stored hash.
	assert.Equal(t, got.StackHash, ir.MustStackHash(got.Stack))
}

func TestWriteSolve_AssignsIncreasingSeq(t *testing.T) {
	s := createTestStore(t, "b", "a", "c")
	ctx := context.Background()

	for _, stack := range []ir.TaskStack{
		testutil.OrthogonalStack(),
		testutil.CoupledStack(),
		testutil.BoundedStack(),
	} {
		_, err := s.WriteSolve(ctx, solveRecord(t, stack))
		require.NoError(t, err)
	}

	recs, err := s.ListSolves(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, want := range []string{"b", "a", "c"} {
		assert.Equal(t, want, recs[i].ID)
		assert.Equal(t, int64(i+1), recs[i].Seq)
	}

	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)
}

func TestWriteSolve_InfiniteBoundsSurvive(t *testing.T) {
	s := createTestStore(t, "solve-1")
	ctx := context.Background()
	stack := ir.NewTaskStack(
		testutil.Inequality("cap", [][]float64{{1, 0}, {0, 1}},
			ir.Bounds{-testutil.Inf(), 0}, ir.Bounds{1, testutil.Inf()}),
		testutil.Equality("track", [][]float64{{1, 1}}, 5),
	)
	rec := solveRecord(t, stack)

	id, err := s.WriteSolve(ctx, rec)
	require.NoError(t, err)

	got, err := s.ReadSolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec.Stack, got.Stack)
}

func TestWriteSolve_DuplicateIDRollsBack(t *testing.T) {
	s := createTestStore(t, "same", "same")
	ctx := context.Background()
	rec := solveRecord(t, testutil.CoupledStack())

	_, err := s.WriteSolve(ctx, rec)
	require.NoError(t, err)
	_, err = s.WriteSolve(ctx, rec)
	require.Error(t, err)

	var levels int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM levels`).Scan(&levels))
	assert.Equal(t, len(rec.Levels), levels, "failed write must not leave levels behind")
}

func TestReadSolve_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSolve(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestNewSolveRecord_Hashes(t *testing.T) {
	stack := testutil.OrthogonalStack()
	rec := solveRecord(t, stack)

	assert.Equal(t, ir.MustStackHash(stack), rec.StackHash)
	assert.Len(t, rec.SettingsHash, 64)
	assert.Len(t, rec.SolutionHash, 64)
	assert.True(t, rec.Feasible)
	assert.Len(t, rec.Levels, 2)
	assert.Len(t, rec.Trace, 6)
}
