package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hqp/internal/engine"
	"github.com/roach88/hqp/internal/ir"
	"github.com/roach88/hqp/internal/store"
	"github.com/roach88/hqp/internal/testutil"
)

// seedStore records one solve per stack; tamper overwrites the stored
// solution hash of the solve at that index.
func seedStore(t *testing.T, tamper int, stacks ...ir.TaskStack) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "hqp.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	for i, stack := range stacks {
		solver := engine.New(engine.WithLogger((&RootOptions{}).Logger()))
		sol, err := solver.Solve(stack)
		require.NoError(t, err)
		rec, err := store.NewSolveRecord(stack, solver.Settings(), sol)
		require.NoError(t, err)
		if i == tamper {
			rec.SolutionHash = "0000"
		}
		_, err = st.WriteSolve(context.Background(), rec)
		require.NoError(t, err)
	}
	return dbPath
}

func TestReplayMissingDatabaseFlag(t *testing.T) {
	_, err := execute(NewReplayCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayMissingDatabaseFile(t *testing.T) {
	_, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestReplayEmptyDatabase(t *testing.T) {
	dbPath := seedStore(t, -1)

	out, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No solves found")
}

func TestReplayDeterministic(t *testing.T) {
	dbPath := seedStore(t, -1, testutil.OrthogonalStack(), testutil.ConflictStack(), testutil.InfeasibleStack())

	out, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 3 solve(s)")
	assert.Contains(t, out, "✓ All solves verified deterministic")
}

func TestReplayDetectsMismatch(t *testing.T) {
	dbPath := seedStore(t, 1, testutil.OrthogonalStack(), testutil.CoupledStack())

	out, err := execute(NewReplayCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ReplayResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeDeterminism, resp.Error.Code)
	assert.False(t, result.AllDeterministic)
	require.Len(t, result.Solves, 2)
	assert.True(t, result.Solves[0].Deterministic)
	assert.False(t, result.Solves[1].Deterministic)
	assert.Equal(t, "0000", result.Solves[1].Expected)
}

func TestReplayTextShowsMismatch(t *testing.T) {
	dbPath := seedStore(t, 0, testutil.OrthogonalStack())

	out, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.Error(t, err)
	assert.Contains(t, out, "expected 0000")
	assert.Contains(t, out, "✗ Determinism verification failed")
}
