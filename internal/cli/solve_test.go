package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hqp/internal/ir"
	"github.com/roach88/hqp/internal/store"
)

func TestSolveText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stack.cue", conflictStack)

	out, err := execute(NewSolveCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ command: [3, -1]")
	assert.Contains(t, out, "LEVEL")
	assert.Contains(t, out, "RANK_DEGENERATE")
	assert.NotContains(t, out, "# TYPE")
}

func TestSolveJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stack.cue", conflictStack)

	out, err := execute(NewSolveCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var result SolveResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, result.Command, 2)
	assert.InDelta(t, 3, result.Command[0], 1e-9)
	assert.InDelta(t, -1, result.Command[1], 1e-9)
	require.Len(t, result.Levels, 3)
	assert.Equal(t, []ir.Diagnostic{ir.DiagRankDegenerate}, result.Levels[2].Diagnostics)
	assert.Empty(t, result.ID)
	assert.Empty(t, result.Projectors)
}

func TestSolveProjectors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stack.cue", conflictStack)

	out, err := execute(NewSolveCommand(&RootOptions{Format: "json"}), "--projectors", path)
	require.NoError(t, err)

	var result SolveResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Projectors, 3)
	// After "x" nothing is left free.
	for _, row := range result.Projectors[1] {
		for _, v := range row {
			assert.InDelta(t, 0, v, 1e-9)
		}
	}
}

func TestSolveRankThresholdOverride(t *testing.T) {
	stack := `stack: [{name: "near", kind: "equality", jacobian: [[1, 0], [1, 1e-6]], reference: [1, 1]}]`
	path := writeFile(t, t.TempDir(), "stack.cue", stack)

	out, err := execute(NewSolveCommand(&RootOptions{Format: "json"}), "--rank-threshold", "1e-3", path)
	require.NoError(t, err)

	var result SolveResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Levels, 1)
	assert.Equal(t, 1, result.Levels[0].Rank)
}

func TestSolveMetrics(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stack.cue", conflictStack)

	out, err := execute(NewSolveCommand(&RootOptions{Format: "text"}), "--metrics", path)
	require.NoError(t, err)

	assert.Contains(t, out, `hqp_solves_total{status="feasible"} 1`)
	assert.Contains(t, out, `hqp_levels_total{kind="equality",outcome="rank_degenerate"} 1`)
}

func TestSolveRecordsToDatabase(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stack.cue", conflictStack)
	dbPath := filepath.Join(dir, "hqp.db")

	out, err := execute(NewSolveCommand(&RootOptions{Format: "json"}), "--db", dbPath, path)
	require.NoError(t, err)

	var result SolveResult
	decodeResponse(t, out, &result)
	require.NotEmpty(t, result.ID)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	rec, err := st.ReadSolve(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Seq)
	assert.Equal(t, result.StackHash, rec.StackHash)
	assert.Equal(t, 1e-9, rec.Settings.RankThreshold)
	assert.NotZero(t, rec.Settings.ZeroTolerance, "defaults are recorded, not zeros")
}

func TestSolveRejectedStack(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stack.cue", raggedStack)

	out, err := execute(NewSolveCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "SHAPE_MISMATCH", resp.Error.Code)
	assert.NotNil(t, resp.Error.Details)
}

func TestSolveCompileError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stack.cue", `stack: [{kind: "sideways", jacobian: [[1]]}]`)

	_, err := execute(NewSolveCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "E200")
}

func TestSolveMissingFile(t *testing.T) {
	_, err := execute(NewSolveCommand(&RootOptions{Format: "text"}), "/nonexistent/stack.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "stack not found")
}

func TestFormatVector(t *testing.T) {
	var negZero float64
	negZero = -negZero
	assert.Equal(t, "[0, 1.5, -2]", formatVector([]float64{negZero, 1.5, -2}))
	assert.Equal(t, "[]", formatVector(nil))
}
