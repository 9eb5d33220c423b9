package metrics

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hqp/internal/engine"
	"github.com/roach88/hqp/internal/ir"
	fixtures "github.com/roach88/hqp/internal/testutil"
)

func solve(t *testing.T, stack ir.TaskStack) *ir.Solution {
	t.Helper()
	sol, err := engine.New().Solve(stack)
	require.NoError(t, err)
	return sol
}

func TestObserveSolution(t *testing.T) {
	c := NewCollector("hqp")
	c.ObserveSolution(solve(t, fixtures.ConflictStack()), 2*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.solvesTotal.WithLabelValues(StatusFeasible)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.levelsTotal.WithLabelValues("equality", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.levelsTotal.WithLabelValues("equality", OutcomeRankDegenerate)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.solveDuration))
}

func TestObserveSolutionInfeasible(t *testing.T) {
	c := NewCollector("hqp")
	c.ObserveSolution(solve(t, fixtures.InfeasibleStack()), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.solvesTotal.WithLabelValues(StatusInfeasible)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.levelsTotal.WithLabelValues("inequality", OutcomeInfeasible)))
}

func TestObserveError(t *testing.T) {
	c := NewCollector("hqp")

	_, err := engine.New().Solve(ir.TaskStack{})
	require.Error(t, err)
	c.ObserveError(err)
	c.ObserveError(errors.New("disk full"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.solvesTotal.WithLabelValues(StatusError)))
	code, _ := engine.CodeOf(err)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errorsTotal.WithLabelValues(string(code))))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errorsTotal.WithLabelValues(codeUnknown)))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := NewCollector("hqp"), NewCollector("hqp")
	a.ObserveError(errors.New("x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(a.errorsTotal.WithLabelValues(codeUnknown)))
	assert.Equal(t, 0, testutil.CollectAndCount(b.errorsTotal))
}

func TestObserveConcurrent(t *testing.T) {
	c := NewCollector("hqp")
	sol := solve(t, fixtures.OrthogonalStack())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				c.ObserveSolution(sol, time.Microsecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200.0, testutil.ToFloat64(c.solvesTotal.WithLabelValues(StatusFeasible)))
}

func TestWriteText(t *testing.T) {
	c := NewCollector("hqp")
	c.ObserveSolution(solve(t, fixtures.CoupledStack()), time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))
	out := buf.String()

	assert.Contains(t, out, "# TYPE hqp_solves_total counter")
	assert.Contains(t, out, `hqp_solves_total{status="feasible"} 1`)
	assert.Contains(t, out, "hqp_solve_duration_seconds_count 1")
	assert.Contains(t, out, "hqp_qp_iterations_count 2")

	err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(`
# HELP hqp_levels_total Total number of solved priority levels
# TYPE hqp_levels_total counter
hqp_levels_total{kind="equality",outcome="ok"} 2
`), "hqp_levels_total")
	assert.NoError(t, err)
}
