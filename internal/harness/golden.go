package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/hqp/internal/ir"
)

// Snapshot is the golden form of a scenario run.
// Floats are fixed to six decimals so snapshots are stable across
// platforms and BLAS implementations.
type Snapshot struct {
	ScenarioName string
	Result       *Result
}

// fixed formats f with six decimals and no negative zero.
func fixed(f float64) string {
	s := fmt.Sprintf("%.6f", f)
	if s == "-0.000000" {
		return "0.000000"
	}
	return s
}

func fixedList(fs []float64) []any {
	out := make([]any, len(fs))
	for i, f := range fs {
		out[i] = fixed(f)
	}
	return out
}

// toCanonicalMap converts a Snapshot to the plain shape ir.MarshalCanonical
// accepts.
func (s *Snapshot) toCanonicalMap() map[string]any {
	out := map[string]any{
		"scenario_name": s.ScenarioName,
		"pass":          s.Result.Pass,
	}
	if s.Result.ErrorCode != "" {
		out["error_code"] = s.Result.ErrorCode
	}
	sol := s.Result.Solution
	if sol == nil {
		return out
	}

	levels := make([]any, len(sol.Levels))
	for i, l := range sol.Levels {
		diags := make([]any, len(l.Diagnostics))
		for j, d := range l.Diagnostics {
			diags[j] = string(d)
		}
		levels[i] = map[string]any{
			"name":              l.Name,
			"kind":              string(l.Kind),
			"rank":              l.Rank,
			"null_rank":         l.NullRank,
			"feasible":          l.Feasible,
			"fully_constrained": l.FullyConstrained,
			"residual":          fixed(l.Residual),
			"final_residual":    fixed(l.FinalResidual),
			"slack":             fixed(l.Slack),
			"final_slack":       fixed(l.FinalSlack),
			"diagnostics":       diags,
		}
	}
	trace := make([]any, len(sol.Trace))
	for i, ev := range sol.Trace {
		trace[i] = fmt.Sprintf("%d:%d:%s", ev.Seq, ev.Level, transition(ev))
	}

	out["command"] = fixedList(sol.Command)
	out["feasible"] = sol.Feasible()
	out["levels"] = levels
	out["trace"] = trace
	return out
}

// Bytes returns the canonical JSON written to golden files.
func (s *Snapshot) Bytes() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the snapshot against a
// golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{ScenarioName: scenarioName, Result: result}
	data, err := snapshot.Bytes()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
