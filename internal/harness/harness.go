package harness

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/hqp/internal/compiler"
	"github.com/roach88/hqp/internal/engine"
	"github.com/roach88/hqp/internal/ir"
)

// Run executes a test scenario and returns the result.
//
// The stack is compiled and solved with a fresh engine configured from the
// stack file's solver block. Mismatches are collected in the Result; an
// error is returned only when the stack file cannot be compiled.
func Run(scenario *Scenario) (*Result, error) {
	compiled, err := compiler.Load(scenario.Stack)
	if err != nil {
		return nil, fmt.Errorf("failed to load stack: %w", err)
	}

	solver := engine.New(
		engine.WithSettings(compiled.Settings),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)
	sol, err := solver.Solve(compiled.Stack)

	result := NewResult(scenario.Name)
	want := scenario.Expect
	if err != nil {
		code, ok := engine.CodeOf(err)
		if !ok {
			return nil, fmt.Errorf("solve: %w", err)
		}
		result.ErrorCode = string(code)
		if want.Error == "" {
			result.AddError(fmt.Sprintf("solve failed: %v", err))
		} else if want.Error != result.ErrorCode {
			result.AddError(fmt.Sprintf("error code: expected %s, got %s", want.Error, result.ErrorCode))
		}
		return result, nil
	}
	result.Solution = sol
	if want.Error != "" {
		result.AddError(fmt.Sprintf("expected error %s, solve succeeded", want.Error))
		return result, nil
	}

	checkSolution(result, scenario, sol)
	for _, msg := range EvaluateAssertions(sol, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func checkSolution(result *Result, scenario *Scenario, sol *ir.Solution) {
	tol := scenario.tolerance()
	want := scenario.Expect

	if want.Command != nil {
		if len(want.Command) != len(sol.Command) {
			result.AddError(fmt.Sprintf("command: expected length %d, got %d", len(want.Command), len(sol.Command)))
		} else {
			for i := range want.Command {
				if math.Abs(want.Command[i]-sol.Command[i]) > tol {
					result.AddError(fmt.Sprintf("command[%d]: expected %g, got %g", i, want.Command[i], sol.Command[i]))
				}
			}
		}
	}
	if want.Feasible != nil && *want.Feasible != sol.Feasible() {
		result.AddError(fmt.Sprintf("feasible: expected %t, got %t", *want.Feasible, sol.Feasible()))
	}

	for _, lw := range want.Levels {
		got, ok := sol.Level(lw.Name)
		if !ok {
			result.AddError(fmt.Sprintf("level %q: not found", lw.Name))
			continue
		}
		prefix := fmt.Sprintf("level %q", lw.Name)
		if lw.Feasible != nil && *lw.Feasible != got.Feasible {
			result.AddError(fmt.Sprintf("%s feasible: expected %t, got %t", prefix, *lw.Feasible, got.Feasible))
		}
		if lw.FullyConstrained != nil && *lw.FullyConstrained != got.FullyConstrained {
			result.AddError(fmt.Sprintf("%s fully_constrained: expected %t, got %t", prefix, *lw.FullyConstrained, got.FullyConstrained))
		}
		if lw.Rank != nil && *lw.Rank != got.Rank {
			result.AddError(fmt.Sprintf("%s rank: expected %d, got %d", prefix, *lw.Rank, got.Rank))
		}
		if lw.NullRank != nil && *lw.NullRank != got.NullRank {
			result.AddError(fmt.Sprintf("%s null_rank: expected %d, got %d", prefix, *lw.NullRank, got.NullRank))
		}
		if lw.Residual != nil && math.Abs(*lw.Residual-got.Residual) > tol {
			result.AddError(fmt.Sprintf("%s residual: expected %g, got %g", prefix, *lw.Residual, got.Residual))
		}
	}
}

// RunDir loads and runs every *.yaml scenario in dir, in file name order.
// Loading stops at the first malformed scenario; run failures are
// reported per scenario.
func RunDir(dir string) ([]*Result, error) {
	paths, err := ScenarioFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}

	results := make([]*Result, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return results, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		r, err := Run(s)
		if err != nil {
			return results, fmt.Errorf("%s: %w", s.Name, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// ScenarioFiles returns the *.yaml and *.yml files in dir, sorted.
func ScenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
