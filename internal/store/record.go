package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/hqp/internal/ir"
)

// SolveRecord is one stored cascade.
// Levels and Trace are filled by WriteSolve's caller and by ReadLevels and
// ReadTrace; ReadSolve and ListSolves leave them nil.
type SolveRecord struct {
	ID            string
	Seq           int64
	StackHash     string
	SettingsHash  string
	SolutionHash  string
	Stack         ir.TaskStack
	Settings      ir.SolverSettings
	Command       []float64
	Feasible      bool
	EngineVersion string
	IRVersion     string

	Levels []ir.LevelReport
	Trace  []ir.TraceEvent
}

// NewSolveRecord builds the record for a finished solve.
// settings should be the resolved settings the solve actually ran with, so
// that a replay reproduces it exactly.
func NewSolveRecord(stack ir.TaskStack, settings ir.SolverSettings, sol *ir.Solution) (SolveRecord, error) {
	stackHash, err := ir.StackHash(stack)
	if err != nil {
		return SolveRecord{}, fmt.Errorf("new solve record: %w", err)
	}
	settingsHash, err := ir.SettingsHash(settings)
	if err != nil {
		return SolveRecord{}, fmt.Errorf("new solve record: %w", err)
	}
	solutionHash, err := ir.SolutionHash(sol)
	if err != nil {
		return SolveRecord{}, fmt.Errorf("new solve record: %w", err)
	}
	return SolveRecord{
		StackHash:     stackHash,
		SettingsHash:  settingsHash,
		SolutionHash:  solutionHash,
		Stack:         stack,
		Settings:      settings,
		Command:       sol.Command,
		Feasible:      sol.Feasible(),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
		Levels:        sol.Levels,
		Trace:         sol.Trace,
	}, nil
}

// marshalCanonical converts a value to canonical JSON TEXT for storage.
func marshalCanonical(what string, v any) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return string(data), nil
}

// The canonical forms use the same field names as the json tags, so
// encoding/json reads them back.

func unmarshalStack(data string) (ir.TaskStack, error) {
	var s ir.TaskStack
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return ir.TaskStack{}, fmt.Errorf("unmarshal stack: %w", err)
	}
	return s, nil
}

func unmarshalSettings(data string) (ir.SolverSettings, error) {
	var s ir.SolverSettings
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return ir.SolverSettings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, nil
}

func unmarshalFloats(what, data string) ([]float64, error) {
	out := []float64{}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return out, nil
}

func unmarshalDiagnostics(data string) ([]ir.Diagnostic, error) {
	var raw []string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal diagnostics: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]ir.Diagnostic, len(raw))
	for i, d := range raw {
		out[i] = ir.Diagnostic(d)
	}
	return out, nil
}
