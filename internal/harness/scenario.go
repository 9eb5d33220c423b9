package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultTolerance applies when a scenario does not set one.
const DefaultTolerance = 1e-6

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Stack is the CUE stack file or directory, relative to the scenario.
	Stack string `yaml:"stack"`

	// Tolerance bounds numeric comparisons. Zero means DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Expect states the solve outcome.
	Expect Expect `yaml:"expect"`

	// Assertions validate the cascade trace and level diagnostics.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect specifies the expected solve outcome.
// Nil fields are not checked.
type Expect struct {
	// Error is the expected solve error code. When set, the solve must
	// fail with this code and nothing else is checked.
	Error string `yaml:"error,omitempty"`

	Command  []float64     `yaml:"command,omitempty"`
	Feasible *bool         `yaml:"feasible,omitempty"`
	Levels   []LevelExpect `yaml:"levels,omitempty"`
}

// LevelExpect checks one level report, matched by name.
type LevelExpect struct {
	Name             string   `yaml:"name"`
	Feasible         *bool    `yaml:"feasible,omitempty"`
	FullyConstrained *bool    `yaml:"fully_constrained,omitempty"`
	Rank             *int     `yaml:"rank,omitempty"`
	NullRank         *int     `yaml:"null_rank,omitempty"`
	Residual         *float64 `yaml:"residual,omitempty"`
}

// Assertion validates the trace or the level diagnostics.
type Assertion struct {
	// Type specifies the assertion type:
	// - "diagnostic": Check a level carries a diagnostic
	// - "trace_count": Check the number of transitions into a state
	// - "trace_order": Check transitions appear in order
	Type string `yaml:"type"`

	// Level is the level name (used by diagnostic).
	Level string `yaml:"level,omitempty"`

	// Diagnostic is the expected diagnostic code (used by diagnostic).
	Diagnostic string `yaml:"diagnostic,omitempty"`

	// To is the target state (used by trace_count).
	To string `yaml:"to,omitempty"`

	// Count is the expected number of transitions (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Transitions lists "from->to" pairs that must appear in this order,
	// not necessarily adjacent (used by trace_order).
	Transitions []string `yaml:"transitions,omitempty"`
}

// Assertion type constants.
const (
	AssertDiagnostic = "diagnostic"
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// The stack path is resolved relative to the scenario file. Returns an
// error if the file doesn't exist, is malformed, contains unknown fields
// (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Stack != "" && !filepath.IsAbs(scenario.Stack) {
		scenario.Stack = filepath.Join(filepath.Dir(path), scenario.Stack)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// tolerance returns the effective comparison tolerance.
func (s *Scenario) tolerance() float64 {
	if s.Tolerance > 0 {
		return s.Tolerance
	}
	return DefaultTolerance
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Stack == "" {
		return fmt.Errorf("stack is required")
	}
	if _, err := os.Stat(s.Stack); os.IsNotExist(err) {
		return fmt.Errorf("stack file not found: %s", s.Stack)
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative")
	}

	e := s.Expect
	if e.Error == "" && e.Command == nil && e.Feasible == nil && len(e.Levels) == 0 {
		return fmt.Errorf("expect must state an error or at least one outcome")
	}
	if e.Error != "" && (e.Command != nil || e.Feasible != nil || len(e.Levels) > 0) {
		return fmt.Errorf("expect.error cannot be combined with other expectations")
	}
	for i, l := range e.Levels {
		if l.Name == "" {
			return fmt.Errorf("expect.levels[%d]: name is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDiagnostic:
		if a.Level == "" || a.Diagnostic == "" {
			return fmt.Errorf("assertions[%d]: level and diagnostic are required for diagnostic", index)
		}
	case AssertTraceCount:
		if a.To == "" {
			return fmt.Errorf("assertions[%d]: to is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Transitions) == 0 {
			return fmt.Errorf("assertions[%d]: transitions list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
