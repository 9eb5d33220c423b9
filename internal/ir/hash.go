package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future encoding change.
const (
	DomainStack    = "hqp/stack/v1"
	DomainSettings = "hqp/settings/v1"
	DomainSolution = "hqp/solution/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StackHash identifies a task stack by content.
// Two stacks with the same tasks in the same order hash identically.
func StackHash(s TaskStack) (string, error) {
	canonical, err := MarshalCanonical(s.Canonical())
	if err != nil {
		return "", fmt.Errorf("StackHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainStack, canonical), nil
}

// SettingsHash identifies solver settings by content.
func SettingsHash(s SolverSettings) (string, error) {
	canonical, err := MarshalCanonical(s.Canonical())
	if err != nil {
		return "", fmt.Errorf("SettingsHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSettings, canonical), nil
}

// SolutionHash identifies a solution by its command and level reports.
// The trace is excluded: it records how the cascade ran, not what it found.
func SolutionHash(sol *Solution) (string, error) {
	canonical, err := MarshalCanonical(sol.Canonical())
	if err != nil {
		return "", fmt.Errorf("SolutionHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSolution, canonical), nil
}

// MustStackHash is like StackHash but panics on error.
// Use only in tests or when the stack already passed Check.
func MustStackHash(s TaskStack) string {
	h, err := StackHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

// MustSolutionHash is like SolutionHash but panics on error.
func MustSolutionHash(sol *Solution) string {
	h, err := SolutionHash(sol)
	if err != nil {
		panic(err)
	}
	return h
}

// Canonical returns the task in the plain shape MarshalCanonical accepts.
// Absent optional fields are omitted rather than written as null.
func (t Task) Canonical() map[string]any {
	obj := map[string]any{
		"kind":     string(t.Kind),
		"jacobian": t.Jacobian,
	}
	if t.Name != "" {
		obj["name"] = t.Name
	}
	if t.Reference != nil {
		obj["reference"] = t.Reference
	}
	if t.Lower.Present() {
		obj["lower"] = t.Lower
	}
	if t.Upper.Present() {
		obj["upper"] = t.Upper
	}
	if t.Weight != nil {
		obj["weight"] = t.Weight
	}
	return obj
}

// Canonical returns the stack in the plain shape MarshalCanonical accepts.
func (s TaskStack) Canonical() map[string]any {
	tasks := make([]any, len(s.Tasks))
	for i, t := range s.Tasks {
		tasks[i] = t.Canonical()
	}
	return map[string]any{"tasks": tasks}
}

// Canonical returns the settings in the plain shape MarshalCanonical accepts.
func (s SolverSettings) Canonical() map[string]any {
	return map[string]any{
		"rank_threshold":        s.RankThreshold,
		"zero_tolerance":        s.ZeroTolerance,
		"regularization":        s.Regularization,
		"feasibility_tolerance": s.FeasibilityTolerance,
		"max_iterations":        s.MaxIterations,
	}
}

// Canonical returns the level report without the projector.
func (r LevelReport) Canonical() map[string]any {
	diags := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		diags[i] = string(d)
	}
	singular := r.SingularValues
	if singular == nil {
		singular = []float64{}
	}
	return map[string]any{
		"index":              r.Index,
		"name":               r.Name,
		"kind":               string(r.Kind),
		"rank":               r.Rank,
		"null_rank":          r.NullRank,
		"residual":           r.Residual,
		"final_residual":     r.FinalResidual,
		"slack":              r.Slack,
		"final_slack":        r.FinalSlack,
		"feasible":           r.Feasible,
		"fully_constrained":  r.FullyConstrained,
		"iterations":         r.Iterations,
		"active_constraints": r.ActiveConstraints,
		"singular_values":    singular,
		"diagnostics":        diags,
	}
}

// Canonical returns the solution without its trace.
func (sol *Solution) Canonical() map[string]any {
	levels := make([]any, len(sol.Levels))
	for i, l := range sol.Levels {
		levels[i] = l.Canonical()
	}
	command := sol.Command
	if command == nil {
		command = []float64{}
	}
	return map[string]any{
		"command":    command,
		"levels":     levels,
		"stack_hash": sol.StackHash,
	}
}
