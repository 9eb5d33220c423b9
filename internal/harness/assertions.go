package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/hqp/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Trace    []ir.TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] level %d %s\n", ev.Seq, ev.Level, transition(ev))
		}
	}
	return buf.String()
}

func transition(ev ir.TraceEvent) string {
	return ev.From + "->" + ev.To
}

// assertDiagnostic checks that the named level carries the diagnostic.
func assertDiagnostic(sol *ir.Solution, a Assertion) error {
	l, ok := sol.Level(a.Level)
	if !ok {
		return &AssertionError{
			Type:     AssertDiagnostic,
			Expected: fmt.Sprintf("level %q", a.Level),
			Actual:   "no such level",
		}
	}
	if l.HasDiagnostic(ir.Diagnostic(a.Diagnostic)) {
		return nil
	}
	return &AssertionError{
		Type:     AssertDiagnostic,
		Expected: fmt.Sprintf("level %q has %s", a.Level, a.Diagnostic),
		Actual:   fmt.Sprintf("diagnostics %v", l.Diagnostics),
	}
}

// assertTraceCount checks the number of transitions into a state.
func assertTraceCount(trace []ir.TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.To == a.To {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d transitions to %s", a.Count, a.To),
			Actual:   fmt.Sprintf("%d transitions", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that transitions appear in the given order.
// Transitions don't need to be consecutive.
func assertTraceOrder(trace []ir.TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Transitions) && transition(ev) == a.Transitions[next] {
			next++
		}
	}
	if next == len(a.Transitions) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("transitions in order: %v", a.Transitions),
		Actual:   fmt.Sprintf("missing %s after position %d", a.Transitions[next], next),
		Trace:    trace,
	}
}

// EvaluateAssertions evaluates all assertions against a solution.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(sol *ir.Solution, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertDiagnostic:
			err = assertDiagnostic(sol, a)
		case AssertTraceCount:
			err = assertTraceCount(sol.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(sol.Trace, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
