package qp

import (
	"errors"
	"fmt"
)

// Mode classifies engine failures.
type Mode string

const (
	// ModeBadArgument indicates a malformed problem: wrong dimensions or
	// non-finite data.
	ModeBadArgument Mode = "BAD_ARGUMENT"

	// ModeNotConvex indicates the Hessian is not positive definite.
	ModeNotConvex Mode = "NOT_CONVEX"

	// ModeDegenerateActiveSet indicates the active constraint normals became
	// numerically dependent.
	ModeDegenerateActiveSet Mode = "DEGENERATE_ACTIVE_SET"

	// ModeMaxIterations indicates the iteration cap was reached.
	ModeMaxIterations Mode = "MAX_ITERATIONS"
)

// EngineError reports a QP that could not be solved at all.
// Infeasibility is not an EngineError; see Status.
type EngineError struct {
	Mode    Mode
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("qp %s: %s", e.Mode, e.Message)
}

// NewBadArgument creates a BAD_ARGUMENT error.
func NewBadArgument(msg string) *EngineError {
	return &EngineError{Mode: ModeBadArgument, Message: msg}
}

// NewNotConvex creates a NOT_CONVEX error.
func NewNotConvex(msg string) *EngineError {
	return &EngineError{Mode: ModeNotConvex, Message: msg}
}

// NewDegenerateActiveSet creates a DEGENERATE_ACTIVE_SET error.
func NewDegenerateActiveSet(msg string) *EngineError {
	return &EngineError{Mode: ModeDegenerateActiveSet, Message: msg}
}

// NewMaxIterations creates a MAX_ITERATIONS error.
func NewMaxIterations(limit int) *EngineError {
	return &EngineError{Mode: ModeMaxIterations, Message: fmt.Sprintf("no convergence within %d iterations", limit)}
}

// ModeOf returns the mode of an engine error anywhere in err's chain.
func ModeOf(err error) (Mode, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Mode, true
	}
	return "", false
}
