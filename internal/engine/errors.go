package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/hqp/internal/ir"
)

// SolveError reports a solve that produced no Solution.
//
// Non-fatal conditions (rank-degenerate or infeasible levels) are never
// SolveErrors; they appear as diagnostics on the Solution instead.
type SolveError struct {
	// Code identifies the error category.
	Code SolveErrorCode

	// Message is a human-readable description.
	Message string

	// Level is the failing level index, or -1 when the stack as a whole
	// was rejected before any level ran.
	Level int

	// Task is the failing level's label, if any.
	Task string

	// Violations lists every defect found when validation failed.
	Violations []ir.Violation

	// Err is the underlying cause, such as a *qp.EngineError.
	Err error
}

// SolveErrorCode categorizes solve errors.
type SolveErrorCode string

const (
	// ErrCodeShapeMismatch indicates inconsistent dimensions in the stack.
	ErrCodeShapeMismatch SolveErrorCode = "SHAPE_MISMATCH"

	// ErrCodeInvalidTask indicates a task with invalid content: non-finite
	// values, crossed bounds, an unknown kind or a bad weight.
	ErrCodeInvalidTask SolveErrorCode = "INVALID_TASK"

	// ErrCodeEngineFailure indicates the QP engine or the SVD broke down.
	ErrCodeEngineFailure SolveErrorCode = "ENGINE_FAILURE"
)

// Error implements the error interface.
func (e *SolveError) Error() string {
	if e.Level >= 0 && e.Task != "" {
		return fmt.Sprintf("%s: %s (level=%d, task=%s)", e.Code, e.Message, e.Level, e.Task)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *SolveError) Unwrap() error {
	return e.Err
}

// IsShapeMismatch returns true if err is a SHAPE_MISMATCH solve error.
// Uses errors.As to handle wrapped errors.
func IsShapeMismatch(err error) bool {
	return hasCode(err, ErrCodeShapeMismatch)
}

// IsInvalidTask returns true if err is an INVALID_TASK solve error.
func IsInvalidTask(err error) bool {
	return hasCode(err, ErrCodeInvalidTask)
}

// IsEngineFailure returns true if err is an ENGINE_FAILURE solve error.
func IsEngineFailure(err error) bool {
	return hasCode(err, ErrCodeEngineFailure)
}

// CodeOf returns the code of a solve error anywhere in err's chain.
func CodeOf(err error) (SolveErrorCode, bool) {
	var se *SolveError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return "", false
}

func hasCode(err error, code SolveErrorCode) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}

// NewValidationError creates a SolveError from stack violations.
// Shape problems take precedence: a stack with any SHAPE_MISMATCH violation
// is reported as SHAPE_MISMATCH.
func NewValidationError(violations []ir.Violation) *SolveError {
	code := ErrCodeInvalidTask
	msgs := make([]string, len(violations))
	for i, v := range violations {
		if v.Code == ir.ViolationShape {
			code = ErrCodeShapeMismatch
		}
		msgs[i] = v.Error()
	}
	return &SolveError{
		Code:       code,
		Message:    strings.Join(msgs, "; "),
		Level:      -1,
		Violations: violations,
	}
}

// NewEngineFailure creates a SolveError for a level whose QP or SVD failed.
func NewEngineFailure(level int, task string, err error) *SolveError {
	return &SolveError{
		Code:    ErrCodeEngineFailure,
		Message: err.Error(),
		Level:   level,
		Task:    task,
		Err:     err,
	}
}
