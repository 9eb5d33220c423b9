package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/hqp/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrStackSchema = "E200" // CUE syntax error or schema violation
	ErrStackShape  = "E201" // dimension mismatch between task fields
	ErrStackValue  = "E202" // non-finite entry, crossed bounds, bad weight, unknown kind
	ErrStackEmpty  = "E203" // stack has no tasks
)

// ValidationError represents a stack validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Level   int    `json:"level"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled stack and returns every error found
// (does not fail-fast).
func Validate(stack ir.TaskStack) []ValidationError {
	var errs []ValidationError
	for _, v := range stack.Check() {
		errs = append(errs, fromViolation(v))
	}
	return errs
}

// FromCompileError converts a load or compile failure into a single
// validation error carrying ErrStackSchema.
func FromCompileError(err error) ValidationError {
	e := ValidationError{Field: "stack", Message: err.Error(), Code: ErrStackSchema, Level: -1}
	var ce *CompileError
	if errors.As(err, &ce) {
		e.Field = ce.Field
	}
	return e
}

func fromViolation(v ir.Violation) ValidationError {
	e := ValidationError{
		Field:   v.Field,
		Message: v.Message,
		Level:   v.Level,
	}
	if v.Level >= 0 {
		e.Field = fmt.Sprintf("stack[%d].%s", v.Level, v.Field)
	}

	switch {
	case v.Level < 0 && v.Field == "tasks":
		e.Code = ErrStackEmpty
	case v.Code == ir.ViolationShape:
		e.Code = ErrStackShape
	default:
		e.Code = ErrStackValue
	}
	return e
}
