package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hqp/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Levels int                        `json:"levels,omitempty"`
	Dim    int                        `json:"dim,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a stack without solving it",
		Long: `Validate a CUE stack file or directory without solving it.

Checks CUE syntax and the stack schema, then every dimension and value
rule a solve would enforce. All problems are reported, not just the first.

Error codes:
  E200 - CUE syntax error or schema violation
  E201 - dimension mismatch between task fields
  E202 - invalid value (non-finite entry, crossed bounds, bad weight)
  E203 - empty stack`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(path); err != nil {
		msg := fmt.Sprintf("path not found: %s", path)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", ErrCodeNotFound, msg))
	}

	compiled, err := compiler.Load(path)
	if err != nil {
		return outputValidationErrors(formatter, []compiler.ValidationError{compiler.FromCompileError(err)})
	}
	formatter.VerboseLog("Compiled %d level(s) from %s", compiled.Stack.Len(), path)

	if errs := compiler.Validate(compiled.Stack); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	result := ValidationResult{Valid: true, Levels: compiled.Stack.Len(), Dim: compiled.Stack.Dim()}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Stack valid: %d level(s), command dimension %d\n", result.Levels, result.Dim)
	return nil
}

// outputValidationErrors outputs every validation error and fails with
// exit code 1.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.JSON() {
		_ = formatter.Failure(errs[0].Code, "validation failed", ValidationResult{Valid: false, Errors: errs})
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Validation failed with %d error(s):\n", len(errs))
		for _, e := range errs {
			fmt.Fprintf(formatter.Writer, "  [%s] %s: %s\n", e.Code, e.Field, e.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
