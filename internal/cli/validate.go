package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/movelog/internal/rules"
)

// ValidationError is one problem in a rules file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Rules  *rules.Rules      `json:"rules,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules.cue>",
		Short: "Validate a CUE rules file",
		Long: `Validate a CUE game rules file against the rules schema.

The file must define a top-level "game" struct. Fields it leaves out take
their defaults. On success the resolved rules are printed.

Exit codes:
  0 - Rules are valid
  1 - Rules are invalid
  2 - Command error (file not found)`,
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
	formatter := newFormatter(opts, cmd)
	formatter.VerboseLog("Validating %s", path)

	r, err := rules.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		_ = formatter.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "rules file not found", err)
	}
	if err != nil {
		return outputValidationError(formatter, toValidationError(err))
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Rules: &r})
	}

	w := formatter.Writer
	fmt.Fprintln(w, "Rules valid")
	fmt.Fprintf(w, "  players:           %d\n", r.Players)
	fmt.Fprintf(w, "  recruits:          keep %d of %d\n", r.RecruitsKept, r.RecruitsDealt)
	fmt.Fprintf(w, "  workers:           %d\n", r.Workers)
	fmt.Fprintf(w, "  evaluation stride: %d\n", r.EvaluationStride)
	fmt.Fprintf(w, "  auto start:        %v\n", r.AutoStart)
	fmt.Fprintf(w, "  confirms last:     %v\n", r.ConfirmsLast)
	return nil
}

func toValidationError(err error) ValidationError {
	var re *rules.RulesError
	if !errors.As(err, &re) {
		return ValidationError{Field: "rules", Message: err.Error()}
	}
	ve := ValidationError{Field: re.Field, Message: re.Message}
	if re.Pos.IsValid() {
		ve.Line = re.Pos.Line()
		ve.Column = re.Pos.Column()
	}
	return ve
}

// outputValidationError outputs a validation failure.
func outputValidationError(formatter *OutputFormatter, ve ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: false, Errors: []ValidationError{ve}}
		if err := formatter.Report(result, &CLIError{Code: ErrCodeRules, Message: ve.Message}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "validation failed")
	}

	fmt.Fprintln(formatter.Writer, "Validation failed")
	if ve.Line > 0 {
		fmt.Fprintf(formatter.Writer, "line %d:%d\n", ve.Line, ve.Column)
	}
	fmt.Fprintf(formatter.Writer, "  %s: %s\n", ve.Field, ve.Message)

	return NewExitError(ExitFailure, "validation failed")
}
