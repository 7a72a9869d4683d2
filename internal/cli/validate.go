package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syndata/syndata/internal/schema"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-file>",
		Short: "Validate a schema document without generating anything",
		Long: `Validate a schema document (JSON or YAML).

Checks the document shape, confidence ranges, component references
(including circular reference detection), and generation rules. Warnings
do not fail validation; errors do.`,
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
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	def, err := LoadDocument(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, detailOf(loadErr.Err))
			return WrapExitError(ExitCommandError, loadErr.Message, loadErr.Err)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load failed", err)
	}

	mode := "flat"
	if def.IsDynamic() {
		mode = "dynamic"
	}
	formatter.VerboseLog("Loaded %s schema from %s", mode, path)

	result := schema.Validate(def)
	return outputValidation(formatter, result)
}

func detailOf(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

// outputValidation renders a validation result and maps it to an exit
// code: 0 for valid (warnings allowed), 1 for invalid.
func outputValidation(formatter *OutputFormatter, result schema.ValidationResult) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeValidation,
				Message: fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)),
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
		if !result.Valid {
			return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
		}
		return nil
	}

	// Text format
	if result.Valid {
		fmt.Fprintln(formatter.Writer, "✓ Schema valid")
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	}

	for _, msg := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  error: %s\n", msg)
	}
	for _, msg := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning: %s\n", msg)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}
