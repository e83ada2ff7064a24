package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/eigen/internal/compiler"
	"github.com/roach88/eigen/internal/hostlib"
)

// CheckResult holds the outcome of checking a bundle directory.
type CheckResult struct {
	Valid   bool                       `json:"valid"`
	Files   int                        `json:"files"`
	Modules []string                   `json:"modules"`
	Classes []string                   `json:"classes"`
	Hash    string                     `json:"hash"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <bundle-dir>",
		Short: "Compile and validate a bundle without running it",
		Long: `Compile every .cue file in a bundle directory and validate the result.

Reports malformed declarations, invalid or duplicate names, unknown
superclasses, mixins and host functions, and superclass/include cycles.

Exit codes:
  0 - Bundle is valid
  1 - Bundle has errors
  2 - Command error (directory missing, no .cue files)

Examples:
  eigen check ./bundle
  eigen check ./bundle --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadBundle(dir)
	if err != nil {
		return reportLoadError(f, err)
	}
	f.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	result := CheckResult{
		Files:   loaded.FileCount,
		Modules: []string{},
		Classes: []string{},
		Hash:    loaded.Hash,
		Errors:  CheckBundle(loaded.Bundle, hostlib.Default()),
	}
	for _, m := range loaded.Bundle.Modules {
		result.Modules = append(result.Modules, m.Name)
	}
	for _, c := range loaded.Bundle.Classes {
		result.Classes = append(result.Classes, c.Name)
	}
	result.Valid = len(result.Errors) == 0

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: result.Errors[0].Code, Message: fmt.Sprintf("%d error(s)", len(result.Errors))}
		}
		if err := f.JSON(resp); err != nil {
			return err
		}
	} else {
		w := f.Writer
		if result.Valid {
			fmt.Fprintf(w, "%s bundle OK: %d module(s), %d class(es) in %d file(s)\n",
				f.Style.Pass("✓"), len(result.Modules), len(result.Classes), result.Files)
			fmt.Fprintf(w, "  %s\n", f.Style.Dim("hash "+result.Hash))
		} else {
			fmt.Fprintf(w, "%s bundle has %d error(s):\n", f.Style.Fail("✗"), len(result.Errors))
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s\n", e.Error())
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("bundle has %d error(s)", len(result.Errors)))
	}
	return nil
}

// reportLoadError prints a load failure and picks its exit code: missing
// input is a command error, broken input a failure.
func reportLoadError(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "load failed", err)
	}
	_ = f.Error(loadErr.Code, loadErr.Error(), nil)

	switch loadErr.Code {
	case ErrCodeNotFound, ErrCodeNoFiles, ErrCodeScanError:
		return WrapExitError(ExitCommandError, "cannot load bundle", err)
	default:
		return WrapExitError(ExitFailure, "cannot load bundle", err)
	}
}
