package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eigen/internal/harness"
	"github.com/roach88/eigen/internal/hostlib"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // run only scenarios whose name contains this
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "mismatch"
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <bundle-dir> <scenarios-dir>",
		Short: "Run scenario files against a bundle",
		Long: `Run YAML scenarios against a bundle.

The bundle is installed first in every scenario, followed by the
scenario's own bundles. Each scenario's steps and assertions are checked,
and its trace is compared with golden/<scenario-file>.golden when that
file exists.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  eigen test ./bundle ./scenarios
  eigen test ./bundle ./scenarios --filter super
  eigen test ./bundle ./scenarios --update
  eigen test ./bundle ./scenarios --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only scenarios whose name contains this")

	return cmd
}

func runTests(opts *TestOptions, bundleDir, scenariosDir string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", scenariosDir), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	loaded, err := LoadBundle(bundleDir)
	if err != nil {
		return reportLoadError(f, err)
	}
	if errs := CheckBundle(loaded.Bundle, hostlib.Default()); len(errs) > 0 {
		_ = f.Error(errs[0].Code, errs[0].Error(), errs)
		return NewExitError(ExitFailure, fmt.Sprintf("bundle has %d error(s)", len(errs)))
	}

	paths, err := harness.FindScenarios(scenariosDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(paths) == 0 {
		if opts.Format == "json" {
			return f.JSON(CLIResponse{Status: "ok", Data: TestResult{Scenarios: []ScenarioResult{}}})
		}
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return nil
	}

	suite, err := harness.RunSuite(ctx, paths,
		harness.WithBaseBundles(bundleDir),
		harness.WithFilter(opts.Filter),
		harness.WithRunOptions(harness.WithLogger(opts.Logger())),
	)
	if err != nil {
		_ = f.Error(codeOf(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "suite failed", err)
	}

	result := TestResult{Scenarios: []ScenarioResult{}, Skipped: suite.Skipped}
	ran := make(map[string]bool)
	for _, run := range suite.Runs {
		ran[run.Path] = true
		result.Scenarios = append(result.Scenarios, checkScenario(run, opts.Update))
	}
	for _, failure := range suite.Failures {
		if ran[failure.Path] {
			continue
		}
		name := failure.Scenario
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(failure.Path), filepath.Ext(failure.Path))
		}
		result.Scenarios = append(result.Scenarios, ScenarioResult{
			Name:   name,
			Path:   failure.Path,
			Errors: []string{failure.Error},
		})
	}
	for _, s := range result.Scenarios {
		if s.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	result.Total = len(result.Scenarios)

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeTestFailures, Message: fmt.Sprintf("%d scenario(s) failed", result.Failed)}
		}
		if err := f.JSON(resp); err != nil {
			return err
		}
	} else {
		outputTestText(f, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// checkScenario folds the golden comparison into a scenario's result.
func checkScenario(run harness.ScenarioRun, update bool) ScenarioResult {
	sr := ScenarioResult{
		Name:   run.Name,
		Path:   run.Path,
		Pass:   run.Result.Pass,
		Errors: run.Result.Errors,
	}

	snapshot, err := harness.MarshalSnapshot(run.Name, run.Result)
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("cannot snapshot trace: %v", err))
		return sr
	}

	goldenPath := goldenFilePath(run.Path)
	if update {
		if err := writeGolden(goldenPath, snapshot); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, err.Error())
			return sr
		}
		sr.Golden = "updated"
		return sr
	}

	want, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return sr
	}
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		return sr
	}
	if !bytes.Equal(want, snapshot) {
		sr.Pass = false
		sr.Golden = "mismatch"
		sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
		return sr
	}
	sr.Golden = "match"
	return sr
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func outputTestText(f *OutputFormatter, result TestResult) {
	w := f.Writer
	for _, s := range result.Scenarios {
		if s.Pass {
			suffix := ""
			if s.Golden == "updated" {
				suffix = " " + f.Style.Dim("(golden updated)")
			}
			fmt.Fprintf(w, "%s %s%s\n", f.Style.Pass("✓"), s.Name, suffix)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", f.Style.Fail("✗"), s.Name)
		for _, e := range s.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total", result.Passed, result.Failed, result.Total)
	if result.Skipped > 0 {
		fmt.Fprintf(w, " (%d filtered out)", result.Skipped)
	}
	fmt.Fprintln(w)
	if result.Failed == 0 {
		fmt.Fprintf(w, "%s All scenarios passed\n", f.Style.Pass("✓"))
	}
}
