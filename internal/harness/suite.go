package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/eigen/internal/engine"
)

// SuiteResult summarizes a run over many scenario files.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Skipped        int               `json:"skipped"` // filtered out
	Failures       []ScenarioFailure `json:"failures,omitempty"`
	Runs           []ScenarioRun     `json:"-"` // every scenario that executed, in order
}

// ScenarioRun is one executed scenario and its result, pass or fail.
type ScenarioRun struct {
	Name   string
	Path   string
	Result *Result
}

// ScenarioFailure describes one failed scenario.
type ScenarioFailure struct {
	Scenario string `json:"scenario"`
	Path     string `json:"path"`
	Error    string `json:"error"`
}

// SuiteOption configures RunSuite.
type SuiteOption func(*suiteConfig)

type suiteConfig struct {
	filter  string
	bundles []string
	run     []Option
}

// WithFilter runs only scenarios whose name contains pattern.
func WithFilter(pattern string) SuiteOption {
	return func(c *suiteConfig) {
		c.filter = pattern
	}
}

// WithBaseBundles installs bundles before each scenario's own bundles.
func WithBaseBundles(paths ...string) SuiteOption {
	return func(c *suiteConfig) {
		c.bundles = append(c.bundles, paths...)
	}
}

// WithRunOptions passes options to every scenario run.
func WithRunOptions(opts ...Option) SuiteOption {
	return func(c *suiteConfig) {
		c.run = append(c.run, opts...)
	}
}

// FindScenarios returns every .yaml and .yml file under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(path)
		if !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find scenarios: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// RunSuite loads and runs the scenario files at paths, in order.
//
// Scenario names must be unique across the suite; a repeated name fails the
// whole suite with DUPLICATE_DEFINITION before anything runs. Load and run
// failures are recorded per scenario.
func RunSuite(ctx context.Context, paths []string, opts ...SuiteOption) (*SuiteResult, error) {
	cfg := &suiteConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	result := &SuiteResult{}

	type loaded struct {
		path     string
		scenario *Scenario
		err      error
	}
	var scenarios []loaded
	seen := make(map[string]string)
	for _, path := range paths {
		scenario, err := LoadScenario(path)
		if err == nil {
			if first, dup := seen[scenario.Name]; dup {
				return nil, fmt.Errorf("%s and %s: %w", first, path,
					engine.NewDuplicateDefinition(scenario.Name, "scenario"))
			}
			seen[scenario.Name] = path
		}
		scenarios = append(scenarios, loaded{path: path, scenario: scenario, err: err})
	}

	for _, l := range scenarios {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if l.err != nil {
			result.TotalScenarios++
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				Path:  l.path,
				Error: fmt.Sprintf("failed to load scenario: %v", l.err),
			})
			continue
		}

		if cfg.filter != "" && !strings.Contains(l.scenario.Name, cfg.filter) {
			result.Skipped++
			continue
		}
		result.TotalScenarios++

		if len(cfg.bundles) > 0 {
			l.scenario.Bundles = append(append([]string{}, cfg.bundles...), l.scenario.Bundles...)
		}
		runResult, err := Run(l.scenario, cfg.run...)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				Scenario: l.scenario.Name,
				Path:     l.path,
				Error:    fmt.Sprintf("scenario execution failed: %v", err),
			})
			continue
		}
		result.Runs = append(result.Runs, ScenarioRun{Name: l.scenario.Name, Path: l.path, Result: runResult})

		if !runResult.Pass {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				Scenario: l.scenario.Name,
				Path:     l.path,
				Error:    strings.Join(runResult.Errors, "\n"),
			})
			continue
		}
		result.Passed++
	}

	return result, nil
}
