package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is an executable description of object model behavior: bundles to
// install, steps that build objects and send messages, and assertions over the
// resulting dispatch trace.
type Scenario struct {
	// Name uniquely identifies this scenario within a suite.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Bundles lists CUE files or directories to compile and install, in order.
	// Relative paths are resolved against the scenario file's directory.
	Bundles []string `yaml:"bundles,omitempty"`

	// RunToken is the fixed run token stamped on every trace record.
	// If empty, testutil.DefaultRunToken is used.
	RunToken string `yaml:"run_token,omitempty"`

	// MaxDepth overrides the engine's dispatch depth limit.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// Steps run in order. Each step holds exactly one operation.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and module graph.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation plus optional expectations about its outcome.
//
//	steps:
//	  - new: { class: B, as: b }
//	  - send: { to: b, message: num, args: [2] }
//	    expect: { equal: 6 }
type Step struct {
	New       *NewStep    `yaml:"new,omitempty"`
	Send      *SendStep   `yaml:"send,omitempty"`
	Extend    *MixinStep  `yaml:"extend,omitempty"`
	Unextend  *MixinStep  `yaml:"unextend,omitempty"`
	Include   *MixinStep  `yaml:"include,omitempty"`
	Uninclude *MixinStep  `yaml:"uninclude,omitempty"`
	Define    *DefineStep `yaml:"define,omitempty"`
	Undefine  *DefineStep `yaml:"undefine,omitempty"`

	// Expect maps matcher names to expected values. Without an "error"
	// matcher, any error fails the step.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// NewStep constructs an instance of Class and binds it to As.
type NewStep struct {
	Class string `yaml:"class"`
	As    string `yaml:"as"`
	Args  []any  `yaml:"args,omitempty"`
}

// SendStep sends Message to a bound object or a class.
type SendStep struct {
	To      string `yaml:"to"`
	Message string `yaml:"message"`
	Args    []any  `yaml:"args,omitempty"`
}

// MixinStep adds or removes Module on Target.
//
// For extend/unextend, Target is a bound object or a class (whose eigen is
// changed). For include/uninclude, Target is a module or class name.
type MixinStep struct {
	Target string `yaml:"target"`
	Module string `yaml:"module"`
}

// DefineStep defines or undefines Message on the module or class Target.
// Function names a host library function; undefine ignores it.
type DefineStep struct {
	Target   string `yaml:"target"`
	Message  string `yaml:"message"`
	Function string `yaml:"function,omitempty"`
}

// Step kind names.
const (
	StepNew       = "new"
	StepSend      = "send"
	StepExtend    = "extend"
	StepUnextend  = "unextend"
	StepInclude   = "include"
	StepUninclude = "uninclude"
	StepDefine    = "define"
	StepUndefine  = "undefine"
)

// Kind returns the name of the step's operation, or "" unless exactly one is set.
func (s *Step) Kind() string {
	var kinds []string
	if s.New != nil {
		kinds = append(kinds, StepNew)
	}
	if s.Send != nil {
		kinds = append(kinds, StepSend)
	}
	if s.Extend != nil {
		kinds = append(kinds, StepExtend)
	}
	if s.Unextend != nil {
		kinds = append(kinds, StepUnextend)
	}
	if s.Include != nil {
		kinds = append(kinds, StepInclude)
	}
	if s.Uninclude != nil {
		kinds = append(kinds, StepUninclude)
	}
	if s.Define != nil {
		kinds = append(kinds, StepDefine)
	}
	if s.Undefine != nil {
		kinds = append(kinds, StepUndefine)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Assertion validates the trace or the module graph after all steps ran.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a send matching message/function/kind/args exists
	// - "trace_order": functions were first entered in the given order
	// - "trace_count": message was sent exactly Count times
	// - "ancestors": the lookup chain of Of equals Expect
	Type string `yaml:"type"`

	// Message filters sends (trace_contains, trace_count).
	Message string `yaml:"message,omitempty"`

	// Function filters sends by "Owner#name" (trace_contains).
	Function string `yaml:"function,omitempty"`

	// Kind filters sends by send, super or missing (trace_contains, trace_count).
	Kind string `yaml:"kind,omitempty"`

	// Args must equal the send's arguments when present (trace_contains).
	Args []any `yaml:"args,omitempty"`

	// Functions is the expected order (trace_order).
	Functions []string `yaml:"functions,omitempty"`

	// Count is the expected number of sends (trace_count).
	Count int `yaml:"count,omitempty"`

	// Of names a bound object, a class or a module (ancestors).
	Of string `yaml:"of,omitempty"`

	// Expect is the expected ancestor list (ancestors).
	Expect []string `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertAncestors     = "ancestors"
)

// LoadScenario reads and parses a scenario YAML file, resolving bundle paths
// against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving bundle paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, bundle := range scenario.Bundles {
		if !filepath.IsAbs(bundle) && basePath != "" {
			scenario.Bundles[i] = filepath.Join(basePath, bundle)
		}
	}
	for _, bundle := range scenario.Bundles {
		if _, err := os.Stat(bundle); err != nil {
			return nil, fmt.Errorf("invalid scenario: bundle not found: %s", bundle)
		}
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML with strict field checking.
// Bundle paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // "assertion:" instead of "assertions:" is an error
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative")
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	kind := s.Kind()
	if kind == "" {
		return fmt.Errorf("steps[%d]: exactly one of new, send, extend, unextend, include, uninclude, define or undefine is required", index)
	}

	switch kind {
	case StepNew:
		if s.New.Class == "" || s.New.As == "" {
			return fmt.Errorf("steps[%d].new: class and as are required", index)
		}
	case StepSend:
		if s.Send.To == "" || s.Send.Message == "" {
			return fmt.Errorf("steps[%d].send: to and message are required", index)
		}
	case StepExtend, StepUnextend, StepInclude, StepUninclude:
		m := s.mixin()
		if m.Target == "" || m.Module == "" {
			return fmt.Errorf("steps[%d].%s: target and module are required", index, kind)
		}
	case StepDefine:
		if s.Define.Target == "" || s.Define.Message == "" || s.Define.Function == "" {
			return fmt.Errorf("steps[%d].define: target, message and function are required", index)
		}
	case StepUndefine:
		if s.Undefine.Target == "" || s.Undefine.Message == "" {
			return fmt.Errorf("steps[%d].undefine: target and message are required", index)
		}
	}
	return nil
}

// mixin returns the MixinStep of an extend/unextend/include/uninclude step.
func (s *Step) mixin() *MixinStep {
	switch {
	case s.Extend != nil:
		return s.Extend
	case s.Unextend != nil:
		return s.Unextend
	case s.Include != nil:
		return s.Include
	default:
		return s.Uninclude
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Message == "" && a.Function == "" {
			return fmt.Errorf("assertions[%d]: message or function is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Functions) == 0 {
			return fmt.Errorf("assertions[%d]: functions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertAncestors:
		if a.Of == "" || len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: of and expect are required for ancestors", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
