package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/hostlib"
)

// DescribeResult describes one installed module or class.
type DescribeResult struct {
	Name            string   `json:"name"`
	Kind            string   `json:"kind"` // "class" or "module"
	Superclass      string   `json:"superclass,omitempty"`
	Includes        []string `json:"includes"`
	Ancestors       []string `json:"ancestors"`
	OwnMethods      []string `json:"own_methods"`
	InstanceMethods []string `json:"instance_methods"`
	ClassMethods    []string `json:"class_methods,omitempty"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <bundle-dir> <name>",
		Short: "Show the ancestors and methods of a module or class",
		Long: `Install a bundle and describe one of its modules or classes.

Lists the superclass, included mixins, the full ancestor chain used by
dispatch, the methods the declaration defines itself, every method its
instances answer, and (for classes) its class methods.

Examples:
  eigen describe ./bundle B
  eigen describe ./bundle Greeter --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runDescribe(opts *RootOptions, dir, name string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	e, _, err := InstallBundle(dir, hostlib.Default(), opts.Logger())
	if err != nil {
		return reportLoadError(f, err)
	}

	m, ok := e.Lookup(name)
	if !ok {
		_ = f.Error(ErrCodeUnknownName, fmt.Sprintf("no module or class named %q", name), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("unknown name %q", name))
	}
	result := Describe(m)

	if opts.Format == "json" {
		return f.JSON(CLIResponse{Status: "ok", Data: result})
	}

	w := f.Writer
	fmt.Fprintf(w, "%s %s\n", result.Kind, f.Style.Bold(result.Name))
	if result.Superclass != "" {
		fmt.Fprintf(w, "  superclass: %s\n", result.Superclass)
	}
	fmt.Fprintf(w, "  includes:   %s\n", listOrNone(result.Includes))
	fmt.Fprintf(w, "  ancestors:  %s\n", strings.Join(result.Ancestors, " > "))
	fmt.Fprintf(w, "  defines:    %s\n", listOrNone(result.OwnMethods))
	fmt.Fprintf(w, "  responds:   %s\n", listOrNone(result.InstanceMethods))
	if result.Kind == "class" {
		fmt.Fprintf(w, "  class methods: %s\n", listOrNone(result.ClassMethods))
	}
	return nil
}

// Describe collects the structure of m.
func Describe(m *engine.Module) DescribeResult {
	result := DescribeResult{
		Name:            m.Name(),
		Kind:            "module",
		Includes:        []string{},
		Ancestors:       m.AncestorNames(),
		OwnMethods:      m.OwnMethods(),
		InstanceMethods: m.InstanceMethods(),
	}
	for _, inc := range m.Includes() {
		result.Includes = append(result.Includes, inc.Name())
	}
	if c := m.Class(); c != nil {
		result.Kind = "class"
		if s := c.Superclass(); s != nil {
			result.Superclass = s.Name()
		}
		result.ClassMethods = c.Eigen().OwnMethods()
	}
	return result
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
