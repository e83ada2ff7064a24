package cli

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/ir"
	"github.com/roach88/eigen/internal/store"
)

// Session evaluates REPL lines against an installed engine. It keeps named
// bindings between lines and can trace each evaluation.
//
// Accepted lines:
//
//	b = B.new(1, 2)      construct and bind
//	b.num(2)             send with JSON arguments
//	B.sides              send to a class, no arguments
//	b                    show a binding, class or module
//	:extend b M          mix M into b's eigen module
//	:include A M         include M into A
//	:ancestors b         lookup chain of an object, class or module
type Session struct {
	engine  *engine.Engine
	vars    map[string]engine.Value
	tracing bool
}

var (
	assignPattern = regexp.MustCompile(`^([a-z_]\w*)\s*=\s*(.+)$`)
	sendPattern   = regexp.MustCompile(`^([A-Za-z_]\w*)\.([^\s(]+)\s*(?:\((.*)\))?$`)
	identPattern  = regexp.MustCompile(`^[A-Za-z_]\w*$`)
)

// NewSession creates a session over e.
func NewSession(e *engine.Engine) *Session {
	return &Session{engine: e, vars: make(map[string]engine.Value)}
}

// Tracing reports whether evaluations print their dispatch trace.
func (s *Session) Tracing() bool {
	return s.tracing
}

// Vars returns the bound names in order.
func (s *Session) Vars() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Completions returns every name the session can complete: bindings, then
// namespace names, then registered message names.
func (s *Session) Completions() []string {
	out := s.Vars()
	for _, m := range s.engine.Modules() {
		if !m.IsSingleton() {
			out = append(out, m.Name())
		}
	}
	return append(out, s.engine.Registry().Names()...)
}

// Eval evaluates one line and returns its display form.
func (s *Session) Eval(line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}
	if strings.HasPrefix(line, ":") {
		return s.command(strings.Fields(line[1:]))
	}

	target := ""
	if m := assignPattern.FindStringSubmatch(line); m != nil {
		target, line = m[1], m[2]
	}

	var trace bytes.Buffer
	value, err := s.traced(&trace, func() (engine.Value, error) {
		return s.expr(line)
	})
	prefix := trace.String()
	if err != nil {
		return prefix, err
	}
	if target != "" {
		s.vars[target] = value
	}
	shown, err := display(value)
	if err != nil {
		return prefix, err
	}
	return prefix + shown, nil
}

// traced runs fn with a recorder attached when tracing is on, writing the
// timeline to w.
func (s *Session) traced(w *bytes.Buffer, fn func() (engine.Value, error)) (engine.Value, error) {
	if !s.tracing {
		return fn()
	}
	rec := store.NewRecorder(engine.UUIDv7Generator{}.Generate())
	s.engine.SetTracer(rec)
	defer s.engine.SetTracer(nil)

	value, err := fn()
	if events := rec.Events(); len(events) > 0 {
		printTimeline(&OutputFormatter{Writer: w}, eventsToTimeline(events, ""))
	}
	return value, err
}

func (s *Session) expr(text string) (engine.Value, error) {
	if m := sendPattern.FindStringSubmatch(text); m != nil {
		recv, err := s.receiver(m[1])
		if err != nil {
			return nil, err
		}
		args, err := ParseArgs("[" + m[3] + "]")
		if err != nil {
			return nil, fmt.Errorf("arguments: %w", err)
		}
		return s.engine.Send(recv, m[2], args...)
	}

	if identPattern.MatchString(text) {
		if v, ok := s.vars[text]; ok {
			return v, nil
		}
		if m, ok := s.engine.Lookup(text); ok {
			if c := m.Class(); c != nil {
				return c, nil
			}
			return m, nil
		}
		return nil, fmt.Errorf("undefined name %q", text)
	}

	v, err := ir.UnmarshalIRValue([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q", text)
	}
	return ir.ToGo(v), nil
}

// receiver resolves a binding or a class name to something that can be
// sent messages.
func (s *Session) receiver(name string) (engine.Receiver, error) {
	if v, ok := s.vars[name]; ok {
		recv, ok := v.(engine.Receiver)
		if !ok {
			return nil, fmt.Errorf("%s is not an object", name)
		}
		return recv, nil
	}
	if c, ok := s.engine.LookupClass(name); ok {
		return c, nil
	}
	if _, ok := s.engine.Lookup(name); ok {
		return nil, fmt.Errorf("module %s cannot receive messages", name)
	}
	return nil, fmt.Errorf("undefined name %q", name)
}

func (s *Session) module(name string) (*engine.Module, error) {
	m, ok := s.engine.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("no module named %q", name)
	}
	return m, nil
}

func (s *Session) command(fields []string) (string, error) {
	if len(fields) == 0 {
		return "", fmt.Errorf("empty command")
	}
	name, args := fields[0], fields[1:]

	switch name {
	case "trace":
		s.tracing = !s.tracing
		if s.tracing {
			return "tracing on", nil
		}
		return "tracing off", nil

	case "vars":
		if len(s.vars) == 0 {
			return "(no bindings)", nil
		}
		lines := make([]string, 0, len(s.vars))
		for _, v := range s.Vars() {
			shown, err := display(s.vars[v])
			if err != nil {
				return "", err
			}
			lines = append(lines, v+" = "+shown)
		}
		return strings.Join(lines, "\n"), nil

	case "ancestors":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: :ancestors <name>")
		}
		var chain []*engine.Module
		if recv, err := s.receiver(args[0]); err == nil {
			chain = engine.LookupChain(recv)
		} else {
			m, err := s.module(args[0])
			if err != nil {
				return "", err
			}
			chain = m.Ancestors()
		}
		names := make([]string, len(chain))
		for i, m := range chain {
			names[i] = m.Name()
		}
		return strings.Join(names, " < "), nil

	case "methods":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: :methods <module>")
		}
		m, err := s.module(args[0])
		if err != nil {
			return "", err
		}
		return listOrNone(m.InstanceMethods()), nil

	case "extend", "unextend":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: :%s <name> <module>", name)
		}
		recv, err := s.receiver(args[0])
		if err != nil {
			return "", err
		}
		mixin, err := s.module(args[1])
		if err != nil {
			return "", err
		}
		if name == "extend" {
			err = recv.Eigen().Include(mixin)
		} else {
			err = recv.Eigen().Uninclude(mixin)
		}
		if err != nil {
			return "", err
		}
		return recv.Inspect(), nil

	case "include", "uninclude":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: :%s <module> <mixin>", name)
		}
		target, err := s.module(args[0])
		if err != nil {
			return "", err
		}
		mixin, err := s.module(args[1])
		if err != nil {
			return "", err
		}
		if name == "include" {
			err = target.Include(mixin)
		} else {
			err = target.Uninclude(mixin)
		}
		if err != nil {
			return "", err
		}
		return strings.Join(target.AncestorNames(), " < "), nil
	}
	return "", fmt.Errorf("unknown command :%s (try :help)", name)
}

// display renders a value: receivers by inspect, everything else as
// canonical JSON.
func display(v engine.Value) (string, error) {
	switch val := v.(type) {
	case engine.Receiver:
		return val.Inspect(), nil
	case *engine.Module:
		return val.Name(), nil
	}
	iv, err := ir.FromGo(v)
	if err != nil {
		return "", err
	}
	encoded, err := ir.MarshalCanonical(iv)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
