package engine

import (
	"fmt"
	"log/slog"
	"slices"
)

// DefaultMaxDepth is the default maximum number of nested dispatch frames.
const DefaultMaxDepth = 1000

// Well-known message names answered by the object model itself.
const (
	// MethodMissing is the fallback hook invoked as methodMissing(name, args...).
	MethodMissing = "methodMissing"

	// Initialize is dispatched by Class.Construct on every new instance.
	Initialize = "initialize"
)

// ReservedNames are structural names that may never be defined as methods.
// They mirror the fields of Object and Call rather than anything dispatchable.
var ReservedNames = []string{"klass", "eigen", "ivars", "super", "self"}

// HostNames are registered with the dispatch registry at startup so their
// thunks exist before any module defines them.
var HostNames = []string{
	Initialize, MethodMissing,
	"respondTo", "inspect", "isA", "method",
	"send", "__send__", "_send_", "extend", "unextend",
	"new", "allocate", "instanceMethod",
}

// Engine owns one complete object model: the message arena, the dispatch
// registry, the Kernel root module, the Class module answering class
// receivers, the Object base class and every module and class defined on top
// of them.
//
// INVARIANTS:
//   - Every module's Ancestors() ends with Kernel
//   - The epoch advances on every structural mutation
//   - Cached resolutions are never used across epochs
type Engine struct {
	logger   *slog.Logger
	epoch    *Clock
	registry *Registry
	tracer   Tracer
	quota    *depthQuota

	arena     []*Message // index = MessageID-1; nil once a message is discarded
	kernel    *Module
	classSide *Module
	object    *Class
	namespace map[string]*Module

	maxDepth  int
	hostNames []string
	moduleSeq int
	objectSeq int
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxDepth sets the maximum nesting of dispatch frames.
//
// Default: 1000 frames (DefaultMaxDepth).
// Use WithMaxDepth(10) for testing runaway super or methodMissing recursion.
func WithMaxDepth(maxDepth int) EngineOption {
	return func(e *Engine) {
		if maxDepth > 0 {
			e.maxDepth = maxDepth
		}
	}
}

// WithTracer installs a tracer receiving every send and reply.
func WithTracer(t Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithHostNames registers extra message names at startup, in addition to HostNames.
func WithHostNames(names ...string) EngineOption {
	return func(e *Engine) {
		e.hostNames = append(e.hostNames, names...)
	}
}

// New creates an Engine with the Kernel root module, the Class module and
// the Object base class already in place.
//
// Kernel answers respondTo, inspect, isA, method, send (also __send__ and
// _send_), extend and unextend for every receiver. Class answers new,
// allocate and instanceMethod for class receivers. Object defines a no-op
// initialize so Construct works on classes without one.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:    slog.Default(),
		epoch:     NewClock(),
		namespace: make(map[string]*Module),
		maxDepth:  DefaultMaxDepth,
	}
	e.registry = newRegistry(e)

	for _, opt := range opts {
		opt(e)
	}
	e.quota = newDepthQuota(e.maxDepth)

	e.registry.Reserve(ReservedNames...)
	e.registry.RegisterBulk(HostNames)
	e.registry.RegisterBulk(e.hostNames)

	e.bootstrap()
	return e
}

// Registry returns the dispatch registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Kernel returns the root module.
func (e *Engine) Kernel() *Module {
	return e.kernel
}

// ClassModule returns the module consulted by class receivers right before
// Kernel.
func (e *Engine) ClassModule() *Module {
	return e.classSide
}

// Object returns the base class every class ultimately derives from.
func (e *Engine) Object() *Class {
	return e.object
}

// Epoch returns the current structural epoch.
func (e *Engine) Epoch() int64 {
	return e.epoch.Current()
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Lookup returns the named module or class module.
func (e *Engine) Lookup(name string) (*Module, bool) {
	m, ok := e.namespace[name]
	return m, ok
}

// LookupClass returns the named class.
func (e *Engine) LookupClass(name string) (*Class, bool) {
	m, ok := e.namespace[name]
	if !ok || m.class == nil {
		return nil, false
	}
	return m.class, true
}

// Modules returns every named module and class module in definition order.
// The namespace map has no order; module ids do.
func (e *Engine) Modules() []*Module {
	out := make([]*Module, 0, len(e.namespace))
	for _, m := range e.namespace {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *Module) int { return a.id - b.id })
	return out
}

// bump advances the epoch, invalidating every cached resolution. Caches live
// on eigen modules and are reset lazily by the next Resolve.
func (e *Engine) bump(reason string) {
	epoch := e.epoch.Next()
	e.logger.Debug("object model changed", "reason", reason, "epoch", epoch)
}

func (e *Engine) claimName(name string) error {
	if name == "" {
		return nil
	}
	if _, exists := e.namespace[name]; exists {
		return NewDuplicateDefinition(name, "module")
	}
	return nil
}

func (e *Engine) bootstrap() {
	e.kernel = e.newModule("Kernel")
	e.kernel.root = true
	e.namespace[e.kernel.name] = e.kernel

	classSide, err := e.DefineModule("Class")
	if err != nil {
		panic(fmt.Sprintf("engine bootstrap: %v", err))
	}
	e.classSide = classSide

	object, err := e.DefineClass("Object", nil)
	if err != nil {
		panic(fmt.Sprintf("engine bootstrap: %v", err))
	}
	e.object = object

	must := func(err error) {
		if err != nil {
			panic(fmt.Sprintf("engine bootstrap: %v", err))
		}
	}
	for _, def := range []struct {
		mod  *Module
		name string
		impl Impl
	}{
		{e.kernel, "respondTo", kernelRespondTo},
		{e.kernel, "inspect", kernelInspect},
		{e.kernel, "isA", kernelIsA},
		{e.kernel, "method", kernelMethod},
		{e.kernel, "send", kernelSend},
		{e.kernel, "__send__", kernelSend},
		{e.kernel, "_send_", kernelSendSplat},
		{e.kernel, "extend", kernelExtend},
		{e.kernel, "unextend", kernelUnextend},
		{classSide, "new", classNew},
		{classSide, "allocate", classAllocate},
		{classSide, "instanceMethod", classInstanceMethod},
		{object.Module, Initialize, func(*Call) (Value, error) { return nil, nil }},
	} {
		must(def.mod.Define(def.name, def.impl))
	}
}
