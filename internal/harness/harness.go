package harness

import (
	"context"
	"fmt"
	"log/slog"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/eigen/internal/compiler"
	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/hostlib"
	"github.com/roach88/eigen/internal/ir"
	"github.com/roach88/eigen/internal/store"
	"github.com/roach88/eigen/internal/testutil"
)

// Option configures a scenario run.
type Option func(*config)

type config struct {
	library  engine.Library
	matchers *Matchers
	store    *store.Store
	logger   *slog.Logger
}

// WithLibrary sets the host functions bundles and define steps bind to.
// Default: hostlib.Default().
func WithLibrary(lib engine.Library) Option {
	return func(c *config) {
		if lib != nil {
			c.library = lib
		}
	}
}

// WithMatchers sets the matcher registry. Default: NewMatchers().
func WithMatchers(m *Matchers) Option {
	return func(c *config) {
		if m != nil {
			c.matchers = m
		}
	}
}

// WithStore also persists the run's trace to s.
func WithStore(s *store.Store) Option {
	return func(c *config) {
		c.store = s
	}
}

// WithLogger sets the engine logger. Default: logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		library:  hostlib.Default(),
		matchers: NewMatchers(),
		logger:   testutil.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// harness holds the state of one scenario run.
type harness struct {
	cfg      *config
	engine   *engine.Engine
	recorder *store.Recorder
	objects  map[string]*engine.Object
	result   *Result
}

// Run executes a scenario against a fresh engine and returns the result.
//
// Each run is isolated and deterministic: a new engine, the scenario's fixed
// run token and a logical clock starting at 1. Failed expectations and
// assertions are reported in the Result; an error is returned only when the
// scenario cannot run at all (bad bundle, install failure).
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := newConfig(opts)

	engineOpts := []engine.EngineOption{engine.WithLogger(cfg.logger)}
	if scenario.MaxDepth > 0 {
		engineOpts = append(engineOpts, engine.WithMaxDepth(scenario.MaxDepth))
	}
	eng := engine.New(engineOpts...)

	bundle, err := loadBundles(scenario.Bundles)
	if err != nil {
		return nil, err
	}
	hash, err := ir.BundleHash(bundle)
	if err != nil {
		return nil, fmt.Errorf("hash bundle: %w", err)
	}
	if err := compiler.Install(bundle, eng, cfg.library); err != nil {
		return nil, fmt.Errorf("install bundle: %w", err)
	}

	runToken := testutil.NewFixedRunGenerator(scenario.RunToken).Generate()
	recOpts := []store.RecorderOption{
		store.WithSequencer(testutil.NewDeterministicClock()),
		store.WithBundleHash(hash),
	}
	if cfg.store != nil {
		recOpts = append(recOpts, store.WithStore(cfg.store), store.WithContext(context.Background()))
	}
	rec := store.NewRecorder(runToken, recOpts...)
	eng.SetTracer(rec)

	h := &harness{
		cfg:      cfg,
		engine:   eng,
		recorder: rec,
		objects:  make(map[string]*engine.Object),
		result:   NewResult(runToken),
	}
	h.result.BundleHash = hash

	for i := range scenario.Steps {
		h.runStep(i, &scenario.Steps[i])
	}
	eng.SetTracer(nil)

	if err := rec.Err(); err != nil {
		h.result.AddError(err.Error())
	}
	h.result.Trace = traceFromEvents(rec.Events())
	for name, obj := range h.objects {
		h.result.Objects[name] = obj.Inspect()
	}

	actx := &AssertionContext{Engine: eng, Objects: h.objects}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

// loadBundles compiles and merges the scenario's bundle paths in order.
func loadBundles(paths []string) (*ir.Bundle, error) {
	ctx := cuecontext.New()
	merged := &ir.Bundle{}
	for _, path := range paths {
		b, err := compiler.LoadPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", path, err)
		}
		merged.Merge(b)
	}
	return merged, nil
}

func (h *harness) runStep(index int, step *Step) {
	kind := step.Kind()
	v, err := h.apply(kind, step)

	failures := h.cfg.matchers.Check(step.Expect, v, err)
	for _, f := range failures {
		h.result.AddError(fmt.Sprintf("steps[%d] (%s): %s", index, kind, f))
	}
	h.cfg.logger.Debug("scenario step", "step", index, "kind", kind, "failures", len(failures))
}

func (h *harness) apply(kind string, step *Step) (engine.Value, error) {
	switch kind {
	case StepNew:
		return h.construct(step.New)
	case StepSend:
		recv, err := h.receiver(step.Send.To)
		if err != nil {
			return nil, err
		}
		return h.engine.Send(recv, step.Send.Message, step.Send.Args...)
	case StepExtend, StepUnextend:
		return nil, h.extend(kind, step.mixin())
	case StepInclude, StepUninclude:
		return nil, h.include(kind, step.mixin())
	case StepDefine:
		target, err := h.module(step.Define.Target)
		if err != nil {
			return nil, err
		}
		impl, ok := h.cfg.library.Get(step.Define.Function)
		if !ok {
			return nil, fmt.Errorf("unknown host function %q", step.Define.Function)
		}
		return nil, target.Define(step.Define.Message, impl)
	case StepUndefine:
		target, err := h.module(step.Undefine.Target)
		if err != nil {
			return nil, err
		}
		return target.Undefine(step.Undefine.Message), nil
	default:
		return nil, fmt.Errorf("unknown step kind %q", kind)
	}
}

func (h *harness) construct(step *NewStep) (engine.Value, error) {
	class, ok := h.engine.LookupClass(step.Class)
	if !ok {
		return nil, fmt.Errorf("unknown class %q", step.Class)
	}
	obj, err := class.Construct(step.Args...)
	if err != nil {
		return nil, err
	}
	h.objects[step.As] = obj
	return obj.Inspect(), nil
}

// receiver resolves a bound object first, then a class name.
func (h *harness) receiver(name string) (engine.Receiver, error) {
	if obj, ok := h.objects[name]; ok {
		return obj, nil
	}
	if class, ok := h.engine.LookupClass(name); ok {
		return class, nil
	}
	return nil, fmt.Errorf("unknown receiver %q", name)
}

func (h *harness) module(name string) (*engine.Module, error) {
	m, ok := h.engine.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown module %q", name)
	}
	return m, nil
}

func (h *harness) extend(kind string, step *MixinStep) error {
	mixin, err := h.module(step.Module)
	if err != nil {
		return err
	}
	recv, err := h.receiver(step.Target)
	if err != nil {
		return err
	}
	if kind == StepExtend {
		return recv.Eigen().Include(mixin)
	}
	return recv.Eigen().Uninclude(mixin)
}

func (h *harness) include(kind string, step *MixinStep) error {
	mixin, err := h.module(step.Module)
	if err != nil {
		return err
	}
	target, err := h.module(step.Target)
	if err != nil {
		return err
	}
	if kind == StepInclude {
		return target.Include(mixin)
	}
	return target.Uninclude(mixin)
}
