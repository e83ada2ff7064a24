package engine

import (
	"errors"
	"fmt"
	"runtime"
	"testing"
	"weak"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstruct_RunsInitialize(t *testing.T) {
	e := newTestEngine(t)
	point, err := e.DefineClass("Point", nil, Methods{
		Initialize: func(c *Call) (Value, error) {
			o, _ := c.Object()
			o.Set("x", c.Arg(0))
			o.Set("y", c.Arg(1))
			return nil, nil
		},
		"sum": func(c *Call) (Value, error) {
			o, _ := c.Object()
			x, _ := o.Get("x")
			y, _ := o.Get("y")
			return toInt(x) + toInt(y), nil
		},
	})
	require.NoError(t, err)

	p, err := point.Construct(3, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, p.Ivars())

	got, err := p.Send("sum")
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestConstruct_DefaultInitialize(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.DefineClass("A", nil)

	obj, err := a.Construct("ignored")
	require.NoError(t, err)
	assert.Same(t, a, obj.Class())
	assert.Equal(t, "#<A:1>", obj.Inspect())
}

func TestConstruct_InitializeError(t *testing.T) {
	e := newTestEngine(t)
	boom := errors.New("boom")
	a, _ := e.DefineClass("A", nil, Methods{
		Initialize: func(*Call) (Value, error) { return nil, boom },
	})

	obj, err := a.Construct()
	assert.ErrorIs(t, err, boom)
	assert.NotNil(t, obj)
}

func TestDispatch_NoSuchMethodNamesBoth(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.DefineClass("A", nil)
	obj := a.Allocate()

	_, err := obj.Send("fly", 1)
	require.Error(t, err)
	assert.True(t, IsNoSuchMethod(err))

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "fly", de.Name)
	assert.Equal(t, obj.Inspect(), de.Receiver)
	assert.Contains(t, err.Error(), "fly")
	assert.Contains(t, err.Error(), "#<A:1>")

	wrapped := fmt.Errorf("calling: %w", err)
	assert.True(t, IsNoSuchMethod(wrapped))
}

func TestDispatch_MethodMissing(t *testing.T) {
	e := newTestEngine(t)
	ghost, _ := e.DefineClass("Ghost", nil, Methods{
		MethodMissing: func(c *Call) (Value, error) { return c.Args(), nil },
	})
	obj := ghost.Allocate()

	got, err := obj.Send("foo", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []Value{"foo", 1, 2}, got)

	assert.False(t, obj.RespondTo("foo"), "methodMissing does not count as responding")
}

func TestDispatch_EigenShadowsClass(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.DefineClass("A", nil, Methods{"hello": constant("class")})
	m, _ := e.DefineModule("Loud")
	require.NoError(t, m.Define("hello", constant("eigen")))

	one, two := a.Allocate(), a.Allocate()
	require.NoError(t, one.Extend(m))

	got, _ := one.Send("hello")
	assert.Equal(t, "eigen", got)
	got, _ = two.Send("hello")
	assert.Equal(t, "class", got, "extend affects one object only")

	require.NoError(t, one.Unextend(m))
	got, _ = one.Send("hello")
	assert.Equal(t, "class", got)
	assert.True(t, IsInvalidModule(one.Unextend(m)))
}

func TestDispatch_MutationVisibleImmediately(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.DefineClass("A", nil, Methods{"v": constant(1)})
	b, _ := e.DefineClass("B", a)
	obj := b.Allocate()

	got, _ := obj.Send("v")
	assert.Equal(t, 1, got)

	require.NoError(t, b.Define("v", constant(2)))
	got, _ = obj.Send("v")
	assert.Equal(t, 2, got, "cached resolution must not survive a define")

	assert.True(t, b.Undefine("v"))
	got, _ = obj.Send("v")
	assert.Equal(t, 1, got)

	assert.True(t, a.Undefine("v"))
	_, err := obj.Send("v")
	assert.True(t, IsNoSuchMethod(err))
}

func TestDispatch_KernelMethods(t *testing.T) {
	e := newTestEngine(t)
	m, _ := e.DefineModule("M")
	a, _ := e.DefineClass("A", nil, Methods{"hello": constant(1)})
	obj := a.Allocate()
	require.NoError(t, obj.Extend(m))

	got, err := obj.Send("respondTo", "hello")
	require.NoError(t, err)
	assert.Equal(t, true, got)
	got, _ = obj.Send("respondTo", "nope")
	assert.Equal(t, false, got)

	got, _ = obj.Send("inspect")
	assert.Equal(t, "#<A:1>", got)

	for _, target := range []Value{"A", "Object", "Kernel", m, a} {
		got, _ = obj.Send("isA", target)
		assert.Equal(t, true, got, "isA %v", target)
	}
	got, _ = obj.Send("isA", "Missing")
	assert.Equal(t, false, got)
}

func TestDispatch_ClassReceiver(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.DefineClass("A", nil, Methods{"hello": constant("instance")})
	require.NoError(t, a.DefineClassMethod("create", func(c *Call) (Value, error) {
		cls := c.Self().(*Class)
		return cls.Construct()
	}))

	got, err := a.Send("create")
	require.NoError(t, err)
	obj, ok := got.(*Object)
	require.True(t, ok)
	assert.Same(t, a, obj.Class())

	got, err = a.Send("inspect")
	require.NoError(t, err)
	assert.Equal(t, "A", got)

	assert.Equal(t, []*Module{a.Eigen(), a.Module, e.Object().Module, e.ClassModule(), e.Kernel()}, LookupChain(a))

	_, err = obj.Send("create")
	assert.True(t, IsNoSuchMethod(err), "class methods are not instance methods")
}

func TestDispatch_LookupChainOrder(t *testing.T) {
	e := newTestEngine(t)
	m, _ := e.DefineModule("M")
	n, _ := e.DefineModule("N")
	a, _ := e.DefineClass("A", nil)
	require.NoError(t, a.Include(n))
	obj := a.Allocate()
	require.NoError(t, obj.Extend(m))
	require.NoError(t, obj.Extend(n))

	chain := LookupChain(obj)
	names := make([]string, len(chain))
	for i, mod := range chain {
		names[i] = mod.Name()
	}
	assert.Equal(t, []string{"#<Eigen:#<A:1>>", "N", "M", "A", "Object", "Kernel"}, names)
}

func TestDispatch_Tracer(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, WithTracer(rec))
	a, _ := e.DefineClass("A", nil, Methods{"num": func(c *Call) (Value, error) { return 1 + toInt(c.Arg(0)), nil }})
	b, _ := e.DefineClass("B", a, Methods{"num": func(c *Call) (Value, error) {
		v, err := c.Super()
		return toInt(c.Arg(0)) * toInt(v), err
	}})
	obj := b.Allocate()

	_, err := obj.Send("num", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"send B#num num[2]",
		"super A#num num[2]",
		"reply num ok 3",
		"reply num ok 6",
	}, rec.events)
}

func TestDispatch_TracerMissing(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, WithTracer(rec))
	obj := e.Object().Allocate()

	_, err := obj.Send("fly", 1)
	require.Error(t, err)
	assert.Equal(t, []string{
		"send  fly[1]",
		"reply fly missing <nil>",
	}, rec.events)
}

func TestResolve_CacheLivesOnEigen(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.DefineClass("A", nil, Methods{"num": constant(1)})
	obj := a.Allocate()

	_, err := obj.Send("num")
	require.NoError(t, err)
	assert.Contains(t, obj.Eigen().resolved, "num")
	assert.Empty(t, a.Allocate().Eigen().resolved, "each receiver keeps its own cache")

	require.NoError(t, a.Define("other", constant(2)))
	_, err = obj.Send("other")
	require.NoError(t, err)
	assert.Len(t, obj.Eigen().resolved, 1, "entries from older epochs are dropped")
	assert.Equal(t, e.Epoch(), obj.Eigen().resolvedEpoch)
}

func TestResolve_ReceiversStayCollectable(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.DefineClass("A", nil, Methods{"num": constant(1)})

	refs := make([]weak.Pointer[Object], 0, 200)
	for range 200 {
		obj := a.Allocate()
		_, err := obj.Send("num")
		require.NoError(t, err)
		refs = append(refs, weak.Make(obj))
	}

	runtime.GC()
	runtime.GC()
	live := 0
	for _, ref := range refs {
		if ref.Value() != nil {
			live++
		}
	}
	assert.Zero(t, live, "the engine must not retain receivers it dispatched to")
	runtime.KeepAlive(e)
	runtime.KeepAlive(a)
}

func TestSend_TypedNilReceiver(t *testing.T) {
	e := newTestEngine(t)

	var obj *Object
	_, err := e.Send(obj, "inspect")
	assert.True(t, IsNoSuchMethod(err))
	_, err = obj.Send("inspect")
	assert.True(t, IsNoSuchMethod(err))
	_, err = e.Send(obj, "super")
	assert.True(t, IsNoSuchMethod(err), "reserved names fail the same way")

	fn, err := e.Resolve(obj, "inspect")
	assert.NoError(t, err)
	assert.Nil(t, fn)
	assert.Nil(t, obj.Eigen())
	assert.Equal(t, "nil", obj.Inspect())
	assert.False(t, obj.RespondTo("inspect"))

	var cls *Class
	_, err = e.Send(cls, "new")
	assert.True(t, IsNoSuchMethod(err))

	_, err = e.Method(obj, "inspect")
	assert.True(t, IsNoSuchMethod(err))
}
