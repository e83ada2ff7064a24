package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Kernel send
// =============================================================================

func TestKernel_SendByName(t *testing.T) {
	e := newTestEngine(t)
	_, b := numClasses(t, e)
	obj := b.Allocate()

	for _, name := range []string{"send", "__send__"} {
		got, err := obj.Send(name, "num", 2)
		require.NoError(t, err, name)
		assert.Equal(t, 6, got, name)
	}

	got, err := obj.Send("_send_", "num", []Value{2})
	require.NoError(t, err)
	assert.Equal(t, 6, got)

	got, err = obj.Send("_send_", "inspect")
	require.NoError(t, err)
	assert.Equal(t, "#<B:1>", got)
}

func TestKernel_SendFailures(t *testing.T) {
	e := newTestEngine(t)
	obj := e.Object().Allocate()

	_, err := obj.Send("send", "ghost", 1)
	assert.True(t, IsNoSuchMethod(err))
	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "ghost", de.Name)

	for _, args := range [][]Value{{}, {42}, {""}} {
		_, err := obj.Send("send", args...)
		code, _ := CodeOf(err)
		assert.Equal(t, ErrCodeInvalidName, code, "%v", args)
	}

	_, err = obj.Send("_send_", "inspect", "not a list")
	code, _ := CodeOf(err)
	assert.Equal(t, ErrCodeInvalidName, code)
}

func TestKernel_SendGoesThroughMethodMissing(t *testing.T) {
	e := newTestEngine(t)
	ghost, _ := e.DefineClass("Ghost", nil, Methods{
		MethodMissing: func(c *Call) (Value, error) { return c.Arg(0), nil },
	})

	got, err := ghost.Allocate().Send("send", "boo")
	require.NoError(t, err)
	assert.Equal(t, "boo", got)
}

// =============================================================================
// Kernel extend / unextend
// =============================================================================

func TestKernel_ExtendMessages(t *testing.T) {
	e := newTestEngine(t)
	m, _ := e.DefineModule("M")
	require.NoError(t, m.Define("hello", constant("m")))
	a, _ := e.DefineClass("A", nil)
	obj := a.Allocate()

	got, err := obj.Send("extend", m)
	require.NoError(t, err)
	assert.Same(t, obj, got)
	got, _ = obj.Send("hello")
	assert.Equal(t, "m", got)

	_, err = obj.Send("unextend", "M")
	require.NoError(t, err)
	_, err = obj.Send("hello")
	assert.True(t, IsNoSuchMethod(err))

	_, err = obj.Send("extend", "Nope")
	assert.True(t, IsInvalidModule(err))
	_, err = obj.Send("extend", a)
	assert.True(t, IsInvalidModule(err))
	_, err = obj.Send("unextend", m)
	assert.True(t, IsInvalidModule(err), "not extended any more")
}

func TestKernel_ExtendClassReceiver(t *testing.T) {
	e := newTestEngine(t)
	m, _ := e.DefineModule("Factory")
	require.NoError(t, m.Define("build", func(c *Call) (Value, error) { return c.Send("new") }))
	a, _ := e.DefineClass("A", nil)

	_, err := a.Send("extend", m)
	require.NoError(t, err)

	got, err := a.Send("build")
	require.NoError(t, err)
	obj, ok := got.(*Object)
	require.True(t, ok)
	assert.Same(t, a, obj.Class())
	assert.False(t, obj.RespondTo("build"), "extending a class leaves its instances alone")
}

// =============================================================================
// Class receivers
// =============================================================================

func TestClass_NewAndAllocate(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.DefineClass("A", nil, Methods{
		Initialize: func(c *Call) (Value, error) {
			o, _ := c.Object()
			o.Set("n", c.Arg(0))
			return nil, nil
		},
	})
	b, _ := e.DefineClass("B", a)

	got, err := b.Send("new", 7)
	require.NoError(t, err)
	obj := got.(*Object)
	assert.Same(t, b, obj.Class())
	n, _ := obj.Get("n")
	assert.Equal(t, 7, n)

	got, err = a.Send("allocate")
	require.NoError(t, err)
	bare := got.(*Object)
	assert.Empty(t, bare.Ivars(), "allocate skips initialize")

	_, err = obj.Send("new")
	assert.True(t, IsNoSuchMethod(err), "instances do not answer new")
	assert.False(t, obj.RespondTo("allocate"))

	respond, _ := b.Send("respondTo", "new")
	assert.Equal(t, true, respond)
	isClass, _ := b.Send("isA", "Class")
	assert.Equal(t, true, isClass)
	isClass, _ = obj.Send("isA", "Class")
	assert.Equal(t, false, isClass)
}

func TestClass_NewCanBeOverriddenWithSuper(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.DefineClass("A", nil)
	require.NoError(t, a.DefineClassMethod("new", func(c *Call) (Value, error) {
		obj, err := c.Super()
		if err != nil {
			return nil, err
		}
		obj.(*Object).Set("tagged", true)
		return obj, nil
	}))

	got, err := a.Send("new")
	require.NoError(t, err)
	tagged, _ := got.(*Object).Get("tagged")
	assert.Equal(t, true, tagged)

	chain, err := e.SuperChain(a, "new")
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "Class#new", chain[0].String())
}

func TestClass_InstanceMethod(t *testing.T) {
	e := newTestEngine(t)
	m, _ := e.DefineModule("M")
	require.NoError(t, m.Define("wave", constant(1)))
	a, _ := e.DefineClass("A", nil, Methods{"num": constant(1)})
	require.NoError(t, a.Include(m))

	got, err := a.Send("instanceMethod", "num")
	require.NoError(t, err)
	assert.Equal(t, "A#num", got.(*Function).String())

	fn, err := a.InstanceMethod("wave")
	require.NoError(t, err)
	assert.Equal(t, "M#wave", fn.String())

	fn, err = a.InstanceMethod("inspect")
	require.NoError(t, err)
	assert.Equal(t, "Kernel#inspect", fn.String())

	_, err = a.Send("instanceMethod", "nope")
	require.Error(t, err)
	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeNoSuchMethod, de.Code)
	assert.Equal(t, "A", de.Receiver)

	_, err = a.InstanceMethod("new")
	assert.True(t, IsNoSuchMethod(err), "class-side methods are not instance methods")
}

// =============================================================================
// Bound methods
// =============================================================================

func TestMethod_BoundToReceiver(t *testing.T) {
	e := newTestEngine(t)
	_, b := numClasses(t, e)
	obj := b.Allocate()

	got, err := obj.Send("method", "num")
	require.NoError(t, err)
	m, ok := got.(*Method)
	require.True(t, ok)
	assert.Same(t, obj, m.Receiver())
	assert.Equal(t, "num", m.Name())
	assert.Equal(t, "#<Method:#<B:1>.num(B#num)>", m.String())

	v, err := m.Call(2)
	require.NoError(t, err)
	assert.Equal(t, 6, v, "super works from a bound method")
	assert.Equal(t, "B#num", m.Unbind().String())
}

func TestMethod_CurryAndBind(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.DefineClass("A", nil, Methods{"hello": joinArgs, "who": kernelInspect})
	one, two := a.Allocate(), a.Allocate()

	m, err := e.Method(one, "hello")
	require.NoError(t, err)

	curried := m.Curry("hi").Curry("there")
	got, err := curried.Call("bob")
	require.NoError(t, err)
	assert.Equal(t, "hi there bob", got)
	assert.Empty(t, m.Args(), "curry leaves the original alone")
	assert.Equal(t, []Value{"hi", "there"}, curried.Args())

	who, err := e.Method(one, "who")
	require.NoError(t, err)
	got, _ = who.Bind(two).Call()
	assert.Equal(t, "#<A:2>", got)
	got, _ = who.Call()
	assert.Equal(t, "#<A:1>", got)
}

func TestMethod_Missing(t *testing.T) {
	e := newTestEngine(t)
	ghost, _ := e.DefineClass("Ghost", nil, Methods{
		MethodMissing: func(c *Call) (Value, error) { return c.Arg(0), nil },
	})
	obj := ghost.Allocate()

	_, err := obj.Send("method", "nope")
	assert.True(t, IsNoSuchMethod(err), "methodMissing does not make a method")

	_, err = e.Method(obj, "nope")
	assert.True(t, IsNoSuchMethod(err))
}
