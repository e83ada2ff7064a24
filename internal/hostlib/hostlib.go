// Package hostlib provides the named Go implementations that declarative
// bundles bind messages to.
//
// A bundle says `num: "num.scaled"`; the installer looks "num.scaled" up in
// an engine.Library and defines the message with that Impl.
package hostlib

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/eigen/internal/engine"
)

// Default returns the standard library of host functions.
func Default() engine.Library {
	return engine.Library{
		"noop":          Noop,
		"identity":      Identity,
		"super":         Super,
		"inspect":       Inspect,
		"args.count":    ArgsCount,
		"ivars.store":   IvarsStore,
		"ivars.get":     IvarsGet,
		"ivars.init":    IvarsInit,
		"num.base":      NumBase,
		"num.scaled":    NumScaled,
		"hello.base":    HelloBase,
		"hello.extra":   HelloExtra,
		"hello.forward": HelloForward,
		"missing.echo":  MissingEcho,
	}
}

// Noop returns nil.
func Noop(*engine.Call) (engine.Value, error) {
	return nil, nil
}

// Identity returns its first argument.
func Identity(c *engine.Call) (engine.Value, error) {
	return c.Arg(0), nil
}

// Super forwards to the next implementation with the same arguments.
func Super(c *engine.Call) (engine.Value, error) {
	return c.Super()
}

// Inspect describes the receiver.
func Inspect(c *engine.Call) (engine.Value, error) {
	return c.Self().Inspect(), nil
}

// ArgsCount returns how many arguments it received.
func ArgsCount(c *engine.Call) (engine.Value, error) {
	return len(c.Args()), nil
}

// IvarsStore sets instance variable arg0 to arg1 and returns arg1.
func IvarsStore(c *engine.Call) (engine.Value, error) {
	o, name, err := ivarTarget(c)
	if err != nil {
		return nil, err
	}
	o.Set(name, c.Arg(1))
	return c.Arg(1), nil
}

// IvarsGet returns instance variable arg0, or nil.
func IvarsGet(c *engine.Call) (engine.Value, error) {
	o, name, err := ivarTarget(c)
	if err != nil {
		return nil, err
	}
	v, _ := o.Get(name)
	return v, nil
}

// IvarsInit is an initializer storing positional arguments as arg0, arg1, ...
func IvarsInit(c *engine.Call) (engine.Value, error) {
	o, ok := c.Object()
	if !ok {
		return nil, fmt.Errorf("ivars.init: %s is not an instance", c.Self().Inspect())
	}
	for i, arg := range c.Args() {
		o.Set(fmt.Sprintf("arg%d", i), arg)
	}
	return nil, nil
}

func ivarTarget(c *engine.Call) (*engine.Object, string, error) {
	o, ok := c.Object()
	if !ok {
		return nil, "", fmt.Errorf("%s: %s is not an instance", c.Name(), c.Self().Inspect())
	}
	name, ok := c.Arg(0).(string)
	if !ok || name == "" {
		return nil, "", fmt.Errorf("%s: instance variable name must be a non-empty string, got %v", c.Name(), c.Arg(0))
	}
	return o, name, nil
}

// NumBase returns 1 + n, with a missing n counting as 0.
func NumBase(c *engine.Call) (engine.Value, error) {
	n, err := intArg(c, 0)
	if err != nil {
		return nil, err
	}
	return 1 + n, nil
}

// NumScaled returns n * super(n).
func NumScaled(c *engine.Call) (engine.Value, error) {
	n, err := intArg(c, 0)
	if err != nil {
		return nil, err
	}
	v, err := c.Super()
	if err != nil {
		return nil, err
	}
	base, ok := ToInt(v)
	if !ok {
		return nil, fmt.Errorf("num.scaled: super returned non-integer %v", v)
	}
	return n * base, nil
}

// HelloBase joins its arguments with spaces.
func HelloBase(c *engine.Call) (engine.Value, error) {
	parts := make([]string, len(c.Args()))
	for i, a := range c.Args() {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return strings.Join(parts, " "), nil
}

// HelloExtra appends ", extra" to super().
func HelloExtra(c *engine.Call) (engine.Value, error) {
	v, err := c.Super()
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%v, extra", v), nil
}

// HelloForward calls super("x", who).
func HelloForward(c *engine.Call) (engine.Value, error) {
	return c.SuperWith("x", c.Arg(0))
}

// MissingEcho is a methodMissing hook returning [name, args...].
func MissingEcho(c *engine.Call) (engine.Value, error) {
	out := make([]engine.Value, len(c.Args()))
	copy(out, c.Args())
	return out, nil
}

func intArg(c *engine.Call, i int) (int, error) {
	v := c.Arg(i)
	if v == nil {
		return 0, nil
	}
	n, ok := ToInt(v)
	if !ok {
		return 0, fmt.Errorf("%s: argument %d must be an integer, got %T", c.Name(), i, v)
	}
	return n, nil
}

// ToInt converts the integer-like values produced by Go code, YAML and JSON
// decoding into an int. Floats convert only when integral. Values outside
// the int range are rejected rather than wrapped.
func ToInt(v engine.Value) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		if uint64(n) > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	}
	return 0, false
}

// floatToInt accepts integral floats in [MinInt, MaxInt]. float64(MaxInt)
// rounds up to 2^63 on 64-bit platforms, so the upper bound is exclusive.
func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || f < math.MinInt || f >= -math.MinInt {
		return 0, false
	}
	return int(f), true
}
