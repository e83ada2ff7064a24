package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/load"

	"github.com/roach88/eigen/internal/ir"
)

// LoadPath compiles the bundle at path, which is either a single .cue file or
// a directory whose .cue files form one CUE package.
func LoadPath(ctx *cue.Context, path string) (*ir.Bundle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load bundle: %w", err)
	}
	if info.IsDir() {
		return LoadDir(ctx, path)
	}
	return LoadFile(ctx, path)
}

// LoadFile compiles one .cue file on its own.
func LoadFile(ctx *cue.Context, path string) (*ir.Bundle, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load bundle: %w", err)
	}
	v := ctx.CompileBytes(src, cue.Filename(path))
	return CompileBundle(v)
}

// LoadDir unifies every .cue file of the package in dir and compiles the result.
func LoadDir(ctx *cue.Context, dir string) (*ir.Bundle, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load bundle %s: no CUE instances", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load bundle %s: %w", dir, inst.Err)
	}

	v := ctx.BuildInstance(inst)
	return CompileBundle(v)
}
