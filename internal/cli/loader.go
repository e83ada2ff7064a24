package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/eigen/internal/compiler"
	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/ir"
)

// LoadResult is a compiled bundle directory.
type LoadResult struct {
	Bundle    *ir.Bundle
	FileCount int    // number of .cue files found
	Hash      string // ir.BundleHash of Bundle
}

// LoadError represents an error that occurred during bundle loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants shared by all commands. Validation codes (E1xx) come
// from the compiler package.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load or build failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeCompile      = "E006" // Declaration does not compile
	ErrCodeInvalidArgs  = "E007" // --args/--init is not a JSON array
	ErrCodeSendFailed   = "E008" // the send itself failed
	ErrCodeUnknownName  = "E009" // no such class or module
	ErrCodeStoreFailed  = "E010" // trace database error
	ErrCodeTestFailures = "E011" // one or more scenarios failed
)

// LoadBundle compiles every .cue file of the package in dir.
//
// It reports structural problems (missing directory, no files, CUE syntax
// or unification errors, malformed declarations) as *LoadError. Semantic
// checks are left to CheckBundle.
func LoadBundle(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("bundle directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing bundle directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	bundle, err := compiler.LoadDir(cuecontext.New(), dir)
	if err != nil {
		return nil, convertLoadError(err)
	}

	hash, err := ir.BundleHash(bundle)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("hashing bundle: %v", err)}
	}

	return &LoadResult{Bundle: bundle, FileCount: len(files), Hash: hash}, nil
}

// CheckBundle runs every semantic check: names, references, host functions
// and hierarchy cycles. An empty result means the bundle installs cleanly.
func CheckBundle(b *ir.Bundle, lib engine.Library) []compiler.ValidationError {
	return compiler.Validate(b, lib)
}

// InstallBundle loads dir and installs it into a new engine.
func InstallBundle(dir string, lib engine.Library, logger *slog.Logger, opts ...engine.EngineOption) (*engine.Engine, *LoadResult, error) {
	loaded, err := LoadBundle(dir)
	if err != nil {
		return nil, nil, err
	}
	if errs := CheckBundle(loaded.Bundle, lib); len(errs) > 0 {
		return nil, loaded, &LoadError{Code: errs[0].Code, Message: errs[0].Error()}
	}

	e := engine.New(append([]engine.EngineOption{engine.WithLogger(logger)}, opts...)...)
	if err := compiler.Install(loaded.Bundle, e, lib); err != nil {
		return nil, loaded, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	return e, loaded, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertLoadError keeps the source position of compiler and CUE errors.
func convertLoadError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := ErrCodeCompile
		if compileErr.Field == "cue" {
			code = ErrCodeLoadFailed
		}
		return &LoadError{Code: code, Message: compileErr.Field + ": " + compileErr.Message, Pos: compileErr.Pos}
	}
	var cueErr cueerrors.Error
	if errors.As(err, &cueErr) {
		return &LoadError{Code: ErrCodeLoadFailed, Message: cueerrors.Details(cueErr, nil), Pos: cueErr.Position()}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}
