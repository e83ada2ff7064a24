package engine

import (
	"errors"
	"fmt"
)

// DispatchError represents an error detected by the object model.
//
// Dispatch errors include:
//   - No such method: neither an implementation nor methodMissing exists
//   - Invalid module: include/uninclude given a bad argument
//   - Duplicate definition: a reserved or already-claimed name was redefined
//   - Super without context: super called outside an active dispatch frame
//
// DispatchError includes structured fields for diagnostics.
type DispatchError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Name is the message or definition name involved, if any.
	Name string

	// Receiver describes the receiver (for dispatch errors).
	Receiver string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes dispatch errors.
type ErrorCode string

const (
	// ErrCodeNoSuchMethod indicates dispatch found no implementation and no methodMissing hook.
	ErrCodeNoSuchMethod ErrorCode = "NO_SUCH_METHOD"

	// ErrCodeInvalidModule indicates include/uninclude was given an unusable module.
	ErrCodeInvalidModule ErrorCode = "INVALID_MODULE"

	// ErrCodeDuplicateDefinition indicates a name that cannot be redefined was redefined.
	ErrCodeDuplicateDefinition ErrorCode = "DUPLICATE_DEFINITION"

	// ErrCodeSuperWithoutContext indicates super was called outside an active dispatch frame.
	ErrCodeSuperWithoutContext ErrorCode = "SUPER_WITHOUT_CONTEXT"

	// ErrCodeDelegationCycle indicates a message delegation chain loops back on itself.
	ErrCodeDelegationCycle ErrorCode = "DELEGATION_CYCLE"

	// ErrCodeDepthExceeded indicates nested dispatch exceeded the configured depth.
	ErrCodeDepthExceeded ErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeInvalidName indicates an empty method name or nil implementation.
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"
)

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Name != "" && e.Receiver != "" {
		return fmt.Sprintf("%s: %s (name=%s, receiver=%s)", e.Code, e.Message, e.Name, e.Receiver)
	}
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (name=%s)", e.Code, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the ErrorCode carried by err, if err wraps a DispatchError.
func CodeOf(err error) (ErrorCode, bool) {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsNoSuchMethod returns true if the error is a NO_SUCH_METHOD error.
// Uses errors.As to handle wrapped errors.
func IsNoSuchMethod(err error) bool {
	return hasCode(err, ErrCodeNoSuchMethod)
}

// IsInvalidModule returns true if the error is an INVALID_MODULE error.
func IsInvalidModule(err error) bool {
	return hasCode(err, ErrCodeInvalidModule)
}

// IsDuplicateDefinition returns true if the error is a DUPLICATE_DEFINITION error.
func IsDuplicateDefinition(err error) bool {
	return hasCode(err, ErrCodeDuplicateDefinition)
}

// IsSuperWithoutContext returns true if the error is a SUPER_WITHOUT_CONTEXT error.
func IsSuperWithoutContext(err error) bool {
	return hasCode(err, ErrCodeSuperWithoutContext)
}

// IsDepthExceeded returns true if the error is a DEPTH_EXCEEDED error.
func IsDepthExceeded(err error) bool {
	return hasCode(err, ErrCodeDepthExceeded)
}

// NewNoSuchMethod creates a DispatchError for a message nobody answers.
func NewNoSuchMethod(name, receiver string) *DispatchError {
	return &DispatchError{
		Code:     ErrCodeNoSuchMethod,
		Message:  fmt.Sprintf("undefined method %q for %s", name, receiver),
		Name:     name,
		Receiver: receiver,
	}
}

// NewDuplicateDefinition creates a DispatchError for a name that may not be redefined.
// context names where the definition was attempted ("reserved name", "class", "matcher", ...).
func NewDuplicateDefinition(name, context string) *DispatchError {
	return &DispatchError{
		Code:    ErrCodeDuplicateDefinition,
		Message: fmt.Sprintf("%s %q is already defined", context, name),
		Name:    name,
		Details: map[string]string{"context": context},
	}
}

func newInvalidModule(format string, args ...any) *DispatchError {
	return &DispatchError{
		Code:    ErrCodeInvalidModule,
		Message: fmt.Sprintf(format, args...),
	}
}

func newSuperWithoutContext(name string) *DispatchError {
	msg := "super called outside an active dispatch frame"
	return &DispatchError{
		Code:    ErrCodeSuperWithoutContext,
		Message: msg,
		Name:    name,
	}
}

func newDelegationCycle(name string) *DispatchError {
	return &DispatchError{
		Code:    ErrCodeDelegationCycle,
		Message: "message delegation chain does not terminate",
		Name:    name,
	}
}

func newInvalidName(format string, args ...any) *DispatchError {
	return &DispatchError{
		Code:    ErrCodeInvalidName,
		Message: fmt.Sprintf(format, args...),
	}
}
