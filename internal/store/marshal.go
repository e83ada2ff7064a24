package store

import (
	"fmt"

	"github.com/roach88/eigen/internal/ir"
)

// marshalArgs converts an argument list to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalArgs(args ir.IRArray) (string, error) {
	if args == nil {
		args = ir.IRArray{}
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// marshalResult converts a reply value to canonical JSON TEXT.
// A nil result is stored as JSON null.
func marshalResult(result ir.IRValue) (string, error) {
	if result == nil {
		result = ir.IRNull{}
	}
	data, err := ir.MarshalCanonical(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses canonical JSON TEXT to an IRArray.
// Large integers survive because ir.UnmarshalIRValue decodes via json.Number.
func unmarshalArgs(data string) (ir.IRArray, error) {
	if data == "" || data == "[]" {
		return ir.IRArray{}, nil
	}
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("unmarshal args: expected array, got %T", v)
	}
	return arr, nil
}

// unmarshalResult parses canonical JSON TEXT to an IRValue.
func unmarshalResult(data string) (ir.IRValue, error) {
	if data == "" {
		return ir.IRNull{}, nil
	}
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return v, nil
}
