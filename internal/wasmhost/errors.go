package wasmhost

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingExport is returned when the guest lacks a required export.
	ErrMissingExport = errors.New("wasmhost: missing export")

	// ErrOutOfBounds is returned when a guest pointer falls outside memory.
	ErrOutOfBounds = errors.New("wasmhost: guest memory access out of bounds")

	// ErrGuestAlloc is returned when the guest malloc returns 0.
	ErrGuestAlloc = errors.New("wasmhost: guest allocation failed")

	// ErrNoResult is returned when a values call yields no descriptor.
	ErrNoResult = errors.New("wasmhost: guest returned no values")
)

// CallError wraps a trap or failure raised while calling a guest export.
type CallError struct {
	Export string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("wasmhost: calling %s: %v", e.Export, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}
