// Package plugin binds tree actions to exports of WebAssembly modules.
//
// A plugin is a Wasm module exporting functions of type (i32) -> ().
// Match actions receive the match length and deliver actions receive the
// byte. The module instance lives as long as the Plugin, so exports may keep
// state in globals or linear memory between calls.
package plugin

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingExport indicates the requested export function does not exist.
	ErrMissingExport = errors.New("missing export function")

	// ErrABIVersionMismatch indicates the plugin's abi_version export
	// returned an unsupported version.
	ErrABIVersionMismatch = errors.New("abi version mismatch")

	// ErrClosed is returned when a closed plugin is used.
	ErrClosed = errors.New("plugin is closed")
)

// ABIError reports an export that is missing or has the wrong signature.
type ABIError struct {
	Function string
	Reason   string
	Err      error
}

func (e *ABIError) Error() string {
	return fmt.Sprintf("abi error in %s: %s", e.Function, e.Reason)
}

func (e *ABIError) Unwrap() error {
	return e.Err
}

// RuntimeError wraps a wazero failure.
type RuntimeError struct {
	Operation string
	Err       error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("wasm runtime error during %s: %v", e.Operation, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}
