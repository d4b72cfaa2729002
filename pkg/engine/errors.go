package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for engine operations.
var (
	// ErrUnknownComponent is returned when a value change or label lookup
	// names a key not present in the session's component set.
	ErrUnknownComponent = errors.New("engine: unknown component key")

	// ErrNoScript is returned when an operation needs a script run but no
	// script is registered.
	ErrNoScript = errors.New("engine: no script registered")
)

// ScriptError wraps an error raised by the user script. The session's stored
// components and pending-refresh set are left exactly as they were before the
// failed run.
type ScriptError struct {
	SessionID string
	Err       error
}

// Error returns the error message with session context.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("engine: script failed for session %s: %v", e.SessionID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ScriptError) Unwrap() error {
	return e.Err
}

// StateError wraps a storage or serialization failure with operation context.
type StateError struct {
	SessionID string
	Op        string
	Err       error
}

// Error returns the error message with session context.
func (e *StateError) Error() string {
	return fmt.Sprintf("engine: session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *StateError) Unwrap() error {
	return e.Err
}
