package modules

import (
	"errors"
	"fmt"
)

var (
	// ErrAppNotFound is returned when a requested code unit cannot be
	// located while the importer runs in strict mode.
	ErrAppNotFound = errors.New("app module not found")

	// ErrModuleNotCached is returned when Get is issued before Load.
	ErrModuleNotCached = errors.New("module not cached")

	// ErrMalformedURI is returned when a dotted URI has fewer than two
	// segments.
	ErrMalformedURI = errors.New("malformed uri")

	// ErrSymbolNotFound is returned when a dotted URI names a symbol the
	// module does not export.
	ErrSymbolNotFound = errors.New("symbol not found")
)

// LifecycleError wraps a failure raised while starting up or shutting down
// a module, naming the offending module and phase.
type LifecycleError struct {
	Phase  string // "startup" or "shutdown"
	Module string // empty for runtime-level hooks
	Err    error
}

// Error implements the error interface.
func (e *LifecycleError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("%s failed; %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s failed for module %q; %v", e.Phase, e.Module, e.Err)
}

// Unwrap returns the underlying error.
func (e *LifecycleError) Unwrap() error {
	return e.Err
}
