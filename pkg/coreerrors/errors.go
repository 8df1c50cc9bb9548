// Package coreerrors defines the typed error kinds surfaced by every other
// package in this module. Callers should use errors.Is against the sentinel
// values below; the constructors attach contextual fields (component name,
// file path) via fmt.Errorf's %w wrapping so the sentinel is still matched
// after wrapping.
package coreerrors

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Compare with errors.Is, not ==, since the functions
// below wrap these with contextual detail.
var (
	ErrSymbolTableOverflow         = errors.New("symbol table overflow")
	ErrMissingComponent            = errors.New("missing component")
	ErrComponentNotLoaded          = errors.New("component not loaded")
	ErrReadOnlyComponent           = errors.New("read-only component")
	ErrInvalidComponentDescription = errors.New("invalid component description")
	ErrInvalidComponentType        = errors.New("invalid component type")
	ErrLoadingAnnotationStorage    = errors.New("failed loading annotation storage")
	ErrIO                          = errors.New("io error")
	ErrTimeout                     = errors.New("operation timed out")
	ErrLockPoisoning               = errors.New("lock poisoning")
	ErrOther                       = errors.New("internal error")
)

// MissingComponent reports that a query needs a component that does not
// exist in the corpus. Fatal for the query it was raised from.
func MissingComponent(componentDescription string) error {
	return fmt.Errorf("%w: %s", ErrMissingComponent, componentDescription)
}

// ComponentNotLoaded reports a component that exists but has not been paged
// in yet. Recoverable by the caller triggering a load.
func ComponentNotLoaded(componentDescription string) error {
	return fmt.Errorf("%w: %s", ErrComponentNotLoaded, componentDescription)
}

// ReadOnlyComponent reports a mutation attempted against an optimized,
// non-writable graph storage implementation.
func ReadOnlyComponent(serializationID string) error {
	return fmt.Errorf("%w: implementation %q", ErrReadOnlyComponent, serializationID)
}

// InvalidComponentDescription reports a component description that could
// not be parsed as "type/layer/name".
func InvalidComponentDescription(raw string) error {
	return fmt.Errorf("%w: expected ctype/layer/name, got %q", ErrInvalidComponentDescription, raw)
}

// InvalidComponentType reports a component type string outside the closed
// set defined in pkg/types.
func InvalidComponentType(raw string) error {
	return fmt.Errorf("%w: %q", ErrInvalidComponentType, raw)
}

// LoadingAnnotationStorage wraps an I/O failure encountered while loading an
// annotation store from disk, with the offending path attached.
func LoadingAnnotationStorage(path string, cause error) error {
	return fmt.Errorf("%w: could not load annotation storage from %q: %w", ErrLoadingAnnotationStorage, path, cause)
}

// IO wraps a generic I/O failure with path context.
func IO(path string, cause error) error {
	return fmt.Errorf("%w: %q: %w", ErrIO, path, cause)
}

// Timeout reports that a cooperative deadline elapsed mid-traversal or
// mid-join.
func Timeout() error {
	return ErrTimeout
}

// LockPoisoning reports that a panic occurred while a lock was held; the
// operation that observed it must abort rather than continue on
// possibly-inconsistent state.
func LockPoisoning(detail string) error {
	return fmt.Errorf("%w: %s", ErrLockPoisoning, detail)
}

// Other wraps a foreign error that does not fit any other kind.
func Other(cause error) error {
	return fmt.Errorf("%w: %w", ErrOther, cause)
}
