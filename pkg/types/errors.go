package types

import (
	"errors"
	"fmt"
)

// Validation errors. Caller-correctable; never persisted, never retried.
var (
	ErrOutOfRange         = errors.New("coordinate out of range")
	ErrTooFewPoints       = errors.New("polygon needs at least 3 points")
	ErrDegenerateGeometry = errors.New("polygon vertices are all coincident")
	ErrInvalidAttribute   = errors.New("invalid attribute value")
	ErrImmutableField     = errors.New("field is immutable")
	ErrUnknownField       = errors.New("unknown field")
)

// Store and creation-mode errors. Usage errors surfaced synchronously.
var (
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidGeometry     = errors.New("geometry was not validated")
	ErrModeAlreadyActive   = errors.New("a creation mode is already active")
	ErrNoPolygonInProgress = errors.New("no polygon in progress")
	ErrDuplicateID         = errors.New("duplicate entity id")
	ErrStoreNotReady       = errors.New("store is not loaded yet")
	ErrInvalidCollection   = errors.New("invalid collection")
)

// Persistence error kinds. Transient or environmental.
var (
	ErrNetworkFailure     = errors.New("network failure")
	ErrRemoteRejected     = errors.New("remote rejected request")
	ErrStorageUnavailable = errors.New("local storage unavailable")
)

var validationErrors = []error{
	ErrOutOfRange,
	ErrTooFewPoints,
	ErrDegenerateGeometry,
	ErrInvalidAttribute,
	ErrImmutableField,
	ErrUnknownField,
}

// PersistenceError is the typed failure returned across the persistence
// gateway boundary. Kind is one of ErrNetworkFailure, ErrRemoteRejected or
// ErrStorageUnavailable; errors.Is matches both Kind and the underlying Err.
type PersistenceError struct {
	Op   string // "load remote", "save cache", ...
	Kind error
	Err  error
}

// Error implements error.
func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *PersistenceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewPersistenceError wraps err as a PersistenceError of the given kind.
// An err that already is a PersistenceError is returned with Op replaced.
func NewPersistenceError(op string, kind, err error) *PersistenceError {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return &PersistenceError{Op: op, Kind: pe.Kind, Err: pe.Err}
	}
	return &PersistenceError{Op: op, Kind: kind, Err: err}
}

// IsValidation reports whether err is a caller-correctable validation error.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsPersistence reports whether err came from the persistence gateway.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
