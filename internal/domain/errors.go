package domain

import (
	"errors"
	"fmt"
)

// ValidationKind discriminates client-caused request failures.
type ValidationKind string

const (
	KindInvalidAddress       ValidationKind = "InvalidAddress"
	KindInvalidNumberOfTrees ValidationKind = "InvalidNumberOfTrees"
	KindInvalidLocation      ValidationKind = "InvalidLocation"
	KindInvalidCoordinates   ValidationKind = "InvalidCoordinates"
	KindNotInChicago         ValidationKind = "NotInChicago"
)

// ValidationError is a client-caused failure detected before any side effect.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newValidationError(kind ValidationKind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsValidationError extracts a ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

var (
	// ErrAddressNotFound means the 311 address picker had no match for the address.
	ErrAddressNotFound = errors.New("address not found")

	// ErrDuplicateAddress is returned by stores when the street address is already on record.
	ErrDuplicateAddress = errors.New("duplicate street address")

	// ErrNotFound is returned by stores for missing rows.
	ErrNotFound = errors.New("tree request not found")
)

// ExternalSubmissionError wraps failures of the 311 automation.
type ExternalSubmissionError struct {
	Message string
	Err     error
}

func (e *ExternalSubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("external submission failed: %s: %v", e.Message, e.Err)
	}
	return "external submission failed: " + e.Message
}

func (e *ExternalSubmissionError) Unwrap() error { return e.Err }

// PersistenceError wraps store failures other than duplicates.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
