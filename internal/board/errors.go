package board

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrCardNotFound    = errors.New("card not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrLabelNotFound   = errors.New("label not found")
	ErrArchiveNotFound = errors.New("archived card not found")
)

// ValidationError reports malformed mutation input. The board is left
// unchanged whenever one is returned.
type ValidationError struct {
	Op     string
	Field  string
	Reason string
	Err    error // optional underlying cause, e.g. ErrCardNotFound
}

func (e *ValidationError) Error() string {
	msg := e.Op + ": "
	if e.Field != "" {
		msg += e.Field + " "
	}
	msg += e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrValidation) true for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(op, field, reason string) error {
	return &ValidationError{Op: op, Field: field, Reason: reason}
}

func notFound(op string, err error, id string) error {
	return &ValidationError{Op: op, Reason: fmt.Sprintf("%q", id), Err: err}
}

// InvariantViolation signals a defect: the board reached a state its
// operations should make impossible, such as two cards tracking at once.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated (%s): %s", e.Invariant, e.Detail)
}
