package common

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindInvalidState      ErrorKind = "INVALID_STATE"
	KindPersistence       ErrorKind = "PERSISTENCE_ERROR"
	KindNotFound          ErrorKind = "NOT_FOUND"
)

// Sentinels for errors.Is checks against a *DomainError of the matching kind.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidState      = errors.New("invalid state")
	ErrPersistence       = errors.New("persistence failure")
	ErrNotFound          = errors.New("not found")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:        ErrValidation,
	KindInvalidTransition: ErrInvalidTransition,
	KindInvalidState:      ErrInvalidState,
	KindPersistence:       ErrPersistence,
	KindNotFound:          ErrNotFound,
}

// DomainError is the single error type returned across component boundaries.
type DomainError struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func NewValidationError(op, format string, args ...any) error {
	return &DomainError{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NewInvalidTransitionError(op string, from, to any) error {
	return &DomainError{Kind: KindInvalidTransition, Op: op, Msg: fmt.Sprintf("cannot move from %v to %v", from, to)}
}

func NewInvalidStateError(op, format string, args ...any) error {
	return &DomainError{Kind: KindInvalidState, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(op, resource string, id any) error {
	return &DomainError{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf("%s %v not found", resource, id)}
}

func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DomainError{Kind: KindPersistence, Op: op, Msg: "storage operation failed", Err: err}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Outcome is the success flag and message handed to UI code instead of an error.
type Outcome struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Code    ErrorKind `json:"code,omitempty"`
}

// ToOutcome converts err into an Outcome. Persistence and unknown errors are
// reduced to a generic notice so storage details never reach the user.
func ToOutcome(err error) Outcome {
	if err == nil {
		return Outcome{Success: true, Message: "ok"}
	}
	var de *DomainError
	if !errors.As(err, &de) {
		return Outcome{Message: SecureErrorMessage("complete the request", err).Error()}
	}
	if de.Kind == KindPersistence {
		return Outcome{Message: SecureErrorMessage(de.Op, err).Error(), Code: de.Kind}
	}
	return Outcome{Message: de.Msg, Code: de.Kind}
}

// SecureErrorMessage creates standardized error messages to prevent information leakage
func SecureErrorMessage(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s: operation could not be completed", operation)
}
