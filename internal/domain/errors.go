package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindForbidden         ErrorKind = "forbidden"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindNotPayable        ErrorKind = "not_payable"
	KindDuplicatePayment  ErrorKind = "duplicate_payment"
	KindAlreadySettled    ErrorKind = "already_settled"
	KindInvalidAmount     ErrorKind = "invalid_amount"
	KindConflict          ErrorKind = "conflict"
	KindInvalidInput      ErrorKind = "invalid_input"
)

// Error is the typed failure returned by the booking and settlement core.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind when target carries no message,
// so errors.Is(err, ErrNotFound) works for every not-found failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrNotPayable        = &Error{Kind: KindNotPayable}
	ErrDuplicatePayment  = &Error{Kind: KindDuplicatePayment}
	ErrAlreadySettled    = &Error{Kind: KindAlreadySettled}
	ErrInvalidAmount     = &Error{Kind: KindInvalidAmount}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
)

func Errorf(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// MessageOf returns the human-readable part of a domain error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}
