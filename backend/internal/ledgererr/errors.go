// Package ledgererr defines the error kinds returned by the accounting engine.
//
// Every failure that aborts an invocation carries a Kind so callers (the chaincode
// client, HTTP surfaces, tests) can branch on it without parsing messages.
// Sentinels match by kind, so errors.Is(err, ErrNotFound) holds for any
// NOT_FOUND error regardless of message or wrapping.
package ledgererr

import (
	"errors"
	"fmt"
)

// Kind classifies a ledger error.
type Kind string

const (
	KindNotFound               Kind = "NOT_FOUND"
	KindAlreadyExists          Kind = "ALREADY_EXISTS"
	KindUnauthorized           Kind = "UNAUTHORIZED"
	KindInvalidAmount          Kind = "INVALID_AMOUNT"
	KindReserveCeilingExceeded Kind = "RESERVE_CEILING_EXCEEDED"
	KindComplianceViolation    Kind = "COMPLIANCE_VIOLATION"
	KindInsufficientBalance    Kind = "INSUFFICIENT_BALANCE"
	KindMalformedRecord        Kind = "MALFORMED_RECORD"
	KindInvalidArgument        Kind = "INVALID_ARGUMENT"
	KindInvalidState           Kind = "INVALID_STATE"
	KindConflict               Kind = "CONFLICT"
	KindInternal               Kind = "INTERNAL"
)

// Error is a ledger failure with a kind, a human-readable message and an
// optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a ledger error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrAlreadyExists          = &Error{Kind: KindAlreadyExists}
	ErrUnauthorized           = &Error{Kind: KindUnauthorized}
	ErrInvalidAmount          = &Error{Kind: KindInvalidAmount}
	ErrReserveCeilingExceeded = &Error{Kind: KindReserveCeilingExceeded}
	ErrComplianceViolation    = &Error{Kind: KindComplianceViolation}
	ErrInsufficientBalance    = &Error{Kind: KindInsufficientBalance}
	ErrMalformedRecord        = &Error{Kind: KindMalformedRecord}
	ErrInvalidArgument        = &Error{Kind: KindInvalidArgument}
	ErrInvalidState           = &Error{Kind: KindInvalidState}
	ErrConflict               = &Error{Kind: KindConflict}
)

// New builds an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(err error, kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first ledger error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
