package errors

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error category. It is the only part of
// an engine error that callers should branch on.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindInvalidInput        Kind = "invalid_input"
	KindUnavailable         Kind = "unavailable"
	KindConfirmationUnknown Kind = "confirmation_unknown"
	KindQuoteExpired        Kind = "quote_expired"
	KindInsufficientFunds   Kind = "insufficient_funds"
	KindFatal               Kind = "fatal"
	KindInternal            Kind = "internal"
)

// Error is a typed engine error carrying a stable kind. Provider and RPC
// causes are wrapped, never surfaced verbatim to callers.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf extracts the kind from err, defaulting to KindInternal for untyped
// errors so callers never see a raw cause category.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserMessage returns the human-readable message without the wrapped cause
// chain, suitable for API responses.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Message
	}
	return "internal error"
}

// ExitCode maps an error kind to a stable process exit code for the CLI
// surface.
func ExitCode(err error) int {
	switch KindOf(err) {
	case "":
		return 0
	case KindInvalidInput:
		return 2
	case KindNotFound:
		return 3
	case KindUnavailable:
		return 12
	case KindConfirmationUnknown:
		return 14
	case KindQuoteExpired:
		return 15
	case KindInsufficientFunds:
		return 16
	case KindFatal:
		return 17
	default:
		return 1
	}
}
