// Package errors defines the typed error kinds shared across the domain
// layer and normalizes remote-service failures into those kinds.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a domain-layer failure.
type Kind int

const (
	// KindUnknown indicates an unclassified failure.
	KindUnknown Kind = iota

	// KindAuth indicates bad credentials or an expired session.
	KindAuth

	// KindDuplicateAccount indicates a sign-up for an existing identity.
	KindDuplicateAccount

	// KindMissingFields indicates required fields absent from a payload.
	KindMissingFields

	// KindInvalidInput indicates a locally rejected payload value.
	KindInvalidInput

	// KindNotFound indicates the referenced row does not exist.
	KindNotFound

	// KindForbidden indicates the identity lacks permission for the row.
	KindForbidden

	// KindConflict indicates a uniqueness violation.
	KindConflict

	// KindPersistence indicates an opaque remote write/read failure.
	KindPersistence

	// KindTransport indicates a transient network-level failure.
	KindTransport
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindDuplicateAccount:
		return "duplicate_account"
	case KindMissingFields:
		return "missing_fields"
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is a failure classified by Kind, optionally wrapping a cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so sentinel comparisons work
// with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind && (other.Message == "" || other.Message == e.Message)
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind wrapping a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Auth creates a KindAuth error.
func Auth(message string) *Error { return New(KindAuth, message) }

// DuplicateAccount creates a KindDuplicateAccount error.
func DuplicateAccount(email string) *Error {
	return Newf(KindDuplicateAccount, "an account already exists for %s", email)
}

// MissingFields creates a KindMissingFields error naming the absent fields.
func MissingFields(fields ...string) *Error {
	return Newf(KindMissingFields, "required fields missing: %s", strings.Join(fields, ", "))
}

// InvalidInput creates a KindInvalidInput error.
func InvalidInput(message string) *Error { return New(KindInvalidInput, message) }

// NotFound creates a KindNotFound error for an entity/id pair.
func NotFound(entity, id string) *Error {
	return Newf(KindNotFound, "%s not found: %s", entity, id)
}

// Forbidden creates a KindForbidden error.
func Forbidden(message string) *Error { return New(KindForbidden, message) }

// Conflict creates a KindConflict error.
func Conflict(message string) *Error { return New(KindConflict, message) }

// Persistence wraps an opaque remote failure during the named operation.
func Persistence(op string, err error) *Error {
	return Wrap(KindPersistence, op, err)
}

// Transport wraps a network-level failure during the named operation.
func Transport(op string, err error) *Error {
	return Wrap(KindTransport, op, err)
}

// KindOf extracts the kind from an error chain. Unclassified errors
// report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the HTTP status the boundary should emit.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateAccount, KindConflict:
		return http.StatusConflict
	case KindMissingFields, KindInvalidInput:
		return http.StatusBadRequest
	case KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
