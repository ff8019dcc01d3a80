package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for the caller. The set is closed; anything that
// cannot be classified is Internal.
type Kind string

const (
	Unauthenticated    Kind = "unauthenticated"
	PermissionDenied   Kind = "permission_denied"
	NotFound           Kind = "not_found"
	InvalidArgument    Kind = "invalid_argument"
	AlreadyExists      Kind = "already_exists"
	FailedPrecondition Kind = "failed_precondition"
	Internal           Kind = "internal"
)

// Error is a classified error. Key is a stable, translatable identifier such as
// "invite.not_pending"; Err is the optional underlying cause.
type Error struct {
	Kind Kind
	Key  string
	Err  error
}

// New returns a classified error without a cause. Package-level sentinels are
// declared with New so callers can match them with errors.Is.
func New(kind Kind, key string) *Error {
	return &Error{Kind: kind, Key: key}
}

// Wrap classifies err under kind. A nil err yields a plain classified error.
func Wrap(kind Kind, key string, err error) *Error {
	return &Error{Kind: kind, Key: key, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Key + ": " + e.Err.Error()
	}
	return e.Key
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches classified errors by kind and key, so a sentinel decorated with
// With still satisfies errors.Is against the bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Key == e.Key
}

// With returns a copy of the sentinel carrying cause.
func (e *Error) With(cause error) *Error {
	return &Error{Kind: e.Kind, Key: e.Key, Err: cause}
}

// KindOf returns the kind of the outermost classified error in the chain.
// Unclassified errors are Internal; nil is "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// KeyOf returns the message key of the outermost classified error in the chain.
func KeyOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Key
	}
	return "internal_error"
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to the HTTP status the transport responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidArgument:
		return http.StatusBadRequest
	case AlreadyExists:
		return http.StatusConflict
	case FailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
