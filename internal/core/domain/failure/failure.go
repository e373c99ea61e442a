package failure

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures.
type Kind string

const (
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindInvalidRequest     Kind = "invalid_request"
	KindRateLimited        Kind = "rate_limited"
	KindUnavailable        Kind = "unavailable"
	KindTimeout            Kind = "timeout"
	KindRejected           Kind = "rejected"
	KindCacheDegraded      Kind = "cache_degraded"
	KindInvalidationFailed Kind = "invalidation_failed"
)

// Codes carried by Rejected failures.
const (
	CodeNotFound = "not_found"
	CodeConflict = "conflict"
	CodeInvalid  = "invalid"
)

// Error is the typed failure returned across component boundaries.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, and on Code when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Unauthorized(msg string) *Error   { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error      { return New(KindForbidden, msg) }
func InvalidRequest(msg string) *Error { return New(KindInvalidRequest, msg) }
func RateLimited(msg string) *Error    { return New(KindRateLimited, msg) }

func Unavailable(msg string, err error) *Error { return Wrap(KindUnavailable, msg, err) }
func Timeout(msg string, err error) *Error     { return Wrap(KindTimeout, msg, err) }

// Rejected is a business-rule failure reported by the system of record.
func Rejected(code, msg string) *Error {
	return &Error{Kind: KindRejected, Code: code, Message: msg}
}

func NotFound(msg string) *Error { return Rejected(CodeNotFound, msg) }

// Sentinels for errors.Is.
var (
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
	ErrForbidden      = &Error{Kind: KindForbidden}
	ErrInvalidRequest = &Error{Kind: KindInvalidRequest}
	ErrUnavailable    = &Error{Kind: KindUnavailable}
	ErrTimeout        = &Error{Kind: KindTimeout}
	ErrRejected       = &Error{Kind: KindRejected}
	ErrNotFound       = &Error{Kind: KindRejected, Code: CodeNotFound}
	ErrRateLimited    = &Error{Kind: KindRateLimited}
)

// KindOf returns the failure kind of err, or "" when err is not a failure.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsRetryable reports whether a caller may retry err with backoff.
// Timeout counts as Unavailable.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}
