package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failure so callers can decide how far it propagates
type Kind string

const (
	KindNetwork     Kind = "network"
	KindRateLimit   Kind = "rate_limit"
	KindAuth        Kind = "auth"
	KindParsing     Kind = "parsing"
	KindNotFound    Kind = "not_found"
	KindServerError Kind = "server_error"
	KindStorage     Kind = "storage"
	KindConfig      Kind = "config"
	KindUnknown     Kind = "unknown"
)

// Error is a classified failure from the API client, the storage layer or config loading
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Err     error

	// RetryAfter is the wait the server asked for, zero when it gave none
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind that wraps err
func Wrap(kind Kind, err error, message string) *Error {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// FromStatus maps a non-2xx HTTP status to an Error.
// 403 is treated as rate limiting because that is how the photo API signals an exhausted hourly quota.
func FromStatus(code int) *Error {
	e := &Error{Code: code}
	switch {
	case code == http.StatusUnauthorized:
		e.Kind, e.Message = KindAuth, "invalid or missing access key"
	case code == http.StatusForbidden, code == http.StatusTooManyRequests:
		e.Kind, e.Message = KindRateLimit, "access denied, rate limit likely reached"
	case code == http.StatusNotFound:
		e.Kind, e.Message = KindNotFound, "resource not found"
	case code >= 500:
		e.Kind, e.Message = KindServerError, "server error"
	default:
		e.Kind, e.Message = KindUnknown, fmt.Sprintf("unexpected status code: %d", code)
	}
	return e
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// RetryAfterOf returns the server's requested wait carried by err, or zero
func RetryAfterOf(err error) time.Duration {
	var e *Error
	if stderrors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable checks if an error kind should be retried
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindNetwork, KindServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error.
// 403 and 429 are not retryable: the quota resets hourly.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0:
		return true
	case 401, 403, 404, 429:
		return false
	default:
		return statusCode >= 500
	}
}
