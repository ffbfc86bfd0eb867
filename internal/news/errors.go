package news

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across layers. Callers branch with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrMalformedDocument = errors.New("malformed document")
)

// FetchKind labels the class of a fetch failure.
type FetchKind string

const (
	FetchTimeout          FetchKind = "timeout"
	FetchConnectionFailed FetchKind = "connection_failed"
	FetchHTTPError        FetchKind = "http_error"
	FetchTooManyRequests  FetchKind = "too_many_requests"
)

// FetchError is a classified transport failure for one URL.
type FetchError struct {
	Kind       FetchKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could plausibly succeed.
// Non-429 HTTP errors are terminal; the server already answered.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FetchTimeout, FetchConnectionFailed, FetchTooManyRequests:
		return true
	default:
		return false
	}
}

// ErrorKind maps any error onto the run-summary taxonomy label.
func ErrorKind(err error) string {
	var fetchErr *FetchError
	switch {
	case errors.As(err, &fetchErr):
		return string(fetchErr.Kind)
	case errors.Is(err, ErrMalformedDocument):
		return "parse_failure"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "storage_failure"
	}
}
