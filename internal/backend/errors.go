package backend

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error is a classified backend failure. Transient errors (timeouts, rate
// limits, 5xx) are retried with bounded backoff; fatal errors (auth,
// malformed request) are surfaced immediately.
type Error struct {
	Backend    string
	StatusCode int
	Msg        string
	Transient  bool
	RetryAfter int // seconds, from a Retry-After header; 0 if absent
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s backend: %s (status %d)", e.Backend, e.Msg, e.StatusCode)
	}
	return fmt.Sprintf("%s backend: %s", e.Backend, e.Msg)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// classifyStatus builds an Error from an HTTP status and body excerpt.
func classifyStatus(backendName string, status int, msg string, retryAfter int) *Error {
	transient := status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= 500
	return &Error{
		Backend:    backendName,
		StatusCode: status,
		Msg:        msg,
		Transient:  transient,
		RetryAfter: retryAfter,
	}
}
