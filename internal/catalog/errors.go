package catalog

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyResponse is returned by DeleteProduct when the backend answers
// without a body. The backend signals a completed delete with a non-empty body.
var ErrEmptyResponse = errors.New("empty response body")

// TransportError reports a request that never produced an HTTP response:
// connection failures, timeouts, or a call rejected by the open breaker.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("execute request %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// NotFound reports whether the backend did not know the addressed product.
func (e *StatusError) NotFound() bool {
	return e.Code == http.StatusNotFound
}

// DecodeError reports a response body that was not the expected JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsTransport reports whether err, or anything it wraps, is a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsDecode reports whether err, or anything it wraps, is a *DecodeError.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// countsAsFailure decides whether err should count against the circuit
// breaker. Only problems with reaching a healthy backend count; rejected
// input and bad payloads do not.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if IsTransport(err) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError
	}
	return false
}
