package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RequestError is a non-2xx transport response. It carries the status code
// and raw body for diagnostics.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// APIError is a 2xx response that carries an explicit failure flag. The
// backend supplies a machine code and a human message; callers can treat
// these differently from connectivity failures.
type APIError struct {
	Code    string
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api error %s", e.Code)
}

// NetworkError is a transport-level failure: DNS, connection refused,
// timeout. The request never produced a classified HTTP response.
type NetworkError struct {
	Path string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s: %v", e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ErrNotConfigured is returned when a gateway call is attempted without a
// base URL. The engine checks Configured() first, so hitting this indicates
// a caller bypassed the precondition.
var ErrNotConfigured = errors.New("gateway: no API base URL configured")

// StatusOf returns the HTTP status of a RequestError in the chain, or 0.
func StatusOf(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return 0
}
