package api

import (
	"fmt"
	"net/http"
)

// ConfigurationError is returned before any request when the base origin is unset.
type ConfigurationError struct {
	// Setting names the missing configuration key.
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing %s: backend origin is not configured", e.Setting)
}

// TransportError is returned when the backend stayed unreachable after the warmup retry.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: backend unreachable: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx answer from a reachable backend.
// Its message is the raw response body so it can be shown verbatim.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
	}
	return e.Body
}

// AuthDeclinedError is returned when a 401 required a login that did not complete.
// Err is nil when the user dismissed the prompt.
type AuthDeclinedError struct {
	Err error
}

func (e *AuthDeclinedError) Error() string {
	if e.Err == nil {
		return "authentication declined"
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthDeclinedError) Unwrap() error { return e.Err }
