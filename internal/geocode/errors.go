package geocode

import (
	"fmt"
	"time"
)

// APIError is a non-2xx answer from the geocoding service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("geocode api error: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("geocode api error: status=%d", e.StatusCode)
}

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

// ServerError indicates 5xx errors from the service.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("geocoder error: %s", e.APIError.Error()) }

// UnreachableError indicates the service could not be reached at all.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("geocoder unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("geocoder unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }
