package todoist

import (
	"errors"
	"fmt"
)

// AuthError indicates that the API token was rejected (HTTP 401/403).
// Auth failures are surfaced distinctly so callers can prompt for
// re-authentication instead of retrying.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("todoist auth error (%d): %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// APIError is a non-auth error response from the Todoist API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("todoist API error (%d): %s", e.StatusCode, e.Message)
}

// IsAPIError reports whether err (or any error in its chain) is an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// NetworkError wraps a transport-level failure, including request
// timeouts. These are retried only on the next scheduled poll cycle,
// never immediately.
type NetworkError struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("todoist request timeout for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("todoist network error for %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsTimeout reports whether err is a transport failure caused by the
// per-request deadline.
func IsTimeout(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr) && netErr.Timeout
}
