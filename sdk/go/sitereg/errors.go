package sitereg

import "fmt"

// AuthError indicates the token endpoint rejected the credential
// exchange or returned an unusable token response.
type AuthError struct {
	StatusCode int
	Body       string

	// Reason is set when the endpoint answered with a success status
	// but the response itself was unusable.
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("authentication failed: %s (status %d)", e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("authentication failed: token endpoint returned %d: %s", e.StatusCode, e.Body)
}

// APIError indicates the Registration API answered with a status other
// than 201. It carries the exact status code and the raw response body.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registration API error %d: %s", e.StatusCode, e.Body)
}

// DecodeError indicates a 201 response whose body did not match the
// expected registration response shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode registration response: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }
