package client

import "fmt"

// HTTPError represents an HTTP error response from the remote API.
// It exposes the status code so callers can detect specific cases (e.g., 404)
// without parsing text messages.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// ConfigFetchError is returned when the system configuration cannot be read.
// Err is usually an *HTTPError carrying the server's response.
type ConfigFetchError struct {
	Message string
	Err     error
}

func (e *ConfigFetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ConfigFetchError) Unwrap() error { return e.Err }

// InvalidAPICallError reports a caller-side contract violation, such as a
// repository definition without a key or a call without any credentials.
type InvalidAPICallError struct {
	Reason string
	Err    error
}

func (e *InvalidAPICallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid API call: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid API call: %s", e.Reason)
}

func (e *InvalidAPICallError) Unwrap() error { return e.Err }

// InvalidCredentialsError is returned when neither the current nor the new
// secret authenticates the user.
type InvalidCredentialsError struct {
	Username string
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("neither the old nor the new password is valid for user '%s'", e.Username)
}

// UnknownRestError wraps a server response outside the expected cases.
type UnknownRestError struct {
	Operation string
	Response  *HTTPError
}

func (e *UnknownRestError) Error() string {
	if e.Response == nil {
		return fmt.Sprintf("%s: unexpected response", e.Operation)
	}
	return fmt.Sprintf("%s: unexpected response: %v", e.Operation, e.Response)
}

func (e *UnknownRestError) Unwrap() error {
	if e.Response == nil {
		return nil
	}
	return e.Response
}
