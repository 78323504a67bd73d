package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ValidationError indicates client-side input validation failed before any
// network call was made. It is a distinct category from server errors and
// must never be reported as one.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NetworkError indicates the request could not be dispatched at all
// (DNS failure, refused connection, cancelled context).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("api: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError indicates the server responded with a non-2xx status.
// Body holds the raw response bytes; Message holds the server-supplied
// "error" or "message" field when the body parsed as JSON.
type HTTPError struct {
	Status  int
	Body    []byte
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: server returned %d", e.Status)
}

// UserMessage converts an error into a user-facing message: a validation
// error carries its own text, a server error contributes its message field,
// anything else falls back to the given default.
func UserMessage(err error, fallback string) string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Msg
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	return fallback
}

// newHTTPError builds an HTTPError, extracting the server message when the
// body is a JSON object with an "error" or "message" field.
func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{Status: status, Body: body}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			e.Message = payload.Error
		} else if payload.Message != "" {
			e.Message = payload.Message
		}
	}
	return e
}
