package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAuthRequired is returned when an authenticated endpoint is called
// with no token available. No network call is made in that case.
var ErrAuthRequired = errors.New("api: authentication required")

// RequestError is a non-2xx response from the backend. Message carries the
// server's human-readable detail when the error body had one, otherwise a
// generic status-based message.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("api: request failed (%d): %s", e.Status, e.Message)
}

// errorDetail extracts the backend's {"detail": "..."} message from an
// error body. Returns a status-based fallback when the body is not the
// structured error shape.
func errorDetail(body []byte, status int) string {
	var env struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Detail != "" {
		return env.Detail
	}
	return fmt.Sprintf("request failed with status %d", status)
}
