package overseerr

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Error is the structured error returned by the Overseerr API.
// Status carries the HTTP status code; Reason the status text;
// Message and Errors whatever detail the response body provided.
type Error struct {
	Status  int
	Reason  string
	Message string
	Errors  []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("overseerr: %d %s: %s", e.Status, e.Reason, e.Message)
	}
	return fmt.Sprintf("overseerr: %d %s", e.Status, e.Reason)
}

// Unauthorized reports whether the error means the caller's delegated
// credential is invalid or expired.
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// checkResponse converts a non-2xx response into an *Error.
// The body is consumed either way.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	apiErr := &Error{
		Status: resp.StatusCode,
		Reason: http.StatusText(resp.StatusCode),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return apiErr
	}

	var detail struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &detail); err == nil {
		apiErr.Message = detail.Message
		apiErr.Errors = detail.Errors
	}

	return apiErr
}

const maxErrorBodySize = 64 * 1024
