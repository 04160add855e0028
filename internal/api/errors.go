package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoRefreshToken is returned when a 401 cannot be recovered because no
	// refresh token is stored.
	ErrNoRefreshToken = errors.New("no refresh token available")
)

// Error is a failed REST call. Status is 0 when no response was received.
type Error struct {
	Method  string
	Path    string
	BaseURL string
	Status  int
	Detail  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Unreachable reports whether the request never got a response.
func (e *Error) Unreachable() bool { return e.Status == 0 }

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// ErrorMessage turns err into operator-facing text: the server detail when
// present, then a status-based hint, then a reachability hint, then fallback.
func ErrorMessage(err error, fallback string) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return fallback
	}
	if d := strings.TrimSpace(apiErr.Detail); d != "" {
		return d
	}
	switch {
	case apiErr.Status == http.StatusNotFound:
		return fmt.Sprintf("API endpoint not found (%s). Check that AERO_API_BASE_URL points to your backend (ending with /api/v1).", apiErr.BaseURL)
	case apiErr.Status >= http.StatusInternalServerError:
		return "Server error. Please try again in a moment."
	case apiErr.Unreachable():
		return fmt.Sprintf("Cannot reach the API at %s. Check AERO_API_BASE_URL and that the backend is running.", apiErr.BaseURL)
	}
	return fallback
}
