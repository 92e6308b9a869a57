package domain

import (
	"errors"
	"fmt"
	"strings"
)

// FallbackErrorMessage is shown when a failed response carries no message.
const FallbackErrorMessage = "Something went wrong. Please try again."

// NoDataMessage is rendered in place of rows for an empty result.
const NoDataMessage = "NO DATA FOUND"

var (
	ErrUnknownReport = errors.New("unknown report")
	ErrNotSupported  = errors.New("action not supported by report")
)

// ValidationError is raised before any network call when filter input is invalid.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// APIError is a non-2xx response from the ERP backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

var sessionErrorMarkers = []string{
	"invalid or expired token",
	"jwt expired",
	"token expired",
}

// IsSessionError reports whether the backend rejected the session token.
// Matching is by substring, case-insensitive.
func IsSessionError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	for _, marker := range sessionErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// UserMessage returns the text shown to the user for err.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if strings.TrimSpace(apiErr.Message) == "" {
			return FallbackErrorMessage
		}
		return apiErr.Message
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	if err == nil {
		return ""
	}
	return FallbackErrorMessage
}
