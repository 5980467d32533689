package services

import (
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/spotichart/internal/shared"
)

// ResolutionError means a chart identifier could not be mapped to a playable catalog track.
type ResolutionError struct {
	ID     string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve track %q: %s", e.ID, e.Reason)
}

func (e *ResolutionError) Is(target error) bool { return target == shared.ErrTrackNotFound }

// RateLimitError is returned for HTTP 429. RetryAfter is zero when the server gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

func (e *RateLimitError) Is(target error) bool { return target == shared.ErrRateLimited }

// AuthError is returned for HTTP 401 and 403 or when the stored token cannot be used.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	msg := "spotify authorization failed"
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *AuthError) Is(target error) bool {
	return target == shared.ErrNotAuthenticated ||
		(target == shared.ErrTokenExpired && e.Status == http.StatusUnauthorized)
}

// APIError is any other non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.Status)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == shared.ErrAPIRequest ||
		(target == shared.ErrPlaylistNotFound && e.Status == http.StatusNotFound)
}
