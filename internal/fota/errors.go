package fota

import (
	"fmt"

	"github.com/pkg/errors"
)

// AuthError indicates the API rejected the credentials (HTTP 401/403).
// Callers should not retry with the same token.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("fota: authentication failed (http %d)", e.Status)
	}
	return fmt.Sprintf("fota: authentication failed (http %d): %s", e.Status, e.Message)
}

// APIError covers every non-authentication failure: connectivity, non-2xx
// responses and malformed payloads.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("fota: %s: %v", e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("fota: api request failed: %v", e.Err)
	case e.Status > 0:
		return fmt.Sprintf("fota: api request failed (http %d): %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("fota: api request failed: %s", e.Message)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or anything it wraps) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
