package fotasync

import (
	"fmt"

	"github.com/pkg/errors"
)

// ReauthRequiredError is returned by Refresh when the remote API rejected the
// credentials. The coordinator will not recover on its own: the caller must
// obtain a new token and rebuild the client.
type ReauthRequiredError struct {
	Err error
}

func (e *ReauthRequiredError) Error() string {
	return fmt.Sprintf("fotasync: reauthentication required: %v", e.Err)
}

func (e *ReauthRequiredError) Unwrap() error { return e.Err }

// UpdateFailedError is returned by Refresh for any non-authentication
// failure. The stored snapshot stays stale; the next scheduled round retries.
type UpdateFailedError struct {
	Err error
}

func (e *UpdateFailedError) Error() string {
	return fmt.Sprintf("fotasync: update failed: %v", e.Err)
}

func (e *UpdateFailedError) Unwrap() error { return e.Err }

// CommandFailedError wraps a failed task mutation. Nothing changed remotely,
// so no refresh was triggered; the caller may re-issue the command.
type CommandFailedError struct {
	Op  string
	Err error
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("fotasync: %s failed: %v", e.Op, e.Err)
}

func (e *CommandFailedError) Unwrap() error { return e.Err }

// IsReauthRequired reports whether err classifies as a credential failure.
func IsReauthRequired(err error) bool {
	var target *ReauthRequiredError
	return errors.As(err, &target)
}

// IsUpdateFailed reports whether err classifies as a transient refresh failure.
func IsUpdateFailed(err error) bool {
	var target *UpdateFailedError
	return errors.As(err, &target)
}

// IsCommandFailed reports whether err came from a task mutation command.
func IsCommandFailed(err error) bool {
	var target *CommandFailedError
	return errors.As(err, &target)
}
