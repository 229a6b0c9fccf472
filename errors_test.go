package fotasync

import (
	"testing"

	"github.com/fleetops/fotasync/internal/fota"
	"github.com/pkg/errors"
)

func TestErrorClassifiersUnwrap(t *testing.T) {
	authErr := &fota.AuthError{Status: 401, Message: "invalid or expired API token"}
	reauth := &ReauthRequiredError{Err: errors.Wrap(authErr, "fetch devices failed")}

	if !IsReauthRequired(reauth) {
		t.Fatal("reauth error not recognized")
	}
	if !fota.IsAuthError(reauth) {
		t.Fatal("wrapped auth cause must remain visible through the chain")
	}
	if IsUpdateFailed(reauth) {
		t.Fatal("reauth error misclassified as update failure")
	}

	update := &UpdateFailedError{Err: &fota.APIError{Status: 502, Message: "bad gateway"}}
	if !IsUpdateFailed(update) {
		t.Fatal("update failure not recognized")
	}
	if IsReauthRequired(update) {
		t.Fatal("update failure misclassified as reauth")
	}

	command := &CommandFailedError{Op: "cancel tasks", Err: authErr}
	if !IsCommandFailed(command) {
		t.Fatal("command failure not recognized")
	}
	var apiErr *fota.APIError
	if errors.As(command, &apiErr) {
		t.Fatal("unexpected api error in chain")
	}
}

func TestErrorClassifiersRejectForeignErrors(t *testing.T) {
	plain := errors.New("plain failure")
	if IsReauthRequired(plain) || IsUpdateFailed(plain) || IsCommandFailed(plain) {
		t.Fatal("plain error must not classify")
	}
	if IsReauthRequired(nil) || IsUpdateFailed(nil) || IsCommandFailed(nil) {
		t.Fatal("nil must not classify")
	}
}
