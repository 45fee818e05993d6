package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/lu-zhengda/gmailwrapper/internal/auth"
	"github.com/lu-zhengda/gmailwrapper/internal/gmail"
	"github.com/lu-zhengda/gmailwrapper/internal/store"
	"google.golang.org/api/googleapi"
)

// FormatError turns an error into a one-line message with a hint at the fix.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var credErr *auth.CredentialsError
	if errors.As(err, &credErr) {
		return fmt.Sprintf("OAuth client credentials missing or invalid (expected at %s): %v. "+
			"Download an installed-app credentials.json from the Google Cloud console.", credErr.Path, credErr.Cause)
	}

	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		return fmt.Sprintf("Authorization failed (%s): %v. Run: gmailwrapper auth login", authErr.Op, authErr.Cause)
	}

	if gmail.IsUnauthorized(err) {
		return "Gmail rejected the access token (401). Run: gmailwrapper auth login"
	}

	var apiErr *gmail.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && len(gerr.Errors) > 0 && gerr.Errors[0].Reason != "" {
			return fmt.Sprintf("Gmail API error (%d %s): %s", apiErr.StatusCode, gerr.Errors[0].Reason, msg)
		}
		return fmt.Sprintf("Gmail API error (%d): %s", apiErr.StatusCode, msg)
	}

	var reqErr *gmail.RequestError
	if errors.As(err, &reqErr) {
		if errors.Is(reqErr.Cause, context.DeadlineExceeded) || errors.Is(reqErr.Cause, context.Canceled) {
			return fmt.Sprintf("Request to Gmail cancelled (%s %s)", reqErr.Method, reqErr.URL)
		}
		return fmt.Sprintf("Could not reach Gmail (%s %s): %v", reqErr.Method, reqErr.URL, reqErr.Cause)
	}

	if errors.Is(err, store.ErrNotFound) {
		return err.Error() + ". Run: gmailwrapper sync"
	}

	return err.Error()
}
