package auth

import (
	"errors"
	"fmt"
)

// ErrAuth matches every authentication failure, including CredentialsError.
var ErrAuth = errors.New("gmail authentication failed")

// ErrNoToken is returned by a TokenStore that holds no token.
var ErrNoToken = errors.New("no stored token")

// CredentialsError reports a missing or malformed credentials.json.
type CredentialsError struct {
	Path  string
	Cause error
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("oauth credentials %s: %v", e.Path, e.Cause)
}

func (e *CredentialsError) Unwrap() error { return e.Cause }

func (e *CredentialsError) Is(target error) bool { return target == ErrAuth }

// AuthError reports a failed consent flow or a rejected token refresh.
type AuthError struct {
	Op    string
	Cause error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *AuthError) Unwrap() error { return e.Cause }

func (e *AuthError) Is(target error) bool { return target == ErrAuth }
