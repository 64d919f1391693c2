package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication matches every login failure: bad credentials,
	// unreachable host, or a rejected session.
	ErrAuthentication = errors.New("session: authentication failed")

	// ErrInvalidInvocation means an operation ran without a session in its
	// context. It is a programming error and is never retried.
	ErrInvalidInvocation = errors.New("session: no session in call context")
)

// AuthenticationError is returned by Login.
type AuthenticationError struct {
	User string
	Err  error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("session: authentication as %q failed: %v", e.User, e.Err)
}

func (e *AuthenticationError) Unwrap() []error {
	return []error{ErrAuthentication, e.Err}
}

// SessionRefreshFailedError is returned when an operation failed with a lost
// session and recovery did not work: either the re-login (Refresh) or the
// retried operation (Retry) failed. Initial is the failure that started the
// recovery. errors.Is and errors.As see all non-nil causes.
type SessionRefreshFailedError struct {
	Initial error
	Refresh error
	Retry   error
}

func (e *SessionRefreshFailedError) Error() string {
	if e.Refresh != nil {
		return fmt.Sprintf("session: re-authentication failed: %v (after: %v)", e.Refresh, e.Initial)
	}

	return fmt.Sprintf("session: retry after re-authentication failed: %v (after: %v)", e.Retry, e.Initial)
}

func (e *SessionRefreshFailedError) Unwrap() []error {
	var errs []error

	for _, err := range []error{e.Initial, e.Refresh, e.Retry} {
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}
