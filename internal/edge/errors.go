// Package edge provides an HTTP client for a CTERA Edge Filer: cookie-based
// login against the management API and file operations over the WebDAV share
// at /localFiles.
package edge

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, edge.ErrNotFound) to check.
var (
	ErrBadRequest         = errors.New("edge: bad request")
	ErrUnauthorized       = errors.New("edge: unauthorized")
	ErrForbidden          = errors.New("edge: forbidden")
	ErrNotFound           = errors.New("edge: not found")
	ErrNotAllowed         = errors.New("edge: method not allowed")
	ErrConflict           = errors.New("edge: conflict")
	ErrPreconditionFailed = errors.New("edge: precondition failed")
	ErrLocked             = errors.New("edge: resource locked")
	ErrServerError        = errors.New("edge: server error")

	// ErrSessionExpired is returned when the filer bounces a request to its
	// login page, which is how it signals an expired or invalidated session.
	ErrSessionExpired = errors.New("edge: session expired")
)

// maxErrorMessage caps how much of an error response body is kept.
const maxErrorMessage = 512

// EdgeError wraps a sentinel error with the HTTP status code, the request that
// failed, and the filer's error message for debugging.
type EdgeError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *EdgeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("edge: %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("edge: %s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
}

func (e *EdgeError) Unwrap() error {
	return e.Err
}

// DeleteError is returned by Delete when some paths could not be removed.
// Deleted lists the paths that were removed before and after the failures.
type DeleteError struct {
	Deleted  []string
	Failures []DeleteFailure
}

// DeleteFailure is one path Delete could not remove.
type DeleteFailure struct {
	Path string
	Err  error
}

func (e *DeleteError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Err.Error()
	}

	return strings.Join(msgs, "\n")
}

func (e *DeleteError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}

	return errs
}

// Remaining returns the failed paths, as they were passed to Delete.
func (e *DeleteError) Remaining() []string {
	paths := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		paths[i] = f.Path
	}

	return paths
}

// classifyResponse maps a non-2xx response to a sentinel error. Redirects to
// the login page, and 403s that complain about the session, mean the session
// cookie is no longer accepted.
func classifyResponse(resp *http.Response, message string) error {
	if isRedirect(resp.StatusCode) && strings.Contains(resp.Header.Get("Location"), "login") {
		return ErrSessionExpired
	}

	if resp.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(message), "session") {
		return ErrSessionExpired
	}

	return classifyStatus(resp.StatusCode)
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a dedicated sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusMethodNotAllowed:
		return ErrNotAllowed
	case http.StatusConflict:
		return ErrConflict
	case http.StatusPreconditionFailed:
		return ErrPreconditionFailed
	case http.StatusLocked:
		return ErrLocked
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// trimMessage flattens and truncates an error body for inclusion in EdgeError.
func trimMessage(body []byte) string {
	msg := strings.Join(strings.Fields(string(body)), " ")
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage] + "..."
	}

	return msg
}
