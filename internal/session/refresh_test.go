package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctera/ctera-edge-mcp/internal/edge"
	"github.com/ctera/ctera-edge-mcp/internal/edge/edgetest"
)

// scriptedOp returns the queued results in order and records each call on
// conn so its position relative to logins can be checked.
func scriptedOp(conn *fakeConn, errs ...error) (Op[string, string], *int) {
	calls := 0

	return func(_ context.Context, req string) (string, error) {
		calls++
		conn.record("op")

		if calls <= len(errs) && errs[calls-1] != nil {
			return "", errs[calls-1]
		}

		return "done:" + req, nil
	}, &calls
}

func sessionCtx(t *testing.T, conn *fakeConn) context.Context {
	t.Helper()

	return NewContext(context.Background(), newFakeSession(t, conn))
}

func TestRefresh_Success(t *testing.T) {
	conn := &fakeConn{}
	op, calls := scriptedOp(conn)

	got, err := Refresh(slog.Default(), "test", op)(sessionCtx(t, conn), "x")

	require.NoError(t, err)
	assert.Equal(t, "done:x", got)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 0, conn.count("login"))
}

func TestRefresh_RetrySucceedsAfterOneLogin(t *testing.T) {
	conn := &fakeConn{}
	op, calls := scriptedOp(conn, edge.ErrSessionExpired)

	got, err := Refresh(slog.Default(), "test", op)(sessionCtx(t, conn), "x")

	require.NoError(t, err)
	assert.Equal(t, "done:x", got)
	assert.Equal(t, 2, *calls)
	assert.Equal(t, []string{"op", "login", "op"}, conn.history())
}

func TestRefresh_TextualSessionFailure(t *testing.T) {
	conn := &fakeConn{}
	op, _ := scriptedOp(conn, errors.New("Session Invalid: please log in"))

	got, err := Refresh(slog.Default(), "test", op)(sessionCtx(t, conn), "y")

	require.NoError(t, err)
	assert.Equal(t, "done:y", got)
	assert.Equal(t, 1, conn.count("login"))
}

func TestRefresh_BothAttemptsFail(t *testing.T) {
	conn := &fakeConn{}
	first := errors.New("session expired (first)")
	second := fmt.Errorf("HTTP 401 on retry: %w", edge.ErrUnauthorized)
	op, calls := scriptedOp(conn, first, second)

	_, err := Refresh(slog.Default(), "test", op)(sessionCtx(t, conn), "x")
	require.Error(t, err)

	var rf *SessionRefreshFailedError
	require.ErrorAs(t, err, &rf)
	assert.Same(t, first, rf.Initial)
	assert.Same(t, second, rf.Retry)
	assert.NoError(t, rf.Refresh)

	assert.Contains(t, err.Error(), "session expired (first)")
	assert.Contains(t, err.Error(), "HTTP 401 on retry")
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, edge.ErrUnauthorized)

	assert.Equal(t, 2, *calls, "never more than one retry")
	assert.Equal(t, 1, conn.count("login"))
}

func TestRefresh_LoginFails(t *testing.T) {
	loginErr := errors.New("filer unreachable")
	conn := &fakeConn{loginErrs: []error{loginErr}}
	op, calls := scriptedOp(conn, edge.ErrSessionExpired)

	_, err := Refresh(slog.Default(), "test", op)(sessionCtx(t, conn), "x")
	require.Error(t, err)

	var rf *SessionRefreshFailedError
	require.ErrorAs(t, err, &rf)
	assert.ErrorIs(t, rf.Refresh, ErrAuthentication)
	assert.ErrorIs(t, err, loginErr)
	assert.ErrorIs(t, err, edge.ErrSessionExpired)
	assert.Contains(t, err.Error(), "filer unreachable")
	assert.Equal(t, 1, *calls, "no retry without a fresh session")
}

func TestRefresh_NonSessionErrorPropagatesUnchanged(t *testing.T) {
	conn := &fakeConn{}
	notFound := &edge.EdgeError{StatusCode: 404, Method: "PROPFIND", Path: "/localFiles/x", Err: edge.ErrNotFound}
	op, calls := scriptedOp(conn, notFound)

	got, err := Refresh(slog.Default(), "test", op)(sessionCtx(t, conn), "x")

	assert.Empty(t, got)
	assert.Same(t, notFound, err)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 0, conn.count("login"))
}

func TestRefresh_NoSessionInContext(t *testing.T) {
	conn := &fakeConn{}
	op, calls := scriptedOp(conn)

	_, err := Refresh(slog.Default(), "test", op)(context.Background(), "x")

	assert.ErrorIs(t, err, ErrInvalidInvocation)
	assert.Equal(t, 0, *calls)
	assert.False(t, IsSessionExpired(err))
}

func TestRefresh_ConcurrentExpiryAgainstFiler(t *testing.T) {
	srv := edgetest.NewServer(t, "admin", "secret")
	srv.AddDir("shared")

	s := Initialize(configFor(srv.URL), slog.Default())
	require.NoError(t, s.Login(context.Background()))

	client := s.Conn().(*edge.Client)
	list := Refresh(slog.Default(), "list", func(ctx context.Context, dir string) ([]edge.Item, error) {
		return client.ListDir(ctx, dir)
	})

	srv.Expire()

	ctx := NewContext(context.Background(), s)

	const workers = 5

	var wg sync.WaitGroup

	errs := make([]error, workers)

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			items, err := list(ctx, "")
			errs[i] = err

			if err == nil {
				assert.Len(t, items, 1)
			}
		}()
	}

	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	// Each call that saw the expiry may have logged in again; that is allowed.
	assert.GreaterOrEqual(t, srv.Logins(), 2)
	assert.LessOrEqual(t, srv.Logins(), 1+workers)
}

func TestIsSessionExpired(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit sentinel", edge.ErrSessionExpired, true},
		{"wrapped sentinel", fmt.Errorf("listing: %w", edge.ErrSessionExpired), true},
		{"unauthorized sentinel", &edge.EdgeError{StatusCode: 401, Err: edge.ErrUnauthorized}, true},
		{"session expired text", errors.New("Session Expired"), true},
		{"session invalid text", errors.New("error: SESSION INVALID"), true},
		{"unauthorized text", errors.New("request Unauthorized"), true},
		{"authentication text", errors.New("Authentication required"), true},
		{"401 token", errors.New("server replied 401"), true},
		{"401 in parens", errors.New("failed (401)"), true},
		{"401 inside number", errors.New("error code 4012"), false},
		{"401 inside word", errors.New("file a401b missing"), false},
		{"not found", &edge.EdgeError{StatusCode: 404, Path: "/localFiles/401/report", Err: edge.ErrNotFound}, false},
		{"forbidden with auth message", &edge.EdgeError{StatusCode: 403, Message: "authentication token rejected", Err: edge.ErrForbidden}, true},
		{"session text in second joined error", errors.Join(
			&edge.EdgeError{StatusCode: 404, Message: "no such file", Err: edge.ErrNotFound},
			&edge.EdgeError{StatusCode: 500, Message: "Session expired", Err: edge.ErrServerError},
		), true},
		{"session text in second delete failure", &edge.DeleteError{Failures: []edge.DeleteFailure{
			{Path: "a", Err: &edge.EdgeError{StatusCode: 404, Err: edge.ErrNotFound}},
			{Path: "b", Err: fmt.Errorf("edge: delete %q: %w", "b",
				&edge.EdgeError{StatusCode: 403, Message: "session invalid", Err: edge.ErrForbidden})},
		}}, true},
		{"joined without session text", errors.Join(
			&edge.EdgeError{StatusCode: 404, Path: "/localFiles/401", Err: edge.ErrNotFound},
			&edge.EdgeError{StatusCode: 409, Message: "parent missing", Err: edge.ErrConflict},
		), false},
		{"plain failure", errors.New("disk full"), false},
		{"context canceled", context.Canceled, false},
		{"invalid invocation", ErrInvalidInvocation, false},
		{"wrapped invalid invocation", fmt.Errorf("unauthorized: %w", ErrInvalidInvocation), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSessionExpired(tt.err))
		})
	}
}
