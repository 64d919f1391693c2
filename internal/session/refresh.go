package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Op is an operation that needs the session carried by its context.
type Op[Req, Res any] func(ctx context.Context, req Req) (Res, error)

// Refresh wraps op with the session-refresh policy:
//
//   - no session in ctx: ErrInvalidInvocation, op is not called;
//   - op succeeds: its result, unchanged;
//   - op fails and IsSessionExpired: Login, then op once more. The retry's
//     result is returned if it succeeds; if the login or the retry fails the
//     result is a *SessionRefreshFailedError carrying every cause;
//   - any other failure: logged and returned unchanged.
//
// There is never more than one retry. Concurrent calls that lose the session
// together each log in again; that is redundant but safe.
func Refresh[Req, Res any](logger *slog.Logger, name string, op Op[Req, Res]) Op[Req, Res] {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, req Req) (Res, error) {
		var zero Res

		s, ok := FromContext(ctx)
		if !ok {
			return zero, ErrInvalidInvocation
		}

		log := logger.With(
			slog.String("tool", name),
			slog.String("call_id", uuid.NewString()),
		)

		start := time.Now()

		res, err := op(ctx, req)
		if err == nil {
			log.Debug("call succeeded", slog.Duration("elapsed", time.Since(start)))

			return res, nil
		}

		if !IsSessionExpired(err) {
			log.Error("call failed", slog.String("error", err.Error()))

			return zero, err
		}

		log.Warn("session lost, logging in again", slog.String("error", err.Error()))

		if loginErr := s.Login(ctx); loginErr != nil {
			log.Error("re-authentication failed", slog.String("error", loginErr.Error()))

			return zero, &SessionRefreshFailedError{Initial: err, Refresh: loginErr}
		}

		res, retryErr := op(ctx, req)
		if retryErr != nil {
			log.Error("retry after re-authentication failed", slog.String("error", retryErr.Error()))

			return zero, &SessionRefreshFailedError{Initial: err, Retry: retryErr}
		}

		log.Info("call succeeded after re-authentication", slog.Duration("elapsed", time.Since(start)))

		return res, nil
	}
}
