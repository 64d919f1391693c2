package session

import (
	"context"
	"log/slog"
	"time"
)

// logoutTimeout bounds the logout sent on the way out.
const logoutTimeout = 10 * time.Second

// Run logs s in, calls fn with a context carrying s, and logs out when fn
// returns. Logout also runs when login fails and when fn panics. Its error
// is logged, not returned. Logout ignores ctx's cancellation and is bounded
// by logoutTimeout instead.
func Run(ctx context.Context, s *Session, fn func(ctx context.Context) error) error {
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()

		if err := s.Logout(logoutCtx); err != nil {
			s.logger.Warn("logout failed", slog.String("error", err.Error()))

			return
		}

		s.logger.Info("logged out", slog.String("user", s.User()))
	}()

	if err := s.Login(ctx); err != nil {
		return err
	}

	return fn(NewContext(ctx, s))
}
