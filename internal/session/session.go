package session

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ctera/ctera-edge-mcp/internal/config"
	"github.com/ctera/ctera-edge-mcp/internal/edge"
)

// Conn is the part of the remote client the session manages directly.
// *edge.Client implements it.
type Conn interface {
	Login(ctx context.Context, user, password string) error
	Logout(ctx context.Context) error
}

// Session is the process-wide authenticated connection plus the credentials
// needed to re-establish it. Re-login reuses the same connection. Login and
// Logout are serialized; operations on the connection are not.
type Session struct {
	conn   Conn
	creds  config.EdgeConfig
	logger *slog.Logger

	mu sync.Mutex
}

// New wraps an existing connection. creds supplies the user and password
// for Login.
func New(conn Conn, creds config.EdgeConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{conn: conn, creds: creds, logger: logger}
}

// Initialize builds the Edge client described by cfg and wraps it in a
// Session. No request is sent. A host carrying an http:// or https:// prefix
// decides the scheme and its port; a bare host is reached over https on Port.
// The TLS setting controls certificate verification: with it disabled the
// filer's certificate is not verified. The setting only affects this client.
func Initialize(cfg *config.Config, logger *slog.Logger, opts ...edge.Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	e := cfg.Edge
	useTLS := e.TLS.Enabled()
	baseURL := edge.BaseURL(e.Host, e.Port)

	if !useTLS && strings.HasPrefix(baseURL, "https://") {
		logger.Warn("TLS verification disabled", slog.String("base_url", baseURL))
		opts = append([]edge.Option{edge.WithTransport(insecureTransport())}, opts...)
	}

	logger.Debug("session initialized",
		slog.String("base_url", baseURL),
		slog.String("user", e.User),
		slog.Any("password", e.Password),
	)

	return New(edge.NewClient(baseURL, logger, opts...), e, logger)
}

func insecureTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator disabled verification

	return t
}

// Conn returns the underlying connection. Callers type-assert it to the
// interface they need.
func (s *Session) Conn() Conn {
	return s.conn
}

// User returns the configured user name.
func (s *Session) User() string {
	return s.creds.User
}

// Login authenticates the connection. Calling it again re-authenticates the
// same connection. Missing settings fail with *config.ConfigurationError;
// every other failure is an *AuthenticationError.
func (s *Session) Login(ctx context.Context) error {
	if err := config.ValidateEdge(&s.creds); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Login(ctx, s.creds.User, s.creds.Password.Reveal()); err != nil {
		return &AuthenticationError{User: s.creds.User, Err: err}
	}

	return nil
}

// Logout invalidates the remote session. The error is returned as-is; Run
// logs it and carries on.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.Logout(ctx)
}
