package edge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"
)

const (
	userAgent = "ctera-edge-mcp/0.1"

	// DefaultTimeout bounds metadata requests. Transfers use a client
	// without a timeout so large files are not cut off.
	DefaultTimeout = 30 * time.Second

	apiPrefix   = "/ctera/api"
	filesPrefix = "/localFiles"
)

// Client talks to a single Edge Filer. Both of its HTTP clients share one
// cookie jar, so a login performed through one authenticates the other.
// A Client is safe for concurrent use.
type Client struct {
	baseURL  string
	meta     *http.Client // API and WebDAV metadata calls (timeout)
	transfer *http.Client // uploads/downloads (no timeout)
	logger   *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout for metadata requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.meta.Timeout = d
	}
}

// WithTransport replaces the round tripper used by both HTTP clients.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.meta.Transport = rt
		c.transfer.Transport = rt
	}
}

// NewClient creates a client for the filer at baseURL, typically the result
// of BaseURL. No request is sent until Login.
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	// cookiejar.New only fails when given a broken PublicSuffixList.
	jar, _ := cookiejar.New(nil)

	// The filer answers unauthenticated requests with a redirect to its login
	// page; surface that instead of following it.
	noRedirect := func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		meta: &http.Client{
			Jar:           jar,
			Timeout:       DefaultTimeout,
			CheckRedirect: noRedirect,
		},
		transfer: &http.Client{
			Jar:           jar,
			CheckRedirect: noRedirect,
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL builds the filer's base URL. A host that already carries a scheme
// is used as-is and port is ignored. A bare host is always reached over https
// on the given port; only an explicit http:// prefix selects plain HTTP.
func BaseURL(host string, port int) string {
	host = strings.TrimSuffix(strings.TrimSpace(host), "/")

	if strings.HasPrefix(host, "https://") || strings.HasPrefix(host, "http://") {
		return host
	}

	return "https://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// URL returns the client's base URL.
func (c *Client) URL() string {
	return c.baseURL
}

// request describes a single call against the filer.
type request struct {
	method      string
	path        string // already escaped, relative to the base URL
	body        io.Reader
	contentType string
	header      map[string]string
	transfer    bool
}

// do executes a single HTTP request. There is no retry at this layer; the
// caller owns any recovery. Non-2xx responses are drained, closed and returned
// as *EdgeError. The caller closes the body on success.
func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return nil, fmt.Errorf("edge: creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	for k, v := range r.header {
		req.Header.Set(k, v)
	}

	hc := c.meta
	if r.transfer {
		hc = c.transfer
	}

	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("edge: request canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("edge: %s %s: %w", r.method, r.path, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", r.method),
			slog.String("path", r.path),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorMessage*4))
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	msg := trimMessage(errBody)
	edgeErr := &EdgeError{
		StatusCode: resp.StatusCode,
		Method:     r.method,
		Path:       r.path,
		Message:    msg,
		Err:        classifyResponse(resp, msg),
	}

	c.logger.Debug("request failed",
		slog.String("method", r.method),
		slog.String("path", r.path),
		slog.Int("status", resp.StatusCode),
	)

	return nil, edgeErr
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) error {
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("edge: draining response body: %w", err)
	}

	return nil
}
