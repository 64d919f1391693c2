package edge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// User is the authenticated account as reported by /currentuser.
type User struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Login authenticates with the filer. On success the session cookie is stored
// in the client's jar and sent with every later request. Calling Login again
// replaces the previous session cookie.
func (c *Client) Login(ctx context.Context, user, password string) error {
	c.logger.Info("logging in",
		slog.String("base_url", c.baseURL),
		slog.String("user", user),
	)

	form := url.Values{
		"j_username": {user},
		"j_password": {password},
	}

	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        apiPrefix + "/login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return fmt.Errorf("edge: login as %q: %w", user, err)
	}

	if err := drain(resp); err != nil {
		return err
	}

	c.logger.Info("login successful", slog.String("user", user))

	return nil
}

// Logout invalidates the session on the filer.
func (c *Client) Logout(ctx context.Context) error {
	c.logger.Info("logging out", slog.String("base_url", c.baseURL))

	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   apiPrefix + "/logout",
	})
	if err != nil {
		return fmt.Errorf("edge: logout: %w", err)
	}

	return drain(resp)
}

// Get fetches a management API endpoint (e.g. "/currentuser") and decodes the
// JSON response into out. A nil out discards the body.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   apiPrefix + endpoint,
		header: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return err
	}

	if out == nil {
		return drain(resp)
	}

	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("edge: decoding %s response: %w", endpoint, err)
	}

	return nil
}

// CurrentUser returns the account the session is authenticated as.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.Get(ctx, "/currentuser", &u); err != nil {
		return nil, err
	}

	return &u, nil
}
