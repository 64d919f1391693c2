package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ctera/ctera-edge-mcp/internal/edge"
	"github.com/ctera/ctera-edge-mcp/internal/session"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Log in and show the authenticated user",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

// withClient runs fn inside a logged-in session and logs out afterwards.
func withClient(ctx context.Context, fn func(ctx context.Context, c *edge.Client) error) error {
	logger := buildLogger()
	s := session.Initialize(resolvedCfg, logger)

	return session.Run(ctx, s, func(ctx context.Context) error {
		c, ok := s.Conn().(*edge.Client)
		if !ok {
			return fmt.Errorf("unexpected connection type %T", s.Conn())
		}

		return fn(ctx, c)
	})
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	return withClient(cmd.Context(), func(ctx context.Context, c *edge.Client) error {
		user, err := c.CurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("fetching current user: %w", err)
		}

		return printWhoami(cmd.OutOrStdout(), c.URL(), user, flagJSON)
	})
}

type whoamiOutput struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
}

func printWhoami(w io.Writer, host string, user *edge.User, asJSON bool) error {
	out := whoamiOutput{Host: host, Username: user.Username, Role: user.Role, Email: user.Email}

	if asJSON {
		return writeJSON(w, out)
	}

	fmt.Fprintf(w, "Authenticated as %s\n", out.Username)
	fmt.Fprintf(w, "Filer: %s\n", out.Host)

	if out.Role != "" {
		fmt.Fprintf(w, "Role:  %s\n", out.Role)
	}

	return nil
}
