package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ctera/ctera-edge-mcp/internal/config"
	"github.com/ctera/ctera-edge-mcp/internal/session"
	"github.com/ctera/ctera-edge-mcp/internal/tools"
)

const (
	serverName = "ctera-edge-mcp"

	// mcpEndpoint is the path the http transport serves.
	mcpEndpoint = "/mcp"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (default)",
		Long: `Logs in to the Edge Filer, serves MCP tools over stdio or streamable HTTP,
and logs out on exit. The first SIGINT or SIGTERM shuts down cleanly; a
second one exits immediately.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger, os.Exit)

	s := session.Initialize(resolvedCfg, logger)
	mcpServer := newMCPServer(logger)

	logger.Info("starting",
		slog.String("version", version),
		slog.String("transport", resolvedCfg.Server.Transport),
		slog.String("user", s.User()),
	)

	return session.Run(ctx, s, func(ctx context.Context) error {
		switch resolvedCfg.Server.Transport {
		case config.TransportHTTP:
			ln, err := net.Listen("tcp", resolvedCfg.Server.Address)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", resolvedCfg.Server.Address, err)
			}

			return serveHTTP(ctx, mcpServer, s, ln, logger)
		default:
			return serveStdio(ctx, mcpServer, s, os.Stdin, os.Stdout, logger)
		}
	})
}

// newMCPServer builds the MCP server with the full tool catalogue.
func newMCPServer(logger *slog.Logger) *server.MCPServer {
	m := server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithRecovery(),
	)

	tools.New(logger).Add(m)

	return m
}

// serveStdio speaks MCP on in/out until ctx is canceled or in is closed.
func serveStdio(
	ctx context.Context,
	m *server.MCPServer,
	s *session.Session,
	in io.Reader,
	out io.Writer,
	logger *slog.Logger,
) error {
	stdio := server.NewStdioServer(m)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	stdio.SetContextFunc(func(ctx context.Context) context.Context {
		return session.NewContext(ctx, s)
	})

	logger.Info("serving MCP over stdio")

	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}

	return fmt.Errorf("stdio transport: %w", err)
}

// serveHTTP serves the streamable HTTP transport on ln until ctx is
// canceled, then shuts the listener down gracefully.
func serveHTTP(
	ctx context.Context,
	m *server.MCPServer,
	s *session.Session,
	ln net.Listener,
	logger *slog.Logger,
) error {
	streamable := server.NewStreamableHTTPServer(m,
		server.WithEndpointPath(mcpEndpoint),
		server.WithHTTPContextFunc(func(ctx context.Context, _ *http.Request) context.Context {
			return session.NewContext(ctx, s)
		}),
	)

	mux := http.NewServeMux()
	mux.Handle(mcpEndpoint, streamable)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("serving MCP over HTTP",
			slog.String("address", ln.Addr().String()),
			slog.String("endpoint", mcpEndpoint),
		)

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http transport: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		logger.Info("shutting down HTTP transport")

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
