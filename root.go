package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ctera/ctera-edge-mcp/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagHost       string
	flagUser       string
	flagPort       int
	flagInsecure   bool
	flagTransport  string
	flagAddr       string
	flagLogFormat  string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Config

// skipConfigCommands lists commands that run without a validated
// configuration.
var skipConfigCommands = map[string]bool{
	"ctera-edge-mcp help":       true,
	"ctera-edge-mcp completion": true,
	"ctera-edge-mcp config path": true,
}

// skipsConfig reports whether cmd or one of its parents is in
// skipConfigCommands.
func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if skipConfigCommands[c.CommandPath()] {
			return true
		}
	}

	return false
}

// newRootCmd builds the root command. Running it without a subcommand starts
// the MCP server.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ctera-edge-mcp",
		Short: "MCP server for the CTERA Edge Filer",
		Long: `Serves the file operations of a CTERA Edge Filer as Model Context Protocol
tools. Settings come from the ctera.mcp.edge.settings.* environment
variables, an optional TOML file, and the flags below, in increasing order
of precedence.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipsConfig(cmd) {
				return nil
			}

			return loadConfig(cmd)
		},
		RunE: runServe,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfigPath, "config", "", "config file path (env "+config.EnvConfig+")")
	pf.StringVar(&flagHost, "host", "", "Edge Filer host or URL")
	pf.StringVar(&flagUser, "user", "", "Edge Filer user name")
	pf.IntVar(&flagPort, "port", config.DefaultPort, "Edge Filer port, ignored when --host has a scheme")
	pf.BoolVar(&flagInsecure, "insecure", false, "skip TLS certificate verification (for self-signed filer certificates)")
	pf.StringVar(&flagTransport, "transport", config.TransportStdio, "MCP transport: stdio or http")
	pf.StringVar(&flagAddr, "addr", "", "listen address for the http transport")
	pf.StringVar(&flagLogFormat, "log-format", "", "log format: auto, text or json")
	pf.BoolVar(&flagJSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "log errors only")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration and stores it in
// resolvedCfg. Only flags the user set take part in the override chain.
func loadConfig(cmd *cobra.Command) error {
	flags := cmd.Flags()
	cli := config.CLIOverrides{ConfigPath: flagConfigPath}

	if flags.Changed("host") {
		cli.Host = &flagHost
	}

	if flags.Changed("user") {
		cli.User = &flagUser
	}

	if flags.Changed("port") {
		cli.Port = &flagPort
	}

	if flags.Changed("insecure") {
		tls := !flagInsecure
		cli.TLS = &tls
	}

	if flags.Changed("transport") {
		cli.Transport = &flagTransport
	}

	if flags.Changed("addr") {
		cli.Address = &flagAddr
	}

	if flags.Changed("log-format") {
		cli.LogFormat = &flagLogFormat
	}

	logger := bootstrapLogger()

	resolved, err := config.Resolve(config.ReadEnvOverrides(logger), cli, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// bootstrapLogger is used before the configuration is known.
func bootstrapLogger() *slog.Logger {
	return newLogger(os.Stderr, slog.LevelWarn, "text")
}

// buildLogger creates the logger from the resolved config and CLI flags.
// The config level is the baseline; --verbose and --quiet win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = resolvedCfg.Logging.Format
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return newLogger(os.Stderr, level, format)
}

// newLogger writes to w. Logs never go to stdout: the stdio transport owns
// it. "auto" picks text for a terminal and JSON otherwise.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	if format == "auto" || format == "" {
		format = "json"

		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			format = "text"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
