package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/ctera/ctera-edge-mcp/internal/config"
)

// configPathOutput is the JSON form of `config path`.
type configPathOutput struct {
	Path   string `json:"path"`
	Source string `json:"source"`
	Exists bool   `json:"exists"`
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the server's configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective filer, logging and server settings (password redacted)",
			Args:  cobra.NoArgs,
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print which configuration file is read and whether it exists",
			Long: `Print the configuration file the other commands read: --config, else
` + config.EnvConfig + `, else the platform default. The file is optional;
settings can come from the environment alone.`,
			Args: cobra.NoArgs,
			RunE: runConfigPath,
		},
	)

	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return errors.New("no configuration loaded")
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), resolvedCfg)
	}

	return config.RenderEffective(resolvedCfg, cmd.OutOrStdout())
}

// runConfigPath works without valid filer settings; it is listed in
// skipConfigCommands.
func runConfigPath(cmd *cobra.Command, _ []string) error {
	var out configPathOutput

	out.Path, out.Source = config.FilePath(os.Getenv(config.EnvConfig), flagConfigPath)
	if out.Path == "" {
		return errors.New("no configuration directory on this platform; use --config")
	}

	_, err := os.Stat(out.Path)

	switch {
	case err == nil:
		out.Exists = true
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("checking %s: %w", out.Path, err)
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), out)
	}

	state := "not found, settings come from the environment and flags"
	if out.Exists {
		state = "found"
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", out.Path, out.Source, state)

	return err
}
