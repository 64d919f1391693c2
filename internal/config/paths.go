package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName        = "ctera-edge-mcp"
	configFileName = "config.toml"
)

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/ctera-edge-mcp).
// On macOS, uses ~/Library/Application Support/ctera-edge-mcp.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName)
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}
	}

	return filepath.Join(home, ".config", appName)
}

// DefaultConfigPath returns the config file used when neither
// CTERA_EDGE_MCP_CONFIG nor --config is given. The file is optional.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}
