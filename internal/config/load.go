package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file. Unknown keys are fatal, with
// "did you mean?" suggestions. The result is not validated: required
// settings usually come from the environment and are checked by Resolve.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with default values.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// LoadEnv builds a Config from defaults and the environment only, then
// validates it. A missing host, user or password yields a
// *ConfigurationError.
func LoadEnv(logger *slog.Logger) (*Config, error) {
	cfg := DefaultConfig()
	ReadEnvOverrides(logger).apply(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// The result is validated.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Config, error) {
	cfgPath, _ := FilePath(env.ConfigPath, cli.ConfigPath)

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("config file resolved", slog.String("path", cfgPath))

	env.apply(cfg)
	cli.apply(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Sources reported by FilePath.
const (
	SourceFlag        = "flag"
	SourceEnvironment = "environment"
	SourceDefault     = "default"
)

// FilePath picks the configuration file: cliPath, else envPath, else
// DefaultConfigPath. source says which of the three won.
func FilePath(envPath, cliPath string) (path, source string) {
	switch {
	case cliPath != "":
		return cliPath, SourceFlag
	case envPath != "":
		return envPath, SourceEnvironment
	default:
		return DefaultConfigPath(), SourceDefault
	}
}

func (c CLIOverrides) apply(cfg *Config) {
	if c.Host != nil {
		cfg.Edge.Host = *c.Host
	}

	if c.User != nil {
		cfg.Edge.User = *c.User
	}

	if c.Port != nil {
		cfg.Edge.Port = *c.Port
	}

	if c.TLS != nil {
		cfg.Edge.TLS = TLSFlag(*c.TLS)
	}

	if c.Transport != nil {
		cfg.Server.Transport = *c.Transport
	}

	if c.Address != nil {
		cfg.Server.Address = *c.Address
	}

	if c.LogFormat != nil {
		cfg.Logging.Format = *c.LogFormat
	}
}
