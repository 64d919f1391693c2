package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Namespace of the connection settings in the environment.
const Namespace = "ctera.mcp.edge.settings"

// Environment variable names.
const (
	EnvHost     = Namespace + ".host"
	EnvUser     = Namespace + ".user"
	EnvPassword = Namespace + ".password"
	EnvPort     = Namespace + ".port"
	EnvTLS      = Namespace + ".connector.ssl"
	// EnvTLSLegacy is consulted only when EnvTLS is absent.
	EnvTLSLegacy = Namespace + ".ssl"

	EnvConfig = "CTERA_EDGE_MCP_CONFIG"
)

// EnvOverrides holds values read from environment variables. Empty strings
// and nil pointers mean "not set".
type EnvOverrides struct {
	ConfigPath string
	Host       string
	User       string
	Password   Secret
	Port       *int
	TLS        *bool
}

// ReadEnvOverrides reads the environment. A port that does not parse is
// ignored with a warning so the default (or file value) applies. An
// unrecognized TLS value is ignored the same way.
func ReadEnvOverrides(logger *slog.Logger) EnvOverrides {
	env := EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Host:       strings.TrimSpace(os.Getenv(EnvHost)),
		User:       os.Getenv(EnvUser),
		Password:   Secret(os.Getenv(EnvPassword)),
	}

	if raw, ok := os.LookupEnv(EnvPort); ok && strings.TrimSpace(raw) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			logger.Warn("ignoring unparseable port",
				slog.String("key", EnvPort),
				slog.String("value", raw),
				slog.Int("default", DefaultPort),
			)
		} else {
			env.Port = &port
		}
	}

	key := EnvTLS

	raw, ok := os.LookupEnv(EnvTLS)
	if !ok {
		key = EnvTLSLegacy
		raw, ok = os.LookupEnv(EnvTLSLegacy)
	}

	if ok {
		if v, recognized := parseSwitch(raw); recognized {
			env.TLS = &v
		} else {
			logger.Warn("ignoring unrecognized TLS setting",
				slog.String("key", key),
				slog.String("value", raw),
				slog.Bool("default", DefaultTLS),
			)
		}
	}

	return env
}

// apply copies every set field onto cfg.
func (e EnvOverrides) apply(cfg *Config) {
	if e.Host != "" {
		cfg.Edge.Host = e.Host
	}

	if e.User != "" {
		cfg.Edge.User = e.User
	}

	if e.Password != "" {
		cfg.Edge.Password = e.Password
	}

	if e.Port != nil {
		cfg.Edge.Port = *e.Port
	}

	if e.TLS != nil {
		cfg.Edge.TLS = TLSFlag(*e.TLS)
	}
}
