// Package config loads the server's settings: the Edge Filer connection
// (host, credentials, port, TLS), logging and the MCP transport. Values are
// layered defaults -> TOML file -> environment -> CLI flags and are immutable
// once resolved.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Edge    EdgeConfig    `toml:"edge"`
	Logging LoggingConfig `toml:"logging"`
	Server  ServerConfig  `toml:"server"`
}

// EdgeConfig identifies the filer and the account the server acts as.
// A host with an http:// or https:// prefix selects the scheme itself and
// Port is then ignored.
type EdgeConfig struct {
	Host     string  `toml:"host"`
	User     string  `toml:"user"`
	Password Secret  `toml:"password"`
	Port     int     `toml:"port"`
	TLS      TLSFlag `toml:"ssl"`
}

// LoggingConfig controls log level and format. Logs always go to stderr.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig selects the MCP transport.
type ServerConfig struct {
	Transport string `toml:"transport"`
	Address   string `toml:"address"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use env or default)
	Host       *string
	User       *string
	Port       *int
	TLS        *bool // --insecure sets false
	Transport  *string
	Address    *string
	LogFormat  *string
}

const redacted = "[REDACTED]"

// Secret is a string that never prints its value. Use Reveal to obtain it.
type Secret string

// Reveal returns the underlying value.
func (s Secret) Reveal() string {
	return string(s)
}

func (s Secret) String() string {
	if s == "" {
		return ""
	}

	return redacted
}

// GoString keeps %#v from leaking the value.
func (s Secret) GoString() string {
	return fmt.Sprintf("config.Secret(%q)", s.String())
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// MarshalJSON implements json.Marshaler.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// TLSFlag is a boolean that also accepts the string spellings understood by
// ParseTLS when decoded from TOML.
type TLSFlag bool

// Enabled reports whether TLS is on.
func (f TLSFlag) Enabled() bool {
	return bool(f)
}

// UnmarshalTOML implements toml.Unmarshaler. Unrecognized strings leave the
// current (default) value in place.
func (f *TLSFlag) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case bool:
		*f = TLSFlag(x)
	case string:
		*f = TLSFlag(ParseTLS(x, bool(*f)))
	default:
		return fmt.Errorf("ssl: expected a boolean or string, got %T", v)
	}

	return nil
}
