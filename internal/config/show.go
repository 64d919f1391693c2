package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as TOML-like text to w.
// The password is redacted.
func RenderEffective(cfg *Config, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration\n\n")

	ew.printf("[edge]\n")
	ew.printf("  host     = %q\n", cfg.Edge.Host)
	ew.printf("  user     = %q\n", cfg.Edge.User)
	ew.printf("  password = %q\n", cfg.Edge.Password.String())
	ew.printf("  port     = %d\n", cfg.Edge.Port)
	ew.printf("  ssl      = %t\n", cfg.Edge.TLS.Enabled())
	ew.printf("\n")

	ew.printf("[logging]\n")
	ew.printf("  level  = %q\n", cfg.Logging.Level)
	ew.printf("  format = %q\n", cfg.Logging.Format)
	ew.printf("\n")

	ew.printf("[server]\n")
	ew.printf("  transport = %q\n", cfg.Server.Transport)
	ew.printf("  address   = %q\n", cfg.Server.Address)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
