package config

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors carried by ConfigurationError.
var (
	ErrMissingSetting = errors.New("config: missing required setting")
	ErrInvalidSetting = errors.New("config: invalid setting")
)

const (
	minPort = 1
	maxPort = 65535
)

// ConfigurationError reports every problem found in a Config. It matches
// ErrMissingSetting when a required setting is absent and ErrInvalidSetting
// when a value is out of range.
type ConfigurationError struct {
	Missing []string // environment keys of absent required settings
	Invalid []error
}

func (e *ConfigurationError) Error() string {
	var parts []string

	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required setting(s): %s", strings.Join(e.Missing, ", ")))
	}

	for _, err := range e.Invalid {
		parts = append(parts, err.Error())
	}

	return "config: " + strings.Join(parts, "; ")
}

func (e *ConfigurationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Invalid)+1)

	if len(e.Missing) > 0 {
		errs = append(errs, ErrMissingSetting)
	}

	return append(errs, e.Invalid...)
}

// Validate checks cfg and returns a *ConfigurationError listing every problem,
// or nil. All problems are collected so one run reports them all.
func Validate(cfg *Config) error {
	ce := checkEdge(&cfg.Edge)

	ce.Invalid = append(ce.Invalid, validateLogging(&cfg.Logging)...)
	ce.Invalid = append(ce.Invalid, validateServer(&cfg.Server)...)

	if len(ce.Missing) == 0 && len(ce.Invalid) == 0 {
		return nil
	}

	return ce
}

// ValidateEdge checks only the connection settings. Login runs it so a
// session built from an unvalidated Config fails the same way loading would.
func ValidateEdge(e *EdgeConfig) error {
	ce := checkEdge(e)
	if len(ce.Missing) == 0 && len(ce.Invalid) == 0 {
		return nil
	}

	return ce
}

func checkEdge(e *EdgeConfig) *ConfigurationError {
	ce := &ConfigurationError{}

	if strings.TrimSpace(e.Host) == "" {
		ce.Missing = append(ce.Missing, EnvHost)
	}

	if e.User == "" {
		ce.Missing = append(ce.Missing, EnvUser)
	}

	if e.Password == "" {
		ce.Missing = append(ce.Missing, EnvPassword)
	}

	if e.Port < minPort || e.Port > maxPort {
		ce.Invalid = append(ce.Invalid, invalid("port", "must be between %d and %d, got %d", minPort, maxPort, e.Port))
	}

	return ce
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, invalid("logging.level", "must be one of debug, info, warn, error; got %q", l.Level))
	}

	switch l.Format {
	case "auto", "text", "json":
	default:
		errs = append(errs, invalid("logging.format", "must be one of auto, text, json; got %q", l.Format))
	}

	return errs
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	switch s.Transport {
	case TransportStdio:
	case TransportHTTP:
		if s.Address == "" {
			errs = append(errs, invalid("server.address", "required for the %s transport", TransportHTTP))
		}
	default:
		errs = append(errs, invalid("server.transport", "must be %q or %q, got %q", TransportStdio, TransportHTTP, s.Transport))
	}

	return errs
}

func invalid(key, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidSetting, key, fmt.Sprintf(format, args...))
}
