package config

import (
	"strings"

	"golang.org/x/text/cases"
)

// ParseTLS interprets a string-encoded TLS switch. "true", "1", "yes" and
// "on" enable it; "false", "0", "no" and "off" disable it. Matching ignores
// case and surrounding whitespace. Anything else yields def.
func ParseTLS(raw string, def bool) bool {
	v, ok := parseSwitch(raw)
	if !ok {
		return def
	}

	return v
}

// parseSwitch reports the boolean value of raw and whether it was recognized.
func parseSwitch(raw string) (bool, bool) {
	// cases.Caser is stateful; one per call.
	switch cases.Fold().String(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}
