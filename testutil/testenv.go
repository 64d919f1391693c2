// Package testutil provides shared environment helpers for the live-filer
// E2E tests. It depends only on stdlib so that E2E tests (which cannot
// import internal/) can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AllowedHostsVar lists the filers E2E tests may touch, comma separated.
const AllowedHostsVar = "CTERA_EDGE_ALLOWED_TEST_HOSTS"

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
}

// ValidateAllowlist crashes the process unless the host named by hostEnvVar
// is listed in CTERA_EDGE_ALLOWED_TEST_HOSTS. E2E tests create and delete
// files, so they must never run against a filer nobody opted in.
func ValidateAllowlist(hostEnvVar string) {
	allowlist := os.Getenv(AllowedHostsVar)
	if allowlist == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", AllowedHostsVar)
		fmt.Fprintln(os.Stderr, "Set it in .env or as an environment variable.")
		fmt.Fprintf(os.Stderr, "Example: %s=edge-test.example.com\n", AllowedHostsVar)
		os.Exit(1)
	}

	host := os.Getenv(hostEnvVar)
	if host == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", hostEnvVar)
		os.Exit(1)
	}

	if !HostAllowed(host, allowlist) {
		fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in %s=%q\n", hostEnvVar, host, AllowedHostsVar, allowlist)
		os.Exit(1)
	}
}

// HostAllowed reports whether host appears in the comma-separated allowlist.
// A scheme on host is ignored.
func HostAllowed(host, allowlist string) bool {
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	host = strings.TrimSuffix(host, "/")

	for _, a := range strings.Split(allowlist, ",") {
		if strings.EqualFold(strings.TrimSpace(a), host) {
			return true
		}
	}

	return false
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
