package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnvKeys = []string{EnvHost, EnvUser, EnvPassword, EnvPort, EnvTLS, EnvTLSLegacy, EnvConfig}

// clearEnv unsets every variable the package reads, restoring them when the
// test ends.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range allEnvKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestEnvVarConstants(t *testing.T) {
	assert.Equal(t, "ctera.mcp.edge.settings.host", EnvHost)
	assert.Equal(t, "ctera.mcp.edge.settings.user", EnvUser)
	assert.Equal(t, "ctera.mcp.edge.settings.password", EnvPassword)
	assert.Equal(t, "ctera.mcp.edge.settings.port", EnvPort)
	assert.Equal(t, "ctera.mcp.edge.settings.connector.ssl", EnvTLS)
	assert.Equal(t, "ctera.mcp.edge.settings.ssl", EnvTLSLegacy)
}

func TestReadEnvOverrides_AllSet(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, "/custom/config.toml")
	t.Setenv(EnvHost, "filer.example.com")
	t.Setenv(EnvUser, "admin")
	t.Setenv(EnvPassword, "secret")
	t.Setenv(EnvPort, "8443")
	t.Setenv(EnvTLS, "off")

	env := ReadEnvOverrides(testLogger(t))
	assert.Equal(t, "/custom/config.toml", env.ConfigPath)
	assert.Equal(t, "filer.example.com", env.Host)
	assert.Equal(t, "admin", env.User)
	assert.Equal(t, "secret", env.Password.Reveal())
	require.NotNil(t, env.Port)
	assert.Equal(t, 8443, *env.Port)
	require.NotNil(t, env.TLS)
	assert.False(t, *env.TLS)
}

func TestReadEnvOverrides_NoneSet(t *testing.T) {
	clearEnv(t)

	env := ReadEnvOverrides(testLogger(t))
	assert.Empty(t, env.ConfigPath)
	assert.Empty(t, env.Host)
	assert.Nil(t, env.Port)
	assert.Nil(t, env.TLS)
}

func TestReadEnvOverrides_BadPortIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPort, "https")

	env := ReadEnvOverrides(testLogger(t))
	assert.Nil(t, env.Port)
}

func TestReadEnvOverrides_LegacySSLKey(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTLSLegacy, "false")

	env := ReadEnvOverrides(testLogger(t))
	require.NotNil(t, env.TLS)
	assert.False(t, *env.TLS)
}

func TestReadEnvOverrides_ConnectorKeyWins(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTLSLegacy, "false")
	t.Setenv(EnvTLS, "true")

	env := ReadEnvOverrides(testLogger(t))
	require.NotNil(t, env.TLS)
	assert.True(t, *env.TLS)
}

func TestReadEnvOverrides_UnrecognizedTLS(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTLS, "sometimes")

	env := ReadEnvOverrides(testLogger(t))
	assert.Nil(t, env.TLS)

	cfg, err := loadEnvWith(t, "h", "u", "p")
	require.NoError(t, err)
	assert.True(t, cfg.Edge.TLS.Enabled())
}

// loadEnvWith sets the required settings and calls LoadEnv.
func loadEnvWith(t *testing.T, host, user, password string) (*Config, error) {
	t.Helper()

	t.Setenv(EnvHost, host)
	t.Setenv(EnvUser, user)
	t.Setenv(EnvPassword, password)

	return LoadEnv(testLogger(t))
}
