package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctera/ctera-edge-mcp/internal/config"
	"github.com/ctera/ctera-edge-mcp/internal/edge/edgetest"
	"github.com/ctera/ctera-edge-mcp/internal/session"
	"github.com/ctera/ctera-edge-mcp/internal/tools"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their defaults. Tests either set
// globals after newRootCmd() returns or let cobra parse them from SetArgs.

// isolateEnv clears every setting the root command reads and restores the
// globals the command writes.
func isolateEnv(t *testing.T) {
	t.Helper()

	for _, k := range []string{
		config.EnvHost, config.EnvUser, config.EnvPassword, config.EnvPort,
		config.EnvTLS, config.EnvTLSLegacy, config.EnvConfig,
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	// Point the default config lookup at an empty directory.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	oldCfg := resolvedCfg
	oldVerbose, oldQuiet, oldJSON := flagVerbose, flagQuiet, flagJSON

	t.Cleanup(func() {
		resolvedCfg = oldCfg
		flagVerbose, flagQuiet, flagJSON = oldVerbose, oldQuiet, oldJSON
	})
}

// useFiler points the environment at srv.
func useFiler(t *testing.T, srv *edgetest.Server) {
	t.Helper()

	t.Setenv(config.EnvHost, srv.URL)
	t.Setenv(config.EnvUser, "admin")
	t.Setenv(config.EnvPassword, "secret")
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--quiet"))

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer

	newLogger(&buf, slog.LevelInfo, "json").Info("hello", slog.String("k", "v"))
	assert.True(t, json.Valid(buf.Bytes()), buf.String())

	buf.Reset()
	newLogger(&buf, slog.LevelInfo, "text").Info("hello", slog.String("k", "v"))
	assert.Contains(t, buf.String(), "k=v")

	// A buffer is not a terminal.
	buf.Reset()
	newLogger(&buf, slog.LevelInfo, "auto").Info("hello")
	assert.True(t, json.Valid(buf.Bytes()), buf.String())
}

func TestBuildLogger_Levels(t *testing.T) {
	isolateEnv(t)

	ctx := context.Background()

	tests := []struct {
		name           string
		cfgLevel       string
		verbose, quiet bool
		enabled        slog.Level
		disabled       slog.Level
	}{
		{"no config", "", false, false, slog.LevelInfo, slog.LevelDebug},
		{"config warn", "warn", false, false, slog.LevelWarn, slog.LevelInfo},
		{"config debug", "debug", false, false, slog.LevelDebug, slog.LevelDebug - 1},
		{"verbose beats config", "error", true, false, slog.LevelDebug, slog.LevelDebug - 1},
		{"quiet beats config", "debug", false, true, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolvedCfg = nil

			if tt.cfgLevel != "" {
				resolvedCfg = config.DefaultConfig()
				resolvedCfg.Logging.Level = tt.cfgLevel
			}

			flagVerbose, flagQuiet = tt.verbose, tt.quiet

			h := buildLogger().Handler()
			assert.True(t, h.Enabled(ctx, tt.enabled))
			assert.False(t, h.Enabled(ctx, tt.disabled))
		})
	}
}

func TestRootCmd_MissingSettings(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "config", "show")
	require.Error(t, err)

	var ce *config.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.ElementsMatch(t, []string{config.EnvHost, config.EnvUser, config.EnvPassword}, ce.Missing)
}

func TestConfigShow_LayersFlagsOverEnvAndRedacts(t *testing.T) {
	isolateEnv(t)

	t.Setenv(config.EnvHost, "env-filer")
	t.Setenv(config.EnvUser, "admin")
	t.Setenv(config.EnvPassword, "hunter2")
	t.Setenv(config.EnvPort, "8443")

	out, err := execute(t, "config", "show", "--host", "flag-filer", "--insecure")
	require.NoError(t, err)

	assert.Contains(t, out, `host     = "flag-filer"`)
	assert.Contains(t, out, "port     = 8443")
	assert.Contains(t, out, "ssl      = false")
	assert.NotContains(t, out, "hunter2")
}

func TestConfigShow_FromFile(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[edge]
host = "file-filer"
user = "svc"
password = "pw"
ssl = "off"

[server]
transport = "http"
address = "127.0.0.1:9000"
`), 0o600))

	out, err := execute(t, "config", "show", "--config", path, "--json")
	require.NoError(t, err)

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "file-filer", got["Edge"]["Host"])
	assert.Equal(t, false, got["Edge"]["TLS"])
	assert.NotEqual(t, "pw", got["Edge"]["Password"])
	assert.Equal(t, "http", got["Server"]["Transport"])
}

func TestConfigPath_DefaultWithoutSettings(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "config", "path")
	require.NoError(t, err, "config path needs no filer settings")

	assert.Contains(t, out, config.DefaultConfigPath())
	assert.Contains(t, out, "(default, not found")
}

func TestConfigPath_FlagJSON(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "edge.toml")
	require.NoError(t, os.WriteFile(path, []byte("[edge]\nhost = \"f\"\n"), 0o600))

	t.Setenv(config.EnvConfig, filepath.Join(t.TempDir(), "ignored.toml"))

	out, err := execute(t, "config", "path", "--config", path, "--json")
	require.NoError(t, err)

	var got configPathOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, configPathOutput{Path: path, Source: config.SourceFlag, Exists: true}, got)
}

func TestConfigPath_FromEnvironment(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "missing.toml")
	t.Setenv(config.EnvConfig, path)

	out, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+" (environment, not found, settings come from the environment and flags)\n", out)
}

func TestWhoamiCmd(t *testing.T) {
	isolateEnv(t)

	srv := edgetest.NewServer(t, "admin", "secret")
	useFiler(t, srv)

	out, err := execute(t, "whoami")
	require.NoError(t, err)

	assert.Contains(t, out, "Authenticated as admin")
	assert.Contains(t, out, srv.URL)
	assert.Equal(t, 1, srv.Logins())
	assert.Equal(t, 1, srv.Logouts())
}

func TestWhoamiCmd_BadPassword(t *testing.T) {
	isolateEnv(t)

	srv := edgetest.NewServer(t, "admin", "secret")
	useFiler(t, srv)
	t.Setenv(config.EnvPassword, "wrong")

	_, err := execute(t, "whoami")
	require.ErrorIs(t, err, session.ErrAuthentication)
	assert.Equal(t, 1, srv.Logouts(), "logout runs after a failed login")
}

func TestLsCmd(t *testing.T) {
	isolateEnv(t)

	srv := edgetest.NewServer(t, "admin", "secret")
	srv.AddFile("docs/readme.txt", "hello")
	srv.AddDir("docs/archive")
	useFiler(t, srv)

	out, err := execute(t, "ls", "docs")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.True(t, strings.HasPrefix(lines[1], "archive/"), "directories sort first")
	assert.True(t, strings.HasPrefix(lines[2], "readme.txt"))
	assert.Contains(t, lines[2], "5 B")
}

func TestLsCmd_JSON(t *testing.T) {
	isolateEnv(t)

	srv := edgetest.NewServer(t, "admin", "secret")
	srv.AddFile("a.txt", "abc")
	useFiler(t, srv)

	out, err := execute(t, "ls", "--json")
	require.NoError(t, err)

	var items []lsJSONItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "a.txt", items[0].Name)
	assert.Equal(t, int64(3), items[0].Size)
}

// loggedInSession returns a session logged in to a fresh fake filer.
func loggedInSession(t *testing.T) (*session.Session, *edgetest.Server) {
	t.Helper()

	srv := edgetest.NewServer(t, "admin", "secret")

	cfg := config.DefaultConfig()
	cfg.Edge.Host = srv.URL
	cfg.Edge.User = "admin"
	cfg.Edge.Password = "secret"

	s := session.Initialize(cfg, quietLogger())
	require.NoError(t, s.Login(context.Background()))

	return s, srv
}

// rpcText extracts the first text content of a JSON-RPC tool result. SSE
// framed bodies are unwrapped first.
func rpcText(t *testing.T, body []byte) string {
	t.Helper()

	if i := bytes.Index(body, []byte("data:")); i >= 0 && !bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		line, _, _ := bytes.Cut(body[i+len("data:"):], []byte("\n"))
		body = bytes.TrimSpace(line)
	}

	var resp struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	require.NoError(t, json.Unmarshal(body, &resp), string(body))
	require.Nil(t, resp.Error)
	require.NotEmpty(t, resp.Result.Content, string(body))

	return resp.Result.Content[0].Text
}

const initializeRequest = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`

const whoAmIRequest = `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"` + tools.ToolWhoAmI + `","arguments":{}}}`

func TestServeHTTP(t *testing.T) {
	s, srv := loggedInSession(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- serveHTTP(ctx, newMCPServer(quietLogger()), s, ln, quietLogger())
	}()

	url := "http://" + ln.Addr().String() + mcpEndpoint

	post := func(sessionID, body string) (*http.Response, []byte) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")

		if sessionID != "" {
			req.Header.Set("Mcp-Session-Id", sessionID)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		return resp, data
	}

	resp, _ := post("", initializeRequest)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := post(resp.Header.Get("Mcp-Session-Id"), whoAmIRequest)
	assert.Equal(t, "Authenticated as admin", rpcText(t, body))

	srv.Expire()

	_, body = post(resp.Header.Get("Mcp-Session-Id"), whoAmIRequest)
	assert.Equal(t, "Authenticated as admin", rpcText(t, body), "the session is refreshed transparently")
	assert.Equal(t, 2, srv.Logins())

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("HTTP transport did not shut down")
	}
}

func TestServeStdio(t *testing.T) {
	s, _ := loggedInSession(t)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- serveStdio(ctx, newMCPServer(quietLogger()), s, inR, outW, quietLogger())
	}()

	lines := bufio.NewScanner(outR)

	send := func(msg string) []byte {
		_, err := io.WriteString(inW, msg+"\n")
		require.NoError(t, err)
		require.True(t, lines.Scan(), "no response")

		return lines.Bytes()
	}

	send(initializeRequest)
	assert.Equal(t, "Authenticated as admin", rpcText(t, send(whoAmIRequest)))

	cancel()
	inW.Close()

	// Drain so a late write cannot block the server.
	go func() {
		_, _ = io.Copy(io.Discard, outR)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stdio transport did not stop")
	}

	outW.Close()
}
