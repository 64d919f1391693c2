//go:build e2e

package e2e

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mcpClient drives `serve` over stdio, one request at a time.
type mcpClient struct {
	t      *testing.T
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    *bufio.Scanner
	nextID int
}

type toolResult struct {
	Text    string
	IsError bool
	RPCErr  string
}

func startServer(t *testing.T) *mcpClient {
	t.Helper()

	cmd := exec.Command(binaryPath, "serve", "--log-format", "json")
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)

	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)

	require.NoError(t, cmd.Start())

	c := &mcpClient{t: t, cmd: cmd, stdin: stdin, out: bufio.NewScanner(stdout)}
	c.out.Buffer(make([]byte, 0, 1<<20), 16<<20)

	t.Cleanup(func() {
		// Closing stdin ends the session; the server logs out and exits.
		stdin.Close()

		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()

		select {
		case err := <-done:
			assert.NoError(t, err, "server exit")
		case <-time.After(30 * time.Second):
			_ = cmd.Process.Kill()
			t.Error("server did not exit after stdin closed")
		}
	})

	c.request("initialize", map[string]any{
		"protocolVersion": "2025-03-26",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "e2e", "version": "0"},
	})

	return c
}

func (c *mcpClient) request(method string, params any) json.RawMessage {
	c.t.Helper()

	c.nextID++

	msg, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": c.nextID, "method": method, "params": params})
	require.NoError(c.t, err)

	_, err = c.stdin.Write(append(msg, '\n'))
	require.NoError(c.t, err)

	require.True(c.t, c.out.Scan(), "server closed stdout: %v", c.out.Err())

	return append(json.RawMessage(nil), c.out.Bytes()...)
}

func (c *mcpClient) call(name string, args map[string]any) toolResult {
	c.t.Helper()

	raw := c.request("tools/call", map[string]any{"name": name, "arguments": args})

	var resp struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	require.NoError(c.t, json.Unmarshal(raw, &resp), string(raw))

	if resp.Error != nil {
		return toolResult{RPCErr: resp.Error.Message}
	}

	require.NotEmpty(c.t, resp.Result.Content, string(raw))

	return toolResult{Text: resp.Result.Content[0].Text, IsError: resp.Result.IsError}
}

func (c *mcpClient) mustCall(name string, args map[string]any) string {
	c.t.Helper()

	res := c.call(name, args)
	require.Empty(c.t, res.RPCErr)
	require.False(c.t, res.IsError, res.Text)

	return res.Text
}

func TestE2E_MCPRoundTrip(t *testing.T) {
	c := startServer(t)

	folder := fmt.Sprintf("ctera-edge-mcp-e2e-%d", time.Now().UnixNano())
	content := "Hello from the E2E test\n"

	t.Cleanup(func() {
		c.call("ctera_edge_filer_delete_item", map[string]any{"paths": []string{folder}})
	})

	assert.Contains(t, c.mustCall("ctera_edge_filer_who_am_i", nil), "Authenticated as ")

	assert.Equal(t, "Created: "+folder+"/in", c.mustCall("ctera_edge_filer_makedirs", map[string]any{"path": "/" + folder + "/in"}))
	c.mustCall("ctera_edge_filer_create_directory", map[string]any{"path": folder + "/out"})

	c.mustCall("ctera_edge_upload_from_content", map[string]any{
		"filepath": folder + "/in/note.txt",
		"content":  base64.StdEncoding.EncodeToString([]byte(content)),
		"encoding": "base64",
	})

	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.mustCall("ctera_edge_filer_list_dir", map[string]any{"path": "/" + folder + "/in"})), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "note.txt", entries[0]["name"])

	var copied map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.mustCall("ctera_edge_filer_copy_item", map[string]any{
		"source":      folder + "/in/note.txt",
		"destination": folder + "/out",
	})), &copied))
	assert.Equal(t, folder+"/out/note.txt", copied["final_path"])

	c.mustCall("ctera_edge_filer_move_item", map[string]any{
		"source":      folder + "/out/note.txt",
		"destination": folder + "/out/renamed.txt",
	})

	assert.Equal(t, content, c.mustCall("ctera_edge_filer_read_file", map[string]any{"path": folder + "/out/renamed.txt"}))

	localDir := t.TempDir()
	c.mustCall("ctera_edge_filer_download_file", map[string]any{
		"path":        folder + "/out/renamed.txt",
		"destination": localDir,
	})

	data, err := os.ReadFile(filepath.Join(localDir, "renamed.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	c.mustCall("ctera_edge_filer_delete_item", map[string]any{
		"paths": []string{folder + "/in/note.txt", folder + "/out/renamed.txt"},
	})

	res := c.call("ctera_edge_filer_read_file", map[string]any{"path": folder + "/out/renamed.txt"})
	assert.NotEmpty(t, res.RPCErr, "reading a deleted file fails")
}
