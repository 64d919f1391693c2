package tools

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Content encodings accepted by the upload tool.
const (
	encodingText   = "text"
	encodingBase64 = "base64"
)

var errNoPaths = errors.New("paths is required: provide at least one path")

// parsePaths reads the "paths" argument. Clients send a JSON array, a single
// string, or a JSON array serialized into a string; all three are accepted.
// A lone "path" argument is used when "paths" is absent.
func parsePaths(req mcp.CallToolRequest) ([]string, error) {
	args := req.GetArguments()

	raw, ok := args["paths"]
	if !ok || raw == nil {
		raw, ok = args["path"]
	}

	if !ok || raw == nil {
		return nil, errNoPaths
	}

	var paths []string

	switch v := raw.(type) {
	case []string:
		paths = v
	case []any:
		for i, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("paths[%d] must be a string, got %T", i, elem)
			}

			paths = append(paths, s)
		}
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal([]byte(trimmed), &paths); err != nil {
				return nil, fmt.Errorf("paths is not a valid JSON array of strings: %w", err)
			}
		} else if trimmed != "" {
			paths = []string{v}
		}
	default:
		return nil, fmt.Errorf("paths must be an array of strings, got %T", raw)
	}

	if len(paths) == 0 {
		return nil, errNoPaths
	}

	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = normalizePath(p)
	}

	return out, nil
}

// decodeContent turns the upload tool's content argument into bytes.
func decodeContent(data, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", encodingText:
		return []byte(data), nil
	case encodingBase64:
		b, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("decoding base64 content: %w", err)
		}

		return b, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q (want %s or %s)", encoding, encodingText, encodingBase64)
	}
}
