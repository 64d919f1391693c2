package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// outcome is the JSON body of a structured result.
type outcome struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	Path        string   `json:"path,omitempty"`
	Paths       []string `json:"paths,omitempty"`
	Source      string   `json:"source,omitempty"`
	Destination string   `json:"destination,omitempty"`
	FinalPath   string   `json:"final_path,omitempty"`
	Bytes       int64    `json:"bytes,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// jsonResult marshals v into a text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("tools: encoding result: %w", err)
	}

	return mcp.NewToolResultText(string(data)), nil
}

// succeeded reports a structured success.
func succeeded(o outcome) (*mcp.CallToolResult, error) {
	o.Success = true

	return jsonResult(o)
}

// failed reports a structured failure: an error result whose text is
// {"success":false,"message":...,"error":...}.
func failed(message string, err error) (*mcp.CallToolResult, error) {
	res, encErr := jsonResult(outcome{Message: message, Error: err.Error()})
	if encErr != nil {
		return nil, encErr
	}

	res.IsError = true

	return res, nil
}

// badArguments reports a request the handler cannot act on.
func badArguments(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
