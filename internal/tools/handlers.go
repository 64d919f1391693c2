package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers that report plain confirmations return remote failures as Go
// errors, which the server turns into JSON-RPC errors. The others answer with
// a structured {success, message, error} result instead.

// WhoAmI implements the who-am-i tool.
func (t *Tools) WhoAmI(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := t.whoAmI(ctx, struct{}{})
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText("Authenticated as " + user), nil
}

// ListDir implements the list-directory tool.
func (t *Tools) ListDir(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return badArguments(err)
	}

	entries, err := t.listDir(ctx, normalizePath(p))
	if err != nil {
		return nil, err
	}

	return jsonResult(entries)
}

// CreateDirectory implements the single-level mkdir tool.
func (t *Tools) CreateDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return badArguments(err)
	}

	p = normalizePath(p)

	if _, err := t.mkdir(ctx, p); err != nil {
		return failed("Failed to create directory: "+p, err)
	}

	return succeeded(outcome{Message: "Created: " + p, Path: p})
}

// Makedirs implements the recursive mkdir tool.
func (t *Tools) Makedirs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return badArguments(err)
	}

	p = normalizePath(p)

	if _, err := t.makedirs(ctx, p); err != nil {
		return nil, err
	}

	return mcp.NewToolResultText("Created: " + p), nil
}

// CopyItem implements the copy tool.
func (t *Tools) CopyItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.relocate(ctx, req, t.copyItem, "Copied", "copy")
}

// MoveItem implements the move tool.
func (t *Tools) MoveItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.relocate(ctx, req, t.moveItem, "Moved", "move")
}

func (t *Tools) relocate(
	ctx context.Context,
	req mcp.CallToolRequest,
	op func(context.Context, relocation) (string, error),
	done, verb string,
) (*mcp.CallToolResult, error) {
	r, err := remotePair(req)
	if err != nil {
		return badArguments(err)
	}

	final, err := op(ctx, r)
	if err != nil {
		return failed(fmt.Sprintf("Failed to %s %s to %s", verb, r.Source, r.Destination), err)
	}

	return succeeded(outcome{
		Message:     fmt.Sprintf("%s: %s to: %s", done, r.Source, final),
		Source:      r.Source,
		Destination: r.Destination,
		FinalPath:   final,
	})
}

func remotePair(req mcp.CallToolRequest) (relocation, error) {
	src, err := req.RequireString("source")
	if err != nil {
		return relocation{}, err
	}

	dst, err := req.RequireString("destination")
	if err != nil {
		return relocation{}, err
	}

	return relocation{Source: normalizePath(src), Destination: normalizePath(dst)}, nil
}

// DeleteItem implements the delete tool. All paths go to the filer in a
// single call.
func (t *Tools) DeleteItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := parsePaths(req)
	if err != nil {
		return badArguments(err)
	}

	if _, err := t.deleteItems(ctx, &deletion{remaining: paths}); err != nil {
		return failed(fmt.Sprintf("Failed to delete %v", paths), err)
	}

	return succeeded(outcome{Message: fmt.Sprintf("Deleted: %v", paths), Paths: paths})
}

// UploadFromContent implements the upload-from-content tool.
func (t *Tools) UploadFromContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("filepath")
	if err != nil {
		return badArguments(err)
	}

	raw, err := req.RequireString("content")
	if err != nil {
		return badArguments(err)
	}

	data, err := decodeContent(raw, req.GetString("encoding", encodingText))
	if err != nil {
		return badArguments(err)
	}

	p = normalizePath(p)

	if _, err := t.uploadContent(ctx, content{Path: p, Data: data}); err != nil {
		return nil, err
	}

	return mcp.NewToolResultText("Uploaded: " + p), nil
}

// UploadFile implements the local-file upload tool.
func (t *Tools) UploadFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	local, err := req.RequireString("path")
	if err != nil {
		return badArguments(err)
	}

	dst, err := req.RequireString("destination")
	if err != nil {
		return badArguments(err)
	}

	dst = normalizePath(dst)

	if _, err := t.uploadFile(ctx, relocation{Source: local, Destination: dst}); err != nil {
		return failed(fmt.Sprintf("Failed to upload %s to %s", local, dst), err)
	}

	return succeeded(outcome{
		Message:     fmt.Sprintf("Uploaded: %s to: %s", local, dst),
		Source:      local,
		Destination: dst,
		FinalPath:   dst,
	})
}

// DownloadFile implements the download tool.
func (t *Tools) DownloadFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return badArguments(err)
	}

	local, err := req.RequireString("destination")
	if err != nil {
		return badArguments(err)
	}

	p = normalizePath(p)

	got, err := t.download(ctx, relocation{Source: p, Destination: local})
	if err != nil {
		return failed(fmt.Sprintf("Failed to download %s to %s", p, local), err)
	}

	return succeeded(outcome{
		Message:     fmt.Sprintf("Downloaded: %s to: %s", p, got.Path),
		Path:        p,
		Destination: local,
		FinalPath:   got.Path,
		Bytes:       got.Bytes,
	})
}

// ReadFile implements the read-text tool.
func (t *Tools) ReadFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return badArguments(err)
	}

	text, err := t.readFile(ctx, normalizePath(p))
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(text), nil
}
