// Package tools exposes the Edge Filer's file operations as MCP tools. Every
// handler runs its remote work through session.Refresh, so a lost session is
// re-established once per call.
package tools

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ctera/ctera-edge-mcp/internal/edge"
	"github.com/ctera/ctera-edge-mcp/internal/session"
)

// Filer is the remote file API the tools need. *edge.Client implements it.
type Filer interface {
	CurrentUser(ctx context.Context) (*edge.User, error)
	ListDir(ctx context.Context, dir string) ([]edge.Item, error)
	Stat(ctx context.Context, p string) (*edge.Item, error)
	Mkdir(ctx context.Context, p string) error
	Makedirs(ctx context.Context, p string) error
	Copy(ctx context.Context, src, dst string) error
	Move(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, paths ...string) error
	Upload(ctx context.Context, p string, r io.Reader) error
	UploadFile(ctx context.Context, localPath, remote string) error
	Download(ctx context.Context, remote, localPath string) (string, int64, error)
	ReadText(ctx context.Context, p string) (string, error)
}

var _ Filer = (*edge.Client)(nil)

// filerFrom returns the connection of the session carried by ctx.
func filerFrom(ctx context.Context) (Filer, error) {
	s, ok := session.FromContext(ctx)
	if !ok {
		return nil, session.ErrInvalidInvocation
	}

	f, ok := s.Conn().(Filer)
	if !ok {
		return nil, fmt.Errorf("tools: connection %T does not support file operations", s.Conn())
	}

	return f, nil
}

// normalizePath strips a single leading separator. The filer expects paths
// relative to the share root.
func normalizePath(p string) string {
	return strings.TrimPrefix(strings.TrimSpace(p), "/")
}
