package edge

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// WebDAV depth values.
const (
	depthSelf     = "0"
	depthChildren = "1"
)

// CleanPath reduces a remote path to the form the share expects: slash
// separated, no leading or trailing slash, no "." or ".." elements.
// The share root is the empty string.
func CleanPath(p string) string {
	p = path.Clean("/" + strings.TrimSpace(p))

	return strings.Trim(p, "/")
}

// encodePathSegments URL-encodes each segment of a slash-separated path so
// names with spaces, '#' or '%' survive interpolation into the request URL.
func encodePathSegments(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}

// davPath maps a share-relative path to its escaped WebDAV request path.
// Collections get a trailing slash when dir is set.
func davPath(p string, dir bool) string {
	clean := CleanPath(p)
	if clean == "" {
		return filesPrefix + "/"
	}

	out := filesPrefix + "/" + encodePathSegments(clean)
	if dir {
		out += "/"
	}

	return out
}

// propfind issues a PROPFIND with the given depth and decodes the multistatus.
func (c *Client) propfind(ctx context.Context, p, depth string) ([]davResponse, error) {
	resp, err := c.do(ctx, request{
		method:      "PROPFIND",
		path:        davPath(p, depth == depthChildren),
		body:        strings.NewReader(propfindBody),
		contentType: "application/xml; charset=utf-8",
		header:      map[string]string{"Depth": depth},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, fmt.Errorf("edge: decoding PROPFIND response for %q: %w", p, err)
	}

	return ms.Responses, nil
}

// ListDir returns the direct children of dir. The directory itself is not
// part of the result.
func (c *Client) ListDir(ctx context.Context, dir string) ([]Item, error) {
	clean := CleanPath(dir)

	c.logger.Debug("listing directory", slog.String("path", clean))

	responses, err := c.propfind(ctx, clean, depthChildren)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(responses))

	for i := range responses {
		item := responses[i].toItem(c.logger)
		if item.Path == clean {
			continue
		}

		items = append(items, item)
	}

	return items, nil
}

// Stat returns metadata for a single file or directory. A missing path yields
// an error matching ErrNotFound.
func (c *Client) Stat(ctx context.Context, p string) (*Item, error) {
	clean := CleanPath(p)

	responses, err := c.propfind(ctx, clean, depthSelf)
	if err != nil {
		return nil, err
	}

	if len(responses) == 0 {
		return nil, fmt.Errorf("edge: stat %q: empty multistatus: %w", clean, ErrNotFound)
	}

	item := responses[0].toItem(c.logger)

	return &item, nil
}

// Mkdir creates a single directory. The parent must exist.
func (c *Client) Mkdir(ctx context.Context, p string) error {
	clean := CleanPath(p)
	if clean == "" {
		return fmt.Errorf("edge: mkdir: %w: empty path", ErrBadRequest)
	}

	c.logger.Info("creating directory", slog.String("path", clean))

	resp, err := c.do(ctx, request{method: "MKCOL", path: davPath(clean, true)})
	if err != nil {
		return fmt.Errorf("edge: mkdir %q: %w", clean, err)
	}

	return drain(resp)
}

// Makedirs creates p and any missing parents. Segments that already exist are
// skipped, so calling it on an existing tree succeeds.
func (c *Client) Makedirs(ctx context.Context, p string) error {
	clean := CleanPath(p)
	if clean == "" {
		return nil
	}

	var current string

	for _, seg := range strings.Split(clean, "/") {
		if current == "" {
			current = seg
		} else {
			current += "/" + seg
		}

		err := c.Mkdir(ctx, current)
		if err == nil {
			continue
		}

		// MKCOL on an existing collection answers 405.
		if errors.Is(err, ErrNotAllowed) {
			c.logger.Debug("directory already exists", slog.String("path", current))

			continue
		}

		return err
	}

	return nil
}

// Copy copies src to the exact path dst. Existing targets are not
// overwritten.
func (c *Client) Copy(ctx context.Context, src, dst string) error {
	return c.relocate(ctx, "COPY", src, dst)
}

// Move moves or renames src to the exact path dst. Existing targets are not
// overwritten.
func (c *Client) Move(ctx context.Context, src, dst string) error {
	return c.relocate(ctx, "MOVE", src, dst)
}

func (c *Client) relocate(ctx context.Context, method, src, dst string) error {
	from, to := CleanPath(src), CleanPath(dst)

	c.logger.Info("relocating item",
		slog.String("method", method),
		slog.String("source", from),
		slog.String("destination", to),
	)

	resp, err := c.do(ctx, request{
		method: method,
		path:   davPath(from, false),
		header: map[string]string{
			"Destination": c.baseURL + davPath(to, false),
			"Overwrite":   "F",
		},
	})
	if err != nil {
		return fmt.Errorf("edge: %s %q to %q: %w", strings.ToLower(method), from, to, err)
	}

	return drain(resp)
}

// Delete removes each of paths. Every path is attempted. If any fails the
// result is a *DeleteError telling the removed paths from the failed ones.
func (c *Client) Delete(ctx context.Context, paths ...string) error {
	var de DeleteError

	for _, p := range paths {
		if err := c.deleteOne(ctx, p); err != nil {
			de.Failures = append(de.Failures, DeleteFailure{Path: p, Err: err})

			continue
		}

		de.Deleted = append(de.Deleted, p)
	}

	if len(de.Failures) > 0 {
		return &de
	}

	return nil
}

func (c *Client) deleteOne(ctx context.Context, p string) error {
	clean := CleanPath(p)
	if clean == "" {
		return fmt.Errorf("edge: refusing to delete the share root: %w", ErrBadRequest)
	}

	c.logger.Info("deleting item", slog.String("path", clean))

	resp, err := c.do(ctx, request{method: http.MethodDelete, path: davPath(clean, false)})
	if err != nil {
		return fmt.Errorf("edge: delete %q: %w", clean, err)
	}

	return drain(resp)
}

// Upload writes the content of r to the remote file p, replacing it if present.
func (c *Client) Upload(ctx context.Context, p string, r io.Reader) error {
	clean := CleanPath(p)
	if clean == "" {
		return fmt.Errorf("edge: upload: %w: empty path", ErrBadRequest)
	}

	c.logger.Info("uploading", slog.String("path", clean))

	resp, err := c.do(ctx, request{
		method:      http.MethodPut,
		path:        davPath(clean, false),
		body:        r,
		contentType: "application/octet-stream",
		transfer:    true,
	})
	if err != nil {
		return fmt.Errorf("edge: upload %q: %w", clean, err)
	}

	return drain(resp)
}

// UploadFile uploads the local file at localPath to the remote path.
func (c *Client) UploadFile(ctx context.Context, localPath, remote string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("edge: opening %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("edge: stat %s: %w", localPath, err)
	}

	if info.IsDir() {
		return fmt.Errorf("edge: %s is a directory", localPath)
	}

	return c.Upload(ctx, remote, f)
}

// Download fetches the remote file into localPath. If localPath is an existing
// directory the file keeps its remote name inside it. Content is written to a
// ".partial" sibling and renamed into place once complete. Returns the final
// local path and the number of bytes written.
func (c *Client) Download(ctx context.Context, remote, localPath string) (string, int64, error) {
	clean := CleanPath(remote)

	target := localPath
	if info, err := os.Stat(localPath); err == nil && info.IsDir() {
		target = filepath.Join(localPath, path.Base(clean))
	}

	c.logger.Info("downloading",
		slog.String("path", clean),
		slog.String("local_path", target),
	)

	body, err := c.Handle(clean).Open(ctx)
	if err != nil {
		return "", 0, err
	}
	defer body.Close()

	partial := target + ".partial"

	f, err := os.Create(partial)
	if err != nil {
		return "", 0, fmt.Errorf("edge: creating %s: %w", partial, err)
	}

	n, copyErr := io.Copy(f, body)
	closeErr := f.Close()

	if copyErr != nil || closeErr != nil {
		os.Remove(partial)

		if copyErr != nil {
			return "", n, fmt.Errorf("edge: streaming %q: %w", clean, copyErr)
		}

		return "", n, fmt.Errorf("edge: closing %s: %w", partial, closeErr)
	}

	if err := os.Rename(partial, target); err != nil {
		os.Remove(partial)

		return "", n, fmt.Errorf("edge: renaming %s: %w", partial, err)
	}

	c.logger.Debug("download complete",
		slog.String("path", clean),
		slog.Int64("bytes_written", n),
	)

	return target, n, nil
}

// FileHandle is a lazy reference to a remote file. Nothing is fetched until
// Open or Text is called.
type FileHandle struct {
	client *Client
	path   string
}

// Handle returns a handle for the remote file p.
func (c *Client) Handle(p string) *FileHandle {
	return &FileHandle{client: c, path: CleanPath(p)}
}

// Path returns the cleaned remote path.
func (h *FileHandle) Path() string {
	return h.path
}

// Open streams the file content. The caller closes the reader.
func (h *FileHandle) Open(ctx context.Context) (io.ReadCloser, error) {
	if h.path == "" {
		return nil, fmt.Errorf("edge: open: %w: empty path", ErrBadRequest)
	}

	resp, err := h.client.do(ctx, request{
		method:   http.MethodGet,
		path:     davPath(h.path, false),
		transfer: true,
	})
	if err != nil {
		return nil, fmt.Errorf("edge: reading %q: %w", h.path, err)
	}

	return resp.Body, nil
}

// Text reads the whole file and returns it as a string.
func (h *FileHandle) Text(ctx context.Context) (string, error) {
	body, err := h.Open(ctx)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("edge: reading %q: %w", h.path, err)
	}

	return buf.String(), nil
}

// ReadText returns the content of the remote file p as a string.
func (c *Client) ReadText(ctx context.Context, p string) (string, error) {
	return c.Handle(p).Text(ctx)
}
