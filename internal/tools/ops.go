package tools

import (
	"bytes"
	"context"
	"errors"
	"path"
	"time"

	"github.com/ctera/ctera-edge-mcp/internal/edge"
)

// Entry is one row of a directory listing.
type Entry struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Path          string `json:"path"`
	LastModified  string `json:"last_modified"`
	IsDir         bool   `json:"is_dir"`
	Size          int64  `json:"size"`
	ID            string `json:"id,omitempty"`
	HasSubfolders *bool  `json:"has_subfolders,omitempty"`
	Deleted       *bool  `json:"deleted,omitempty"`
}

func newEntry(item *edge.Item) Entry {
	e := Entry{
		Name:          item.Name,
		Type:          item.Type(),
		Path:          item.Path,
		IsDir:         item.IsDir,
		Size:          item.Size,
		ID:            item.ID,
		HasSubfolders: item.HasSubfolders,
		Deleted:       item.IsDeleted,
	}

	if !item.ModifiedAt.IsZero() {
		e.LastModified = item.ModifiedAt.UTC().Format(time.RFC3339)
	}

	return e
}

// relocation names a source and a destination. Depending on the tool either
// side may be local.
type relocation struct {
	Source      string
	Destination string
}

// content is an in-memory upload.
type content struct {
	Path string
	Data []byte
}

// deletion holds the paths a delete has yet to remove. The call wrapper hands
// the same value to its retry, so a retry resends only what is left.
type deletion struct {
	remaining []string
}

type downloaded struct {
	Path  string
	Bytes int64
}

func whoAmI(ctx context.Context, _ struct{}) (string, error) {
	f, err := filerFrom(ctx)
	if err != nil {
		return "", err
	}

	u, err := f.CurrentUser(ctx)
	if err != nil {
		return "", err
	}

	return u.Username, nil
}

func listDir(ctx context.Context, dir string) ([]Entry, error) {
	f, err := filerFrom(ctx)
	if err != nil {
		return nil, err
	}

	items, err := f.ListDir(ctx, dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(items))
	for i := range items {
		entries = append(entries, newEntry(&items[i]))
	}

	return entries, nil
}

func mkdir(ctx context.Context, p string) (struct{}, error) {
	f, err := filerFrom(ctx)
	if err != nil {
		return struct{}{}, err
	}

	return struct{}{}, f.Mkdir(ctx, p)
}

func makedirs(ctx context.Context, p string) (struct{}, error) {
	f, err := filerFrom(ctx)
	if err != nil {
		return struct{}{}, err
	}

	return struct{}{}, f.Makedirs(ctx, p)
}

// resolveTarget returns the path src ends up at when copied or moved to dst.
// An existing directory receives the item under its own name; anything else
// is taken as the exact target path. The share root is a directory.
func resolveTarget(ctx context.Context, f Filer, src, dst string) (string, error) {
	base := path.Base(edge.CleanPath(src))

	dir := edge.CleanPath(dst)
	if dir == "" {
		return base, nil
	}

	info, err := f.Stat(ctx, dir)

	switch {
	case err == nil && info.IsDir:
		return path.Join(dir, base), nil
	case err == nil, errors.Is(err, edge.ErrNotFound):
		return dir, nil
	default:
		return "", err
	}
}

func copyItem(ctx context.Context, r relocation) (string, error) {
	f, err := filerFrom(ctx)
	if err != nil {
		return "", err
	}

	target, err := resolveTarget(ctx, f, r.Source, r.Destination)
	if err != nil {
		return "", err
	}

	return target, f.Copy(ctx, r.Source, target)
}

func moveItem(ctx context.Context, r relocation) (string, error) {
	f, err := filerFrom(ctx)
	if err != nil {
		return "", err
	}

	target, err := resolveTarget(ctx, f, r.Source, r.Destination)
	if err != nil {
		return "", err
	}

	return target, f.Move(ctx, r.Source, target)
}

func deleteItems(ctx context.Context, d *deletion) (struct{}, error) {
	f, err := filerFrom(ctx)
	if err != nil {
		return struct{}{}, err
	}

	err = f.Delete(ctx, d.remaining...)
	if err == nil {
		d.remaining = nil

		return struct{}{}, nil
	}

	var de *edge.DeleteError
	if errors.As(err, &de) {
		d.remaining = de.Remaining()
	}

	return struct{}{}, err
}

func uploadContent(ctx context.Context, c content) (struct{}, error) {
	f, err := filerFrom(ctx)
	if err != nil {
		return struct{}{}, err
	}

	// A fresh reader per attempt; a retry must resend the whole body.
	return struct{}{}, f.Upload(ctx, c.Path, bytes.NewReader(c.Data))
}

func uploadFile(ctx context.Context, r relocation) (struct{}, error) {
	f, err := filerFrom(ctx)
	if err != nil {
		return struct{}{}, err
	}

	return struct{}{}, f.UploadFile(ctx, r.Source, r.Destination)
}

func download(ctx context.Context, r relocation) (downloaded, error) {
	f, err := filerFrom(ctx)
	if err != nil {
		return downloaded{}, err
	}

	final, n, err := f.Download(ctx, r.Source, r.Destination)
	if err != nil {
		return downloaded{}, err
	}

	return downloaded{Path: final, Bytes: n}, nil
}

func readFile(ctx context.Context, p string) (string, error) {
	f, err := filerFrom(ctx)
	if err != nil {
		return "", err
	}

	return f.ReadText(ctx, p)
}
