package edge

import "time"

// Item is a file or directory on the filer's share. Fields are normalized from
// the WebDAV multistatus response; callers never see raw XML.
type Item struct {
	Name        string
	Path        string // relative to the share root, no leading or trailing slash
	IsDir       bool
	Size        int64
	ContentType string
	ModifiedAt  time.Time // zero if the filer did not report it

	// Optional CTERA properties, nil when absent from the response.
	ID            string
	HasSubfolders *bool
	IsDeleted     *bool
}

// Type returns "folder" or "file".
func (i *Item) Type() string {
	if i.IsDir {
		return "folder"
	}

	return "file"
}
