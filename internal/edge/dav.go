package edge

import (
	"encoding/xml"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

// CTERA extension properties (id, hasSubfolders, isDeleted) live in the
// http://www.ctera.com/ns namespace.
const propfindBody = `<?xml version="1.0" encoding="utf-8"?>` +
	`<D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`

// multistatus mirrors a WebDAV 207 response body.
// Unexported: callers use Item via toItem() normalization.
type multistatus struct {
	XMLName   xml.Name      `xml:"DAV: multistatus"`
	Responses []davResponse `xml:"DAV: response"`
}

type davResponse struct {
	Href      string        `xml:"DAV: href"`
	Propstats []davPropstat `xml:"DAV: propstat"`
}

type davPropstat struct {
	Prop   davProp `xml:"DAV: prop"`
	Status string  `xml:"DAV: status"`
}

type davProp struct {
	DisplayName   string          `xml:"DAV: displayname"`
	LastModified  string          `xml:"DAV: getlastmodified"`
	ContentLength string          `xml:"DAV: getcontentlength"`
	ContentType   string          `xml:"DAV: getcontenttype"`
	ResourceType  davResourceType `xml:"DAV: resourcetype"`

	ID            string `xml:"http://www.ctera.com/ns id"`
	HasSubfolders string `xml:"http://www.ctera.com/ns hasSubfolders"`
	IsDeleted     string `xml:"http://www.ctera.com/ns isDeleted"`
}

type davResourceType struct {
	Collection *struct{} `xml:"DAV: collection"`
}

// okProp merges the properties of every propstat reporting 200 OK.
func (r *davResponse) okProp() davProp {
	var merged davProp

	for _, ps := range r.Propstats {
		if ps.Status != "" && !strings.Contains(ps.Status, " 200 ") {
			continue
		}

		p := ps.Prop
		merged.DisplayName = firstNonEmpty(merged.DisplayName, p.DisplayName)
		merged.LastModified = firstNonEmpty(merged.LastModified, p.LastModified)
		merged.ContentLength = firstNonEmpty(merged.ContentLength, p.ContentLength)
		merged.ContentType = firstNonEmpty(merged.ContentType, p.ContentType)
		merged.ID = firstNonEmpty(merged.ID, p.ID)
		merged.HasSubfolders = firstNonEmpty(merged.HasSubfolders, p.HasSubfolders)
		merged.IsDeleted = firstNonEmpty(merged.IsDeleted, p.IsDeleted)

		if p.ResourceType.Collection != nil {
			merged.ResourceType.Collection = p.ResourceType.Collection
		}
	}

	return merged
}

// toItem normalizes a multistatus entry into an Item.
func (r *davResponse) toItem(logger *slog.Logger) Item {
	prop := r.okProp()
	rel := hrefToPath(r.Href)

	item := Item{
		Name:          prop.DisplayName,
		Path:          rel,
		IsDir:         prop.ResourceType.Collection != nil,
		ContentType:   prop.ContentType,
		ID:            prop.ID,
		HasSubfolders: parseOptionalBool(prop.HasSubfolders),
		IsDeleted:     parseOptionalBool(prop.IsDeleted),
	}

	if item.Name == "" {
		item.Name = path.Base(rel)
	}

	if prop.ContentLength != "" {
		if n, err := strconv.ParseInt(prop.ContentLength, 10, 64); err == nil {
			item.Size = n
		}
	}

	item.ModifiedAt = parseModified(prop.LastModified, rel, logger)

	return item
}

// hrefToPath turns an href (absolute path or full URL, percent-encoded) into
// a share-relative path without leading or trailing slashes.
func hrefToPath(href string) string {
	p := href

	if u, err := url.Parse(href); err == nil {
		p = u.Path
	}

	p = strings.TrimPrefix(p, filesPrefix)

	return strings.Trim(p, "/")
}

// parseModified parses an HTTP-date. Unparseable values are logged and
// reported as the zero time rather than guessed.
func parseModified(raw, itemPath string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := http.ParseTime(raw)
	if err != nil {
		logger.Warn("invalid getlastmodified, leaving unset",
			slog.String("path", itemPath),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Time{}
	}

	return t.UTC()
}

func parseOptionalBool(raw string) *bool {
	if raw == "" {
		return nil
	}

	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}

	return &v
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}

	return b
}
