// Package remote retrieves hosted documents: native docs/sheets/slides through their
// public export endpoints and opaque drive files through a trusted proxy.
package remote

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/detect"
)

// Link is a classified hosted-document URL.
type Link struct {
	URL        string
	Kind       detect.RemoteKind
	DocumentID string
}

// ParseLink classifies rawURL. Unknown shapes fail with Unsupported.
func ParseLink(rawURL string) (Link, error) {
	res := detect.ClassifyURL(strings.TrimSpace(rawURL))
	if res.Kind != detect.RemoteDocument {
		return Link{}, common.UnsupportedError(fmt.Sprintf("not a recognised document link: %q", rawURL))
	}
	return Link{URL: rawURL, Kind: res.Remote, DocumentID: res.DocumentID}, nil
}

// ExportFormat is the format requested from a native export endpoint.
type ExportFormat string

const (
	FormatText ExportFormat = "txt"
	FormatCSV  ExportFormat = "csv"
)

// ExportURL builds the unauthenticated export URL for native links. The second
// return is false for opaque files, which have no export endpoint.
func ExportURL(base string, l Link) (string, ExportFormat, bool) {
	var format ExportFormat
	var path string
	switch l.Kind {
	case detect.NativeDocument:
		path, format = "document", FormatText
	case detect.NativeSlides:
		path, format = "presentation", FormatText
	case detect.NativeSpreadsheet:
		path, format = "spreadsheets", FormatCSV
	default:
		return "", "", false
	}
	base = strings.TrimRight(base, "/")
	return fmt.Sprintf("%s/%s/d/%s/export?format=%s", base, path, url.PathEscape(l.DocumentID), format), format, true
}
