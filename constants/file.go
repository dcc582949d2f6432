package constants

import (
	"path/filepath"
	"strings"
)

// FileType is a supported upload type, keyed by its canonical extension.
type FileType string

const (
	PDF  FileType = "pdf"
	DOC  FileType = "doc"
	DOCX FileType = "docx"
	PNG  FileType = "png"
	JPG  FileType = "jpg"
	JPEG FileType = "jpeg"
	XLSX FileType = "xlsx"
	XLS  FileType = "xls"
)

const MimeOctetStream = "application/octet-stream"

// AllowedExtensions holds the extensions accepted for evidence uploads.
var AllowedExtensions = map[string]FileType{
	"pdf":  PDF,
	"doc":  DOC,
	"docx": DOCX,
	"png":  PNG,
	"jpg":  JPG,
	"jpeg": JPEG,
	"xlsx": XLSX,
	"xls":  XLS,
}

// mimeToType is consulted when an upload carries no usable extension.
var mimeToType = map[string]FileType{
	"application/pdf":    PDF,
	"application/msword": DOC,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": DOCX,
	"image/png":                PNG,
	"image/jpeg":               JPG,
	"image/jpg":                JPG,
	"application/vnd.ms-excel": XLS,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": XLSX,
}

var typeToMime = map[FileType]string{
	PDF:  "application/pdf",
	DOC:  "application/msword",
	DOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	PNG:  "image/png",
	JPG:  "image/jpeg",
	JPEG: "image/jpeg",
	XLS:  "application/vnd.ms-excel",
	XLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// TypeFromFilename resolves a type from the filename extension only.
func TypeFromFilename(name string) (FileType, bool) {
	ft, ok := AllowedExtensions[NormalizeExt(filepath.Ext(name))]
	return ft, ok
}

// TypeFromMime resolves a type from an exact MIME match (parameters are ignored).
func TypeFromMime(mime string) (FileType, bool) {
	ft, ok := mimeToType[baseMime(mime)]
	return ft, ok
}

// TypeFromMimeLoose tries an exact match and then substring heuristics, the way
// file-hosting services label downloads inconsistently.
func TypeFromMimeLoose(mime string) (FileType, bool) {
	if ft, ok := TypeFromMime(mime); ok {
		return ft, true
	}
	m := strings.ToLower(mime)
	switch {
	case strings.Contains(m, "pdf"):
		return PDF, true
	case strings.Contains(m, "word"):
		return DOCX, true
	case strings.Contains(m, "png"):
		return PNG, true
	case strings.Contains(m, "jpeg"), strings.Contains(m, "jpg"):
		return JPG, true
	case strings.Contains(m, "excel"), strings.Contains(m, "spreadsheet"):
		return XLSX, true
	case strings.Contains(m, "image"):
		return PNG, true
	}
	return "", false
}

// MimeFor returns the canonical MIME type for a file type.
func MimeFor(ft FileType) string {
	if m, ok := typeToMime[ft]; ok {
		return m
	}
	return MimeOctetStream
}

// IsSpreadsheet reports whether the type is routed to the tabular extractor.
func (ft FileType) IsSpreadsheet() bool {
	return ft == XLSX || ft == XLS
}

func baseMime(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
