// Package detect classifies incoming artifacts without touching the network.
package detect

import (
	"regexp"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// Kind is the extraction route for an artifact.
type Kind string

const (
	Spreadsheet    Kind = "spreadsheet"
	VisionDocument Kind = "vision"
	RemoteDocument Kind = "remote"
	Unsupported    Kind = "unsupported"
)

// RemoteKind names the shape of a hosted document link.
type RemoteKind string

const (
	NativeDocument    RemoteKind = "document"
	NativeSpreadsheet RemoteKind = "spreadsheet"
	NativeSlides      RemoteKind = "presentation"
	OpaqueFile        RemoteKind = "file"
)

// Result is the outcome of classification. FileType is set for uploads,
// Remote and DocumentID for links.
type Result struct {
	Kind       Kind
	FileType   constants.FileType
	Remote     RemoteKind
	DocumentID string
}

type linkPattern struct {
	re   *regexp.Regexp
	kind RemoteKind
}

// Order matters: the first matching pattern wins.
var linkPatterns = []linkPattern{
	{regexp.MustCompile(`docs\.google\.com/document/d/([a-zA-Z0-9_-]+)`), NativeDocument},
	{regexp.MustCompile(`docs\.google\.com/spreadsheets/d/([a-zA-Z0-9_-]+)`), NativeSpreadsheet},
	{regexp.MustCompile(`docs\.google\.com/presentation/d/([a-zA-Z0-9_-]+)`), NativeSlides},
	{regexp.MustCompile(`drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`), OpaqueFile},
	{regexp.MustCompile(`drive\.google\.com/open\?id=([a-zA-Z0-9_-]+)`), OpaqueFile},
}

// Classify routes an upload by extension, falling back to the declared MIME type.
func Classify(filename, declaredMime string) Result {
	ft, ok := constants.TypeFromFilename(filename)
	if !ok {
		ft, ok = constants.TypeFromMime(declaredMime)
	}
	if !ok {
		return Result{Kind: Unsupported}
	}
	return routeFileType(ft)
}

// ClassifyFileType routes an already resolved file type.
func ClassifyFileType(ft constants.FileType) Result {
	if _, ok := constants.AllowedExtensions[string(ft)]; !ok {
		return Result{Kind: Unsupported}
	}
	return routeFileType(ft)
}

func routeFileType(ft constants.FileType) Result {
	if ft.IsSpreadsheet() {
		return Result{Kind: Spreadsheet, FileType: ft}
	}
	return Result{Kind: VisionDocument, FileType: ft}
}

// ClassifyURL matches a link against the known hosted-document shapes.
func ClassifyURL(rawURL string) Result {
	for _, p := range linkPatterns {
		if m := p.re.FindStringSubmatch(rawURL); m != nil {
			return Result{Kind: RemoteDocument, Remote: p.kind, DocumentID: m[1]}
		}
	}
	return Result{Kind: Unsupported}
}

// ClassifyArtifact dispatches on the artifact variant.
func ClassifyArtifact(a entity.SourceArtifact) Result {
	switch v := a.(type) {
	case entity.Upload:
		return Classify(v.Filename, v.DeclaredMimeType)
	case *entity.Upload:
		return Classify(v.Filename, v.DeclaredMimeType)
	case entity.RemoteLink:
		return ClassifyURL(v.URL)
	case *entity.RemoteLink:
		return ClassifyURL(v.URL)
	}
	return Result{Kind: Unsupported}
}
