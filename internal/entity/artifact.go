package entity

// SourceArtifact is one input to the pipeline. The set of implementations is
// closed: Upload and RemoteLink.
type SourceArtifact interface {
	// Name identifies the artifact in logs and failure reports.
	Name() string
	sourceArtifact()
}

// Upload is a file supplied as bytes.
type Upload struct {
	Bytes            []byte
	Filename         string
	DeclaredMimeType string
}

func (u Upload) Name() string { return u.Filename }
func (Upload) sourceArtifact() {}

// RemoteLink is a shareable link to an externally hosted document.
type RemoteLink struct {
	URL string
}

func (l RemoteLink) Name() string { return l.URL }
func (RemoteLink) sourceArtifact() {}
