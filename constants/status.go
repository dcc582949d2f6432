package constants

// ExtractionStatus is the lifecycle state of a source document record.
type ExtractionStatus string

// Stable values (store these exact strings in DB).
const (
	ExtractionPending    ExtractionStatus = "pending"
	ExtractionExtracting ExtractionStatus = "extracting"
	ExtractionExtracted  ExtractionStatus = "extracted"
	ExtractionError      ExtractionStatus = "error"
)

// SourceType records where a source document came from.
type SourceType string

const (
	SourceUpload SourceType = "upload"
	SourceGDrive SourceType = "gdrive"
)
