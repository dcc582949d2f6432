// Package extract routes binaries to the spreadsheet or vision extractor.
package extract

import (
	"context"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// Extractor turns one binary into an ExtractedDocument.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filename, mimeType string) (entity.ExtractedDocument, error)
}

// SheetExtractor reads spreadsheet binaries; the MIME type plays no part.
type SheetExtractor interface {
	Extract(ctx context.Context, data []byte, filename string) (entity.ExtractedDocument, error)
}
