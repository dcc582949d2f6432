package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/detect"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// Router dispatches by file type: xlsx/xls to the sheet extractor, every other
// supported type to the vision extractor.
type Router struct {
	sheets SheetExtractor
	vision Extractor
	logger *slog.Logger
}

var _ Extractor = (*Router)(nil)

func NewRouter(sheets SheetExtractor, vision Extractor, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sheets: sheets, vision: vision, logger: logger}
}

// Extract classifies by extension, then by declared MIME type.
func (r *Router) Extract(ctx context.Context, data []byte, filename, mimeType string) (entity.ExtractedDocument, error) {
	res := detect.Classify(filename, mimeType)
	if res.Kind == detect.Unsupported {
		r.logger.Warn("extract.route.unsupported", "file", filename, "mime", mimeType)
		return entity.ExtractedDocument{}, common.UnsupportedError(fmt.Sprintf("cannot classify %q (%s)", filename, mimeType))
	}
	return r.ExtractAs(ctx, res.FileType, data, filename, mimeType)
}

// ExtractAs skips classification for callers that already resolved the type.
func (r *Router) ExtractAs(ctx context.Context, ft constants.FileType, data []byte, filename, mimeType string) (entity.ExtractedDocument, error) {
	res := detect.ClassifyFileType(ft)
	start := time.Now()

	var (
		doc entity.ExtractedDocument
		err error
	)
	switch res.Kind {
	case detect.Spreadsheet:
		doc, err = r.sheets.Extract(ctx, data, filename)
	case detect.VisionDocument:
		if mimeType == "" || mimeType == constants.MimeOctetStream {
			mimeType = constants.MimeFor(ft)
		}
		doc, err = r.vision.Extract(ctx, data, filename, mimeType)
	default:
		return entity.ExtractedDocument{}, common.UnsupportedError(fmt.Sprintf("unsupported file type %q", ft))
	}
	if err != nil {
		return entity.ExtractedDocument{}, err
	}
	if doc.RawText == "" {
		return entity.ExtractedDocument{}, common.ExtractionError("extractor produced no text", nil)
	}

	r.logger.Debug("extract.route.ok",
		"file", filename,
		"route", string(res.Kind),
		"type", string(ft),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}
