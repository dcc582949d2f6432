// Package vision extracts documents through a vision-capable model and a heuristic text parser.
package vision

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/llm"
)

// DefaultInstruction is sent with every binary unless the caller overrides it.
const DefaultInstruction = `Extract all text content from this document.

Identify and organize:
1. Document title/heading
2. All text fields and their labels
3. Table contents (if any) - format as structured data
4. Form fields and their values
5. Any dates, signatures, or stamps mentioned
6. Key-value pairs (like "Name: John", "Date: 01/01/2024")

Return the extracted content in a structured format with clear sections.
If you find tables, describe them with headers and rows.
If you find form fields, list them as key-value pairs.`

type Config struct {
	Temperature float32
	MaxTokens   int
	// MaxPDFPages rejects PDFs above this page count before any model call. 0 disables the probe.
	MaxPDFPages int
}

// Input is one vision extraction. Instruction overrides DefaultInstruction when set.
type Input struct {
	Data        []byte
	Filename    string
	MimeType    string
	Instruction string
}

type Extractor struct {
	model  llm.VisionModel
	cfg    Config
	logger *slog.Logger
}

func NewExtractor(m llm.VisionModel, cfg Config, logger *slog.Logger) *Extractor {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{model: m, cfg: cfg, logger: logger}
}

func (e *Extractor) Extract(ctx context.Context, data []byte, filename, mimeType string) (entity.ExtractedDocument, error) {
	return e.ExtractInput(ctx, Input{Data: data, Filename: filename, MimeType: mimeType})
}

// ExtractInput makes exactly one model call. Model, transport and empty-answer
// failures become ExtractionError; unstructured answers still succeed with RawText only.
func (e *Extractor) ExtractInput(ctx context.Context, in Input) (entity.ExtractedDocument, error) {
	start := time.Now()
	mimeType := strings.TrimSpace(in.MimeType)
	if mimeType == "" {
		mimeType = constants.MimeOctetStream
	}
	instruction := in.Instruction
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}

	e.logger.Info("vision.extract.start",
		"file", in.Filename,
		"mime", mimeType,
		"bytes", len(in.Data),
		"custom_instruction", in.Instruction != "",
	)

	if len(in.Data) == 0 {
		return entity.ExtractedDocument{}, common.ExtractionError("empty input", nil)
	}
	if err := e.checkPDF(in, mimeType); err != nil {
		return entity.ExtractedDocument{}, err
	}

	text, err := e.model.GenerateWithMedia(ctx, instruction, in.Data, mimeType,
		llm.WithTemperature(e.cfg.Temperature), llm.WithMaxTokens(e.cfg.MaxTokens))
	if err != nil {
		e.logger.Error("vision.extract.model_error",
			"file", in.Filename, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return entity.ExtractedDocument{}, common.ExtractionError("vision request cancelled", ctxErr)
		}
		return entity.ExtractedDocument{}, common.ExtractionError("vision model call failed", err)
	}
	if strings.TrimSpace(text) == "" {
		e.logger.Warn("vision.extract.empty", "file", in.Filename, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractedDocument{}, common.ExtractionError("vision model returned no text", nil)
	}

	doc := Parse(text)
	doc.DocumentType = documentType(mimeType)

	e.logger.Info("vision.extract.ok",
		"file", in.Filename,
		"text_len", len(text),
		"pairs", len(doc.KeyValuePairs),
		"dates", len(doc.Dates),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

func (e *Extractor) checkPDF(in Input, mimeType string) error {
	if e.cfg.MaxPDFPages <= 0 {
		return nil
	}
	if ft, ok := constants.TypeFromMime(mimeType); !ok || ft != constants.PDF {
		return nil
	}
	pages, err := PageCount(in.Data)
	if err != nil {
		// the model may still read what pdfcpu rejects
		e.logger.Warn("vision.pdf.probe_failed", "file", in.Filename, "error", err)
		return nil
	}
	if pages > e.cfg.MaxPDFPages {
		e.logger.Warn("vision.pdf.too_many_pages", "file", in.Filename, "pages", pages, "limit", e.cfg.MaxPDFPages)
		return common.ExtractionError(fmt.Sprintf("pdf has %d pages, limit is %d", pages, e.cfg.MaxPDFPages), nil)
	}
	return nil
}

// PageCount reads and validates a PDF and returns its page count.
func PageCount(data []byte) (int, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return ctx.PageCount, nil
}

func documentType(mimeType string) string {
	ft, _ := constants.TypeFromMime(mimeType)
	switch {
	case ft == constants.PDF:
		return "pdf"
	case ft == constants.DOC || ft == constants.DOCX:
		return "word"
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	default:
		return "document"
	}
}
