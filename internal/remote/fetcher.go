package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/extract/spreadsheet"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/extract/vision"
)

// Dispatcher extracts a binary whose type is already resolved.
type Dispatcher interface {
	ExtractAs(ctx context.Context, ft constants.FileType, data []byte, filename, mimeType string) (entity.ExtractedDocument, error)
}

type Config struct {
	ExportBaseURL string
	MaxBytes      int64
	Timeout       time.Duration
}

// Content is a fetched but unparsed remote document. Exports carry Text;
// opaque files carry File plus the resolved type.
type Content struct {
	Link     Link
	Format   ExportFormat
	Text     string
	File     *OpaqueFile
	FileType constants.FileType
}

type Fetcher struct {
	cfg      Config
	http     *http.Client
	proxy    OpaqueProxy
	dispatch Dispatcher
	logger   *slog.Logger
}

func NewFetcher(cfg Config, proxy OpaqueProxy, dispatch Dispatcher, client *http.Client, logger *slog.Logger) *Fetcher {
	if cfg.ExportBaseURL == "" {
		cfg.ExportBaseURL = "https://docs.google.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{cfg: cfg, http: client, proxy: proxy, dispatch: dispatch, logger: logger}
}

// Fetch retrieves the content behind rawURL without parsing it.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Content, error) {
	link, err := ParseLink(rawURL)
	if err != nil {
		return Content{}, err
	}
	if exportURL, format, ok := ExportURL(f.cfg.ExportBaseURL, link); ok {
		text, err := f.fetchExport(ctx, exportURL, link)
		if err != nil {
			return Content{}, err
		}
		return Content{Link: link, Format: format, Text: text}, nil
	}

	if f.proxy == nil {
		return Content{}, common.FetchError(common.ReasonTransport, "no file proxy configured", nil)
	}
	file, err := f.proxy.FetchOpaqueFile(ctx, link.DocumentID)
	if err != nil {
		return Content{}, err
	}
	ft, mimeType, err := ResolveFileType(file.MimeType, file.Filename)
	if err != nil {
		f.logger.Warn("remote.fetch.unsupported_type", "file_id", link.DocumentID, "mime", file.MimeType, "filename", file.Filename)
		return Content{}, err
	}
	file.MimeType = mimeType
	return Content{Link: link, File: &file, FileType: ft}, nil
}

// Extract fetches rawURL and hands the content to the matching parser: CSV exports
// become a table, text exports go through the heuristic text parser, and opaque
// files are dispatched by resolved type.
func (f *Fetcher) Extract(ctx context.Context, rawURL string) (entity.ExtractedDocument, error) {
	c, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return entity.ExtractedDocument{}, err
	}
	switch {
	case c.Format == FormatCSV:
		return spreadsheet.FromCSV(c.Text)
	case c.Format == FormatText:
		doc := vision.Parse(c.Text)
		doc.DocumentType = string(c.Link.Kind)
		return doc, nil
	}
	if f.dispatch == nil {
		return entity.ExtractedDocument{}, common.ExtractionError("no extractor configured for remote files", nil)
	}
	return f.dispatch.ExtractAs(ctx, c.FileType, c.File.Data, c.File.Filename, c.File.MimeType)
}

func (f *Fetcher) fetchExport(ctx context.Context, exportURL string, link Link) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return "", common.FetchError(common.ReasonTransport, "build export request", err)
	}
	f.logger.Info("remote.export.request", "req_id", rid, "kind", string(link.Kind), "doc_id", link.DocumentID)

	resp, err := f.http.Do(req)
	if err != nil {
		f.logger.Error("remote.export.send_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", common.FetchError(common.ReasonTransport, "export request failed", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			f.logger.Warn("remote.export.body_close_error", "req_id", rid, "error", err)
		}
	}(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		f.logger.Warn("remote.fetch.not_public", "req_id", rid, "doc_id", link.DocumentID, "status", resp.StatusCode)
		return "", common.FetchError(common.ReasonNotPubliclyShared,
			`document is not publicly accessible; share it as "Anyone with the link can view"`, nil)
	}
	if resp.StatusCode/100 != 2 {
		return "", common.FetchError(common.ReasonTransport, fmt.Sprintf("export status %d", resp.StatusCode), nil)
	}

	data, err := readLimited(resp.Body, f.cfg.MaxBytes)
	if err != nil {
		return "", err
	}
	if isLoginPage(resp.Header.Get("Content-Type"), data) {
		f.logger.Warn("remote.fetch.not_public", "req_id", rid, "doc_id", link.DocumentID, "reason", "sign_in_page")
		return "", notPublic()
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", common.ExtractionError(fmt.Sprintf("%s export is empty", link.Kind), nil)
	}

	f.logger.Info("remote.export.ok",
		"req_id", rid,
		"kind", string(link.Kind),
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}
