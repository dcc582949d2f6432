package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
)

// OpaqueFile is what a trusted proxy hands back for a drive file.
type OpaqueFile struct {
	Data     []byte
	MimeType string
	Filename string
}

// OpaqueProxy fetches drive files server-side. The pipeline never downloads
// file-hosting links directly.
type OpaqueProxy interface {
	FetchOpaqueFile(ctx context.Context, fileID string) (OpaqueFile, error)
}

const (
	defaultFilename = "downloaded-file"
	browserUA       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// interstitial pages are small; real files rarely are
	loginPageMaxBase64 = 50000
)

var dispositionFilename = regexp.MustCompile(`filename[^;=\n]*=("[^"]*"|'[^']*'|[^;\n]*)`)

// DownloadProxy fetches through the public direct-download endpoint, skipping
// the virus-scan confirmation.
type DownloadProxy struct {
	baseURL  string
	http     *http.Client
	maxBytes int64
	logger   *slog.Logger
}

var _ OpaqueProxy = (*DownloadProxy)(nil)

func NewDownloadProxy(baseURL string, client *http.Client, maxBytes int64, logger *slog.Logger) *DownloadProxy {
	if baseURL == "" {
		baseURL = "https://drive.google.com"
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadProxy{baseURL: strings.TrimRight(baseURL, "/"), http: client, maxBytes: maxBytes, logger: logger}
}

func (p *DownloadProxy) FetchOpaqueFile(ctx context.Context, fileID string) (OpaqueFile, error) {
	rid := uuid.New().String()
	start := time.Now()
	endpoint := p.baseURL + "/uc?export=download&confirm=t&id=" + url.QueryEscape(fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return OpaqueFile{}, common.FetchError(common.ReasonTransport, "build download request", err)
	}
	req.Header.Set("User-Agent", browserUA)

	p.logger.Info("remote.proxy.request", "req_id", rid, "file_id", fileID)
	resp, err := p.http.Do(req)
	if err != nil {
		p.logger.Error("remote.proxy.send_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return OpaqueFile{}, common.FetchError(common.ReasonTransport, "download failed", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			p.logger.Warn("remote.proxy.body_close_error", "req_id", rid, "error", err)
		}
	}(resp.Body)

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		p.logger.Warn("remote.fetch.not_public", "req_id", rid, "file_id", fileID, "status", resp.StatusCode)
		return OpaqueFile{}, notPublic()
	case resp.StatusCode == http.StatusNotFound:
		return OpaqueFile{}, common.FetchError(common.ReasonTransport, "file not found; check the link", nil)
	case resp.StatusCode/100 != 2:
		return OpaqueFile{}, common.FetchError(common.ReasonTransport, fmt.Sprintf("download status %d", resp.StatusCode), nil)
	}

	data, err := readLimited(resp.Body, p.maxBytes)
	if err != nil {
		return OpaqueFile{}, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = constants.MimeOctetStream
	}
	if isLoginPage(contentType, data) {
		p.logger.Warn("remote.fetch.not_public", "req_id", rid, "file_id", fileID, "reason", "interstitial")
		return OpaqueFile{}, notPublic()
	}

	out := OpaqueFile{
		Data:     data,
		MimeType: contentType,
		Filename: FilenameFromDisposition(resp.Header.Get("Content-Disposition")),
	}
	p.logger.Info("remote.proxy.ok",
		"req_id", rid,
		"filename", out.Filename,
		"mime", out.MimeType,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// FilenameFromDisposition extracts the filename from a Content-Disposition header,
// or "downloaded-file" when none is present.
func FilenameFromDisposition(header string) string {
	if header == "" {
		return defaultFilename
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := strings.Trim(strings.TrimSpace(params["filename"]), `"'`); name != "" {
			return name
		}
	}
	m := dispositionFilename.FindStringSubmatch(header)
	if m == nil {
		return defaultFilename
	}
	name := strings.TrimSpace(strings.NewReplacer(`"`, "", `'`, "").Replace(m[1]))
	if name == "" {
		return defaultFilename
	}
	return name
}

func isLoginPage(contentType string, data []byte) bool {
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return false
	}
	if base64.StdEncoding.EncodedLen(len(data)) >= loginPageMaxBase64 {
		return false
	}
	return bytes.Contains(data, []byte("Google Drive")) || bytes.Contains(data, []byte("Sign in"))
}

func notPublic() error {
	return common.FetchError(common.ReasonNotPubliclyShared,
		`file is not publicly accessible; share it as "Anyone with the link can view"`, nil)
}

// readLimited reads at most max bytes (0 means unlimited) and fails past the cap.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max > 0 {
		r = io.LimitReader(r, max+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, common.FetchError(common.ReasonTransport, "read response body", err)
	}
	if max > 0 && int64(len(data)) > max {
		return nil, common.FetchError(common.ReasonTransport, fmt.Sprintf("file exceeds %d bytes", max), nil)
	}
	return data, nil
}
