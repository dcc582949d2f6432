package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
)

const (
	googleAppsPrefix = "application/vnd.google-apps."
	exportMimePDF    = "application/pdf"
)

// DriveConfig selects how the Drive API proxy authenticates. An API key reaches
// publicly shared files; a credentials file reaches files shared with that account.
type DriveConfig struct {
	APIKey          string
	CredentialsFile string
	MaxBytes        int64

	// Endpoint and HTTPClient override the API host; used against test servers.
	Endpoint   string
	HTTPClient *http.Client
}

// DriveProxy fetches opaque files through the Drive v3 API.
type DriveProxy struct {
	svc      *drive.Service
	maxBytes int64
	logger   *slog.Logger
}

var _ OpaqueProxy = (*DriveProxy)(nil)

func NewDriveProxy(ctx context.Context, cfg DriveConfig, logger *slog.Logger) (*DriveProxy, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		opts = append(opts, option.WithoutAuthentication())
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &DriveProxy{svc: svc, maxBytes: cfg.MaxBytes, logger: logger}, nil
}

// FetchOpaqueFile downloads the file's bytes. Native Google files reached through
// a file link are exported as PDF.
func (p *DriveProxy) FetchOpaqueFile(ctx context.Context, fileID string) (OpaqueFile, error) {
	start := time.Now()
	meta, err := p.svc.Files.Get(fileID).Fields("id", "name", "mimeType", "size").Context(ctx).Do()
	if err != nil {
		p.logger.Warn("remote.drive.metadata_failed", "file_id", fileID, "error", err)
		return OpaqueFile{}, classifyDriveError(err)
	}
	if p.maxBytes > 0 && meta.Size > p.maxBytes {
		return OpaqueFile{}, common.FetchError(common.ReasonTransport, fmt.Sprintf("file exceeds %d bytes", p.maxBytes), nil)
	}

	out := OpaqueFile{MimeType: meta.MimeType, Filename: meta.Name}
	var resp *http.Response
	if strings.HasPrefix(meta.MimeType, googleAppsPrefix) {
		resp, err = p.svc.Files.Export(fileID, exportMimePDF).Context(ctx).Download()
		out.MimeType = exportMimePDF
		out.Filename = meta.Name + ".pdf"
	} else {
		resp, err = p.svc.Files.Get(fileID).Context(ctx).Download()
	}
	if err != nil {
		p.logger.Warn("remote.drive.download_failed", "file_id", fileID, "error", err)
		return OpaqueFile{}, classifyDriveError(err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			p.logger.Warn("remote.drive.body_close_error", "file_id", fileID, "error", err)
		}
	}(resp.Body)

	out.Data, err = readLimited(resp.Body, p.maxBytes)
	if err != nil {
		return OpaqueFile{}, err
	}
	if out.Filename == "" {
		out.Filename = defaultFilename
	}

	p.logger.Info("remote.drive.ok",
		"file_id", fileID,
		"filename", out.Filename,
		"mime", out.MimeType,
		"bytes", len(out.Data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func classifyDriveError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return common.FetchError(common.ReasonNotPubliclyShared,
				`file is not accessible; share it as "Anyone with the link can view"`, err)
		case http.StatusNotFound:
			return common.FetchError(common.ReasonTransport, "file not found; check the link", err)
		}
	}
	return common.FetchError(common.ReasonTransport, "drive request failed", err)
}
