package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// FSIngestor reads from the local filesystem.
type FSIngestor struct {
	MaxBytes   int64 // 0 means unlimited
	SkipHidden bool
	logger     *slog.Logger
}

var _ Ingestor = (*FSIngestor)(nil)

func NewFSIngestor(maxBytes int64, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{MaxBytes: maxBytes, SkipHidden: true, logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	if ext == "" || !AllowedExt(ext) {
		return out, common.UnsupportedError(fmt.Sprintf("unsupported or missing extension %q", ext))
	}

	info, err := os.Stat(path)
	if err != nil {
		i.logger.Warn("ingest.stat.failed", "path", path, "error", err)
		return out, common.NewAppError("FILE_READ", "cannot stat file", err)
	}
	if info.IsDir() {
		return out, common.NewAppError("FILE_READ", "path is a directory", common.ErrInvalidInput)
	}
	if i.MaxBytes > 0 && info.Size() > i.MaxBytes {
		return out, common.NewAppError("FILE_TOO_LARGE", fmt.Sprintf("%d bytes exceeds the %d byte limit", info.Size(), i.MaxBytes), common.ErrInvalidInput)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		i.logger.Warn("ingest.read.failed", "path", path, "error", err)
		return out, common.NewAppError("FILE_READ", "cannot read file", err)
	}
	sum := sha256.Sum256(data)

	out.Upload = entity.Upload{
		Bytes:            data,
		Filename:         filepath.Base(path),
		DeclaredMimeType: constants.MimeFor(constants.AllowedExtensions[ext]),
	}
	out.Size = int64(len(data))
	out.HashHex = hex.EncodeToString(sum[:])
	out.FileExt = ext
	return out, nil
}

// IngestDirectory walks root in lexical order, skipping hidden entries when
// SkipHidden is set and files whose content repeats an earlier one. Per-file
// failures are reported in the results; only a failed walk returns an error.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewAppError("INVALID_INPUT", "root path is required", common.ErrInvalidInput)
	}

	var results []IngestionResult
	var stats DirStats
	seen := map[string]string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if i.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		if first, dup := seen[r.HashHex]; dup {
			i.logger.Info("ingest.file.duplicate", "path", path, "same_as", first)
			r.Deduplicated = true
			stats.Deduplicated++
		} else {
			seen[r.HashHex] = path
		}
		results = append(results, r)
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	i.logger.Info("ingest.directory.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

// Uploads returns the artifacts of the successful, non-duplicate results.
func Uploads(results []IngestionResult) []entity.Upload {
	var out []entity.Upload
	for _, r := range results {
		if r.Err == "" && !r.Deduplicated {
			out = append(out, r.Upload)
		}
	}
	return out
}
