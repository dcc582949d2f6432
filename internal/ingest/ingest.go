// Package ingest turns files on disk into upload artifacts.
package ingest

import (
	"context"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// IngestionResult is the per-file outcome. Upload is set when Err is empty.
type IngestionResult struct {
	SourcePath   string
	Upload       entity.Upload
	Size         int64
	HashHex      string
	FileExt      string
	Deduplicated bool // same content as an earlier file in the walk
	Err          string
}

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the batch runner depends on.
type Ingestor interface {
	// IngestPath loads a single file.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory loads all matching files under root.
	IngestDirectory(ctx context.Context, root string) ([]IngestionResult, DirStats, error)
}
