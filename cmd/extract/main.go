package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/app"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/detect"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/ingest"
)

func main() {
	timeout := flag.Duration("timeout", 3*time.Minute, "overall extraction timeout")
	flag.Parse()

	// stdout carries the document; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "extract [-timeout 3m] <file-path | document-link>")
		os.Exit(2)
	}
	target := strings.TrimSpace(flag.Arg(0))

	cfg := common.LoadConfig()
	if cfg.Gemini.APIKey == "" {
		logger.Error("GEMINI_API_KEY env var is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, reqID := common.EnsureRequestID(ctx)

	ex, err := app.NewExtraction(ctx, cfg, logger)
	if err != nil {
		logger.Error("build extractors", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	var doc entity.ExtractedDocument
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		res := detect.ClassifyURL(target)
		logger.Info("extract.classified", "req_id", reqID, "kind", res.Kind, "remote", res.Remote, "document_id", res.DocumentID)
		doc, err = ex.Fetcher.Extract(ctx, target)
	} else {
		r, ierr := ingest.NewFSIngestor(cfg.Remote.MaxDownloadBytes, logger).IngestPath(ctx, target)
		if ierr != nil {
			logger.Error("read input", "path", target, "error", ierr)
			os.Exit(1)
		}
		res := detect.ClassifyArtifact(r.Upload)
		logger.Info("extract.classified", "req_id", reqID, "kind", res.Kind, "file_type", res.FileType, "bytes", r.Size)
		doc, err = ex.Router.Extract(ctx, r.Upload.Bytes, r.Upload.Filename, r.Upload.DeclaredMimeType)
	}
	elapsed := time.Since(start)
	if err != nil {
		st := common.StatusFromError(err)
		logger.Error("extraction failed", "req_id", reqID, "code", st.Code().String(), "error", err, "elapsed_ms", elapsed.Milliseconds())
		os.Exit(1)
	}

	logger.Info("extraction ok", "req_id", reqID, "tables", len(doc.Tables), "chars", len(doc.RawText), "elapsed_ms", elapsed.Milliseconds())
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}
