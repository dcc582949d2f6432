// Package app wires the pipeline components from configuration for the binaries.
package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/enrich"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/extract"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/extract/spreadsheet"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/extract/vision"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/llm"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/llm/gemini"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/pipeline"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/remote"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/synth"
)

// Extraction is everything needed to turn an artifact into an ExtractedDocument.
type Extraction struct {
	Model   *gemini.Client
	Router  *extract.Router
	Fetcher *remote.Fetcher
}

// Components is the full evidence pipeline.
type Components struct {
	Extraction
	Enricher    *enrich.Service
	Synthesizer *synth.Synthesizer
	Processor   *pipeline.Processor
}

// NewExtraction builds the model client, the extractors and the remote fetcher.
// The Drive API proxy is used when Drive credentials are configured, the
// download proxy otherwise.
func NewExtraction(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Extraction, error) {
	if logger == nil {
		logger = slog.Default()
	}

	limiter := llm.NewRateLimiter(cfg.Gemini.RequestsPerSecond, cfg.Gemini.Burst)
	model := gemini.NewClient(gemini.Config{
		APIKey:      cfg.Gemini.APIKey,
		BaseURL:     cfg.Gemini.BaseURL,
		VisionModel: cfg.Gemini.VisionModel,
		TextModel:   cfg.Gemini.TextModel,
		Temperature: cfg.Gemini.VisionTemperature,
		MaxTokens:   cfg.Gemini.VisionMaxTokens,
		Timeout:     cfg.Gemini.Timeout,
		MaxRetries:  cfg.Gemini.MaxRetries,
	}, logger, gemini.WithRateLimiter(limiter))

	visionExtractor := vision.NewExtractor(model, vision.Config{
		Temperature: cfg.Gemini.VisionTemperature,
		MaxTokens:   cfg.Gemini.VisionMaxTokens,
		MaxPDFPages: cfg.Pipeline.MaxPDFPages,
	}, logger)
	router := extract.NewRouter(spreadsheet.NewExtractor(logger), visionExtractor, logger)

	httpClient := &http.Client{Timeout: cfg.Remote.Timeout}
	var proxy remote.OpaqueProxy
	if cfg.Remote.DriveAPIKey != "" || cfg.Remote.DriveCredentialsFile != "" {
		dp, err := remote.NewDriveProxy(ctx, remote.DriveConfig{
			APIKey:          cfg.Remote.DriveAPIKey,
			CredentialsFile: cfg.Remote.DriveCredentialsFile,
			MaxBytes:        cfg.Remote.MaxDownloadBytes,
		}, logger)
		if err != nil {
			return nil, common.NewAppError("CONFIG_ERROR", "cannot create drive proxy", err)
		}
		proxy = dp
		logger.Info("app.remote.proxy", "kind", "drive_api")
	} else {
		proxy = remote.NewDownloadProxy(cfg.Remote.DownloadBaseURL, httpClient, cfg.Remote.MaxDownloadBytes, logger)
		logger.Info("app.remote.proxy", "kind", "download")
	}
	fetcher := remote.NewFetcher(remote.Config{
		ExportBaseURL: cfg.Remote.ExportBaseURL,
		MaxBytes:      cfg.Remote.MaxDownloadBytes,
		Timeout:       cfg.Remote.Timeout,
	}, proxy, router, httpClient, logger)

	return &Extraction{Model: model, Router: router, Fetcher: fetcher}, nil
}

// NewComponents builds the whole pipeline. store may be nil, in which case
// enrichment is served from the roster alone.
func NewComponents(ctx context.Context, cfg *common.Config, store enrich.Store, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ex, err := NewExtraction(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	roster, err := enrich.LoadRoster(cfg.Enrichment.RosterFile)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "cannot load roster", err)
	}
	enricher := enrich.NewService(store, roster, enrich.Config{
		PatientPool:     cfg.Enrichment.PatientPool,
		PatientSample:   cfg.Enrichment.PatientSample,
		EquipmentSample: cfg.Enrichment.EquipmentSample,
		IncidentSample:  cfg.Enrichment.IncidentSample,
	}, logger)

	synthesizer := synth.NewSynthesizer(ex.Model, synth.ConfigFrom(cfg), logger)
	processor := pipeline.NewProcessor(logger, ex.Router, ex.Fetcher, enricher, synthesizer, pipeline.Config{
		Workers:         cfg.Pipeline.Workers,
		ArtifactTimeout: cfg.Pipeline.ArtifactTimeout,
		FailFast:        cfg.Pipeline.FailFast,
	})

	return &Components{
		Extraction:  *ex,
		Enricher:    enricher,
		Synthesizer: synthesizer,
		Processor:   processor,
	}, nil
}
