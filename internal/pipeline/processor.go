// Package pipeline joins extraction, enrichment and synthesis for one evidence request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/detect"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// FileExtractor handles uploaded binaries (extract.Router).
type FileExtractor interface {
	Extract(ctx context.Context, data []byte, filename, mimeType string) (entity.ExtractedDocument, error)
}

// LinkExtractor handles hosted documents (remote.Fetcher).
type LinkExtractor interface {
	Extract(ctx context.Context, rawURL string) (entity.ExtractedDocument, error)
}

// Enricher is the data enrichment service.
type Enricher interface {
	Enrich(ctx context.Context, category string) (entity.EnrichmentBundle, error)
}

// Synthesizer makes the single generation call.
type Synthesizer interface {
	Synthesize(ctx context.Context, req entity.SynthesisRequest) (entity.SynthesisResult, error)
}

type Config struct {
	// Workers bounds concurrent extractions; zero means one per artifact.
	Workers int
	// ArtifactTimeout applies to each extraction separately.
	ArtifactTimeout time.Duration
	// FailFast aborts the request on the first artifact failure. Otherwise
	// synthesis proceeds with whatever extracted.
	FailFast bool
}

// Request is one evidence document to produce.
type Request struct {
	Mode           entity.SynthesisMode
	Artifacts      []entity.SourceArtifact
	ObjectiveCode  string
	ObjectiveTitle string
	EvidenceText   string
	Instructions   string
	Organization   entity.Organization
}

// Outcome is the extraction result of one artifact. Exactly one of Document and
// Err is set.
type Outcome struct {
	Index    int
	Artifact entity.SourceArtifact
	Name     string
	Document *entity.ExtractedDocument
	Err      error
	Elapsed  time.Duration
}

// Result reports everything a request produced. Outcomes follow the caller's
// artifact order; Documents and FileNames keep that order for the successes.
type Result struct {
	Outcomes   []Outcome
	Documents  []entity.ExtractedDocument
	FileNames  []string
	Enrichment entity.EnrichmentBundle
	Synthesis  entity.SynthesisResult
}

// Failures returns the artifact-level errors in artifact order.
func (r Result) Failures() []error {
	var out []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o.Err)
		}
	}
	return out
}

// Processor coordinates extraction and enrichment, then synthesis.
type Processor struct {
	files    FileExtractor
	links    LinkExtractor
	enricher Enricher
	synth    Synthesizer
	cfg      Config
	logger   *slog.Logger
}

func NewProcessor(logger *slog.Logger, files FileExtractor, links LinkExtractor, enricher Enricher, synth Synthesizer, cfg Config) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		files:    files,
		links:    links,
		enricher: enricher,
		synth:    synth,
		cfg:      cfg,
		logger:   logger,
	}
}

// Process runs one request. Extraction of every artifact and enrichment happen
// concurrently; synthesis waits for all of them. A returned error means the
// request as a whole failed; artifact failures that were tolerated are only in
// Result.Outcomes.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	ctx = common.WithObjectiveCode(ctx, req.ObjectiveCode)
	start := time.Now()
	mode := req.Mode
	if mode == "" {
		mode = entity.ModeGenerate
	}
	log := p.logger.With("req_id", reqID, "objective", req.ObjectiveCode, "mode", string(mode))

	var res Result
	if len(req.Artifacts) == 0 {
		err := common.ExtractionError("no source artifacts supplied", common.ErrInvalidInput)
		res.Synthesis = failedSynthesis(err)
		return res, err
	}
	log.Info("pipeline.run.start", "artifacts", len(req.Artifacts))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		outcomes, err := p.ExtractAll(gctx, req.Artifacts)
		res.Outcomes = outcomes
		return err
	})
	if mode == entity.ModeGenerate && p.enricher != nil {
		g.Go(func() error {
			bundle, err := p.enricher.Enrich(gctx, req.EvidenceText)
			if err != nil {
				return err
			}
			res.Enrichment = bundle
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("pipeline.run.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		res.Synthesis = failedSynthesis(err)
		return res, err
	}

	for _, o := range res.Outcomes {
		if o.Document != nil {
			res.Documents = append(res.Documents, *o.Document)
			res.FileNames = append(res.FileNames, o.Name)
		}
	}
	failures := res.Failures()
	if len(res.Documents) == 0 {
		err := common.ExtractionError(fmt.Sprintf("none of %d artifacts could be extracted", len(req.Artifacts)), errors.Join(failures...))
		log.Error("pipeline.run.no_documents", "failed", len(failures))
		res.Synthesis = failedSynthesis(err)
		return res, err
	}

	synthReq := entity.SynthesisRequest{
		Mode:           mode,
		Documents:      res.Documents,
		FileNames:      res.FileNames,
		Enrichment:     res.Enrichment,
		ObjectiveCode:  req.ObjectiveCode,
		ObjectiveTitle: req.ObjectiveTitle,
		EvidenceText:   req.EvidenceText,
		Instructions:   req.Instructions,
		Organization:   req.Organization,
	}
	if p.synth == nil {
		err := common.GenerationError("synthesizer is not configured", nil)
		res.Synthesis = failedSynthesis(err)
		return res, err
	}
	synthesis, err := p.synth.Synthesize(ctx, synthReq)
	res.Synthesis = synthesis
	if err != nil {
		log.Error("pipeline.run.failed", "stage", "synthesis", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return res, err
	}

	log.Info("pipeline.run.ok",
		"documents", len(res.Documents),
		"failed", len(failures),
		"staff", len(res.Enrichment.Staff),
		"patients", len(res.Enrichment.Patients),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// ExtractAll extracts every artifact, at most cfg.Workers at a time. Outcomes
// are indexed like artifacts. With FailFast the first failure cancels the
// remaining extractions and is returned; otherwise only cancellation of ctx
// produces an error.
func (p *Processor) ExtractAll(ctx context.Context, artifacts []entity.SourceArtifact) ([]Outcome, error) {
	outcomes := make([]Outcome, len(artifacts))

	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Workers > 0 {
		g.SetLimit(p.cfg.Workers)
	}
	for i, a := range artifacts {
		g.Go(func() error {
			o := p.extractOne(gctx, i, a)
			outcomes[i] = o
			if o.Err != nil && p.cfg.FailFast {
				return o.Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (p *Processor) extractOne(ctx context.Context, index int, a entity.SourceArtifact) Outcome {
	start := time.Now()
	o := Outcome{Index: index, Artifact: a, Name: displayName(a)}

	if p.cfg.ArtifactTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ArtifactTimeout)
		defer cancel()
	}

	doc, err := p.extract(ctx, a)
	o.Elapsed = time.Since(start)
	if err != nil {
		o.Err = artifactError(err, a.Name())
		kind, reason, _ := common.KindOf(o.Err)
		p.logger.Warn("pipeline.artifact.failed",
			"artifact", a.Name(),
			"index", index,
			"kind", string(kind),
			"reason", string(reason),
			"error", err,
			"elapsed_ms", o.Elapsed.Milliseconds(),
		)
		return o
	}
	o.Document = &doc
	p.logger.Debug("pipeline.artifact.ok",
		"artifact", a.Name(),
		"index", index,
		"tables", len(doc.Tables),
		"pairs", len(doc.KeyValuePairs),
		"elapsed_ms", o.Elapsed.Milliseconds(),
	)
	return o
}

func (p *Processor) extract(ctx context.Context, a entity.SourceArtifact) (entity.ExtractedDocument, error) {
	res := detect.ClassifyArtifact(a)
	switch res.Kind {
	case detect.RemoteDocument:
		if p.links == nil {
			return entity.ExtractedDocument{}, common.FetchError(common.ReasonTransport, "no remote fetcher configured", nil)
		}
		return p.links.Extract(ctx, linkURL(a))
	case detect.Spreadsheet, detect.VisionDocument:
		if p.files == nil {
			return entity.ExtractedDocument{}, common.ExtractionError("no file extractor configured", nil)
		}
		u := upload(a)
		return p.files.Extract(ctx, u.Bytes, u.Filename, u.DeclaredMimeType)
	}
	return entity.ExtractedDocument{}, common.UnsupportedError(fmt.Sprintf("cannot classify %q", a.Name()))
}

// artifactError tags err with the artifact. Errors outside the taxonomy, such
// as a per-artifact deadline, become extraction errors.
func artifactError(err error, artifact string) error {
	var pe *common.PipelineError
	if !errors.As(err, &pe) {
		err = common.ExtractionError("extraction did not complete", err)
	}
	return common.WithArtifact(err, artifact)
}

func failedSynthesis(err error) entity.SynthesisResult {
	kind, _, ok := common.KindOf(err)
	if !ok {
		kind = common.KindExtraction
	}
	return entity.SynthesisResult{Success: false, Error: kind, ErrorMessage: err.Error()}
}

// displayName is the file name handed to the synthesizer. Links have no file
// name, so the hosted kind and document ID stand in.
func displayName(a entity.SourceArtifact) string {
	switch v := a.(type) {
	case entity.Upload:
		return v.Filename
	case *entity.Upload:
		return v.Filename
	}
	if res := detect.ClassifyArtifact(a); res.Kind == detect.RemoteDocument {
		return string(res.Remote) + "-" + res.DocumentID
	}
	return a.Name()
}

func upload(a entity.SourceArtifact) entity.Upload {
	switch v := a.(type) {
	case entity.Upload:
		return v
	case *entity.Upload:
		return *v
	}
	return entity.Upload{}
}

func linkURL(a entity.SourceArtifact) string {
	switch v := a.(type) {
	case entity.RemoteLink:
		return v.URL
	case *entity.RemoteLink:
		return v.URL
	}
	return a.Name()
}
