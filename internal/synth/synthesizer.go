// Package synth turns extracted documents and enrichment records into a single
// evidence document through one text-model call.
package synth

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/llm"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

type Config struct {
	Signatories         []entity.Signatory
	GenerateTemperature float32
	FormatTemperature   float32
	MaxTokens           int
	// MarkdownToHTML renders a body that came back as markdown instead of HTML.
	MarkdownToHTML bool
}

func (c Config) withDefaults() Config {
	if c.GenerateTemperature <= 0 {
		c.GenerateTemperature = 0.7
	}
	if c.FormatTemperature <= 0 {
		c.FormatTemperature = 0.3
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 16384
	}
	return c
}

type Synthesizer struct {
	model  llm.TextModel
	cfg    Config
	clock  Clock
	logger *slog.Logger
}

type Option func(*Synthesizer)

// WithClock fixes the time used for document numbers and dates.
func WithClock(c Clock) Option {
	return func(s *Synthesizer) { s.clock = c }
}

func NewSynthesizer(model llm.TextModel, cfg Config, logger *slog.Logger, opts ...Option) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Synthesizer{
		model:  model,
		cfg:    cfg.withDefaults(),
		clock:  time.Now,
		logger: logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type promptData struct {
	Org             entity.Organization
	ObjectiveCode   string
	ObjectiveTitle  string
	EvidenceText    string
	Instructions    string
	DocumentContext string
	DataContext     string
	DetectedTitle   string
	DocumentNo      string
	Department      string
	Category        string
	EffectiveDate   string
	ReviewDate      string
	Signatories     []entity.Signatory
	Preparer        string
}

// BuildPrompt renders the prompt for req without calling the model.
func (s *Synthesizer) BuildPrompt(req entity.SynthesisRequest) (string, error) {
	now := s.clock()
	data := promptData{
		Org:            req.Organization,
		ObjectiveCode:  req.ObjectiveCode,
		ObjectiveTitle: req.ObjectiveTitle,
		EvidenceText:   req.EvidenceText,
		Instructions:   strings.TrimSpace(req.Instructions),
		DocumentNo:     DocumentNumber(req.ObjectiveCode, now),
		EffectiveDate:  EffectiveDate(now),
		ReviewDate:     ReviewDate(now),
		Signatories:    s.cfg.Signatories,
	}
	if len(data.Signatories) > 0 {
		data.Preparer = data.Signatories[0].Name
	}

	name := "generate.tmpl"
	switch req.Mode {
	case entity.ModeFormat:
		name = "format.tmpl"
		data.DocumentContext = FormatContext(req.Documents, req.FileNames)
		data.DetectedTitle = DetectTitle(req.Documents, req.FileNames)
		data.Department = `[Detect from content or use "General"]`
		data.Category = "Record/Report"
	default:
		data.DocumentContext = DocumentContext(req.Documents)
		data.DataContext = DataContext(req.Enrichment)
		data.Department = "[Department]"
		data.Category = "[Policy/SOP/Record]"
	}

	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Synthesize makes the single generation call for req. A failed call returns a
// result with Success false and the error kind set, plus the error itself.
func (s *Synthesizer) Synthesize(ctx context.Context, req entity.SynthesisRequest) (entity.SynthesisResult, error) {
	reqID := uuid.NewString()
	start := time.Now()
	mode := req.Mode
	if mode == "" {
		mode = entity.ModeGenerate
	}
	log := s.logger.With("req_id", reqID, "mode", string(mode), "objective", req.ObjectiveCode)

	if s.model == nil {
		return failed(common.GenerationError("text model is not configured", nil))
	}
	if len(req.Documents) == 0 {
		return failed(common.GenerationError("no extracted documents to synthesize", common.ErrInvalidInput))
	}

	prompt, err := s.BuildPrompt(req)
	if err != nil {
		log.Error("synth.prompt.failed", "error", err)
		return failed(common.GenerationError("failed to render prompt", err))
	}

	temperature := s.cfg.GenerateTemperature
	if mode == entity.ModeFormat {
		temperature = s.cfg.FormatTemperature
	}
	log.Info("synth.generate.start", "documents", len(req.Documents), "prompt_chars", len(prompt))

	text, err := s.model.Generate(ctx, prompt, llm.WithTemperature(temperature), llm.WithMaxTokens(s.cfg.MaxTokens))
	if err != nil {
		log.Error("synth.generate.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return failed(common.GenerationError("generation cancelled", ctxErr))
		}
		var pe *common.PipelineError
		if errors.As(err, &pe) && pe.Kind == common.KindGeneration {
			return failed(pe)
		}
		return failed(common.GenerationError("text model call failed", err))
	}

	body := strings.TrimSpace(StripFences(text))
	if s.cfg.MarkdownToHTML && body != "" && !LooksLikeHTML(body) {
		rendered, err := MarkdownToHTML(body)
		if err != nil {
			log.Warn("synth.markdown.failed", "error", err)
		} else {
			body = rendered
		}
	}
	if body == "" {
		log.Error("synth.generate.empty", "elapsed_ms", time.Since(start).Milliseconds())
		return failed(common.GenerationError("model returned an empty document", nil))
	}

	title, ok := ExtractTitle(body)
	if !ok {
		if mode == entity.ModeFormat {
			title = DetectTitle(req.Documents, req.FileNames)
		} else {
			title = fallbackTitle(req.EvidenceText)
		}
	}

	var unknown []string
	if mode == entity.ModeGenerate {
		unknown = UnknownNames(body, req.Enrichment, s.cfg.Signatories)
		if len(unknown) > 0 {
			log.Warn("synth.names.unknown", "count", len(unknown), "names", unknown)
		}
	}

	log.Info("synth.generate.ok",
		"title", title,
		"body_chars", len(body),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.SynthesisResult{
		Success:      true,
		DocumentBody: body,
		Title:        title,
		UnknownNames: unknown,
	}, nil
}

// Generate synthesizes req in generate mode.
func (s *Synthesizer) Generate(ctx context.Context, req entity.SynthesisRequest) (entity.SynthesisResult, error) {
	req.Mode = entity.ModeGenerate
	return s.Synthesize(ctx, req)
}

// Format synthesizes req in format mode; enrichment is ignored.
func (s *Synthesizer) Format(ctx context.Context, req entity.SynthesisRequest) (entity.SynthesisResult, error) {
	req.Mode = entity.ModeFormat
	req.Enrichment = entity.EnrichmentBundle{}
	return s.Synthesize(ctx, req)
}

func failed(err *common.PipelineError) (entity.SynthesisResult, error) {
	return entity.SynthesisResult{
		Success:      false,
		Error:        err.Kind,
		ErrorMessage: err.Error(),
	}, err
}
