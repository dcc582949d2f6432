// Package evidence runs manifest jobs: it gathers sources into pipeline
// requests and records what the pipeline produced.
package evidence

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/detect"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/ingest"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/pipeline"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/repository"
)

// Service handles evidence job business logic.
type Service struct {
	ingestor ingest.Ingestor
	store    repository.EvidenceRepository
	org      entity.Organization
	logger   *slog.Logger
}

// NewService creates a new evidence service.
func NewService(ing ingest.Ingestor, store repository.EvidenceRepository, org entity.Organization, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ingestor: ing,
		store:    store,
		org:      org,
		logger:   logger,
	}
}

// Rejection is a source that never reached the pipeline.
type Rejection struct {
	Name string
	Err  error
}

// Intake is a job's pipeline request plus its source bookkeeping. SourceIDs is
// parallel to Request.Artifacts once Begin has run.
type Intake struct {
	Job       JobSpec
	Request   pipeline.Request
	Rejected  []Rejection
	SourceIDs []uuid.UUID
}

// BuildRequest loads a job's files, upload directory and links. Files that
// cannot be read are rejected individually; the request fails only when no
// source survives.
func (s *Service) BuildRequest(ctx context.Context, job JobSpec) (*Intake, error) {
	in := &Intake{
		Job: job,
		Request: pipeline.Request{
			Mode:           job.SynthesisMode(),
			ObjectiveCode:  strings.TrimSpace(job.ObjectiveCode),
			ObjectiveTitle: strings.TrimSpace(job.ObjectiveTitle),
			EvidenceText:   strings.TrimSpace(job.EvidenceText),
			Instructions:   strings.TrimSpace(job.Instructions),
			Organization:   s.org,
		},
	}

	for _, path := range job.Files {
		r, err := s.ingestor.IngestPath(ctx, path)
		if err != nil {
			in.Rejected = append(in.Rejected, Rejection{Name: filepath.Base(path), Err: err})
			continue
		}
		in.Request.Artifacts = append(in.Request.Artifacts, r.Upload)
	}

	if dir := strings.TrimSpace(job.UploadDir); dir != "" {
		results, stats, err := s.ingestor.IngestDirectory(ctx, dir)
		if err != nil {
			in.Rejected = append(in.Rejected, Rejection{Name: filepath.Base(dir), Err: err})
		} else {
			for _, r := range results {
				if r.Err != "" {
					in.Rejected = append(in.Rejected, Rejection{Name: filepath.Base(r.SourcePath), Err: errors.New(r.Err)})
				}
			}
			for _, u := range ingest.Uploads(results) {
				in.Request.Artifacts = append(in.Request.Artifacts, u)
			}
			s.logger.Info("evidence.intake.directory", "objective", job.ObjectiveCode, "dir", dir, "matched", stats.Matched, "duplicates", stats.Deduplicated)
		}
	}

	for _, link := range job.Links {
		if link = strings.TrimSpace(link); link != "" {
			in.Request.Artifacts = append(in.Request.Artifacts, entity.RemoteLink{URL: link})
		}
	}

	if len(in.Request.Artifacts) == 0 {
		errs := make([]error, 0, len(in.Rejected))
		for _, r := range in.Rejected {
			errs = append(errs, common.WithArtifact(r.Err, r.Name))
		}
		s.logger.Error("evidence.intake.empty", "objective", job.ObjectiveCode, "rejected", len(in.Rejected))
		return in, common.ExtractionError("job "+job.ObjectiveCode+" has no usable sources", errors.Join(append(errs, common.ErrInvalidInput)...))
	}
	s.logger.Info("evidence.intake.ok", "objective", job.ObjectiveCode, "artifacts", len(in.Request.Artifacts), "rejected", len(in.Rejected))
	return in, nil
}

// Begin replaces the objective's source records with this run's: every
// artifact as extracting, every rejection as error.
func (s *Service) Begin(ctx context.Context, in *Intake) error {
	code := in.Request.ObjectiveCode
	if n, err := s.store.DeleteSourceDocuments(ctx, code); err != nil {
		return err
	} else if n > 0 {
		s.logger.Info("evidence.sources.replaced", "objective", code, "previous", n)
	}

	for _, r := range in.Rejected {
		if _, err := s.store.CreateSourceDocument(ctx, entity.SourceDocument{
			ObjectiveCode:   code,
			FileName:        r.Name,
			FileType:        fileTypeOf(entity.Upload{Filename: r.Name}),
			SourceType:      constants.SourceUpload,
			Status:          constants.ExtractionError,
			ExtractionError: r.Err.Error(),
		}); err != nil {
			return err
		}
	}

	in.SourceIDs = make([]uuid.UUID, len(in.Request.Artifacts))
	for i, a := range in.Request.Artifacts {
		doc := entity.SourceDocument{
			ObjectiveCode: code,
			FileName:      a.Name(),
			FileType:      fileTypeOf(a),
			SourceType:    constants.SourceUpload,
			Status:        constants.ExtractionExtracting,
		}
		if u, ok := a.(entity.Upload); ok {
			doc.FileSize = int64(len(u.Bytes))
		} else {
			doc.SourceType = constants.SourceGDrive
		}
		created, err := s.store.CreateSourceDocument(ctx, doc)
		if err != nil {
			return err
		}
		in.SourceIDs[i] = created.ID
	}
	return nil
}

// Record settles the source records from the run and, when synthesis
// succeeded, upserts the evidence document for the objective. runErr is the
// processor's error and is returned unchanged after the sources are updated.
func (s *Service) Record(ctx context.Context, hospitalID string, in *Intake, res pipeline.Result, runErr error) (*entity.SavedEvidence, error) {
	code := in.Request.ObjectiveCode
	settled := make([]bool, len(in.SourceIDs))
	for _, o := range res.Outcomes {
		if o.Index < 0 || o.Index >= len(in.SourceIDs) {
			continue
		}
		var err error
		if o.Err != nil {
			err = s.store.UpdateSourceStatus(ctx, in.SourceIDs[o.Index], constants.ExtractionError, nil, o.Err.Error())
		} else {
			err = s.store.UpdateSourceStatus(ctx, in.SourceIDs[o.Index], constants.ExtractionExtracted, o.Document, "")
		}
		if err != nil {
			return nil, err
		}
		settled[o.Index] = true
	}
	for i, done := range settled {
		if done {
			continue
		}
		msg := "extraction did not run"
		if runErr != nil {
			msg = runErr.Error()
		}
		if err := s.store.UpdateSourceStatus(ctx, in.SourceIDs[i], constants.ExtractionError, nil, msg); err != nil {
			return nil, err
		}
	}

	if runErr != nil {
		s.logger.Error("evidence.record.failed", "objective", code, "error", runErr)
		return nil, runErr
	}
	if !res.Synthesis.Success {
		return nil, common.GenerationError("synthesis did not succeed: "+res.Synthesis.ErrorMessage, nil)
	}

	saved, err := s.store.SaveEvidence(ctx, entity.SavedEvidence{
		ObjectiveCode:   code,
		Title:           res.Synthesis.Title,
		DocumentBody:    res.Synthesis.DocumentBody,
		HospitalID:      hospitalID,
		SourceFilenames: res.FileNames,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("evidence.record.ok", "objective", code, "evidence_id", saved.ID, "sources", len(res.FileNames), "unknown_names", len(res.Synthesis.UnknownNames))
	return saved, nil
}

// Failure is one source that did not make it into the document.
type Failure struct {
	Name    string
	Code    codes.Code
	Message string
}

// Report summarises a finished job for the operator.
type Report struct {
	ObjectiveCode string
	Title         string
	EvidenceID    uuid.UUID
	Extracted     int
	Failures      []Failure
	UnknownNames  []string
	Err           error
}

// Succeeded reports whether an evidence document was stored.
func (r Report) Succeeded() bool {
	return r.Err == nil && r.EvidenceID != uuid.Nil
}

// NewReport builds the operator summary of one job.
func NewReport(in *Intake, res pipeline.Result, saved *entity.SavedEvidence, err error) Report {
	rep := Report{
		ObjectiveCode: in.Request.ObjectiveCode,
		Extracted:     len(res.Documents),
		UnknownNames:  res.Synthesis.UnknownNames,
		Err:           err,
	}
	if saved != nil {
		rep.Title = saved.Title
		rep.EvidenceID = saved.ID
	}
	for _, r := range in.Rejected {
		rep.Failures = append(rep.Failures, failureOf(r.Name, r.Err))
	}
	for _, o := range res.Outcomes {
		if o.Err != nil {
			rep.Failures = append(rep.Failures, failureOf(o.Name, o.Err))
		}
	}
	return rep
}

func failureOf(name string, err error) Failure {
	st := common.StatusFromError(err)
	return Failure{Name: name, Code: st.Code(), Message: st.Message()}
}

func fileTypeOf(a entity.SourceArtifact) string {
	res := detect.ClassifyArtifact(a)
	switch {
	case res.FileType != "":
		return string(res.FileType)
	case res.Remote != "":
		return string(res.Remote)
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(a.Name())), "."); ext != "" && !strings.Contains(ext, "/") {
		return ext
	}
	return "unknown"
}
