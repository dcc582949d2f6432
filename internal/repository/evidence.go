package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// EvidenceRepository persists one evidence document per objective code plus
// the source documents that fed it.
type EvidenceRepository interface {
	SaveEvidence(ctx context.Context, ev entity.SavedEvidence) (*entity.SavedEvidence, error)
	LoadEvidence(ctx context.Context, objectiveCode string) (*entity.SavedEvidence, error)
	DeleteEvidence(ctx context.Context, objectiveCode string) error
	ListEvidence(ctx context.Context) ([]*entity.SavedEvidence, error)

	CreateSourceDocument(ctx context.Context, doc entity.SourceDocument) (*entity.SourceDocument, error)
	UpdateSourceStatus(ctx context.Context, id uuid.UUID, status constants.ExtractionStatus, extracted *entity.ExtractedDocument, extractionErr string) error
	ListSourceDocuments(ctx context.Context, objectiveCode string) ([]*entity.SourceDocument, error)
	DeleteSourceDocuments(ctx context.Context, objectiveCode string) (int64, error)
}

type evidenceRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
	now    func() time.Time
}

func NewEvidenceRepository(drv *entsql.Driver, logger *slog.Logger) EvidenceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &evidenceRepository{
		drv:    drv,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *evidenceRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

var evidenceSelect = []string{"id", "objective_code", "title", "html_content", "hospital_id", "source_filenames", "created_at", "updated_at"}

// SaveEvidence inserts or replaces the document for ev.ObjectiveCode. The
// original id and created_at survive a replace.
func (r *evidenceRepository) SaveEvidence(ctx context.Context, ev entity.SavedEvidence) (*entity.SavedEvidence, error) {
	code := strings.TrimSpace(ev.ObjectiveCode)
	if code == "" {
		return nil, common.NewAppError("INVALID_INPUT", "objective code is required", common.ErrInvalidInput)
	}
	if strings.TrimSpace(ev.DocumentBody) == "" {
		return nil, common.NewAppError("INVALID_INPUT", "document body is required", common.ErrInvalidInput)
	}

	names, err := json.Marshal(ev.SourceFilenames)
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "source filenames", err)
	}
	now := r.now()
	query, args := r.builder().
		Insert(evidenceTable).
		Columns("id", "objective_code", "title", "html_content", "hospital_id", "source_filenames", "created_at", "updated_at").
		Values(uuid.New(), code, nullable(ev.Title), ev.DocumentBody, nullable(ev.HospitalID), string(names), now, now).
		OnConflict(
			entsql.ConflictColumns("objective_code"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("title")
				u.SetExcluded("html_content")
				u.SetExcluded("hospital_id")
				u.SetExcluded("source_filenames")
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("repo.evidence.save.failed", "objective_code", code, "error", err)
		return nil, common.NewAppError("DB_UPSERT", "failed to save evidence", err)
	}

	saved, err := r.LoadEvidence(ctx, code)
	if err != nil {
		return nil, err
	}
	r.logger.Info("repo.evidence.save.ok", "objective_code", code, "id", saved.ID)
	return saved, nil
}

// LoadEvidence returns the document for objectiveCode or an ErrNotFound AppError.
func (r *evidenceRepository) LoadEvidence(ctx context.Context, objectiveCode string) (*entity.SavedEvidence, error) {
	query, args := r.builder().
		Select(evidenceSelect...).
		From(entsql.Table(evidenceTable)).
		Where(entsql.EQ("objective_code", strings.TrimSpace(objectiveCode))).
		Query()
	out, err := r.queryEvidence(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.NewAppError("NOT_FOUND", "no evidence for objective "+objectiveCode, common.ErrNotFound)
	}
	return out[0], nil
}

// ListEvidence returns every saved document, most recently updated first.
func (r *evidenceRepository) ListEvidence(ctx context.Context) ([]*entity.SavedEvidence, error) {
	query, args := r.builder().
		Select(evidenceSelect...).
		From(entsql.Table(evidenceTable)).
		OrderBy(entsql.Desc("updated_at"), entsql.Asc("objective_code")).
		Query()
	return r.queryEvidence(ctx, query, args)
}

// DeleteEvidence removes the document for objectiveCode. Deleting an absent
// objective is not an error.
func (r *evidenceRepository) DeleteEvidence(ctx context.Context, objectiveCode string) error {
	query, args := r.builder().
		Delete(evidenceTable).
		Where(entsql.EQ("objective_code", strings.TrimSpace(objectiveCode))).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("repo.evidence.delete.failed", "objective_code", objectiveCode, "error", err)
		return common.NewAppError("DB_DELETE", "failed to delete evidence", err)
	}
	return nil
}

func (r *evidenceRepository) queryEvidence(ctx context.Context, query string, args []any) ([]*entity.SavedEvidence, error) {
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("repo.evidence.query.failed", "error", err)
		return nil, common.NewAppError("DB_QUERY", "failed to query evidence", err)
	}
	defer rows.Close()

	var out []*entity.SavedEvidence
	for rows.Next() {
		var (
			ev                entity.SavedEvidence
			title, hospitalID sql.NullString
			names             []byte
		)
		if err := rows.Scan(&ev.ID, &ev.ObjectiveCode, &title, &ev.DocumentBody, &hospitalID, &names, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, common.NewAppError("DB_SCAN", "failed to scan evidence", err)
		}
		ev.Title = title.String
		ev.HospitalID = hospitalID.String
		if len(names) > 0 {
			if err := json.Unmarshal(names, &ev.SourceFilenames); err != nil {
				return nil, common.NewAppError("DB_SCAN", "malformed source_filenames", err)
			}
		}
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to query evidence", err)
	}
	return out, nil
}
