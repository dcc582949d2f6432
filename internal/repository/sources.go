package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// CreateSourceDocument records an artifact before extraction. Status defaults
// to pending and gdrive rows carry the link as file name.
func (r *evidenceRepository) CreateSourceDocument(ctx context.Context, doc entity.SourceDocument) (*entity.SourceDocument, error) {
	if doc.ObjectiveCode == "" || doc.FileName == "" {
		return nil, common.NewAppError("INVALID_INPUT", "objective code and file name are required", common.ErrInvalidInput)
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = constants.ExtractionPending
	}
	if doc.SourceType == "" {
		doc.SourceType = constants.SourceUpload
	}
	extracted, err := marshalExtracted(doc.Extracted)
	if err != nil {
		return nil, err
	}
	now := r.now()
	doc.CreatedAt, doc.UpdatedAt = now, now

	query, args := r.builder().
		Insert(sourceDocumentsTable).
		Columns("id", "objective_code", "file_name", "file_type", "file_size", "source_type", "extraction_status", "extracted_data", "extraction_error", "created_at", "updated_at").
		Values(doc.ID, doc.ObjectiveCode, doc.FileName, doc.FileType, doc.FileSize, string(doc.SourceType), string(doc.Status), extracted, nullable(doc.ExtractionError), now, now).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("repo.source.create.failed", "objective_code", doc.ObjectiveCode, "file", doc.FileName, "error", err)
		return nil, common.NewAppError("DB_INSERT", "failed to record source document", err)
	}
	return &doc, nil
}

// UpdateSourceStatus moves a source document through its extraction lifecycle.
func (r *evidenceRepository) UpdateSourceStatus(ctx context.Context, id uuid.UUID, status constants.ExtractionStatus, extracted *entity.ExtractedDocument, extractionErr string) error {
	data, err := marshalExtracted(extracted)
	if err != nil {
		return err
	}
	query, args := r.builder().
		Update(sourceDocumentsTable).
		Set("extraction_status", string(status)).
		Set("extracted_data", data).
		Set("extraction_error", nullable(extractionErr)).
		Set("updated_at", r.now()).
		Where(entsql.EQ("id", id)).
		Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("repo.source.update.failed", "id", id, "error", err)
		return common.NewAppError("DB_UPDATE", "failed to update source document", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("NOT_FOUND", "no source document "+id.String(), common.ErrNotFound)
	}
	return nil
}

// ListSourceDocuments returns the sources recorded for an objective in creation order.
func (r *evidenceRepository) ListSourceDocuments(ctx context.Context, objectiveCode string) ([]*entity.SourceDocument, error) {
	query, args := r.builder().
		Select("id", "objective_code", "file_name", "file_type", "file_size", "source_type", "extraction_status", "extracted_data", "extraction_error", "created_at", "updated_at").
		From(entsql.Table(sourceDocumentsTable)).
		Where(entsql.EQ("objective_code", objectiveCode)).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("file_name")).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("repo.source.list.failed", "objective_code", objectiveCode, "error", err)
		return nil, common.NewAppError("DB_QUERY", "failed to list source documents", err)
	}
	defer rows.Close()

	var out []*entity.SourceDocument
	for rows.Next() {
		var (
			doc                entity.SourceDocument
			sourceType, status string
			extracted          []byte
			extractionErr      sql.NullString
		)
		if err := rows.Scan(&doc.ID, &doc.ObjectiveCode, &doc.FileName, &doc.FileType, &doc.FileSize, &sourceType, &status, &extracted, &extractionErr, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, common.NewAppError("DB_SCAN", "failed to scan source document", err)
		}
		doc.SourceType = constants.SourceType(sourceType)
		doc.Status = constants.ExtractionStatus(status)
		doc.ExtractionError = extractionErr.String
		if len(extracted) > 0 && string(extracted) != "null" {
			var ed entity.ExtractedDocument
			if err := json.Unmarshal(extracted, &ed); err != nil {
				return nil, common.NewAppError("DB_SCAN", "malformed extracted_data", err)
			}
			doc.Extracted = &ed
		}
		out = append(out, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list source documents", err)
	}
	return out, nil
}

// DeleteSourceDocuments drops every source recorded for an objective and
// reports how many rows went.
func (r *evidenceRepository) DeleteSourceDocuments(ctx context.Context, objectiveCode string) (int64, error) {
	query, args := r.builder().
		Delete(sourceDocumentsTable).
		Where(entsql.EQ("objective_code", objectiveCode)).
		Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("repo.source.delete.failed", "objective_code", objectiveCode, "error", err)
		return 0, common.NewAppError("DB_DELETE", "failed to delete source documents", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func marshalExtracted(doc *entity.ExtractedDocument) (sql.NullString, error) {
	if doc == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return sql.NullString{}, common.NewAppError("INVALID_INPUT", "extracted document is not serialisable", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
