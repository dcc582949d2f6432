package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

type fakeStore struct {
	evidence []*entity.SavedEvidence
	sources  map[string][]*entity.SourceDocument
	err      error
}

func (f *fakeStore) ListEvidence(context.Context) ([]*entity.SavedEvidence, error) {
	return f.evidence, f.err
}

func (f *fakeStore) ListSourceDocuments(_ context.Context, code string) ([]*entity.SourceDocument, error) {
	return f.sources[code], nil
}

func rows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	out, err := f.GetRows(sheet)
	require.NoError(t, err)
	return out
}

func TestExportAuditXLSX(t *testing.T) {
	updated := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	store := &fakeStore{
		evidence: []*entity.SavedEvidence{
			{ObjectiveCode: "HRM.4.a", Title: "Training Record", DocumentBody: "<div>x</div>", SourceFilenames: []string{"training.xlsx", "sop.pdf"}, UpdatedAt: updated},
			{ObjectiveCode: "AAC.1.a", Title: "Registration SOP", DocumentBody: "<p/>", UpdatedAt: updated},
		},
		sources: map[string][]*entity.SourceDocument{
			"HRM.4.a": {
				{
					ObjectiveCode: "HRM.4.a", FileName: "training.xlsx", FileType: "xlsx", FileSize: 2048,
					SourceType: constants.SourceUpload, Status: constants.ExtractionExtracted,
					Extracted: &entity.ExtractedDocument{
						Tables: []entity.Table{{
							Headers: []string{"Date", "Event"},
							Rows:    [][]string{{"2024-01-15", "Fire drill"}, {"2024-02-10", "Mock code blue"}},
						}},
						KeyValuePairs: map[string]string{"Trainer": "Jagruti Sharma", "Attendees": "24"},
					},
				},
				{
					ObjectiveCode: "HRM.4.a", FileName: "notes.exe", SourceType: constants.SourceUpload,
					Status: constants.ExtractionError, ExtractionError: "Unsupported: cannot classify",
				},
			},
		},
	}

	data, err := NewService(store, nil).ExportAuditXLSX(context.Background())
	require.NoError(t, err)

	ev := rows(t, data, SheetEvidence)
	require.Len(t, ev, 3)
	assert.Equal(t, "Objective", ev[0][0])
	assert.Equal(t, "AAC.1.a", ev[1][0])
	assert.Equal(t, "HRM.4.a", ev[2][0])
	assert.Equal(t, "training.xlsx, sop.pdf", ev[2][3])
	assert.Equal(t, "2026-10-15T09:30:00Z", ev[2][5])

	src := rows(t, data, SheetSources)
	require.Len(t, src, 3)
	assert.Equal(t, []string{"HRM.4.a", "training.xlsx", "xlsx", "2048", "upload", "extracted"}, src[1])
	assert.Equal(t, "error", src[2][5])
	assert.Equal(t, "Unsupported: cannot classify", src[2][6])

	tables := rows(t, data, SheetTables)
	require.GreaterOrEqual(t, len(tables), 4)
	assert.True(t, strings.HasPrefix(tables[0][0], "HRM.4.a / training.xlsx / table 1"))
	assert.Equal(t, []string{"Date", "Event"}, tables[1])
	assert.Equal(t, []string{"2024-01-15", "Fire drill"}, tables[2])
	assert.Equal(t, []string{"2024-02-10", "Mock code blue"}, tables[3])

	kv := rows(t, data, SheetKeyValues)
	require.Len(t, kv, 3)
	assert.Equal(t, []string{"HRM.4.a", "training.xlsx", "Attendees", "24"}, kv[1])
	assert.Equal(t, []string{"HRM.4.a", "training.xlsx", "Trainer", "Jagruti Sharma"}, kv[2])
}

func TestExportAuditXLSX_Empty(t *testing.T) {
	data, err := NewService(&fakeStore{}, nil).ExportAuditXLSX(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows(t, data, SheetEvidence), 1)
}

func TestExportAuditXLSX_StoreError(t *testing.T) {
	_, err := NewService(&fakeStore{err: errors.New("db down")}, nil).ExportAuditXLSX(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestClip(t *testing.T) {
	long := strings.Repeat("é", cellLimit+10)
	got := clip(long)
	assert.Equal(t, cellLimit, len([]rune(got)))
	assert.Equal(t, "short", clip("short"))
}
