package evidence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/ingest"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/pipeline"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/repository"
)

func newStore(t *testing.T) repository.EvidenceRepository {
	t.Helper()
	ctx := context.Background()
	name := "mem:" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.OpenSQLite(ctx, repository.SQLiteDSN(name), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, repository.MigrateTables(ctx, db.Driver, repository.EvidenceTables))
	return repository.NewEvidenceRepository(db.Driver, nil)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newService(t *testing.T) (*Service, repository.EvidenceRepository) {
	store := newStore(t)
	return NewService(ingest.NewFSIngestor(1<<20, nil), store, entity.Organization{Name: "Hope Hospital"}, nil), store
}

func TestBuildRequest(t *testing.T) {
	dir := t.TempDir()
	policy := writeFile(t, dir, "policy.pdf", "%PDF-1.4 policy")
	exe := writeFile(t, dir, "notes.exe", "MZ")
	writeFile(t, dir, "uploads/register.xlsx", "xlsx-bytes")
	writeFile(t, dir, "uploads/scan.png", "png-bytes")
	writeFile(t, dir, "uploads/readme.txt", "ignored")

	svc, _ := newService(t)
	in, err := svc.BuildRequest(context.Background(), JobSpec{
		ObjectiveCode: " HRM.4.a ",
		EvidenceText:  "Fire safety training",
		Mode:          "format",
		Files:         []string{policy, exe, filepath.Join(dir, "missing.pdf")},
		UploadDir:     filepath.Join(dir, "uploads"),
		Links:         []string{"https://docs.google.com/document/d/abc123/edit"},
	})
	require.NoError(t, err)

	req := in.Request
	assert.Equal(t, "HRM.4.a", req.ObjectiveCode)
	assert.Equal(t, entity.ModeFormat, req.Mode)
	assert.Equal(t, "Hope Hospital", req.Organization.Name)

	names := make([]string, 0, len(req.Artifacts))
	for _, a := range req.Artifacts {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"policy.pdf", "register.xlsx", "scan.png", "https://docs.google.com/document/d/abc123/edit"}, names)

	require.Len(t, in.Rejected, 2)
	assert.Equal(t, "notes.exe", in.Rejected[0].Name)
	assert.ErrorIs(t, in.Rejected[0].Err, common.ErrUnsupported)
	assert.Equal(t, "missing.pdf", in.Rejected[1].Name)
}

func TestBuildRequest_NoUsableSources(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.BuildRequest(context.Background(), JobSpec{
		ObjectiveCode: "AAC.1",
		Files:         []string{filepath.Join(t.TempDir(), "gone.pdf")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestBeginAndRecord(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	in := &Intake{
		Request: pipeline.Request{
			ObjectiveCode: "HRM.4.a",
			Artifacts: []entity.SourceArtifact{
				entity.Upload{Filename: "training.xlsx", Bytes: []byte("1234")},
				entity.RemoteLink{URL: "https://docs.google.com/spreadsheets/d/sheet1/edit"},
				entity.Upload{Filename: "scan.png", Bytes: []byte("png")},
			},
		},
		Rejected: []Rejection{{Name: "notes.exe", Err: common.UnsupportedError("cannot classify")}},
	}
	require.NoError(t, svc.Begin(ctx, in))
	require.Len(t, in.SourceIDs, 3)

	pending, err := store.ListSourceDocuments(ctx, "HRM.4.a")
	require.NoError(t, err)
	require.Len(t, pending, 4)

	doc := entity.ExtractedDocument{RawText: "Date | Event", Title: "Training"}
	res := pipeline.Result{
		Outcomes: []pipeline.Outcome{
			{Index: 0, Name: "training.xlsx", Document: &doc},
			{Index: 1, Name: "spreadsheet-sheet1", Err: common.FetchError(common.ReasonNotPubliclyShared, "sign-in page", common.ErrNotPubliclyShared)},
			{Index: 2, Name: "scan.png", Document: &entity.ExtractedDocument{RawText: "scan"}},
		},
		Documents: []entity.ExtractedDocument{doc, {RawText: "scan"}},
		FileNames: []string{"training.xlsx", "scan.png"},
		Synthesis: entity.SynthesisResult{Success: true, Title: "Training Record", DocumentBody: "<div>ok</div>", UnknownNames: []string{"Ramesh Rao"}},
	}
	saved, err := svc.Record(ctx, "hope", in, res, nil)
	require.NoError(t, err)
	assert.Equal(t, "Training Record", saved.Title)
	assert.Equal(t, "hope", saved.HospitalID)
	assert.Equal(t, []string{"training.xlsx", "scan.png"}, saved.SourceFilenames)

	sources, err := store.ListSourceDocuments(ctx, "HRM.4.a")
	require.NoError(t, err)
	byName := map[string]*entity.SourceDocument{}
	for _, s := range sources {
		byName[s.FileName] = s
	}
	require.Len(t, byName, 4)

	assert.Equal(t, constants.ExtractionError, byName["notes.exe"].Status)
	assert.Equal(t, "exe", byName["notes.exe"].FileType)

	xlsx := byName["training.xlsx"]
	assert.Equal(t, constants.ExtractionExtracted, xlsx.Status)
	assert.Equal(t, "xlsx", xlsx.FileType)
	assert.Equal(t, int64(4), xlsx.FileSize)
	require.NotNil(t, xlsx.Extracted)
	assert.Equal(t, "Training", xlsx.Extracted.Title)

	link := byName["https://docs.google.com/spreadsheets/d/sheet1/edit"]
	assert.Equal(t, constants.SourceGDrive, link.SourceType)
	assert.Equal(t, "spreadsheet", link.FileType)
	assert.Equal(t, constants.ExtractionError, link.Status)
	assert.Contains(t, link.ExtractionError, "sign-in page")

	rep := NewReport(in, res, saved, nil)
	assert.True(t, rep.Succeeded())
	assert.Equal(t, 2, rep.Extracted)
	assert.Equal(t, []string{"Ramesh Rao"}, rep.UnknownNames)
	require.Len(t, rep.Failures, 2)
	assert.Equal(t, Failure{Name: "notes.exe", Code: codes.InvalidArgument, Message: rep.Failures[0].Message}, rep.Failures[0])
	assert.Equal(t, codes.PermissionDenied, rep.Failures[1].Code)

	// A rerun replaces the previous source rows.
	rerun := &Intake{Request: pipeline.Request{
		ObjectiveCode: "HRM.4.a",
		Artifacts:     []entity.SourceArtifact{entity.Upload{Filename: "training.xlsx", Bytes: []byte("1234")}},
	}}
	require.NoError(t, svc.Begin(ctx, rerun))
	after, err := store.ListSourceDocuments(ctx, "HRM.4.a")
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, constants.ExtractionExtracting, after[0].Status)
}

func TestRecord_RunFailureSettlesSources(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	in := &Intake{Request: pipeline.Request{
		ObjectiveCode: "COP.2",
		Artifacts: []entity.SourceArtifact{
			entity.Upload{Filename: "a.pdf", Bytes: []byte("a")},
			entity.Upload{Filename: "b.pdf", Bytes: []byte("b")},
		},
	}}
	require.NoError(t, svc.Begin(ctx, in))

	runErr := common.ExtractionError("extraction did not complete", context.Canceled)
	res := pipeline.Result{Outcomes: []pipeline.Outcome{{Index: 0, Name: "a.pdf", Err: runErr}}}
	saved, err := svc.Record(ctx, "", in, res, runErr)
	assert.Nil(t, saved)
	assert.True(t, errors.Is(err, context.Canceled))

	sources, err := store.ListSourceDocuments(ctx, "COP.2")
	require.NoError(t, err)
	require.Len(t, sources, 2)
	for _, s := range sources {
		assert.Equal(t, constants.ExtractionError, s.Status, s.FileName)
	}

	_, err = store.LoadEvidence(ctx, "COP.2")
	assert.ErrorIs(t, err, common.ErrNotFound)

	rep := NewReport(in, res, nil, runErr)
	assert.False(t, rep.Succeeded())
	assert.Equal(t, codes.Canceled, rep.Failures[0].Code)
}

func TestRecord_UnsuccessfulSynthesis(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	in := &Intake{Request: pipeline.Request{ObjectiveCode: "AAC.1"}}
	require.NoError(t, svc.Begin(ctx, in))

	_, err := svc.Record(ctx, "", in, pipeline.Result{Synthesis: entity.SynthesisResult{ErrorMessage: "empty"}}, nil)
	assert.ErrorIs(t, err, common.ErrGeneration)
}
