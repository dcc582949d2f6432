package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	name := "mem:" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := OpenSQLite(ctx, SQLiteDSN(name), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, Migrate(ctx, db.Driver))
	return db
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:evidence?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", SQLiteDSN(""))
	assert.Equal(t, SQLiteDSN(""), SQLiteDSN(":memory:"))
	assert.Contains(t, SQLiteDSN("mem:jobs"), "file:jobs?mode=memory")
	assert.Equal(t, "file:x.db?mode=ro", SQLiteDSN("file:x.db?mode=ro"))
	assert.Equal(t, "file:./evidence.db?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", SQLiteDSN("./evidence.db"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.HealthCheck(context.Background(), time.Second, nil))
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, Migrate(context.Background(), db.Driver))
}

func TestOperational_ListActivePatients(t *testing.T) {
	db := openTestDB(t)
	repo := NewOperationalRepository(db.Driver, nil)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range []string{"Asha Rao", "Vikram Singh", "Meena Iyer"} {
		p := entity.PatientRecord{ID: uuid.NewString(), VisitID: "IH24" + string(rune('A'+i)), PatientName: name}
		if i == 1 {
			p.Diagnosis = "Dengue fever"
		}
		require.NoError(t, repo.AddPatient(ctx, p, base.Add(time.Duration(i)*time.Hour)))
	}

	got, err := repo.ListActivePatients(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Meena Iyer", got[0].PatientName)
	assert.Equal(t, "Vikram Singh", got[1].PatientName)
	assert.Equal(t, "Dengue fever", got[1].Diagnosis)
	assert.Empty(t, got[0].Diagnosis)

	all, err := repo.ListActivePatients(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOperational_StaffAndConsultants(t *testing.T) {
	db := openTestDB(t)
	repo := NewOperationalRepository(db.Driver, nil)
	ctx := context.Background()

	require.NoError(t, repo.SeedStaff(ctx, []entity.StaffRecord{
		{ID: "s1", Name: "Sonali Kakde", Role: "Quality", Designation: "Clinical Audit Coordinator", Department: "Quality"},
		{ID: "s2", Name: "Gaurav Agrawal", Designation: "Hospital Administrator"},
	}))
	require.NoError(t, repo.SeedConsultants(ctx, []entity.ConsultantRecord{
		{ID: "c1", Name: "Dr. Anil Mehta", Department: "Cardiology", Qualification: "MD, DM"},
		{ID: "c2", Name: "Dr. Priya Nair", Department: "Radiology"},
		{ID: "c3", Name: "Dr. Retired Person", Department: "Surgery"},
	}))

	require.NoError(t, db.Driver.Exec(ctx, "UPDATE visiting_consultants SET is_active = ? WHERE id = ?", []any{false, "c3"}, nil))

	staff, err := repo.ListActiveStaff(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Equal(t, "Gaurav Agrawal", staff[0].Name)
	assert.Equal(t, "Hospital Administrator", staff[0].Designation)
	assert.Empty(t, staff[0].Role)
	assert.Equal(t, "Quality", staff[1].Department)

	consultants, err := repo.ListActiveConsultants(ctx)
	require.NoError(t, err)
	require.Len(t, consultants, 2)
	assert.Equal(t, "Dr. Anil Mehta", consultants[0].Name)
	assert.Equal(t, "MD, DM", consultants[0].Qualification)
	assert.Equal(t, "Dr. Priya Nair", consultants[1].Name)
}

func TestOperational_QueryFailsWithoutTables(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, SQLiteDSN("mem:"+uuid.NewString()), nil)
	require.NoError(t, err)
	defer db.Close(nil)

	_, err = NewOperationalRepository(db.Driver, nil).ListActiveStaff(ctx)
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DB_QUERY", appErr.Code)
}

func TestEvidence_SaveIsUpsertByObjective(t *testing.T) {
	db := openTestDB(t)
	repo := NewEvidenceRepository(db.Driver, nil)
	ctx := context.Background()

	first, err := repo.SaveEvidence(ctx, entity.SavedEvidence{
		ObjectiveCode:   "AAC.1.a",
		Title:           "Scope of Services",
		DocumentBody:    "<html>v1</html>",
		SourceFilenames: []string{"services.xlsx"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, []string{"services.xlsx"}, first.SourceFilenames)

	second, err := repo.SaveEvidence(ctx, entity.SavedEvidence{
		ObjectiveCode:   "AAC.1.a",
		Title:           "Scope of Services (rev 2)",
		DocumentBody:    "<html>v2</html>",
		HospitalID:      "hope",
		SourceFilenames: []string{"services.xlsx", "https://docs.google.com/document/d/abc/edit"},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "<html>v2</html>", second.DocumentBody)
	assert.Equal(t, "Scope of Services (rev 2)", second.Title)
	assert.Equal(t, "hope", second.HospitalID)
	assert.Len(t, second.SourceFilenames, 2)

	all, err := repo.ListEvidence(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEvidence_LoadAndDelete(t *testing.T) {
	db := openTestDB(t)
	repo := NewEvidenceRepository(db.Driver, nil)
	ctx := context.Background()

	_, err := repo.LoadEvidence(ctx, "COP.2.b")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.SaveEvidence(ctx, entity.SavedEvidence{ObjectiveCode: "COP.2.b", DocumentBody: "<p>x</p>"})
	require.NoError(t, err)

	got, err := repo.LoadEvidence(ctx, "COP.2.b")
	require.NoError(t, err)
	assert.Empty(t, got.Title)
	assert.Nil(t, got.SourceFilenames)
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, repo.DeleteEvidence(ctx, "COP.2.b"))
	require.NoError(t, repo.DeleteEvidence(ctx, "COP.2.b"))
	_, err = repo.LoadEvidence(ctx, "COP.2.b")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestEvidence_SaveValidatesInput(t *testing.T) {
	db := openTestDB(t)
	repo := NewEvidenceRepository(db.Driver, nil)

	_, err := repo.SaveEvidence(context.Background(), entity.SavedEvidence{DocumentBody: "<p/>"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = repo.SaveEvidence(context.Background(), entity.SavedEvidence{ObjectiveCode: "X.1", DocumentBody: "  "})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestSourceDocuments_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewEvidenceRepository(db.Driver, nil).(*evidenceRepository)
	ctx := context.Background()

	tick := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	upload, err := repo.CreateSourceDocument(ctx, entity.SourceDocument{
		ObjectiveCode: "HRM.3.a",
		FileName:      "training.xlsx",
		FileType:      string(constants.XLSX),
		FileSize:      2048,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.ExtractionPending, upload.Status)
	assert.Equal(t, constants.SourceUpload, upload.SourceType)

	link, err := repo.CreateSourceDocument(ctx, entity.SourceDocument{
		ObjectiveCode: "HRM.3.a",
		FileName:      "https://docs.google.com/spreadsheets/d/abc/edit",
		FileType:      "spreadsheet",
		SourceType:    constants.SourceGDrive,
	})
	require.NoError(t, err)

	doc := &entity.ExtractedDocument{
		RawText: "Date | Event",
		Tables:  []entity.Table{{Headers: []string{"Date", "Event"}, Rows: [][]string{{"2024-01-15", "Fire drill"}}}},
	}
	require.NoError(t, repo.UpdateSourceStatus(ctx, upload.ID, constants.ExtractionExtracted, doc, ""))
	require.NoError(t, repo.UpdateSourceStatus(ctx, link.ID, constants.ExtractionError, nil, "FetchError(NotPubliclyShared)"))

	err = repo.UpdateSourceStatus(ctx, uuid.New(), constants.ExtractionExtracted, nil, "")
	assert.ErrorIs(t, err, common.ErrNotFound)

	got, err := repo.ListSourceDocuments(ctx, "HRM.3.a")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "training.xlsx", got[0].FileName)
	assert.Equal(t, int64(2048), got[0].FileSize)
	assert.Equal(t, constants.ExtractionExtracted, got[0].Status)
	require.NotNil(t, got[0].Extracted)
	assert.Equal(t, doc.Tables, got[0].Extracted.Tables)

	assert.Equal(t, constants.SourceGDrive, got[1].SourceType)
	assert.Equal(t, int64(0), got[1].FileSize)
	assert.Equal(t, constants.ExtractionError, got[1].Status)
	assert.Nil(t, got[1].Extracted)
	assert.Equal(t, "FetchError(NotPubliclyShared)", got[1].ExtractionError)

	none, err := repo.ListSourceDocuments(ctx, "OTHER")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSourceDocuments_DeleteByObjective(t *testing.T) {
	db := openTestDB(t)
	repo := NewEvidenceRepository(db.Driver, nil)
	ctx := context.Background()

	for _, name := range []string{"a.pdf", "b.pdf"} {
		_, err := repo.CreateSourceDocument(ctx, entity.SourceDocument{ObjectiveCode: "COP.1", FileName: name, FileType: "pdf"})
		require.NoError(t, err)
	}
	_, err := repo.CreateSourceDocument(ctx, entity.SourceDocument{ObjectiveCode: "COP.2", FileName: "c.pdf", FileType: "pdf"})
	require.NoError(t, err)

	n, err := repo.DeleteSourceDocuments(ctx, "COP.1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := repo.ListSourceDocuments(ctx, "COP.1")
	require.NoError(t, err)
	assert.Empty(t, left)

	other, err := repo.ListSourceDocuments(ctx, "COP.2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
