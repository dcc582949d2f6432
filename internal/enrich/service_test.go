package enrich

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

type fakeStore struct {
	patients    []entity.PatientRecord
	staff       []entity.StaffRecord
	consultants []entity.ConsultantRecord
	err         error

	patientCalls int
	patientLimit int
}

func (f *fakeStore) ListActivePatients(_ context.Context, limit int) ([]entity.PatientRecord, error) {
	f.patientCalls++
	f.patientLimit = limit
	if len(f.patients) > limit {
		return f.patients[:limit], f.err
	}
	return f.patients, f.err
}

func (f *fakeStore) ListActiveStaff(context.Context) ([]entity.StaffRecord, error) {
	return f.staff, f.err
}

func (f *fakeStore) ListActiveConsultants(context.Context) ([]entity.ConsultantRecord, error) {
	return f.consultants, f.err
}

func testRoster() Roster {
	return Roster{
		Staff:       []entity.StaffRecord{{ID: "r1", Name: "Roster Person", Role: "Quality Manager"}},
		Consultants: []entity.ConsultantRecord{{ID: "c1", Name: "Dr. Roster Consultant", Department: "ENT"}},
		Equipment: []entity.EquipmentRecord{
			{EquipmentID: "E1"}, {EquipmentID: "E2"}, {EquipmentID: "E3"},
			{EquipmentID: "E4"}, {EquipmentID: "E5"}, {EquipmentID: "E6"},
		},
		Incidents: []entity.IncidentRecord{{IncidentID: "I1"}, {IncidentID: "I2"}, {IncidentID: "I3"}, {IncidentID: "I4"}},
	}
}

func patients(n int) []entity.PatientRecord {
	out := make([]entity.PatientRecord, n)
	for i := range out {
		out[i] = entity.PatientRecord{ID: fmt.Sprint(i), PatientName: fmt.Sprintf("Patient %d", i), VisitID: fmt.Sprintf("IH24%04d", i)}
	}
	return out
}

func newTestService(store Store) *Service {
	return NewService(store, testRoster(), Config{}, nil, WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestEnrich_TrainingEvidenceSkipsPatients(t *testing.T) {
	store := &fakeStore{
		patients:    patients(5),
		staff:       []entity.StaffRecord{{Name: "Jagruti Sharma"}},
		consultants: []entity.ConsultantRecord{{Name: "Dr. Akshay Dalal"}},
	}
	b, err := newTestService(store).Enrich(context.Background(), "training evidence")
	require.NoError(t, err)

	assert.Empty(t, b.Patients)
	assert.Zero(t, store.patientCalls)
	assert.Equal(t, store.staff, b.Staff)
	assert.Equal(t, store.consultants, b.Consultants)
	assert.Empty(t, b.Equipment)
	assert.Empty(t, b.Incidents)
}

func TestEnrich_PatientSample(t *testing.T) {
	store := &fakeStore{patients: patients(30), staff: []entity.StaffRecord{{Name: "A"}}, consultants: []entity.ConsultantRecord{{Name: "Dr. B"}}}
	b, err := newTestService(store).Enrich(context.Background(), "Patient Admission Records")
	require.NoError(t, err)

	assert.Equal(t, 20, store.patientLimit)
	require.Len(t, b.Patients, 8)
	seen := map[string]bool{}
	for _, p := range b.Patients {
		assert.False(t, seen[p.ID], "sample must not repeat records")
		seen[p.ID] = true
		var idx int
		_, _ = fmt.Sscan(p.ID, &idx)
		assert.Less(t, idx, 20, "sample drawn from the most recent pool only")
	}
}

func TestEnrich_SmallPatientPoolIsReturnedWhole(t *testing.T) {
	store := &fakeStore{patients: patients(3)}
	b, err := newTestService(store).Enrich(context.Background(), "discharge summary")
	require.NoError(t, err)
	assert.ElementsMatch(t, patients(3), b.Patients)
}

func TestEnrich_FallbackRoster(t *testing.T) {
	tests := []struct {
		name  string
		store Store
	}{
		{"store error", &fakeStore{err: errors.New("connection refused")}},
		{"zero rows", &fakeStore{}},
		{"no store", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := newTestService(tt.store).Enrich(context.Background(), "patient consent")
			require.NoError(t, err)
			assert.Equal(t, testRoster().Staff, b.Staff)
			assert.Equal(t, testRoster().Consultants, b.Consultants)
			assert.Empty(t, b.Patients)
		})
	}
}

func TestEnrich_EquipmentAndIncidentGates(t *testing.T) {
	svc := newTestService(nil)

	b, err := svc.Enrich(context.Background(), "Biomedical equipment calibration")
	require.NoError(t, err)
	assert.Len(t, b.Equipment, 5)
	assert.Empty(t, b.Incidents)

	b, err = svc.Enrich(context.Background(), "Sentinel event and adverse incident reporting")
	require.NoError(t, err)
	assert.Len(t, b.Incidents, 3)
	assert.Empty(t, b.Equipment)
}

func TestEnrich_FallbackIsACopy(t *testing.T) {
	svc := newTestService(nil)
	b, err := svc.Enrich(context.Background(), "x")
	require.NoError(t, err)
	b.Staff[0].Name = "mutated"

	again, err := svc.Enrich(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Roster Person", again.Staff[0].Name)
}

func TestEnrich_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestService(&fakeStore{}).Enrich(ctx, "training")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultRoster(t *testing.T) {
	r, err := DefaultRoster()
	require.NoError(t, err)
	assert.Len(t, r.Staff, 3)
	assert.Len(t, r.Consultants, 22)
	assert.Len(t, r.Equipment, 5)
	assert.Len(t, r.Incidents, 3)
	assert.Equal(t, "Dr. Shiraz Sheikh", r.Staff[0].Name)
	assert.Equal(t, "HH/EQP/005", r.Equipment[4].EquipmentID)
}

func TestParseRoster_RejectsEmptyNamePool(t *testing.T) {
	_, err := ParseRoster([]byte("staff: []\nconsultants:\n  - name: Dr. X\n"))
	assert.Error(t, err)
	_, err = ParseRoster([]byte("staff: [\n"))
	assert.Error(t, err)
}
