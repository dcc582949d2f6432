package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// OperationalRepository reads the hospital registers the enrichment service
// draws names from. Seed methods exist for local stores and tests.
type OperationalRepository interface {
	ListActivePatients(ctx context.Context, limit int) ([]entity.PatientRecord, error)
	ListActiveStaff(ctx context.Context) ([]entity.StaffRecord, error)
	ListActiveConsultants(ctx context.Context) ([]entity.ConsultantRecord, error)
	AddPatient(ctx context.Context, p entity.PatientRecord, createdAt time.Time) error
	SeedStaff(ctx context.Context, staff []entity.StaffRecord) error
	SeedConsultants(ctx context.Context, consultants []entity.ConsultantRecord) error
}

type operationalRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewOperationalRepository(drv *entsql.Driver, logger *slog.Logger) OperationalRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &operationalRepository{drv: drv, logger: logger}
}

func (r *operationalRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

// ListActivePatients returns the most recently registered patients, newest first.
func (r *operationalRepository) ListActivePatients(ctx context.Context, limit int) ([]entity.PatientRecord, error) {
	sel := r.builder().
		Select("id", "visit_id", "patient_name", "diagnosis", "admission_date", "discharge_date", "status").
		From(entsql.Table(patientsTable)).
		OrderBy(entsql.Desc("created_at"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("repo.patients.list.failed", "error", err)
		return nil, common.NewAppError("DB_QUERY", "failed to list patients", err)
	}
	defer rows.Close()

	var out []entity.PatientRecord
	for rows.Next() {
		var (
			p                                       entity.PatientRecord
			diagnosis, admitted, discharged, status sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.VisitID, &p.PatientName, &diagnosis, &admitted, &discharged, &status); err != nil {
			return nil, common.NewAppError("DB_SCAN", "failed to scan patient", err)
		}
		p.Diagnosis = diagnosis.String
		p.AdmissionDate = admitted.String
		p.DischargeDate = discharged.String
		p.Status = status.String
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list patients", err)
	}
	return out, nil
}

func (r *operationalRepository) ListActiveStaff(ctx context.Context) ([]entity.StaffRecord, error) {
	query, args := r.builder().
		Select("id", "name", "role", "designation", "department").
		From(entsql.Table(teamMembersTable)).
		Where(entsql.EQ("is_active", true)).
		OrderBy(entsql.Desc("created_at")).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("repo.staff.list.failed", "error", err)
		return nil, common.NewAppError("DB_QUERY", "failed to list staff", err)
	}
	defer rows.Close()

	var out []entity.StaffRecord
	for rows.Next() {
		var (
			s                             entity.StaffRecord
			role, designation, department sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Name, &role, &designation, &department); err != nil {
			return nil, common.NewAppError("DB_SCAN", "failed to scan staff", err)
		}
		s.Role = role.String
		s.Designation = designation.String
		s.Department = department.String
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list staff", err)
	}
	return out, nil
}

func (r *operationalRepository) ListActiveConsultants(ctx context.Context) ([]entity.ConsultantRecord, error) {
	query, args := r.builder().
		Select("id", "name", "department", "qualification", "registration_no").
		From(entsql.Table(consultantsTable)).
		Where(entsql.EQ("is_active", true)).
		OrderBy(entsql.Asc("sr_no")).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("repo.consultants.list.failed", "error", err)
		return nil, common.NewAppError("DB_QUERY", "failed to list consultants", err)
	}
	defer rows.Close()

	var out []entity.ConsultantRecord
	for rows.Next() {
		var (
			c                                entity.ConsultantRecord
			department, qualification, regNo sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &department, &qualification, &regNo); err != nil {
			return nil, common.NewAppError("DB_SCAN", "failed to scan consultant", err)
		}
		c.Department = department.String
		c.Qualification = qualification.String
		c.RegistrationNo = regNo.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY", "failed to list consultants", err)
	}
	return out, nil
}

func (r *operationalRepository) AddPatient(ctx context.Context, p entity.PatientRecord, createdAt time.Time) error {
	query, args := r.builder().
		Insert(patientsTable).
		Columns("id", "visit_id", "patient_name", "diagnosis", "admission_date", "discharge_date", "status", "created_at").
		Values(p.ID, p.VisitID, p.PatientName, nullable(p.Diagnosis), nullable(p.AdmissionDate), nullable(p.DischargeDate), nullable(p.Status), createdAt.UTC()).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("repo.patients.insert.failed", "patient_id", p.ID, "error", err)
		return common.NewAppError("DB_INSERT", "failed to insert patient", err)
	}
	return nil
}

// SeedStaff inserts active team members. Later entries are treated as more
// recent so listing returns them in reverse input order.
func (r *operationalRepository) SeedStaff(ctx context.Context, staff []entity.StaffRecord) error {
	if len(staff) == 0 {
		return nil
	}
	base := time.Now().UTC()
	ins := r.builder().
		Insert(teamMembersTable).
		Columns("id", "name", "role", "designation", "department", "is_active", "created_at")
	for i, s := range staff {
		ins = ins.Values(s.ID, s.Name, nullable(s.Role), nullable(s.Designation), nullable(s.Department), true, base.Add(time.Duration(i)*time.Second))
	}
	query, args := ins.Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("repo.staff.seed.failed", "count", len(staff), "error", err)
		return common.NewAppError("DB_INSERT", "failed to seed staff", err)
	}
	return nil
}

// SeedConsultants inserts active consultants numbered in input order.
func (r *operationalRepository) SeedConsultants(ctx context.Context, consultants []entity.ConsultantRecord) error {
	if len(consultants) == 0 {
		return nil
	}
	ins := r.builder().
		Insert(consultantsTable).
		Columns("id", "sr_no", "name", "department", "qualification", "registration_no", "is_active")
	for i, c := range consultants {
		ins = ins.Values(c.ID, i+1, c.Name, nullable(c.Department), nullable(c.Qualification), nullable(c.RegistrationNo), true)
	}
	query, args := ins.Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("repo.consultants.seed.failed", "count", len(consultants), "error", err)
		return common.NewAppError("DB_INSERT", "failed to seed consultants", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
