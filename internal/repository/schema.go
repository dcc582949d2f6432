package repository

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	patientsTable        = "nabh_patients"
	teamMembersTable     = "nabh_team_members"
	consultantsTable     = "visiting_consultants"
	evidenceTable        = "nabh_document_evidence"
	sourceDocumentsTable = "nabh_evidence_source_documents"
)

// textSize makes Postgres map string columns to text instead of varchar.
const textSize = 1<<31 - 1

var (
	// PatientsColumns holds the columns for the "nabh_patients" table.
	PatientsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "visit_id", Type: field.TypeString},
		{Name: "patient_name", Type: field.TypeString},
		{Name: "diagnosis", Type: field.TypeString, Nullable: true},
		{Name: "admission_date", Type: field.TypeString, Nullable: true},
		{Name: "discharge_date", Type: field.TypeString, Nullable: true},
		{Name: "status", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// PatientsTable holds the schema information for the "nabh_patients" table.
	PatientsTable = &schema.Table{
		Name:       patientsTable,
		Columns:    PatientsColumns,
		PrimaryKey: []*schema.Column{PatientsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "nabh_patients_created_at", Columns: []*schema.Column{PatientsColumns[7]}},
		},
	}
	// TeamMembersColumns holds the columns for the "nabh_team_members" table.
	TeamMembersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString},
		{Name: "role", Type: field.TypeString, Nullable: true},
		{Name: "designation", Type: field.TypeString, Nullable: true},
		{Name: "department", Type: field.TypeString, Nullable: true},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// TeamMembersTable holds the schema information for the "nabh_team_members" table.
	TeamMembersTable = &schema.Table{
		Name:       teamMembersTable,
		Columns:    TeamMembersColumns,
		PrimaryKey: []*schema.Column{TeamMembersColumns[0]},
	}
	// ConsultantsColumns holds the columns for the "visiting_consultants" table.
	ConsultantsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "sr_no", Type: field.TypeInt},
		{Name: "name", Type: field.TypeString},
		{Name: "department", Type: field.TypeString, Nullable: true},
		{Name: "qualification", Type: field.TypeString, Nullable: true},
		{Name: "registration_no", Type: field.TypeString, Nullable: true},
		{Name: "is_active", Type: field.TypeBool, Default: true},
	}
	// ConsultantsTable holds the schema information for the "visiting_consultants" table.
	ConsultantsTable = &schema.Table{
		Name:       consultantsTable,
		Columns:    ConsultantsColumns,
		PrimaryKey: []*schema.Column{ConsultantsColumns[0]},
	}
	// EvidenceColumns holds the columns for the "nabh_document_evidence" table.
	EvidenceColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "objective_code", Type: field.TypeString},
		{Name: "title", Type: field.TypeString, Nullable: true},
		{Name: "html_content", Type: field.TypeString, Size: textSize},
		{Name: "hospital_id", Type: field.TypeString, Nullable: true},
		{Name: "source_filenames", Type: field.TypeJSON, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// EvidenceTable holds the schema information for the "nabh_document_evidence" table.
	EvidenceTable = &schema.Table{
		Name:       evidenceTable,
		Columns:    EvidenceColumns,
		PrimaryKey: []*schema.Column{EvidenceColumns[0]},
		Indexes: []*schema.Index{
			{Name: "nabh_document_evidence_objective_code", Unique: true, Columns: []*schema.Column{EvidenceColumns[1]}},
		},
	}
	// SourceDocumentsColumns holds the columns for the "nabh_evidence_source_documents" table.
	SourceDocumentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "objective_code", Type: field.TypeString},
		{Name: "file_name", Type: field.TypeString, Size: textSize},
		{Name: "file_type", Type: field.TypeString},
		{Name: "file_size", Type: field.TypeInt64, Default: 0},
		{Name: "storage_url", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "source_type", Type: field.TypeString},
		{Name: "extraction_status", Type: field.TypeString},
		{Name: "extracted_data", Type: field.TypeJSON, Nullable: true},
		{Name: "extraction_error", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// SourceDocumentsTable holds the schema information for the "nabh_evidence_source_documents" table.
	SourceDocumentsTable = &schema.Table{
		Name:       sourceDocumentsTable,
		Columns:    SourceDocumentsColumns,
		PrimaryKey: []*schema.Column{SourceDocumentsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "nabh_evidence_source_documents_objective_code", Columns: []*schema.Column{SourceDocumentsColumns[1]}},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		PatientsTable,
		TeamMembersTable,
		ConsultantsTable,
		EvidenceTable,
		SourceDocumentsTable,
	}
	// EvidenceTables are the tables this service owns.
	EvidenceTables = []*schema.Table{
		EvidenceTable,
		SourceDocumentsTable,
	}
)

// Migrate creates any missing tables, columns and indexes.
func Migrate(ctx context.Context, drv *entsql.Driver, opts ...schema.MigrateOption) error {
	return MigrateTables(ctx, drv, Tables, opts...)
}

func MigrateTables(ctx context.Context, drv *entsql.Driver, tables []*schema.Table, opts ...schema.MigrateOption) error {
	m, err := schema.NewMigrate(drv, opts...)
	if err != nil {
		return err
	}
	return m.Create(ctx, tables...)
}
