package entity

// PatientRecord is a row from the operational patient register.
type PatientRecord struct {
	ID            string `json:"id" yaml:"id"`
	VisitID       string `json:"visit_id" yaml:"visit_id"`
	PatientName   string `json:"patient_name" yaml:"patient_name"`
	Diagnosis     string `json:"diagnosis,omitempty" yaml:"diagnosis,omitempty"`
	AdmissionDate string `json:"admission_date,omitempty" yaml:"admission_date,omitempty"`
	DischargeDate string `json:"discharge_date,omitempty" yaml:"discharge_date,omitempty"`
	Status        string `json:"status,omitempty" yaml:"status,omitempty"`
}

// StaffRecord is an active team member.
type StaffRecord struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Role        string `json:"role" yaml:"role"`
	Designation string `json:"designation" yaml:"designation"`
	Department  string `json:"department" yaml:"department"`
}

// ConsultantRecord is an active visiting consultant.
type ConsultantRecord struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Department     string `json:"department" yaml:"department"`
	Qualification  string `json:"qualification,omitempty" yaml:"qualification,omitempty"`
	RegistrationNo string `json:"registration_no,omitempty" yaml:"registration_no,omitempty"`
}

type EquipmentRecord struct {
	EquipmentID         string `json:"equipment_id" yaml:"equipment_id"`
	Name                string `json:"name" yaml:"name"`
	Category            string `json:"category" yaml:"category"`
	Manufacturer        string `json:"manufacturer" yaml:"manufacturer"`
	LastCalibrationDate string `json:"last_calibration_date" yaml:"last_calibration_date"`
	NextCalibrationDate string `json:"next_calibration_date" yaml:"next_calibration_date"`
	Location            string `json:"location" yaml:"location"`
	Status              string `json:"status" yaml:"status"`
}

type IncidentRecord struct {
	IncidentID   string `json:"incident_id" yaml:"incident_id"`
	Date         string `json:"date" yaml:"date"`
	Location     string `json:"location" yaml:"location"`
	ReportedBy   string `json:"reported_by" yaml:"reported_by"`
	IncidentType string `json:"incident_type" yaml:"incident_type"`
	Description  string `json:"description" yaml:"description"`
	ActionTaken  string `json:"action_taken" yaml:"action_taken"`
	Status       string `json:"status" yaml:"status"`
}

// EnrichmentBundle carries the authoritative records a synthesized document may
// draw names from. Staff and Consultants are never empty once returned by the
// enrichment service.
type EnrichmentBundle struct {
	Patients    []PatientRecord    `json:"patients,omitempty"`
	Staff       []StaffRecord      `json:"staff"`
	Consultants []ConsultantRecord `json:"consultants"`
	Equipment   []EquipmentRecord  `json:"equipment,omitempty"`
	Incidents   []IncidentRecord   `json:"incidents,omitempty"`
}
