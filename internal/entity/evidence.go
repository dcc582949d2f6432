package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
)

// Organization is the identity block printed on every evidence document.
type Organization struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Website string
	LogoURL string
}

// Signatory is one fixed name in the authorisation table.
type Signatory struct {
	Role           string // PREPARED BY, REVIEWED BY, APPROVED BY
	Name           string
	Designation    string
	SignatureImage string
}

// SynthesisMode selects how the synthesizer frames the request.
type SynthesisMode string

const (
	// ModeGenerate produces an evidence document for a specific evidence item.
	ModeGenerate SynthesisMode = "generate"
	// ModeFormat reformats uploaded content as-is without an evidence item.
	ModeFormat SynthesisMode = "format"
)

// SynthesisRequest is assembled right before the generation call.
type SynthesisRequest struct {
	Mode           SynthesisMode
	Documents      []ExtractedDocument
	FileNames      []string // parallel to Documents; may be shorter
	Enrichment     EnrichmentBundle
	ObjectiveCode  string
	ObjectiveTitle string
	EvidenceText   string // category / evidence item the document proves
	Instructions   string // optional caller instructions (format mode)
	Organization   Organization
}

// SynthesisResult is immutable once produced.
type SynthesisResult struct {
	Success      bool             `json:"success"`
	DocumentBody string           `json:"documentBody,omitempty"`
	Title        string           `json:"title,omitempty"`
	Error        common.ErrorKind `json:"error,omitempty"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
	UnknownNames []string         `json:"unknownNames,omitempty"`
}

// SavedEvidence is a persisted evidence document; one per objective code.
type SavedEvidence struct {
	ID              uuid.UUID
	ObjectiveCode   string
	Title           string
	DocumentBody    string
	HospitalID      string
	SourceFilenames []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SourceDocument records one artifact that fed an evidence document and how its extraction went.
type SourceDocument struct {
	ID              uuid.UUID
	ObjectiveCode   string
	FileName        string
	FileType        string
	FileSize        int64
	SourceType      constants.SourceType
	Status          constants.ExtractionStatus
	Extracted       *ExtractedDocument
	ExtractionError string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
