package synth

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

const (
	// PromptTableRows is the number of literal rows per table in a generate prompt.
	PromptTableRows = 20
	// PromptConsultants caps the consultants rendered in a generate prompt.
	PromptConsultants = 10

	generatePreviewChars = 2000
	formatPreviewChars   = 3000
)

// DocumentContext renders the per-document sections of a generate prompt.
// Tables are cut to PromptTableRows rows followed by a single notice line.
func DocumentContext(docs []entity.ExtractedDocument) string {
	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		var b strings.Builder
		fmt.Fprintf(&b, "\n--- DOCUMENT %d ---\n", i+1)
		if doc.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", doc.Title)
		}
		if doc.DocumentType != "" {
			fmt.Fprintf(&b, "Type: %s\n", doc.DocumentType)
		}
		if len(doc.KeyValuePairs) > 0 {
			b.WriteString("\nKey Information:\n")
			writePairs(&b, doc.KeyValuePairs)
		}
		for t, table := range doc.Tables {
			fmt.Fprintf(&b, "\nTable %d:\n", t+1)
			fmt.Fprintf(&b, "Headers: %s\n", strings.Join(table.Headers, " | "))
			for r, row := range table.Rows {
				if r == PromptTableRows {
					fmt.Fprintf(&b, "  ... and %d more rows\n", len(table.Rows)-PromptTableRows)
					break
				}
				fmt.Fprintf(&b, "  %s\n", strings.Join(row, " | "))
			}
		}
		preview, cut := truncateRunes(doc.RawText, generatePreviewChars)
		if cut {
			preview += "..."
		}
		fmt.Fprintf(&b, "\nRaw Content Preview:\n%s\n", preview)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}

// FormatContext renders every document in full for format mode: all table
// rows, key-value data and the first 3000 characters of raw text.
func FormatContext(docs []entity.ExtractedDocument, fileNames []string) string {
	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		var b strings.Builder
		fmt.Fprintf(&b, "\n=== DOCUMENT %d: %s ===\n", i+1, fileNameAt(fileNames, i))
		for t, table := range doc.Tables {
			fmt.Fprintf(&b, "\n[TABLE %d]\n", t+1)
			fmt.Fprintf(&b, "Headers: %s\n", strings.Join(table.Headers, " | "))
			b.WriteString("Data rows:\n")
			for r, row := range table.Rows {
				fmt.Fprintf(&b, "  Row %d: %s\n", r+1, strings.Join(row, " | "))
			}
		}
		if len(doc.KeyValuePairs) > 0 {
			b.WriteString("\n[KEY-VALUE DATA]\n")
			writePairs(&b, doc.KeyValuePairs)
		}
		if doc.RawText != "" {
			b.WriteString("\n[RAW CONTENT]\n")
			preview, cut := truncateRunes(doc.RawText, formatPreviewChars)
			b.WriteString(preview)
			if cut {
				b.WriteString("\n... (content truncated)")
			}
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

// DataContext renders the enrichment bundle. Every staff member and patient is
// listed; consultants are capped at PromptConsultants.
func DataContext(bundle entity.EnrichmentBundle) string {
	var b strings.Builder
	if len(bundle.Patients) > 0 {
		b.WriteString("\n--- REAL PATIENT DATA ---\n")
		for _, p := range bundle.Patients {
			fmt.Fprintf(&b, "Patient: %s, Visit ID: %s, Diagnosis: %s\n", p.PatientName, p.VisitID, orNA(p.Diagnosis))
		}
	}
	if len(bundle.Staff) > 0 {
		b.WriteString("\n--- REAL STAFF DATA ---\n")
		for _, s := range bundle.Staff {
			fmt.Fprintf(&b, "Staff: %s, Role: %s, Designation: %s, Dept: %s\n", s.Name, s.Role, s.Designation, s.Department)
		}
	}
	if len(bundle.Consultants) > 0 {
		b.WriteString("\n--- VISITING CONSULTANTS ---\n")
		for i, c := range bundle.Consultants {
			if i == PromptConsultants {
				break
			}
			fmt.Fprintf(&b, "%s, %s, %s\n", withDoctorPrefix(c.Name), c.Department, c.Qualification)
		}
	}
	if len(bundle.Equipment) > 0 {
		b.WriteString("\n--- EQUIPMENT REGISTER ---\n")
		for _, e := range bundle.Equipment {
			fmt.Fprintf(&b, "%s: %s (%s, %s), Location: %s, Last calibrated: %s, Next due: %s, Status: %s\n",
				e.EquipmentID, e.Name, e.Category, e.Manufacturer, e.Location, e.LastCalibrationDate, e.NextCalibrationDate, e.Status)
		}
	}
	if len(bundle.Incidents) > 0 {
		b.WriteString("\n--- INCIDENT REGISTER ---\n")
		for _, in := range bundle.Incidents {
			fmt.Fprintf(&b, "%s (%s) %s at %s, reported by %s: %s. Action: %s. Status: %s\n",
				in.IncidentID, in.Date, in.IncidentType, in.Location, in.ReportedBy, in.Description, in.ActionTaken, in.Status)
		}
	}
	return b.String()
}

// DetectTitle picks the base title for format mode: the first extracted
// title, else the first file name without extension and with -/_ as spaces.
func DetectTitle(docs []entity.ExtractedDocument, fileNames []string) string {
	for i, doc := range docs {
		if t := strings.TrimSpace(doc.Title); t != "" {
			return t
		}
		if i < len(fileNames) && fileNames[i] != "" {
			name := strings.TrimSuffix(fileNames[i], filepath.Ext(fileNames[i]))
			name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
			if strings.TrimSpace(name) != "" {
				return name
			}
		}
	}
	return "Document Report"
}

func writePairs(b *strings.Builder, pairs map[string]string) {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "  %s: %s\n", k, pairs[k])
	}
}

func fileNameAt(names []string, i int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return "Uploaded Document"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func withDoctorPrefix(name string) string {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "dr.") || strings.HasPrefix(lower, "dr ") {
		return name
	}
	return "Dr. " + name
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}
