package vision

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const auditReport = `# Fire Safety Audit Report

Hospital: Hope Hospital
Date of Audit: 15/01/2024
- **Auditor:** Dr. Shiraz Sheikh
Next review 2024-07-15 and again on 3 March 2025, repeat of 15/01/2024
This line has no colon
A very long label that definitely exceeds the fifty character limit: value
Remarks:
`

func TestParse_AuditReport(t *testing.T) {
	doc := Parse(auditReport)

	assert.Equal(t, auditReport, doc.RawText)
	assert.Equal(t, "Fire Safety Audit Report", doc.Title)
	assert.Equal(t, map[string]string{
		"Hospital":      "Hope Hospital",
		"Date of Audit": "15/01/2024",
		"Auditor":       "Dr. Shiraz Sheikh",
	}, doc.KeyValuePairs)
	assert.Equal(t, []string{"15/01/2024", "2024-07-15", "3 March 2025"}, doc.Dates)
	assert.Empty(t, doc.Tables)
}

func TestParse_TitleMarkerWins(t *testing.T) {
	doc := Parse("HOPE HOSPITAL\nDocument Title: Fire Drill Register\nVersion: 2")
	assert.Equal(t, "Fire Drill Register", doc.Title)
	assert.Equal(t, "2", doc.KeyValuePairs["Version"])
}

func TestParse_EmptyTitleMarkerFallsBackToFirstLine(t *testing.T) {
	doc := Parse("## Consent Form\nTitle:\nPatient: Ramesh")
	assert.Equal(t, "Consent Form", doc.Title)
}

func TestParse_LabelLengthCountsCharacters(t *testing.T) {
	label := "रोगी का पूरा नाम और स्थायी पता"
	require.Less(t, utf8.RuneCountInString(label), maxLabelLen)
	require.Greater(t, len(label), maxLabelLen)

	doc := Parse("Form\n" + label + ": रमेश कुमार\n" + strings.Repeat("अ", maxLabelLen) + ": too long")
	assert.Equal(t, map[string]string{label: "रमेश कुमार"}, doc.KeyValuePairs)
}

func TestParse_NoStructure(t *testing.T) {
	doc := Parse("the scan shows a handwritten note with no labels")
	assert.Equal(t, "the scan shows a handwritten note with no labels", doc.RawText)
	assert.Nil(t, doc.KeyValuePairs)
	assert.Nil(t, doc.Dates)
}

func TestParse_DateForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"day first slash", "on 5/3/24 we met", []string{"5/3/24"}},
		{"dotted", "effective 01.02.2023", []string{"01.02.2023"}},
		{"iso", "reviewed 2023/12/01", []string{"2023/12/01"}},
		{"month name", "signed 12 Sept 2024 and 1 jan 25", []string{"12 Sept 2024", "1 jan 25"}},
		{"none", "no dates here 2024", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in).Dates)
		})
	}
}

func TestParse_Deterministic(t *testing.T) {
	assert.Equal(t, Parse(auditReport), Parse(auditReport))
}
