package constants

import "strings"

// Keyword gates for contextual enrichment. A category matches a gate when its
// lower-cased text contains any of the gate's keywords as a substring.
var (
	PatientKeywords = []string{
		"patient", "admission", "discharge", "care", "record",
		"assessment", "consent", "medication", "treatment",
	}
	EquipmentKeywords = []string{
		"equipment", "calibration", "maintenance", "biomedical", "device", "machine",
	}
	IncidentKeywords = []string{
		"incident", "accident", "error", "adverse", "sentinel", "safety",
	}
)

// MatchesAny reports whether text contains any keyword, case-insensitively.
func MatchesAny(text string, keywords []string) bool {
	normalized := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(normalized, k) {
			return true
		}
	}
	return false
}
