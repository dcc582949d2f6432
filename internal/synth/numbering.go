package synth

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "02/01/2006"

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

// DocumentNumber builds DOC-{CHAPTER}-{NNN}. CHAPTER is the upper-cased part of
// the objective code before the first '.', NNN the milliseconds of now mod 1000.
func DocumentNumber(objectiveCode string, now time.Time) string {
	chapter, _, _ := strings.Cut(strings.TrimSpace(objectiveCode), ".")
	chapter = strings.ToUpper(chapter)
	if chapter == "" {
		chapter = "GEN"
	}
	return fmt.Sprintf("DOC-%s-%03d", chapter, now.UnixMilli()%1000)
}

// EffectiveDate formats t as DD/MM/YYYY.
func EffectiveDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ReviewDate is one calendar year after t, formatted as DD/MM/YYYY.
func ReviewDate(t time.Time) string {
	return t.AddDate(1, 0, 0).Format(dateLayout)
}
