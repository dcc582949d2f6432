package vision

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// maxLabelLen is in characters, not bytes.
const maxLabelLen = 50

var (
	titleMarker   = regexp.MustCompile(`(?i)title:`)
	leadingHashes = regexp.MustCompile(`^#+\s*`)
	labeledLine   = regexp.MustCompile(`^([^:]+):\s*(.+)$`)
	dateToken     = regexp.MustCompile(`(?i)\b(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}|\d{4}[/\-.]\d{1,2}[/\-.]\d{1,2}|\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2,4})\b`)
)

// Parse turns free model text into an ExtractedDocument. It never fails: rules that
// do not match leave their field empty and RawText always carries the input.
func Parse(text string) entity.ExtractedDocument {
	doc := entity.ExtractedDocument{RawText: text}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	doc.Title = title(lines)

	for _, l := range lines {
		m := labeledLine.FindStringSubmatch(strings.TrimRight(l, "\r"))
		if m == nil {
			continue
		}
		key := cleanLabel(m[1])
		value := strings.Trim(strings.TrimSpace(m[2]), "*")
		value = strings.TrimSpace(value)
		if key == "" || value == "" || utf8.RuneCountInString(key) >= maxLabelLen {
			continue
		}
		doc.SetPair(key, value)
	}

	for _, d := range dateToken.FindAllString(text, -1) {
		doc.AddDate(d)
	}
	return doc
}

// title prefers the first "Title:" line with a non-empty remainder. A bare
// marker never yields an empty title; the first line is used instead.
func title(lines []string) string {
	for _, l := range lines {
		if loc := titleMarker.FindStringIndex(l); loc != nil {
			if t := strings.TrimSpace(strings.Trim(strings.TrimSpace(l[loc[1]:]), "*")); t != "" {
				return t
			}
		}
	}
	if len(lines) == 0 {
		return ""
	}
	first := leadingHashes.ReplaceAllString(strings.TrimSpace(lines[0]), "")
	return strings.TrimSpace(strings.Trim(first, "*"))
}

// cleanLabel strips list bullets and markdown emphasis the model wraps around labels.
func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-•# ")
	return strings.TrimSpace(strings.Trim(s, "*"))
}
