package synth

import (
	"regexp"
	"sort"
	"strings"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

const nameToken = `[A-Z][A-Za-z'.-]*`

var (
	doctorName = regexp.MustCompile(`\bDr\.?\s+(` + nameToken + `(?:[ \t]+` + nameToken + `){0,3})`)
	signedName = regexp.MustCompile(`(?m)(?:^|>)[ \t]*(?i:name|prepared by|reviewed by|approved by|verified by|signed by)[ \t]*:[ \t]*((?:Dr\.?[ \t]+)?` + nameToken + `(?:[ \t]+` + nameToken + `){0,3})`)
	honorific  = regexp.MustCompile(`(?i)^(?:dr|mr|mrs|ms|prof)\.?\s+`)
)

// UnknownNames lists person names in body that do not belong to anyone in the
// bundle or the signatories. A name is "Dr. X", or the value of a Name: or
// Prepared/Reviewed/Approved by: label opening a line or table cell. A found
// name is known when each of its words appears in a single known name, so
// "Dr. Mehta" matches "Anil Mehta".
func UnknownNames(body string, bundle entity.EnrichmentBundle, signatories []entity.Signatory) []string {
	known := knownNames(bundle, signatories)

	seen := map[string]bool{}
	var unknown []string
	check := func(raw string) {
		name := strings.TrimRight(strings.TrimSpace(raw), ".,;:")
		words := nameWords(name)
		if len(words) == 0 {
			return
		}
		key := strings.Join(words, " ")
		if seen[key] {
			return
		}
		seen[key] = true
		if !isKnown(words, known) {
			unknown = append(unknown, name)
		}
	}
	for _, m := range doctorName.FindAllStringSubmatch(body, -1) {
		check(m[1])
	}
	for _, m := range signedName.FindAllStringSubmatch(body, -1) {
		check(m[1])
	}
	sort.Strings(unknown)
	return unknown
}

func knownNames(bundle entity.EnrichmentBundle, signatories []entity.Signatory) [][]string {
	var out [][]string
	add := func(name string) {
		if w := nameWords(name); len(w) > 0 {
			out = append(out, w)
		}
	}
	for _, s := range bundle.Staff {
		add(s.Name)
	}
	for _, c := range bundle.Consultants {
		add(c.Name)
	}
	for _, p := range bundle.Patients {
		add(p.PatientName)
	}
	for _, s := range signatories {
		add(s.Name)
	}
	return out
}

// nameWords lower-cases a name, drops honorifics and splits it into words.
func nameWords(name string) []string {
	name = honorific.ReplaceAllString(strings.TrimSpace(name), "")
	var words []string
	for _, w := range strings.Fields(strings.ToLower(name)) {
		w = strings.Trim(w, ".,;:'")
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func isKnown(words []string, known [][]string) bool {
	for _, k := range known {
		if containsAll(k, words) {
			return true
		}
	}
	return false
}

func containsAll(haystack, needles []string) bool {
	for _, n := range needles {
		found := false
		for _, h := range haystack {
			if h == n {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
