package synth

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	htmlFence  = regexp.MustCompile("(?s)```html\\n?(.*?)\\n?```")
	docTitle   = regexp.MustCompile(`<div class="doc-title">([^<]+)</div>`)
	htmlMarker = regexp.MustCompile(`(?i)<(?:!doctype|html|body|div|table|p|h[1-6])[\s>]`)
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// StripFences returns the body of the first ```html fence, or text unchanged
// when there is none.
func StripFences(text string) string {
	if m := htmlFence.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// ExtractTitle reads the doc-title div of a generated document.
func ExtractTitle(body string) (string, bool) {
	m := docTitle.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	t := strings.TrimSpace(html.UnescapeString(m[1]))
	return t, t != ""
}

// LooksLikeHTML reports whether body contains a block-level HTML tag.
func LooksLikeHTML(body string) bool {
	return htmlMarker.MatchString(body)
}

// MarkdownToHTML renders a markdown body, tables included.
func MarkdownToHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTitle is the first 50 characters of the evidence text.
func fallbackTitle(evidenceText string) string {
	t, _ := truncateRunes(strings.TrimSpace(evidenceText), 50)
	return t
}
