package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/detect"
)

func TestExportURL(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		format ExportFormat
		ok     bool
	}{
		{"https://docs.google.com/document/d/doc_1/edit", "https://docs.google.com/document/d/doc_1/export?format=txt", FormatText, true},
		{"https://docs.google.com/spreadsheets/d/sheet-2/edit#gid=0", "https://docs.google.com/spreadsheets/d/sheet-2/export?format=csv", FormatCSV, true},
		{"https://docs.google.com/presentation/d/deck3/view", "https://docs.google.com/presentation/d/deck3/export?format=txt", FormatText, true},
		{"https://drive.google.com/file/d/file4/view?usp=sharing", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			link, err := ParseLink(tt.url)
			require.NoError(t, err)
			got, format, ok := ExportURL("https://docs.google.com/", link)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.format, format)
		})
	}
}

func TestParseLink(t *testing.T) {
	link, err := ParseLink("  https://drive.google.com/open?id=abc_DEF-9 ")
	require.NoError(t, err)
	assert.Equal(t, detect.OpaqueFile, link.Kind)
	assert.Equal(t, "abc_DEF-9", link.DocumentID)

	_, err = ParseLink("https://example.com/report.pdf")
	assert.ErrorIs(t, err, common.ErrUnsupported)
}

func TestResolveFileType(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		filename string
		wantType string
		wantMime string
	}{
		{"exact mime", "application/pdf", "x", "pdf", "application/pdf"},
		{"partial word", "application/vnd.ms-word.document.macroEnabled.12", "x", "docx", "application/vnd.ms-word.document.macroEnabled.12"},
		{"partial image", "image/webp", "x", "png", "image/webp"},
		{"octet-stream uses extension", "application/octet-stream", "ward-register.xlsx", "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"octet-stream jpeg", "application/octet-stream", "scan.JPEG", "jpeg", "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft, mime, err := ResolveFileType(tt.mime, tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, string(ft))
			assert.Equal(t, tt.wantMime, mime)
		})
	}

	_, _, err := ResolveFileType("application/octet-stream", "downloaded-file")
	assert.ErrorIs(t, err, common.ErrUnsupportedType)
	assert.ErrorIs(t, err, common.ErrFetch)
}
