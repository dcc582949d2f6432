package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a-policy.pdf"), "pdf one")
	writeFile(t, filepath.Join(root, "b-register.xlsx"), "sheet")
	writeFile(t, filepath.Join(root, "c-copy.pdf"), "pdf one")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, ".cache", "hidden.pdf"), "hidden")
	writeFile(t, filepath.Join(root, "scans", "d-photo.JPG"), "jpg")

	results, stats, err := NewFSIngestor(0, nil).IngestDirectory(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, uint32(4), stats.Matched)
	assert.Equal(t, uint32(4), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Zero(t, stats.Failed)

	uploads := Uploads(results)
	var names []string
	for _, u := range uploads {
		names = append(names, u.Filename)
	}
	assert.Equal(t, []string{"a-policy.pdf", "b-register.xlsx", "d-photo.JPG"}, names)
	assert.Equal(t, "application/pdf", uploads[0].DeclaredMimeType)
	assert.Equal(t, "image/jpeg", uploads[2].DeclaredMimeType)
	assert.Equal(t, []byte("sheet"), uploads[1].Bytes)
	assert.True(t, results[2].Deduplicated)
}

func TestIngestDirectory_SizeLimitIsPerFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "big.pdf"), "0123456789")
	writeFile(t, filepath.Join(root, "small.pdf"), "01")

	results, stats, err := NewFSIngestor(5, nil).IngestDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Equal(t, uint32(1), stats.Succeeded)
	assert.Contains(t, results[0].Err, "exceeds")
	assert.Len(t, Uploads(results), 1)
}

func TestIngestDirectory_MissingRoot(t *testing.T) {
	_, _, err := NewFSIngestor(0, nil).IngestDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)

	_, _, err = NewFSIngestor(0, nil).IngestDirectory(context.Background(), " ")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestIngestPath_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.exe")
	writeFile(t, path, "MZ")
	_, err := NewFSIngestor(0, nil).IngestPath(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrUnsupported)
}

func TestAllowedExtAndHidden(t *testing.T) {
	assert.True(t, AllowedExt(".PDF"))
	assert.True(t, AllowedExt("xls"))
	assert.False(t, AllowedExt(".csv"))
	assert.True(t, IsHidden("/tmp/x/.git"))
	assert.False(t, IsHidden("/tmp/x/git"))
}

func TestWatch_EmitsInitialAndNewFiles(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.pdf")
	writeFile(t, existing, "old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(3 * time.Second):
			t.Fatal("no watch event")
			return ""
		}
	}
	assert.Equal(t, existing, next())

	writeFile(t, filepath.Join(root, "ignored.txt"), "x")
	added := filepath.Join(root, "added.xlsx")
	writeFile(t, added, "new")
	assert.Equal(t, added, next())

	cancel()
	for range events {
	}
}

func TestWatch_NoRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
