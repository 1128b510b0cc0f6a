package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simp-lee/epub2md"
	"github.com/simp-lee/epub2md/internal/epubtest"
)

func sampleDoc(t *testing.T) *epub2md.Document {
	return parseBook(t, epubtest.Book{
		Title:    "Writer Test",
		Chapters: []epubtest.Chapter{{Body: `<h1>Only</h1><p>Content.</p>`}},
	}, epub2md.DefaultOptions())
}

func TestWriterWritesBothFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := NewWriter(dir, nil)
	w.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	m, err := w.Write(sampleDoc(t))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Blocks)

	content, err := os.ReadFile(filepath.Join(dir, ContentFile))
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Writer Test\n")

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	var decoded Manifest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2026-01-02T03:04:05Z", decoded.GeneratedAt)
	assert.Equal(t, m.Blocks, decoded.Blocks)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{ContentFile, ManifestFile}, names, "no temporary files left behind")
}

func TestWriterOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ContentFile), []byte("stale"), 0o644))

	_, err := NewWriter(dir, nil).Write(sampleDoc(t))
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, ContentFile))
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(content))
}

func TestWriterFailsOnFileAsDirectory(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "out")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewWriter(blocker, nil).Write(sampleDoc(t))
	require.Error(t, err)
}
