package validate

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simp-lee/epub2md"
	"github.com/simp-lee/epub2md/internal/epubtest"
	"github.com/simp-lee/epub2md/internal/output"
)

var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func sampleBook() epubtest.Book {
	return epubtest.Book{
		Title:   "Sample Book",
		Creator: "Jane Doe",
		Chapters: []epubtest.Chapter{
			{Title: "One", Body: `<h1>Chapter One</h1>
<p>First paragraph.</p>
<ul><li>alpha</li><li>beta</li></ul>
<ol><li>first</li><li>second</li></ol>
<blockquote><p>Quoted.</p></blockquote>
<pre>x := 1
y := 2</pre>
<img src="pic.png" alt="A picture"/>`},
			{Title: "Two", Body: `<h1>Chapter Two</h1><h2>Section</h2><p>- not a list</p><p>1. not ordered</p>`},
		},
		Images: map[string][]byte{"pic.png": pngPixel},
	}
}

func writeOutput(t *testing.T, book epubtest.Book, extract bool) string {
	t.Helper()
	out := t.TempDir()
	data := book.Bytes(t)

	opts := epub2md.DefaultOptions()
	if extract {
		opts.ImageStore = epub2md.DirImageStore{Root: out}
	}
	doc, err := epub2md.ParseReader(bytes.NewReader(data), int64(len(data)), opts)
	require.NoError(t, err)

	_, err = output.NewWriter(out, nil).Write(doc)
	require.NoError(t, err)
	return out
}

func TestValidateRoundTrip(t *testing.T) {
	out := writeOutput(t, sampleBook(), true)
	res := Validate(out)
	assert.True(t, res.OK(), "errors: %v", res.Errors)
}

func TestValidateRoundTripWithoutImages(t *testing.T) {
	out := writeOutput(t, sampleBook(), false)
	res := Validate(out)
	assert.True(t, res.OK(), "errors: %v", res.Errors)
}

func TestValidateMissingContent(t *testing.T) {
	res := Validate(t.TempDir())
	assert.Equal(t, []string{"content.md not found"}, res.Errors)
	assert.False(t, res.OK())
}

func TestValidateManifestOptional(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, output.ContentFile), []byte("# Title\n"), 0o644))
	assert.True(t, Validate(dir).OK())
}

func TestValidateInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, output.ContentFile), []byte("text\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, output.ManifestFile), []byte("{\n  \"blocks\": 1,\n  oops\n}\n"), 0o644))

	res := Validate(dir)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Invalid JSON on line 3", res.Errors[0])
}

func TestValidateMissingImage(t *testing.T) {
	out := writeOutput(t, sampleBook(), true)
	require.NoError(t, os.Remove(filepath.Join(out, "images", "OEBPS", "pic.png")))

	res := Validate(out)
	assert.Equal(t, []string{"Missing image file: images/OEBPS/pic.png"}, res.Errors)
}

func TestValidateImagesNotExtracted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, output.ContentFile), []byte("para\n"), 0o644))
	manifest := `{"blocks": 1, "images": ["images/a.png"], "images_extracted": false}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, output.ManifestFile), []byte(manifest), 0o644))

	assert.True(t, Validate(dir).OK())
}

func TestValidateBlockCountMismatch(t *testing.T) {
	out := writeOutput(t, sampleBook(), true)
	f, err := os.OpenFile(filepath.Join(out, output.ContentFile), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("\nan extra paragraph\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res := Validate(out)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Block count mismatch: manifest=")
	assert.Contains(t, res.Errors[0], "content.md=")
}

func TestCountBlocks(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want int
	}{
		{"empty", "", 0},
		{"header only", "# Title\n\n_作者: Someone_\n\n---\n", 0},
		{
			name: "toc skipped",
			md:   "## 目录\n\n- [One](#one)\n  - [Sub](#sub)\n\n---\n\n## One\n\nbody\n",
			want: 1,
		},
		{"list items", "- a\n- b\n1. c\n", 3},
		{"headings", "## chapter\n\n### h1\n\n#### h2\n", 2},
		{"quote and code", "> quoted\n\n```\ncode\n\n```\n", 2},
		{"image", "![alt](images/a.png)\n", 1},
		{"escaped markers", "\\- text\n\n1\\. text\n", 2},
		{"toc heading followed by plain list", "## 目录\n\n- plain\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountBlocks([]byte(tt.md)))
		})
	}
}
