// Package epubtest builds small in-memory ePub archives for tests.
package epubtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Chapter is one XHTML spine item.
type Chapter struct {
	ID        string
	Href      string // relative to OEBPS/
	Title     string // written to <title>
	Body      string // inner HTML of <body>
	NonLinear bool
}

// Book describes a minimal ePub 3 book. Files adds or overrides raw archive
// entries; Images adds manifest image items under OEBPS/.
type Book struct {
	Title    string
	Creator  string
	Language string
	Chapters []Chapter
	Nav      string // nav document body; empty means no nav document
	Images   map[string][]byte
	Files    map[string]string
}

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// Entries renders the book to archive entries.
func (b Book) Entries() map[string][]byte {
	files := map[string][]byte{
		"mimetype":               []byte("application/epub+zip"),
		"META-INF/container.xml": []byte(containerXML),
	}

	var manifest, spine strings.Builder
	for i, ch := range b.Chapters {
		id := ch.ID
		if id == "" {
			id = fmt.Sprintf("ch%d", i+1)
		}
		href := ch.Href
		if href == "" {
			href = fmt.Sprintf("ch%d.xhtml", i+1)
		}
		fmt.Fprintf(&manifest, `    <item id="%s" href="%s" media-type="application/xhtml+xml"/>`+"\n", id, href)
		if ch.NonLinear {
			fmt.Fprintf(&spine, `    <itemref idref="%s" linear="no"/>`+"\n", id)
		} else {
			fmt.Fprintf(&spine, `    <itemref idref="%s"/>`+"\n", id)
		}
		files["OEBPS/"+href] = []byte(XHTML(ch.Title, ch.Body))
	}
	if b.Nav != "" {
		manifest.WriteString(`    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
		files["OEBPS/nav.xhtml"] = []byte(XHTML("Navigation", b.Nav))
	}

	names := make([]string, 0, len(b.Images))
	for name := range b.Images {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		fmt.Fprintf(&manifest, `    <item id="img%d" href="%s" media-type="%s"/>`+"\n", i+1, name, mediaType(name))
		files["OEBPS/"+name] = b.Images[name]
	}

	var meta strings.Builder
	if b.Title != "" {
		fmt.Fprintf(&meta, "    <dc:title>%s</dc:title>\n", b.Title)
	}
	if b.Creator != "" {
		fmt.Fprintf(&meta, "    <dc:creator>%s</dc:creator>\n", b.Creator)
	}
	lang := b.Language
	if lang == "" {
		lang = "en"
	}
	fmt.Fprintf(&meta, "    <dc:language>%s</dc:language>\n", lang)

	files["OEBPS/content.opf"] = []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="uid">urn:uuid:test</dc:identifier>
%s  </metadata>
  <manifest>
%s  </manifest>
  <spine>
%s  </spine>
</package>`, meta.String(), manifest.String(), spine.String()))

	for name, content := range b.Files {
		files[name] = []byte(content)
	}
	return files
}

// Bytes returns the book as a ZIP archive.
func (b Book) Bytes(t testing.TB) []byte {
	t.Helper()
	return Zip(t, b.Entries())
}

// WriteFile writes the book to a temporary .epub file and returns its path.
func (b Book) WriteFile(t testing.TB) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "book.epub")
	if err := os.WriteFile(p, b.Bytes(t), 0o644); err != nil {
		t.Fatalf("epubtest: write %s: %v", p, err)
	}
	return p
}

// XHTML wraps body in a minimal XHTML document.
func XHTML(title, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>` + title + `</title></head>
<body>` + body + `</body>
</html>`
}

// Zip archives files, writing mimetype first and stored when present.
func Zip(t testing.TB, files map[string][]byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	if mt, ok := files["mimetype"]; ok {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
		if err != nil {
			t.Fatalf("epubtest: create mimetype: %v", err)
		}
		if _, err := fw.Write(mt); err != nil {
			t.Fatalf("epubtest: write mimetype: %v", err)
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		if name != "mimetype" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("epubtest: create %s: %v", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			t.Fatalf("epubtest: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("epubtest: close writer: %v", err)
	}
	return buf.Bytes()
}

// ZipStrings is Zip for string contents.
func ZipStrings(t testing.TB, files map[string]string) []byte {
	t.Helper()
	m := make(map[string][]byte, len(files))
	for k, v := range files {
		m[k] = []byte(v)
	}
	return Zip(t, m)
}

func mediaType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
