package epub2md

import (
	"bytes"
	"testing"

	"github.com/simp-lee/epub2md/internal/epubtest"
)

// validContainerXML is a well-formed META-INF/container.xml pointing to an OPF.
const validContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// minimalOPF declares a single chapter at OEBPS/ch1.xhtml.
const minimalOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Minimal</dc:title>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
  </spine>
</package>`

// baseFiles returns the entries every test archive needs, merged with extra.
func baseFiles(extra map[string]string) map[string]string {
	files := map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": validContainerXML,
		"OEBPS/content.opf":      minimalOPF,
		"OEBPS/ch1.xhtml":        epubtest.XHTML("One", "<p>Hello</p>"),
	}
	for k, v := range extra {
		files[k] = v
	}
	return files
}

// openTestArchive opens an in-memory archive built from files.
func openTestArchive(t *testing.T, files map[string]string) *Archive {
	t.Helper()
	a, err := newTestArchive(t, files)
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func newTestArchive(t *testing.T, files map[string]string) (*Archive, error) {
	t.Helper()
	data := epubtest.ZipStrings(t, files)
	return NewArchive(bytes.NewReader(data), int64(len(data)))
}

// parseTestBook runs the full pipeline over book.
func parseTestBook(t *testing.T, book epubtest.Book, opts Options) *Document {
	t.Helper()
	data := book.Bytes(t)
	doc, err := ParseReader(bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	return doc
}

// onePixelPNG is a valid 1x1 RGBA PNG.
var onePixelPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
