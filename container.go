package epub2md

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	// containerPath is the well-known location of container.xml in an ePub archive.
	containerPath = "META-INF/container.xml"

	// expectedMimetype is the required content of the "mimetype" entry.
	expectedMimetype = "application/epub+zip"

	packageMediaType = "application/oebps-package+xml"
)

// containerXML models the META-INF/container.xml file used to locate the OPF.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// Archive is an opened ePub container. It indexes the ZIP entries, knows where
// the package document lives and exposes byte access to named entries.
//
// An Archive is not safe for concurrent use by multiple goroutines.
type Archive struct {
	zip         *zip.Reader
	exact       map[string]*zip.File
	lower       map[string]*zip.File
	closer      io.Closer // non-nil only when created via OpenArchive
	packagePath string
	warnings    []string
}

// OpenArchive opens the ePub file at path. The caller must Close the archive.
// Failures wrap ErrContainer; DRM-protected files additionally match
// ErrDRMProtected.
func OpenArchive(path string) (*Archive, error) {
	zrc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("epub: open %s: %w: %w", path, ErrContainer, err)
	}
	a, err := newArchive(&zrc.Reader, zrc)
	if err != nil {
		zrc.Close()
		return nil, err
	}
	return a, nil
}

// NewArchive opens an ePub from r. The caller owns r; Close only releases
// internal state.
func NewArchive(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("epub: open zip: %w: %w", ErrContainer, err)
	}
	return newArchive(zr, nil)
}

func newArchive(zr *zip.Reader, closer io.Closer) (*Archive, error) {
	a := &Archive{zip: zr, closer: closer}
	a.buildIndex()
	a.validateMimetype()

	f := a.lookup(containerPath)
	if f == nil {
		return nil, fmt.Errorf("epub: %s not found: %w", containerPath, ErrContainer)
	}
	pkgPath, err := parseContainerXML(f)
	if err != nil {
		return nil, err
	}
	a.packagePath = pkgPath

	fontObfuscation, err := checkDRM(a)
	if err != nil {
		return nil, err
	}
	if fontObfuscation {
		a.warnings = append(a.warnings, "font obfuscation detected; obfuscated fonts are not extracted")
	}
	return a, nil
}

// parseContainerXML decodes container.xml and returns the package document
// path, preferring a rootfile with the OPF media type.
func parseContainerXML(f *zip.File) (string, error) {
	data, err := readZipFile(f)
	if err != nil {
		return "", fmt.Errorf("epub: read container.xml: %w: %w", ErrContainer, err)
	}

	var c containerXML
	if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
		return "", fmt.Errorf("epub: parse container.xml: %w: %w", ErrContainer, err)
	}

	var fallback string
	for _, rf := range c.RootFiles {
		fullPath := strings.TrimSpace(rf.FullPath)
		if fullPath == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.MediaType), packageMediaType) {
			return fullPath, nil
		}
		if fallback == "" {
			fallback = fullPath
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("epub: container.xml has no usable rootfile: %w", ErrContainer)
	}
	return fallback, nil
}

// validateMimetype records a warning when the first entry is not a correct
// "mimetype" file. Many readers tolerate this, so it is never fatal.
func (a *Archive) validateMimetype() {
	if len(a.zip.File) == 0 {
		a.warnings = append(a.warnings, "empty ZIP archive; mimetype entry missing")
		return
	}
	first := a.zip.File[0]
	if first.Name != "mimetype" {
		a.warnings = append(a.warnings, `first ZIP entry is not "mimetype"`)
		return
	}
	data, err := readZipFile(first)
	if err != nil {
		a.warnings = append(a.warnings, fmt.Sprintf("cannot read mimetype entry: %v", err))
		return
	}
	if got := strings.TrimSpace(string(data)); got != expectedMimetype {
		a.warnings = append(a.warnings, fmt.Sprintf("unexpected mimetype: %q", got))
	}
}

func (a *Archive) buildIndex() {
	a.exact = make(map[string]*zip.File, len(a.zip.File))
	a.lower = make(map[string]*zip.File, len(a.zip.File))
	for _, f := range a.zip.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		if _, ok := a.exact[f.Name]; !ok {
			a.exact[f.Name] = f
		}
		lower := strings.ToLower(f.Name)
		if _, ok := a.lower[lower]; !ok {
			a.lower[lower] = f
		}
	}
}

// lookup finds an entry by exact name, then case-insensitively.
func (a *Archive) lookup(name string) *zip.File {
	if f, ok := a.exact[name]; ok {
		return f
	}
	if f, ok := a.lower[strings.ToLower(name)]; ok {
		return f
	}
	return nil
}

// PackagePath returns the archive path of the package document (OPF).
func (a *Archive) PackagePath() string {
	return a.packagePath
}

// ReadEntry returns the bytes of the named entry. Lookup falls back to a
// case-insensitive match. Unknown names fail with ErrEntryNotFound.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	f := a.lookup(name)
	if f == nil {
		return nil, fmt.Errorf("epub: %s: %w", name, ErrEntryNotFound)
	}
	return readZipFile(f)
}

// Resolve returns the stored name of the entry matching name, if any.
func (a *Archive) Resolve(name string) (string, bool) {
	f := a.lookup(name)
	if f == nil {
		return "", false
	}
	return f.Name, true
}

// Has reports whether the archive contains name.
func (a *Archive) Has(name string) bool {
	return a.lookup(name) != nil
}

// Entries returns the sorted names of all file entries.
func (a *Archive) Entries() []string {
	names := make([]string, 0, len(a.exact))
	for name := range a.exact {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Warnings returns non-fatal issues noticed while opening the archive.
func (a *Archive) Warnings() []string {
	return append([]string(nil), a.warnings...)
}

// Close releases the underlying file when the archive was opened by path.
// Close is idempotent.
func (a *Archive) Close() error {
	if a.closer != nil {
		err := a.closer.Close()
		a.closer = nil
		return err
	}
	return nil
}
