package epub2md

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxEntrySize caps the decompressed size of a single archive entry.
const maxEntrySize int64 = 256 * 1024 * 1024

// resolveHref resolves href against the directory of basePath and returns a
// cleaned archive-internal path. Query and fragment parts are dropped, percent
// escapes are decoded and the result is NFC-normalised so that decomposed
// names written by some authoring tools still match manifest entries.
// An empty string is returned when href is absolute or escapes the archive.
func resolveHref(basePath, href string) string {
	href = strings.TrimSpace(href)
	href = stripFragment(href)
	if i := strings.IndexByte(href, '?'); i >= 0 {
		href = href[:i]
	}
	if href == "" || strings.HasPrefix(href, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	href = norm.NFC.String(href)

	cleaned := path.Clean(path.Join(path.Dir(basePath), href))
	if !isSafePath(cleaned) {
		return ""
	}
	return cleaned
}

// stripFragment returns href without its "#fragment" suffix.
func stripFragment(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}

// isSafePath reports whether p stays inside the archive root.
func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	return cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}

// stripBOM removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// readZipFile reads a ZIP entry, rejecting unsafe names and oversized payloads.
func readZipFile(f *zip.File) ([]byte, error) {
	return readZipFileWithLimit(f, maxEntrySize)
}

func readZipFileWithLimit(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("epub: unsafe zip entry path: %s", f.Name)
	}
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("epub: zip entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// The declared size may be forged; read one byte past the limit to notice.
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("epub: read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("epub: zip entry %s decompressed size exceeds limit (%d bytes)", f.Name, limit)
	}
	return data, nil
}
