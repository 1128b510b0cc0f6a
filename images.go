package epub2md

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImagesDir is the output subdirectory extracted images are written under.
const ImagesDir = "images"

// ImageStore persists extracted image bytes under an output-relative,
// slash-separated path.
type ImageStore interface {
	Put(relPath string, data []byte) error
}

// DirImageStore writes images below a root directory on disk.
type DirImageStore struct {
	Root string
}

// Put writes data to Root/relPath, creating parent directories.
func (s DirImageStore) Put(relPath string, data []byte) error {
	target := filepath.Join(s.Root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create image directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write image %s: %w", relPath, err)
	}
	return nil
}

// ImageResolver maps image references to archive entries and, when a store
// is configured, extracts each distinct entry exactly once.
type ImageResolver struct {
	archive *Archive
	pkg     *Package
	store   ImageStore
	log     *zap.Logger

	records  []ImageRecord
	byKey    map[string]int    // archive path, or raw href when unresolved
	outNames map[string]string // archive path -> output path
	usedOut  map[string]bool   // lower-cased output paths
	missing  []string
	warnings []string
}

// NewImageResolver returns a resolver over a. A nil store disables
// extraction; references still resolve to their would-be output path.
func NewImageResolver(a *Archive, pkg *Package, store ImageStore, log *zap.Logger) *ImageResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImageResolver{
		archive:  a,
		pkg:      pkg,
		store:    store,
		log:      log,
		byKey:    make(map[string]int),
		outNames: make(map[string]string),
		usedOut:  make(map[string]bool),
	}
}

// Extracting reports whether image bytes are written.
func (r *ImageResolver) Extracting() bool {
	return r.store != nil
}

// Resolve sets ImagePath on every image block of a chapter whose document
// lives at chapterHref. Unresolvable references fall back to their original
// href and are recorded as missing.
func (r *ImageResolver) Resolve(chapterHref string, blocks []Block) {
	for i := range blocks {
		if blocks[i].Kind != KindImage {
			continue
		}
		blocks[i].ImagePath = r.resolveOne(chapterHref, blocks[i].Src)
	}
}

func (r *ImageResolver) resolveOne(baseHref, src string) string {
	if hasURIScheme(src) || strings.HasPrefix(src, "//") {
		if _, seen := r.byKey[src]; !seen {
			r.add(src, ImageRecord{Href: src, External: true})
		}
		return src
	}

	archivePath := ""
	if resolved := resolveHref(baseHref, src); resolved != "" {
		archivePath, _ = r.archive.Resolve(resolved)
	}
	if archivePath == "" {
		if _, seen := r.byKey[src]; !seen {
			r.add(src, ImageRecord{Href: src})
			r.missing = append(r.missing, src)
			r.log.Warn("image reference not found in archive",
				zap.String("href", src), zap.String("document", baseHref))
		}
		return src
	}

	if i, seen := r.byKey[archivePath]; seen {
		return r.outputPath(r.records[i])
	}
	return r.outputPath(r.extract(src, archivePath))
}

// outputPath is what the renderer emits for a found image.
func (r *ImageResolver) outputPath(rec ImageRecord) string {
	if rec.ResolvedPath != "" {
		return rec.ResolvedPath
	}
	return path.Join(ImagesDir, rec.ArchivePath)
}

// extract records archivePath and writes it out when extraction is enabled.
func (r *ImageResolver) extract(href, archivePath string) ImageRecord {
	rec := ImageRecord{Href: href, ArchivePath: archivePath, Found: true}
	if item, ok := r.pkg.ItemByPath(archivePath); ok {
		rec.MediaType = item.MediaType
	}

	if r.store == nil {
		r.add(archivePath, rec)
		return rec
	}

	data, err := r.archive.ReadEntry(archivePath)
	if err != nil {
		r.warn(fmt.Sprintf("read image %s: %v", archivePath, err))
		r.add(archivePath, rec)
		return rec
	}

	out := r.uniqueOutputName(archivePath)
	if err := r.store.Put(out, data); err != nil {
		r.warn(fmt.Sprintf("extract image %s: %v", archivePath, err))
		r.add(archivePath, rec)
		return rec
	}
	rec.ResolvedPath = out
	rec.Extracted = true
	r.decodeConfig(&rec, data)

	r.log.Debug("image extracted", zap.String("archive_path", archivePath), zap.String("output", out))
	r.add(archivePath, rec)
	return rec
}

// ExtractEntry extracts an archive entry that is not referenced by any block,
// such as the cover image, and returns its output path.
func (r *ImageResolver) ExtractEntry(archivePath string) (string, error) {
	stored, ok := r.archive.Resolve(archivePath)
	if !ok {
		return "", fmt.Errorf("epub: %s: %w", archivePath, ErrMissingImage)
	}
	if i, seen := r.byKey[stored]; seen {
		if r.records[i].Extracted {
			return r.records[i].ResolvedPath, nil
		}
		return "", fmt.Errorf("epub: %s was not extracted", stored)
	}
	rec := r.extract(stored, stored)
	if !rec.Extracted {
		return "", fmt.Errorf("epub: %s was not extracted", stored)
	}
	return rec.ResolvedPath, nil
}

// uniqueOutputName maps an archive path to images/<path>, appending -2, -3, ...
// before the extension when the name clashes case-insensitively.
func (r *ImageResolver) uniqueOutputName(archivePath string) string {
	if out, ok := r.outNames[archivePath]; ok {
		return out
	}
	candidate := path.Join(ImagesDir, archivePath)
	ext := path.Ext(candidate)
	stem := strings.TrimSuffix(candidate, ext)
	for n := 2; r.usedOut[strings.ToLower(candidate)]; n++ {
		candidate = stem + "-" + strconv.Itoa(n) + ext
	}
	r.usedOut[strings.ToLower(candidate)] = true
	r.outNames[archivePath] = candidate
	return candidate
}

// decodeConfig fills in the format and pixel dimensions when the codec is known.
func (r *ImageResolver) decodeConfig(rec *ImageRecord, data []byte) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if !strings.Contains(rec.MediaType, "svg") {
			r.log.Debug("image dimensions unavailable", zap.String("archive_path", rec.ArchivePath), zap.Error(err))
		}
		return
	}
	rec.Format = format
	rec.Width = cfg.Width
	rec.Height = cfg.Height
}

func (r *ImageResolver) add(key string, rec ImageRecord) {
	r.byKey[key] = len(r.records)
	r.records = append(r.records, rec)
}

func (r *ImageResolver) warn(msg string) {
	r.warnings = append(r.warnings, msg)
	r.log.Warn(msg)
}

// Records returns one record per distinct reference, in first-seen order.
func (r *ImageResolver) Records() []ImageRecord {
	return append([]ImageRecord(nil), r.records...)
}

// Extracted returns the output paths of all extracted images.
func (r *ImageResolver) Extracted() []string {
	out := []string{}
	for _, rec := range r.records {
		if rec.Extracted {
			out = append(out, rec.ResolvedPath)
		}
	}
	return out
}

// Missing returns unresolvable hrefs in first-seen order.
func (r *ImageResolver) Missing() []string {
	return append([]string{}, r.missing...)
}

// Warnings returns read and write failures hit while extracting.
func (r *ImageResolver) Warnings() []string {
	return append([]string(nil), r.warnings...)
}
