package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/simp-lee/epub2md"
	"go.uber.org/zap"
)

const (
	ContentFile  = "content.md"
	ManifestFile = "manifest.json"
)

// Writer writes content.md and manifest.json into Dir as a pair: both files
// are staged under temporary names and only renamed into place once both
// were written.
type Writer struct {
	Dir string

	// Now stamps generated_at. Defaults to time.Now.
	Now func() time.Time

	Logger *zap.Logger
}

// NewWriter returns a Writer for dir.
func NewWriter(dir string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{Dir: dir, Now: time.Now, Logger: log}
}

// Write renders doc and publishes both output files.
func (w *Writer) Write(doc *epub2md.Document) (Manifest, error) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	manifest := BuildManifest(doc, now())
	manifestData, err := manifest.MarshalIndent()
	if err != nil {
		return Manifest{}, fmt.Errorf("encode manifest: %w", err)
	}

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("create output directory: %w", err)
	}

	contentTmp, err := w.stage(ContentFile, RenderMarkdown(doc))
	if err != nil {
		return Manifest{}, err
	}
	manifestTmp, err := w.stage(ManifestFile, manifestData)
	if err != nil {
		os.Remove(contentTmp)
		return Manifest{}, err
	}

	contentPath := filepath.Join(w.Dir, ContentFile)
	if err := os.Rename(contentTmp, contentPath); err != nil {
		os.Remove(contentTmp)
		os.Remove(manifestTmp)
		return Manifest{}, fmt.Errorf("publish %s: %w", ContentFile, err)
	}
	if err := os.Rename(manifestTmp, filepath.Join(w.Dir, ManifestFile)); err != nil {
		os.Remove(manifestTmp)
		os.Remove(contentPath)
		return Manifest{}, fmt.Errorf("publish %s: %w", ManifestFile, err)
	}

	w.log().Info("output written",
		zap.String("dir", w.Dir),
		zap.Int("chapters", manifest.Chapters),
		zap.Int("blocks", manifest.Blocks),
		zap.Int("images", len(manifest.Images)),
		zap.Int("missing_images", len(manifest.MissingImages)))
	return manifest, nil
}

// stage writes data next to its final name under a unique temporary name.
func (w *Writer) stage(name string, data []byte) (string, error) {
	tmp := filepath.Join(w.Dir, fmt.Sprintf(".%s.%s.tmp", name, uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return tmp, nil
}

func (w *Writer) log() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}
