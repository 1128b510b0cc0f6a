package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/simp-lee/epub2md"
)

// Manifest is the manifest.json summary of one parse. Chapters counts spine
// items, including ones that produced no chapter.
type Manifest struct {
	SourceEPUB      string         `json:"source_epub"`
	Title           string         `json:"title,omitempty"`
	Creator         string         `json:"creator,omitempty"`
	Authors         []AuthorDetail `json:"authors,omitempty"`
	Language        string         `json:"language,omitempty"`
	Cover           string         `json:"cover,omitempty"`
	Chapters        int            `json:"chapters"`
	Blocks          int            `json:"blocks"`
	Images          []string       `json:"images"`
	ImagesExtracted bool           `json:"images_extracted"`
	MissingImages   []string       `json:"missing_images"`
	ImageDetails    []ImageDetail  `json:"image_details,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	GeneratedAt     string         `json:"generated_at"`
}

// AuthorDetail is one dc:creator entry.
type AuthorDetail struct {
	Name   string `json:"name"`
	FileAs string `json:"file_as,omitempty"`
	Role   string `json:"role,omitempty"`
}

// ImageDetail describes one distinct image reference.
type ImageDetail struct {
	Href      string `json:"href"`
	Archive   string `json:"archive_path,omitempty"`
	Path      string `json:"path,omitempty"`
	Found     bool   `json:"found"`
	External  bool   `json:"external,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Format    string `json:"format,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// BuildManifest summarises doc. now is recorded in UTC, RFC 3339.
func BuildManifest(doc *epub2md.Document, now time.Time) Manifest {
	meta := doc.Metadata()
	m := Manifest{
		SourceEPUB:      meta.SourcePath,
		Title:           meta.Title,
		Creator:         meta.Creator,
		Language:        meta.Language,
		Cover:           meta.Cover,
		Chapters:        doc.SpineItems(),
		Blocks:          doc.BlockCount(),
		Images:          doc.ExtractedImages(),
		ImagesExtracted: doc.ImagesExtracted(),
		MissingImages:   doc.MissingImages(),
		Warnings:        doc.Warnings(),
		GeneratedAt:     now.UTC().Format(time.RFC3339),
	}
	for _, au := range meta.Authors {
		m.Authors = append(m.Authors, AuthorDetail{Name: au.Name, FileAs: au.FileAs, Role: au.Role})
	}
	for _, rec := range doc.Images() {
		m.ImageDetails = append(m.ImageDetails, ImageDetail{
			Href:      rec.Href,
			Archive:   rec.ArchivePath,
			Path:      rec.ResolvedPath,
			Found:     rec.Found,
			External:  rec.External,
			MediaType: rec.MediaType,
			Format:    rec.Format,
			Width:     rec.Width,
			Height:    rec.Height,
		})
	}
	return m
}

// MarshalIndent encodes m with two-space indentation, non-ASCII text left
// unescaped and a trailing newline.
func (m Manifest) MarshalIndent() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
