package epub2md

// Document is the immutable result of a parse. Accessors return copies, so
// callers can never alter the snapshot.
type Document struct {
	metadata        BookMetadata
	spineItems      int
	chapters        []ChapterUnit
	toc             []TOCEntry
	navigation      []NavEntry
	images          []ImageRecord
	extracted       []string
	missing         []string
	imagesExtracted bool
	warnings        []string
}

// Metadata returns the book metadata.
func (d *Document) Metadata() BookMetadata {
	meta := d.metadata
	meta.Authors = append([]Author(nil), d.metadata.Authors...)
	return meta
}

// SpineItems returns the number of spine items in the package, counting the
// ones that were skipped, failed to parse or were left out as non-linear.
func (d *Document) SpineItems() int {
	return d.spineItems
}

// Chapters returns the extracted chapters in reading order.
func (d *Document) Chapters() []ChapterUnit {
	out := make([]ChapterUnit, len(d.chapters))
	for i, ch := range d.chapters {
		out[i] = ch
		out[i].Blocks = append([]Block(nil), ch.Blocks...)
	}
	return out
}

// Blocks returns every block of every chapter in Order.
func (d *Document) Blocks() []Block {
	out := make([]Block, 0, d.BlockCount())
	for _, ch := range d.chapters {
		out = append(out, ch.Blocks...)
	}
	return out
}

// BlockCount returns the total number of blocks after chunking.
func (d *Document) BlockCount() int {
	n := 0
	for _, ch := range d.chapters {
		n += len(ch.Blocks)
	}
	return n
}

// TOC returns the synthesized outline.
func (d *Document) TOC() []TOCEntry {
	return copyTOCEntries(d.toc)
}

// Navigation returns the flattened navigation document, empty when the book
// has none.
func (d *Document) Navigation() []NavEntry {
	return append([]NavEntry{}, d.navigation...)
}

// Images returns one record per distinct image reference.
func (d *Document) Images() []ImageRecord {
	return append([]ImageRecord{}, d.images...)
}

// ExtractedImages returns the output-relative paths of extracted images.
func (d *Document) ExtractedImages() []string {
	return append([]string{}, d.extracted...)
}

// MissingImages returns hrefs that did not resolve to an archive entry.
func (d *Document) MissingImages() []string {
	return append([]string{}, d.missing...)
}

// ImagesExtracted reports whether image bytes were written.
func (d *Document) ImagesExtracted() bool {
	return d.imagesExtracted
}

// Warnings returns the recoverable problems met during the parse.
func (d *Document) Warnings() []string {
	return append([]string{}, d.warnings...)
}

func copyTOCEntries(in []TOCEntry) []TOCEntry {
	if in == nil {
		return nil
	}
	out := make([]TOCEntry, len(in))
	for i := range in {
		out[i] = in[i]
		out[i].Children = copyTOCEntries(in[i].Children)
	}
	return out
}
