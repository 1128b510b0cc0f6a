package epub2md

import "fmt"

// BlockKind is the closed set of block types produced by extraction.
type BlockKind int

const (
	KindHeading BlockKind = iota + 1
	KindParagraph
	KindListItem
	KindOrderedListItem
	KindBlockquote
	KindCodeBlock
	KindImage
)

func (k BlockKind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindListItem:
		return "list_item"
	case KindOrderedListItem:
		return "ordered_list_item"
	case KindBlockquote:
		return "blockquote"
	case KindCodeBlock:
		return "code_block"
	case KindImage:
		return "image"
	default:
		return fmt.Sprintf("BlockKind(%d)", int(k))
	}
}

// IsText reports whether blocks of kind k carry their content in Text.
func (k BlockKind) IsText() bool {
	return k >= KindHeading && k <= KindCodeBlock
}

// Chunkable reports whether the chunker may split blocks of kind k.
func (k BlockKind) Chunkable() bool {
	return k == KindParagraph || k == KindBlockquote
}

// Block is one atomic unit of extracted content.
type Block struct {
	Kind BlockKind

	// Text is the plain text content. Empty for images. Code blocks keep
	// their internal whitespace verbatim.
	Text string

	// Level is 1-6 for headings and 0 otherwise.
	Level int

	// Alt and Src are set for images. Src is the href exactly as written in
	// the markup.
	Alt string
	Src string

	// ImagePath is the reference rendered for an image: the extracted
	// relative path, or Src when the image could not be resolved.
	ImagePath string

	// ChapterIndex is the position of the producing chapter in the reading order.
	ChapterIndex int

	// Order is the block's global position. It strictly increases across a parse.
	Order int
}

// Sequence hands out strictly increasing block orders for one parse.
// The zero value starts at 1.
type Sequence struct {
	last int
}

// Next returns the next order value.
func (s *Sequence) Next() int {
	s.last++
	return s.last
}

// Last returns the most recently issued order, or 0.
func (s *Sequence) Last() int {
	return s.last
}

// ChapterUnit is one extracted spine item.
type ChapterUnit struct {
	// Index is the 0-based position in the reading order.
	Index int
	ID    string
	Href  string

	// Title comes from the navigation document, the first heading or the
	// HTML <title>, whichever yields a non-generic value first. It may be empty.
	Title string

	// License marks a Project Gutenberg license page.
	License bool

	Blocks []Block
}

// DisplayTitle returns Title, or "chapter-NNN" when the chapter has none.
func (c ChapterUnit) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return fmt.Sprintf("chapter-%03d", c.Index+1)
}

// BookMetadata describes the source book.
type BookMetadata struct {
	SourcePath string
	Title      string

	// Creator is the first dc:creator with the "aut" role, else the first
	// dc:creator, else the ePub 2 <meta name="author">.
	Creator  string
	Language string

	// Authors lists every dc:creator in document order.
	Authors []Author

	// Cover is the relative path of the extracted cover image, if any.
	Cover string
}

// ImageRecord reports what happened to one referenced image.
type ImageRecord struct {
	// Href is the reference as written in the markup.
	Href string

	// ArchivePath is the resolved entry name; empty for external references.
	ArchivePath string

	// ResolvedPath is the output-relative location, set when extracted.
	ResolvedPath string

	Found     bool
	Extracted bool
	External  bool

	MediaType string
	Format    string
	Width     int
	Height    int
}

// TOCEntry is one node of the synthesized outline.
type TOCEntry struct {
	Title  string
	Level  int
	Target string

	// Order is the Order of the heading block the entry points at.
	Order    int
	Children []TOCEntry
}

// NavEntry is one flattened navigation document entry.
type NavEntry struct {
	Title string

	// Level is the 1-based nesting depth in the navigation document.
	Level int

	// Target is the archive path of the referenced document, fragment removed.
	Target   string
	Fragment string
}
