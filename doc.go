// Package epub2md extracts ePub 2 and ePub 3 books into an ordered stream of
// typed blocks ready for Markdown rendering.
//
// The pipeline opens the container, loads the package document, resolves
// the navigation document, walks every linear spine item into [Block] values,
// splits long paragraphs under a character budget, resolves image references
// and finally synthesizes a two-level table of contents from the headings.
// DRM-protected files are detected and rejected with [ErrDRMProtected].
//
// # Parsing a book
//
//	doc, err := epub2md.Parse("book.epub", epub2md.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, b := range doc.Blocks() {
//	    fmt.Println(b.Order, b.Kind, b.Text)
//	}
//
// Set [Options.ImageStore] (for example a [DirImageStore]) to have images
// written out; without a store image blocks are still produced and point at
// images/<archive path>.
//
// # Block order
//
// Every block carries an Order drawn from a [Sequence] threaded through the
// [Extractor]. Orders strictly increase in spine order, then document order,
// and survive chunking.
//
// # Error handling
//
// Fatal problems are returned as errors:
//   - [ErrContainer] – the file is not a readable ePub container
//   - [ErrDRMProtected] – the file is DRM encrypted (also matches ErrContainer)
//   - [ErrMalformedPackage] – the OPF is not well formed or has no spine
//
// Recoverable problems ([ErrChapterParse], [ErrNavigationUnavailable],
// [ErrMissingImage]) are reported through [Document.Warnings] and
// [Document.MissingImages].
package epub2md
