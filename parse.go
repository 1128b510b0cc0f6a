package epub2md

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Parse opens the ePub at path and extracts it into a Document.
//
// Container and package failures are returned as errors before anything is
// written to opts.ImageStore. Chapter, navigation and image problems are
// recorded in Document.Warnings and never fail the parse.
func Parse(path string, opts Options) (*Document, error) {
	a, err := OpenArchive(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	doc, err := ParseArchive(a, opts)
	if err != nil {
		return nil, err
	}
	doc.metadata.SourcePath = path
	return doc, nil
}

// ParseReader is Parse for an ePub held in r.
func ParseReader(r io.ReaderAt, size int64, opts Options) (*Document, error) {
	a, err := NewArchive(r, size)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return ParseArchive(a, opts)
}

// ParseArchive runs the extraction pipeline over an opened archive.
func ParseArchive(a *Archive, opts Options) (*Document, error) {
	log := opts.logger()

	opfData, err := a.ReadEntry(a.PackagePath())
	if err != nil {
		return nil, fmt.Errorf("epub: read package document: %w: %w", ErrContainer, err)
	}
	pkg, err := ParsePackage(opfData, a.PackagePath())
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		archive:  a,
		pkg:      pkg,
		opts:     opts,
		log:      log,
		warnings: append(a.Warnings(), pkg.Warnings...),
	}
	return p.run(), nil
}

type pipeline struct {
	archive  *Archive
	pkg      *Package
	opts     Options
	log      *zap.Logger
	warnings []string
}

func (p *pipeline) run() *Document {
	nav, err := ResolveNavigation(p.archive, p.pkg)
	if err != nil {
		p.warn(fmt.Sprintf("navigation unavailable: %v", err))
	}
	navTitle := navTitles(nav)

	extractor := NewExtractor(p.opts.KeepNavigation, NewChunker(p.opts.MaxChunk))
	resolver := NewImageResolver(p.archive, p.pkg, p.opts.ImageStore, p.log)
	generic := DefaultGenericTitles.Compile(false)
	seq := &Sequence{}

	var chapters []ChapterUnit
	for i, si := range p.pkg.ReadingOrder(p.opts.IncludeNonLinear) {
		ch, err := p.extractChapter(extractor, seq, i, si)
		if err != nil {
			p.warn(err.Error(), zap.Int("chapter", i+1), zap.String("href", si.Href))
			continue
		}
		ch.Title = chapterTitle(navTitle[si.Href], ch.Blocks, ch.Title, generic)
		ch.License = isGutenbergLicense(ch.Blocks)
		if ch.License && p.opts.SkipLicensePages {
			p.log.Info("skipping license page", zap.String("href", si.Href))
			continue
		}
		resolver.Resolve(si.Href, ch.Blocks)
		chapters = append(chapters, ch)

		p.log.Debug("chapter extracted",
			zap.Int("chapter", i+1),
			zap.String("href", si.Href),
			zap.Int("blocks", len(ch.Blocks)))
	}

	meta := BookMetadata{
		Title:    p.pkg.Title,
		Creator:  p.pkg.Creator,
		Language: p.pkg.Language,
		Authors:  p.pkg.Authors,
	}
	if resolver.Extracting() {
		if coverPath, ok := DetectCover(p.archive, p.pkg); ok {
			out, err := resolver.ExtractEntry(coverPath)
			if err != nil {
				p.warn(fmt.Sprintf("cover image %s not extracted: %v", coverPath, err))
			} else {
				meta.Cover = out
			}
		}
	}

	placeholders := DefaultTOCPlaceholders.Merge(p.opts.ExtraPlaceholders).Compile(true)
	p.warnings = append(p.warnings, resolver.Warnings()...)

	return &Document{
		metadata:        meta,
		spineItems:      len(p.pkg.Spine),
		chapters:        chapters,
		toc:             SynthesizeTOC(meta.Title, chapters, placeholders),
		navigation:      nav,
		images:          resolver.Records(),
		extracted:       resolver.Extracted(),
		missing:         resolver.Missing(),
		imagesExtracted: resolver.Extracting(),
		warnings:        p.warnings,
	}
}

// extractChapter reads and extracts one spine item. The returned unit's Title
// holds the HTML <title> until the caller picks the final title.
func (p *pipeline) extractChapter(ex *Extractor, seq *Sequence, index int, si SpineItem) (ChapterUnit, error) {
	data, err := p.archive.ReadEntry(si.Href)
	if err != nil {
		return ChapterUnit{}, &ChapterError{Index: index, Href: si.Href, Err: err}
	}
	res, err := ex.Extract(data, index, seq)
	if err != nil {
		return ChapterUnit{}, &ChapterError{Index: index, Href: si.Href, Err: err}
	}
	return ChapterUnit{
		Index:  index,
		ID:     si.IDRef,
		Href:   si.Href,
		Title:  res.HTMLTitle,
		Blocks: res.Blocks,
	}, nil
}

func (p *pipeline) warn(msg string, fields ...zap.Field) {
	p.warnings = append(p.warnings, msg)
	p.log.Warn(msg, fields...)
}
