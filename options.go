package epub2md

import "go.uber.org/zap"

// Options controls a parse.
type Options struct {
	// ImageStore receives extracted image bytes. A nil store disables
	// extraction; image blocks are still emitted.
	ImageStore ImageStore

	// KeepNavigation retains nav, aside, page header and footer content.
	KeepNavigation bool

	// MaxChunk is the character budget for paragraph and blockquote blocks.
	// Values <= 0 disable chunking.
	MaxChunk int

	// IncludeNonLinear also extracts spine items marked linear="no".
	IncludeNonLinear bool

	// SkipLicensePages drops chapters detected as Project Gutenberg license
	// boilerplate.
	SkipLicensePages bool

	// ExtraPlaceholders adds locale-keyed titles to the TOC placeholder table.
	ExtraPlaceholders map[string][]string

	// Logger receives progress and warnings. Nil discards them.
	Logger *zap.Logger
}

// DefaultOptions returns the options used by the command line tool before
// flags and configuration are applied.
func DefaultOptions() Options {
	return Options{MaxChunk: DefaultChunkBudget}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
