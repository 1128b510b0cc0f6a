package epub2md

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the epub2md package.
var (
	// ErrContainer indicates the input is not a readable ePub container
	// (not a ZIP archive, or missing META-INF/container.xml or its rootfile).
	ErrContainer = errors.New("epub: invalid ePub container")

	// ErrDRMProtected indicates the ePub file is protected by DRM
	// (e.g., Adobe ADEPT, Apple FairPlay, Readium LCP) and cannot be read.
	// Errors carrying it also match ErrContainer.
	ErrDRMProtected = errors.New("epub: file is DRM protected")

	// ErrEntryNotFound indicates the requested entry does not exist
	// in the ePub archive.
	ErrEntryNotFound = errors.New("epub: entry not found in archive")

	// ErrMalformedPackage indicates the package document (OPF) could not be
	// parsed or declares no spine.
	ErrMalformedPackage = errors.New("epub: malformed package document")

	// ErrChapterParse indicates a single spine item could not be read or parsed.
	ErrChapterParse = errors.New("epub: chapter could not be parsed")

	// ErrNavigationUnavailable indicates the navigation document is missing
	// or unreadable.
	ErrNavigationUnavailable = errors.New("epub: navigation unavailable")

	// ErrMissingImage indicates an image reference did not resolve to an
	// archive entry.
	ErrMissingImage = errors.New("epub: image not found in archive")
)

// ChapterError reports a spine item that was skipped during extraction.
type ChapterError struct {
	Index int
	Href  string
	Err   error
}

func (e *ChapterError) Error() string {
	return fmt.Sprintf("epub: chapter %d (%s): %v", e.Index+1, e.Href, e.Err)
}

// Unwrap exposes both ErrChapterParse and the underlying cause to errors.Is.
func (e *ChapterError) Unwrap() []error {
	return []error{ErrChapterParse, e.Err}
}

// drmError joins ErrDRMProtected with ErrContainer so callers can match either.
func drmError(detail string) error {
	return fmt.Errorf("epub: %s: %w", detail, errors.Join(ErrContainer, ErrDRMProtected))
}
