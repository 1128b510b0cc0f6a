package epub2md

import "strings"

// gutenbergPatterns indicate a Project Gutenberg license page on their own.
var gutenbergPatterns = []string{
	"project gutenberg license",
	"gutenberg.org/license",
	"start of the project gutenberg license",
	"end of the project gutenberg license",
	"start of this project gutenberg ebook",
	"end of this project gutenberg ebook",
}

// gutenbergComboPatterns indicate a license page when both halves appear.
var gutenbergComboPatterns = [][2]string{
	{"project gutenberg", "terms of use"},
	{"full license", "gutenberg"},
}

// isGutenbergLicense reports whether the chapter's text looks like the
// Project Gutenberg license boilerplate.
func isGutenbergLicense(blocks []Block) bool {
	var sb strings.Builder
	for _, b := range blocks {
		if b.Kind.IsText() {
			sb.WriteString(strings.ToLower(b.Text))
			sb.WriteByte('\n')
		}
	}
	text := sb.String()

	for _, pat := range gutenbergPatterns {
		if strings.Contains(text, pat) {
			return true
		}
	}
	for _, combo := range gutenbergComboPatterns {
		if strings.Contains(text, combo[0]) && strings.Contains(text, combo[1]) {
			return true
		}
	}
	return false
}

// chapterTitle picks the first usable title: navigation entry, first
// heading, then the document <title>. Generic values are skipped.
func chapterTitle(navTitle string, blocks []Block, htmlTitle string, generic *PlaceholderSet) string {
	if !generic.Match(navTitle) {
		return collapseSpaces(navTitle)
	}
	for _, b := range blocks {
		if b.Kind == KindHeading {
			if !generic.Match(b.Text) {
				return b.Text
			}
			break
		}
	}
	if !generic.Match(htmlTitle) {
		return htmlTitle
	}
	return ""
}
