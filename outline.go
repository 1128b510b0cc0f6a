package epub2md

import (
	"strconv"
	"strings"
	"unicode"
)

// TOCHeading is the title of the rendered table-of-contents section.
const TOCHeading = "目录"

// SynthesizeTOC derives a two-level outline from the level-1 and level-2
// headings of chapters. Level-2 headings nest under the closest preceding
// level-1 entry, or become top-level entries when there is none. Headings
// matched by placeholders are left out; a filtered level-1 heading also ends
// the nesting scope of the entry before it.
//
// Targets are the anchors the headings receive in the rendered Markdown,
// so bookTitle must be the title the renderer emits.
func SynthesizeTOC(bookTitle string, chapters []ChapterUnit, placeholders *PlaceholderSet) []TOCEntry {
	if placeholders == nil {
		placeholders = DefaultTOCPlaceholders.Compile(true)
	}

	toc := []TOCEntry{}
	parent := -1
	for _, ch := range chapters {
		for _, b := range ch.Blocks {
			if b.Kind != KindHeading || b.Level > 2 {
				continue
			}
			if placeholders.Match(b.Text) {
				if b.Level == 1 {
					parent = -1
				}
				continue
			}
			entry := TOCEntry{Title: b.Text, Level: b.Level, Order: b.Order}
			switch {
			case b.Level == 1:
				toc = append(toc, entry)
				parent = len(toc) - 1
			case parent >= 0:
				toc[parent].Children = append(toc[parent].Children, entry)
			default:
				toc = append(toc, entry)
			}
		}
	}
	if len(toc) == 0 {
		return toc
	}

	anchors := headingAnchors(bookTitle, chapters)
	for i := range toc {
		toc[i].Target = anchors[toc[i].Order]
		for j := range toc[i].Children {
			toc[i].Children[j].Target = anchors[toc[i].Children[j].Order]
		}
	}
	return toc
}

// headingAnchors replays the rendered heading sequence through a Slugger and
// returns the anchor of every body heading keyed by block Order.
func headingAnchors(bookTitle string, chapters []ChapterUnit) map[int]string {
	s := NewSlugger()
	if bookTitle != "" {
		s.Next(bookTitle)
	}
	s.Next(TOCHeading)

	anchors := make(map[int]string)
	for _, ch := range chapters {
		if len(ch.Blocks) == 0 {
			continue
		}
		s.Next(ch.DisplayTitle())
		for _, b := range ch.Blocks {
			if b.Kind == KindHeading {
				anchors[b.Order] = s.Next(b.Text)
			}
		}
	}
	return anchors
}

// Slugify converts heading text into a GitHub-style anchor: lower case,
// punctuation removed, spaces turned into hyphens. Letters of every script
// are kept as-is.
func Slugify(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsMark(r), r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "section"
	}
	return b.String()
}

// Slugger hands out unique anchors, suffixing repeats with -1, -2, ...
type Slugger struct {
	used map[string]bool
	seen map[string]int
}

// NewSlugger returns an empty Slugger.
func NewSlugger() *Slugger {
	return &Slugger{used: make(map[string]bool), seen: make(map[string]int)}
}

// Next returns the anchor for the next heading with the given text.
func (s *Slugger) Next(text string) string {
	base := Slugify(text)
	slug := base
	for s.used[slug] {
		s.seen[base]++
		slug = base + "-" + strconv.Itoa(s.seen[base])
	}
	s.used[slug] = true
	return slug
}
