package epub2md

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// PlaceholderTable maps a locale to normalized titles that carry no meaning
// of their own. Entries are compared after trimming, whitespace folding and
// Unicode case folding.
type PlaceholderTable map[string][]string

// DefaultTOCPlaceholders lists headings kept in the body but left out of the
// synthesized table of contents.
var DefaultTOCPlaceholders = PlaceholderTable{
	"en": {"contents", "table of contents", "toc", "cover", "title page", "titlepage", "copyright", "index"},
	"zh": {"目录", "目錄", "封面", "版权页", "版權頁", "索引"},
}

// DefaultGenericTitles lists values that never make a usable chapter title.
var DefaultGenericTitles = PlaceholderTable{
	"en": {"unknown", "untitled", "title"},
	"zh": {"未知", "无标题", "無標題"},
}

// chapterNumberPattern matches generated stand-ins such as "chapter-7",
// "chapter_12" or "Chapter 3".
var chapterNumberPattern = regexp.MustCompile(`^chapter[-_ ]\d+$`)

// Merge returns a new table holding the entries of t and extra.
func (t PlaceholderTable) Merge(extra map[string][]string) PlaceholderTable {
	out := make(PlaceholderTable, len(t)+len(extra))
	for locale, words := range t {
		out[locale] = append([]string(nil), words...)
	}
	for locale, words := range extra {
		out[locale] = append(out[locale], words...)
	}
	return out
}

// Compile builds a matcher. Chapter-number stand-ins are matched when
// withChapterNumbers is set.
func (t PlaceholderTable) Compile(withChapterNumbers bool) *PlaceholderSet {
	s := &PlaceholderSet{words: make(map[string]bool)}
	for _, words := range t {
		for _, w := range words {
			if n := normalizeTitle(w); n != "" {
				s.words[n] = true
			}
		}
	}
	if withChapterNumbers {
		s.patterns = []*regexp.Regexp{chapterNumberPattern}
	}
	return s
}

// PlaceholderSet matches titles against a compiled PlaceholderTable.
type PlaceholderSet struct {
	words    map[string]bool
	patterns []*regexp.Regexp
}

// Match reports whether text is a placeholder. Blank text always matches.
func (s *PlaceholderSet) Match(text string) bool {
	n := normalizeTitle(text)
	if n == "" {
		return true
	}
	if s.words[n] {
		return true
	}
	for _, p := range s.patterns {
		if p.MatchString(n) {
			return true
		}
	}
	return false
}

func normalizeTitle(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}
