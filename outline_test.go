package epub2md

import (
	"fmt"
	"reflect"
	"testing"
)

// chapterOf builds a chapter whose blocks get orders from seq.
func chapterOf(index int, title string, seq *Sequence, blocks ...Block) ChapterUnit {
	for i := range blocks {
		blocks[i].ChapterIndex = index
		blocks[i].Order = seq.Next()
	}
	return ChapterUnit{Index: index, Title: title, Blocks: blocks}
}

func h(level int, text string) Block { return Block{Kind: KindHeading, Level: level, Text: text} }
func para(text string) Block         { return Block{Kind: KindParagraph, Text: text} }

// outline flattens toc into "level title #target" lines, children indented.
func outline(toc []TOCEntry) []string {
	var out []string
	var walk func(entries []TOCEntry, indent string)
	walk = func(entries []TOCEntry, indent string) {
		for _, e := range entries {
			out = append(out, fmt.Sprintf("%s%d %s #%s", indent, e.Level, e.Title, e.Target))
			walk(e.Children, indent+"  ")
		}
	}
	walk(toc, "")
	return out
}

func checkOutline(t *testing.T, toc []TOCEntry, want ...string) {
	t.Helper()
	if got := outline(toc); !reflect.DeepEqual(got, want) {
		t.Errorf("TOC:\n got %q\nwant %q", got, want)
	}
}

func TestSynthesizeTOC_Nesting(t *testing.T) {
	seq := &Sequence{}
	chapters := []ChapterUnit{
		chapterOf(0, "Part One", seq, h(1, "Part One"), para("x"), h(2, "Alpha"), h(3, "Too deep"), h(2, "Beta")),
		chapterOf(1, "Part Two", seq, h(1, "Part Two"), h(2, "Gamma")),
	}
	toc := SynthesizeTOC("Book", chapters, nil)

	// Anchors follow the rendered heading sequence: book title, TOC heading,
	// then each chapter title before its body headings.
	checkOutline(t, toc,
		"1 Part One #part-one-1",
		"  2 Alpha #alpha",
		"  2 Beta #beta",
		"1 Part Two #part-two-1",
		"  2 Gamma #gamma",
	)
}

func TestSynthesizeTOC_OrphanLevelTwo(t *testing.T) {
	seq := &Sequence{}
	toc := SynthesizeTOC("", []ChapterUnit{
		chapterOf(0, "", seq, h(2, "Orphan"), h(1, "Parent"), h(2, "Child")),
	}, nil)

	checkOutline(t, toc,
		"2 Orphan #orphan",
		"1 Parent #parent",
		"  2 Child #child",
	)
}

func TestSynthesizeTOC_FiltersPlaceholders(t *testing.T) {
	seq := &Sequence{}
	chapters := []ChapterUnit{
		chapterOf(0, "", seq, h(1, "Contents"), h(2, "Should not nest under Contents")),
		chapterOf(1, "", seq, h(1, "  TABLE   of contents ")),
		chapterOf(2, "", seq, h(1, "目录"), h(1, "Chapter 7"), h(1, "chapter-12")),
		chapterOf(3, "", seq, h(1, "Real Chapter"), h(2, "Copyright"), h(2, "Section")),
	}
	toc := SynthesizeTOC("", chapters, nil)

	var titles []string
	for _, e := range toc {
		titles = append(titles, e.Title)
	}
	if want := []string{"Should not nest under Contents", "Real Chapter"}; !reflect.DeepEqual(titles, want) {
		t.Fatalf("top-level titles = %q, want %q", titles, want)
	}
	if len(toc[1].Children) != 1 || toc[1].Children[0].Title != "Section" {
		t.Errorf("Real Chapter children = %+v, want only Section", toc[1].Children)
	}
}

func TestSynthesizeTOC_ExtraPlaceholders(t *testing.T) {
	seq := &Sequence{}
	chapters := []ChapterUnit{chapterOf(0, "", seq, h(1, "Préface"), h(1, "Kept"))}
	set := DefaultTOCPlaceholders.Merge(map[string][]string{"fr": {"PRÉFACE"}}).Compile(true)

	toc := SynthesizeTOC("", chapters, set)
	if len(toc) != 1 || toc[0].Title != "Kept" {
		t.Errorf("TOC = %q, want only Kept", outline(toc))
	}
}

func TestSynthesizeTOC_Empty(t *testing.T) {
	seq := &Sequence{}
	toc := SynthesizeTOC("", []ChapterUnit{chapterOf(0, "", seq, para("no headings"))}, nil)
	if toc == nil || len(toc) != 0 {
		t.Errorf("TOC = %#v, want non-nil and empty", toc)
	}
}

func TestSynthesizeTOC_SkipsEmptyChaptersInAnchors(t *testing.T) {
	seq := &Sequence{}
	chapters := []ChapterUnit{
		{Index: 0, Title: "Intro"},
		chapterOf(1, "Intro", seq, h(1, "Intro")),
	}
	// The empty chapter is not rendered, so its title claims no anchor.
	checkOutline(t, SynthesizeTOC("", chapters, nil), "1 Intro #intro-1")
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Chapter 1: The Beginning!  ", "chapter-1-the-beginning"},
		{"What's up?", "whats-up"},
		{"第一章 开始", "第一章-开始"},
		{"snake_case-and-dash", "snake_case-and-dash"},
		{"Café Crème", "café-crème"},
		{"!!!", "section"},
		{"", "section"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugger(t *testing.T) {
	s := NewSlugger()
	steps := []struct{ in, want string }{
		{"Intro", "intro"},
		{"Intro", "intro-1"},
		{"intro", "intro-2"},
		{"Intro 1", "intro-1-1"},
		{"?", "section"},
		{"", "section-1"},
	}
	for i, st := range steps {
		if got := s.Next(st.in); got != st.want {
			t.Errorf("step %d: Next(%q) = %q, want %q", i, st.in, got, st.want)
		}
	}
}

func TestPlaceholderSet(t *testing.T) {
	set := DefaultTOCPlaceholders.Compile(true)
	for _, s := range []string{"Contents", "TABLE OF CONTENTS", "  toc ", "目录", "目錄", "Chapter 3", "chapter_10", "", "   "} {
		if !set.Match(s) {
			t.Errorf("placeholder set should match %q", s)
		}
	}
	for _, s := range []string{"Chapter One", "Introduction", "Chapter 3: Storm"} {
		if set.Match(s) {
			t.Errorf("placeholder set should not match %q", s)
		}
	}

	generic := DefaultGenericTitles.Compile(false)
	for s, want := range map[string]bool{"Untitled": true, "无标题": true, "Chapter 3": false} {
		if got := generic.Match(s); got != want {
			t.Errorf("generic.Match(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestPlaceholderTable_MergeDoesNotMutate(t *testing.T) {
	before := len(DefaultTOCPlaceholders["en"])
	merged := DefaultTOCPlaceholders.Merge(map[string][]string{"en": {"foreword"}})
	if got := len(DefaultTOCPlaceholders["en"]); got != before {
		t.Errorf("defaults grew to %d entries, want %d", got, before)
	}
	if got := len(merged["en"]); got != before+1 {
		t.Errorf("merged has %d entries, want %d", got, before+1)
	}
}
