// Package output renders a parsed document to content.md and manifest.json.
package output

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/simp-lee/epub2md"
)

// CreatorLabel prefixes the creator line under the book title.
const CreatorLabel = "作者: "

var orderedMarker = regexp.MustCompile(`^(\d{1,9})([.)])`)

// RenderMarkdown renders doc in the content.md layout: optional title and
// creator header, the table of contents, then every chapter under a level-2
// heading with "---" between chapters.
func RenderMarkdown(doc *epub2md.Document) []byte {
	var r renderer
	meta := doc.Metadata()

	if meta.Title != "" {
		r.block("# " + meta.Title)
	}
	if meta.Creator != "" {
		r.block("_" + CreatorLabel + escapeEmphasis(meta.Creator) + "_")
	}
	if meta.Title != "" || meta.Creator != "" {
		r.block("---")
	}

	if toc := doc.TOC(); len(toc) > 0 {
		r.block("## " + epub2md.TOCHeading)
		var lines []string
		for _, e := range toc {
			lines = append(lines, tocLine("- ", e))
			for _, c := range e.Children {
				lines = append(lines, tocLine("  - ", c))
			}
		}
		r.block(strings.Join(lines, "\n"))
		r.block("---")
	}

	first := true
	for _, ch := range doc.Chapters() {
		if len(ch.Blocks) == 0 {
			continue
		}
		if !first {
			r.block("---")
		}
		first = false
		r.block("## " + ch.DisplayTitle())
		for _, b := range ch.Blocks {
			r.render(b)
		}
	}

	return r.bytes()
}

func tocLine(prefix string, e epub2md.TOCEntry) string {
	return prefix + "[" + escapeLinkText(e.Title) + "](#" + e.Target + ")"
}

// renderer joins blocks with blank lines, except between list items.
type renderer struct {
	buf      bytes.Buffer
	lastList bool
}

func (r *renderer) block(s string) {
	r.write(s, false)
}

func (r *renderer) write(s string, list bool) {
	if r.buf.Len() > 0 {
		if list && r.lastList {
			r.buf.WriteByte('\n')
		} else {
			r.buf.WriteString("\n\n")
		}
	}
	r.buf.WriteString(s)
	r.lastList = list
}

func (r *renderer) render(b epub2md.Block) {
	switch b.Kind {
	case epub2md.KindHeading:
		level := b.Level + 2
		if level > 6 {
			level = 6
		}
		r.block(strings.Repeat("#", level) + " " + b.Text)
	case epub2md.KindParagraph:
		r.block(escapeLine(b.Text))
	case epub2md.KindListItem:
		r.write("- "+escapeLine(b.Text), true)
	case epub2md.KindOrderedListItem:
		r.write("1. "+escapeLine(b.Text), true)
	case epub2md.KindBlockquote:
		r.block("> " + escapeLine(b.Text))
	case epub2md.KindCodeBlock:
		fence := codeFence(b.Text)
		r.block(fence + "\n" + b.Text + "\n" + fence)
	case epub2md.KindImage:
		r.block("![" + escapeLinkText(b.Alt) + "](" + imageDestination(b.ImagePath) + ")")
	}
}

func (r *renderer) bytes() []byte {
	out := append(r.buf.Bytes(), '\n')
	return out
}

// escapeLine backslash-escapes a leading character that would otherwise turn
// a line of plain text into Markdown structure.
func escapeLine(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '#', '>', '-', '+', '*', '_', '=', '|', '[', '<', '`', '~':
		return `\` + s
	}
	if m := orderedMarker.FindStringSubmatchIndex(s); m != nil {
		return s[:m[3]] + `\` + s[m[3]:]
	}
	return s
}

func escapeLinkText(s string) string {
	return strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`).Replace(s)
}

func escapeEmphasis(s string) string {
	return strings.NewReplacer(`\`, `\\`, `_`, `\_`).Replace(s)
}

// imageDestination wraps destinations that contain spaces or parentheses
// in angle brackets.
func imageDestination(p string) string {
	if strings.ContainsAny(p, " ()<>") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(p) + ">"
	}
	return p
}

// codeFence returns a backtick fence longer than any backtick run in code.
func codeFence(code string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}
