package epub2md

import (
	"strings"
	"unicode"
)

// DefaultChunkBudget is the default maximum length of a text block, in characters.
const DefaultChunkBudget = 1200

// sentenceEnders terminate a sentence when followed by whitespace or the end
// of the text. CJK full-width enders terminate unconditionally.
var (
	sentenceEnders    = map[rune]bool{'.': true, '!': true, '?': true, '…': true}
	cjkSentenceEnders = map[rune]bool{'。': true, '！': true, '？': true, '；': true}
	closingMarks      = map[rune]bool{'"': true, '\'': true, ')': true, '”': true, '’': true, '」': true, '』': true, '）': true, '»': true}
)

// Chunker splits paragraph and blockquote blocks that exceed a character
// budget. Lengths are counted in runes.
type Chunker struct {
	budget int
}

// NewChunker returns a Chunker for the given budget. A budget <= 0 disables
// splitting.
func NewChunker(budget int) *Chunker {
	return &Chunker{budget: budget}
}

// Budget returns the configured budget.
func (c *Chunker) Budget() int {
	return c.budget
}

// Split returns b unchanged when it fits the budget or is not a chunkable
// kind. Otherwise it returns the sub-blocks in order; they inherit every field
// of b except Text and carry no Order yet.
func (c *Chunker) Split(b Block) []Block {
	if c == nil || c.budget <= 0 || !b.Kind.Chunkable() || utf8Len(b.Text) <= c.budget {
		return []Block{b}
	}
	parts := splitText(b.Text, c.budget)
	out := make([]Block, 0, len(parts))
	for _, p := range parts {
		sub := b
		sub.Text = p
		sub.Order = 0
		out = append(out, sub)
	}
	return out
}

// Apply re-chunks an existing stream and renumbers it from seq. Running it over
// its own output changes nothing but the order values.
func (c *Chunker) Apply(blocks []Block, seq *Sequence) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		for _, sub := range c.Split(b) {
			sub.Order = seq.Next()
			out = append(out, sub)
		}
	}
	return out
}

func utf8Len(s string) int {
	return len([]rune(s))
}

// splitText cuts text into pieces of at most budget runes. Whitespace at a
// cut is dropped; nothing else is lost.
func splitText(text string, budget int) []string {
	runes := []rune(text)
	var out []string
	for len(runes) > budget {
		cut := breakPoint(runes, budget)
		if piece := strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace); piece != "" {
			out = append(out, piece)
		}
		runes = trimLeftSpace(runes[cut:])
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// breakPoint picks where to end the next piece: after a sentence in the
// upper half of the window, else at the last whitespace, else at the budget.
func breakPoint(runes []rune, budget int) int {
	for i := budget; i > budget/2; i-- {
		if endsSentence(runes, i) {
			return i
		}
	}
	for i := budget; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return budget
}

// endsSentence reports whether a sentence ends right before index i.
func endsSentence(runes []rune, i int) bool {
	j := i - 1
	for j > 0 && closingMarks[runes[j]] {
		j--
	}
	r := runes[j]
	if cjkSentenceEnders[r] {
		return true
	}
	if !sentenceEnders[r] {
		return false
	}
	return i == len(runes) || unicode.IsSpace(runes[i])
}

func trimLeftSpace(runes []rune) []rune {
	for len(runes) > 0 && unicode.IsSpace(runes[0]) {
		runes = runes[1:]
	}
	return runes
}
