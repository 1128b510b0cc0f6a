package epub2md

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

// landmarkSelector matches navigational chrome removed before extraction.
// header and footer are handled separately because they are only landmarks
// when scoped to the page rather than to a section.
const landmarkSelector = "nav, aside, " +
	"[role=navigation], [role=banner], [role=contentinfo], [role=complementary], [role=doc-toc]"

// sectioningSelector lists the ancestors that demote header/footer from landmarks.
const sectioningSelector = "article, aside, main, nav, section"

// landmarkEpubTypes are epub:type tokens that mark navigation-only regions.
var landmarkEpubTypes = []string{"toc", "landmarks", "page-list"}

// skipped elements contribute nothing, not even their text.
var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Title:    true,
}

// containers end the current text run but emit nothing themselves.
var containers = map[atom.Atom]bool{
	atom.Body: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Main: true, atom.Aside: true, atom.Nav: true, atom.Header: true,
	atom.Footer: true, atom.Address: true, atom.Figure: true, atom.Figcaption: true,
	atom.Table: true, atom.Thead: true, atom.Tbody: true, atom.Tfoot: true,
	atom.Tr: true, atom.Td: true, atom.Th: true, atom.Caption: true,
	atom.Dl: true, atom.Dt: true, atom.Dd: true, atom.Details: true,
	atom.Summary: true, atom.Center: true, atom.Form: true, atom.Fieldset: true,
	atom.Hr: true, atom.Hgroup: true,
}

// voidElements may legitimately be written as <x/> in HTML.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true, "image": true, "param": true,
}

var selfClosingPattern = regexp.MustCompile(`<([a-zA-Z][\w:.-]*)(\s[^<>]*?)?/>`)

// expandSelfClosing rewrites XHTML-style <div/> into <div></div>. The HTML
// parser ignores the slash, so a self-closed <script/> or <title/> would
// otherwise swallow the rest of the document.
func expandSelfClosing(data []byte) []byte {
	return selfClosingPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		sub := selfClosingPattern.FindSubmatch(m)
		name := strings.ToLower(string(sub[1]))
		if voidElements[name] {
			return m
		}
		var b bytes.Buffer
		b.WriteByte('<')
		b.Write(sub[1])
		b.Write(sub[2])
		b.WriteString("></")
		b.Write(sub[1])
		b.WriteByte('>')
		return b.Bytes()
	})
}

// Extraction is the outcome of extracting one content document.
type Extraction struct {
	Blocks []Block

	// HTMLTitle is the document's <title> text, if any.
	HTMLTitle string
}

// Extractor turns XHTML content documents into ordered blocks.
type Extractor struct {
	keepNavigation bool
	chunker        *Chunker
}

// NewExtractor returns an Extractor. When keepNavigation is false, nav,
// aside, page-level header and footer, and ARIA navigation landmarks are
// dropped with their descendants. A nil chunker disables splitting.
func NewExtractor(keepNavigation bool, chunker *Chunker) *Extractor {
	return &Extractor{keepNavigation: keepNavigation, chunker: chunker}
}

// Extract parses one content document. Every emitted block takes its Order
// from seq, so consecutive calls sharing seq produce a globally ordered stream.
func (e *Extractor) Extract(data []byte, chapterIndex int, seq *Sequence) (Extraction, error) {
	data = stripBOM(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return Extraction{}, errors.New("empty content document")
	}
	data, err := decodeToUTF8(data)
	if err != nil {
		return Extraction{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(expandSelfClosing(data)))
	if err != nil {
		return Extraction{}, fmt.Errorf("parse markup: %w", err)
	}

	out := Extraction{HTMLTitle: collapseSpaces(doc.Find("title").First().Text())}
	if !e.keepNavigation {
		stripLandmarks(doc)
	}

	body := doc.Find("body").First()
	if body.Length() == 0 {
		return out, nil
	}

	w := &blockWalker{chapter: chapterIndex, seq: seq, chunker: e.chunker}
	w.walkChildren(body.Get(0))
	w.flush()
	out.Blocks = w.blocks
	return out, nil
}

var xmlDeclEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*?\bencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// decodeToUTF8 converts legacy-encoded documents. The XML declaration's
// encoding wins; otherwise the charset is taken from <meta> or sniffed.
func decodeToUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}
	enc, name := xmlDeclaredEncoding(data)
	if enc == nil {
		enc, name, _ = charset.DetermineEncoding(data, "application/xhtml+xml")
	}
	if name == "utf-8" {
		return data, nil
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return decoded, nil
}

func xmlDeclaredEncoding(data []byte) (encoding.Encoding, string) {
	m := xmlDeclEncoding.FindSubmatch(data)
	if m == nil {
		return nil, ""
	}
	return charset.Lookup(string(m[1]))
}

func stripLandmarks(doc *goquery.Document) {
	doc.Find(landmarkSelector).Remove()
	doc.Find("header, footer").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(sectioningSelector).Length() == 0 {
			s.Remove()
		}
	})
	doc.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		for _, tok := range landmarkEpubTypes {
			if hasToken(s.Get(0), "epub:type", tok) {
				return true
			}
		}
		return false
	}).Remove()
}

type textContext struct {
	kind  BlockKind
	level int
}

// blockWalker flattens a body subtree into blocks. Recognized block elements
// open a text context; text accumulates until the next boundary.
type blockWalker struct {
	chapter int
	seq     *Sequence
	chunker *Chunker

	blocks []Block
	text   strings.Builder
	ctx    []textContext
	lists  []BlockKind
}

func (w *blockWalker) walkChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *blockWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		return
	}
	if skipped[n.DataAtom] {
		return
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		w.within(n, textContext{kind: KindHeading, level: int(n.Data[1] - '0')})
	case atom.P:
		kind := KindParagraph
		if top, ok := w.top(); ok && (top.kind == KindListItem || top.kind == KindOrderedListItem || top.kind == KindBlockquote) {
			kind = top.kind
		}
		w.within(n, textContext{kind: kind})
	case atom.Li:
		kind := KindListItem
		if len(w.lists) > 0 {
			kind = w.lists[len(w.lists)-1]
		}
		w.within(n, textContext{kind: kind})
	case atom.Ul, atom.Ol, atom.Menu:
		kind := KindListItem
		if n.DataAtom == atom.Ol {
			kind = KindOrderedListItem
		}
		w.flush()
		w.lists = append(w.lists, kind)
		w.walkChildren(n)
		w.flush()
		w.lists = w.lists[:len(w.lists)-1]
	case atom.Blockquote:
		w.within(n, textContext{kind: KindBlockquote})
	case atom.Pre:
		w.flush()
		w.emitCode(preformattedText(n))
	case atom.Code:
		if len(w.ctx) == 0 && isSoleContent(n) {
			w.flush()
			w.emitCode(preformattedText(n))
			return
		}
		w.walkChildren(n)
	case atom.Img:
		w.flush()
		alt := attr(n, "alt")
		if alt == "" {
			alt = attr(n, "title")
		}
		w.emitImage(attr(n, "src"), alt)
	case atom.Image:
		w.flush()
		src := attr(n, "xlink:href")
		if src == "" {
			src = attr(n, "href")
		}
		w.emitImage(src, attr(n, "title"))
	case atom.Br:
		w.text.WriteByte(' ')
	default:
		if containers[n.DataAtom] {
			w.flush()
			w.walkChildren(n)
			w.flush()
			return
		}
		w.walkChildren(n)
	}
}

// within walks n's children inside a new text context.
func (w *blockWalker) within(n *html.Node, tc textContext) {
	w.flush()
	w.ctx = append(w.ctx, tc)
	w.walkChildren(n)
	w.flush()
	w.ctx = w.ctx[:len(w.ctx)-1]
}

func (w *blockWalker) top() (textContext, bool) {
	if len(w.ctx) == 0 {
		return textContext{}, false
	}
	return w.ctx[len(w.ctx)-1], true
}

// flush emits the pending text as a block of the current context's kind.
// Text outside any context becomes a paragraph.
func (w *blockWalker) flush() {
	text := collapseSpaces(w.text.String())
	w.text.Reset()
	if text == "" {
		return
	}
	tc, ok := w.top()
	if !ok {
		tc = textContext{kind: KindParagraph}
	}
	w.emit(Block{Kind: tc.kind, Text: text, Level: tc.level})
}

func (w *blockWalker) emitCode(text string) {
	text = strings.Trim(text, "\r\n")
	if strings.TrimSpace(text) == "" {
		return
	}
	w.emit(Block{Kind: KindCodeBlock, Text: text})
}

func (w *blockWalker) emitImage(src, alt string) {
	src = strings.TrimSpace(src)
	if src == "" {
		return
	}
	w.emit(Block{Kind: KindImage, Src: src, Alt: collapseSpaces(alt)})
}

func (w *blockWalker) emit(b Block) {
	b.ChapterIndex = w.chapter
	pieces := []Block{b}
	if w.chunker != nil {
		pieces = w.chunker.Split(b)
	}
	for _, p := range pieces {
		p.Order = w.seq.Next()
		w.blocks = append(w.blocks, p)
	}
}

// preformattedText returns the verbatim text of n with <br> as newlines.
func preformattedText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			sb.WriteByte('\n')
		case n.Type == html.ElementNode && skipped[n.DataAtom]:
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
	}
	walk(n)
	return strings.ReplaceAll(sb.String(), "\r\n", "\n")
}

// isSoleContent reports whether n is the only non-blank child of its parent,
// which is how block-level code is written without a <pre>.
func isSoleContent(n *html.Node) bool {
	if n.Parent == nil {
		return false
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n {
			continue
		}
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return false
			}
		case html.ElementNode:
			return false
		}
	}
	return true
}
