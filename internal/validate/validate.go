// Package validate checks an output directory written by the parse command.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/simp-lee/epub2md"
	"github.com/simp-lee/epub2md/internal/output"
)

// Result collects every problem found. An empty result means the output is valid.
type Result struct {
	Errors []string
}

// OK reports whether no problem was found.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

func (r *Result) add(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// manifestFields are the manifest keys the validator relies on. Pointers
// distinguish absent keys from zero values.
type manifestFields struct {
	Blocks          *int     `json:"blocks"`
	Images          []string `json:"images"`
	ImagesExtracted *bool    `json:"images_extracted"`
}

// Validate checks outDir. content.md is required; manifest.json is optional,
// but when present it must be valid JSON, its extracted images must exist
// and its block count must match a structural recount of content.md.
func Validate(outDir string) Result {
	var res Result

	content, err := os.ReadFile(filepath.Join(outDir, output.ContentFile))
	if err != nil {
		res.add("%s not found", output.ContentFile)
		return res
	}

	data, err := os.ReadFile(filepath.Join(outDir, output.ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return res
	}
	if err != nil {
		res.add("cannot read %s: %v", output.ManifestFile, err)
		return res
	}

	var m manifestFields
	if err := json.Unmarshal(data, &m); err != nil {
		res.add("Invalid JSON on line %d", errorLine(data, err))
		return res
	}

	if m.ImagesExtracted == nil || *m.ImagesExtracted {
		for _, p := range m.Images {
			if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(p))); err != nil {
				res.add("Missing image file: %s", p)
			}
		}
	}

	if m.Blocks != nil {
		if got := CountBlocks(content); got != *m.Blocks {
			res.add("Block count mismatch: manifest=%d, %s=%d", *m.Blocks, output.ContentFile, got)
		}
	}
	return res
}

// errorLine maps a JSON decoding error to a 1-based line number.
func errorLine(data []byte, err error) int {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return 1
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return bytes.Count(data[:offset], []byte("\n")) + 1
}

// CountBlocks recounts the content blocks of a rendered content.md: body
// headings (level 3 and deeper), paragraphs, list items, block quotes and
// code blocks. The title, creator line, table of contents, chapter headings
// and separators are structure, not content.
func CountBlocks(markdown []byte) int {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))

	count := 0
	skipTOC := false
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level >= 3 {
				count++
			}
			skipTOC = node.Level == 2 && headingText(node, markdown) == epub2md.TOCHeading
		case *ast.List:
			if skipTOC && isLinkList(node) {
				skipTOC = false
				continue
			}
			count += node.ChildCount()
		case *ast.Paragraph:
			if !isCreatorLine(node, markdown) {
				count++
			}
		case *ast.Blockquote, *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			count++
		}
		if _, ok := n.(*ast.Heading); !ok {
			skipTOC = false
		}
	}
	return count
}

func headingText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
	}
	return strings.TrimSpace(sb.String())
}

// isLinkList reports whether every item of list holds a single in-document
// link, which is how the rendered table of contents looks.
func isLinkList(list *ast.List) bool {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		block := item.FirstChild()
		if block == nil {
			return false
		}
		link, ok := block.FirstChild().(*ast.Link)
		if !ok || !bytes.HasPrefix(link.Destination, []byte("#")) {
			return false
		}
	}
	return true
}

// isCreatorLine matches the emphasised creator line under the title.
func isCreatorLine(p *ast.Paragraph, source []byte) bool {
	if p.ChildCount() != 1 {
		return false
	}
	em, ok := p.FirstChild().(*ast.Emphasis)
	if !ok {
		return false
	}
	return strings.HasPrefix(headingText(em, source), strings.TrimSpace(output.CreatorLabel))
}
