package epub2md

import "strings"

// Author is a dc:creator entry with its optional file-as and role.
type Author struct {
	Name   string
	FileAs string
	Role   string // MARC relator code such as "aut", "edt", "trl"
}

type packageMetadata struct {
	title    string
	creator  string
	language string
	authors  []Author
}

// extractMetadata picks the first non-empty title and language, and the
// primary creator.
// Without any dc:creator, an ePub 2 <meta name="author"> is used instead.
func extractMetadata(om *opfMetadata) packageMetadata {
	refines := buildRefinesMap(om.Metas)

	var md packageMetadata
	md.title = firstNonEmpty(om.Titles)
	md.language = firstNonEmpty(om.Languages)
	md.authors = extractAuthors(om.Creators, refines)

	if len(md.authors) > 0 {
		md.creator = primaryAuthor(md.authors).Name
	} else {
		for _, m := range om.Metas {
			if strings.EqualFold(m.Name, "author") {
				if v := strings.TrimSpace(m.Content); v != "" {
					md.creator = v
					break
				}
			}
		}
	}
	return md
}

// primaryAuthor returns the first author with the "aut" role, or the first
// author when none carries it.
func primaryAuthor(authors []Author) Author {
	for _, a := range authors {
		if strings.EqualFold(a.Role, "aut") {
			return a
		}
	}
	return authors[0]
}

func firstNonEmpty(elems []opfDCElement) string {
	for _, e := range elems {
		if v := collapseSpaces(e.Value); v != "" {
			return v
		}
	}
	return ""
}

// buildRefinesMap maps element IDs (without "#") to the <meta refines>
// elements that refine them.
func buildRefinesMap(metas []opfMeta) map[string][]opfMeta {
	m := make(map[string][]opfMeta)
	for _, meta := range metas {
		id, ok := strings.CutPrefix(strings.TrimSpace(meta.Refines), "#")
		if !ok || id == "" {
			continue
		}
		m[id] = append(m[id], meta)
	}
	return m
}

func findRefine(refines map[string][]opfMeta, id, property string) (string, bool) {
	for _, m := range refines[id] {
		if m.Property == property {
			if v := strings.TrimSpace(m.Value); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

func extractAuthors(creators []opfDCElement, refines map[string][]opfMeta) []Author {
	var authors []Author
	for _, c := range creators {
		name := collapseSpaces(c.Value)
		if name == "" {
			continue
		}
		a := Author{Name: name, FileAs: c.FileAs, Role: c.Role}
		if c.ID != "" {
			if a.FileAs == "" {
				a.FileAs, _ = findRefine(refines, c.ID, "file-as")
			}
			if a.Role == "" {
				a.Role, _ = findRefine(refines, c.ID, "role")
			}
		}
		authors = append(authors, a)
	}
	return authors
}
