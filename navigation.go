package epub2md

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const ncxMediaType = "application/x-dtbncx+xml"

// ResolveNavigation locates the navigation document (ePub 3 nav, then the
// legacy NCX) and flattens it into document-ordered entries.
//
// A book without navigation yields an empty slice and a nil error. When a
// navigation document exists but cannot be read or parsed, the returned error
// wraps ErrNavigationUnavailable; callers treat it as a warning.
func ResolveNavigation(a *Archive, pkg *Package) ([]NavEntry, error) {
	var errs []error

	if item, ok := navDocumentItem(pkg); ok {
		entries, err := readNavDocument(a, item.Href)
		if err == nil {
			return entries, nil
		}
		errs = append(errs, err)
	}
	if item, ok := ncxItem(pkg); ok {
		entries, err := readNCX(a, item.Href)
		if err == nil {
			return entries, nil
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return []NavEntry{}, nil
	}
	return []NavEntry{}, fmt.Errorf("epub: %w: %w", ErrNavigationUnavailable, errors.Join(errs...))
}

// navDocumentItem returns the first manifest item carrying the "nav" property.
func navDocumentItem(pkg *Package) (ManifestItem, bool) {
	for _, m := range pkg.Manifest {
		if m.HasProperty("nav") && m.Href != "" {
			return m, true
		}
	}
	return ManifestItem{}, false
}

// ncxItem resolves the spine toc attribute, falling back to the first item
// with the NCX media type.
func ncxItem(pkg *Package) (ManifestItem, bool) {
	if pkg.TOCID != "" {
		if m, ok := pkg.Item(pkg.TOCID); ok && m.Href != "" {
			return m, true
		}
	}
	for _, m := range pkg.Manifest {
		if m.MediaType == ncxMediaType && m.Href != "" {
			return m, true
		}
	}
	return ManifestItem{}, false
}

func readNavDocument(a *Archive, navPath string) ([]NavEntry, error) {
	data, err := a.ReadEntry(navPath)
	if err != nil {
		return nil, fmt.Errorf("read nav document: %w", err)
	}
	entries, err := parseNavDocument(stripBOM(data), navPath)
	if err != nil {
		return nil, fmt.Errorf("parse nav document %s: %w", navPath, err)
	}
	return entries, nil
}

func readNCX(a *Archive, ncxPath string) ([]NavEntry, error) {
	data, err := a.ReadEntry(ncxPath)
	if err != nil {
		return nil, fmt.Errorf("read NCX: %w", err)
	}
	entries, err := parseNCX(data, ncxPath)
	if err != nil {
		return nil, fmt.Errorf("parse NCX %s: %w", ncxPath, err)
	}
	return entries, nil
}

// --- ePub 3 navigation document ---

// parseNavDocument extracts the toc <nav> of an XHTML navigation document.
// A document without a toc-typed nav falls back to its first <nav>.
func parseNavDocument(data []byte, basePath string) ([]NavEntry, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var navs []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Nav {
			navs = append(navs, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if len(navs) == 0 {
		return nil, errors.New("no <nav> element")
	}

	toc := navs[0]
	for _, n := range navs {
		if hasToken(n, "epub:type", "toc") || hasToken(n, "role", "doc-toc") {
			toc = n
			break
		}
	}

	entries := []NavEntry{}
	if ol := firstDescendant(toc, atom.Ol); ol != nil {
		entries = appendNavList(entries, ol, 1, basePath)
	}
	return entries, nil
}

func appendNavList(out []NavEntry, ol *html.Node, level int, basePath string) []NavEntry {
	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		var (
			entry    = NavEntry{Level: level}
			children *html.Node
		)
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.A:
				if entry.Target == "" && entry.Title == "" {
					entry.Title = collapseSpaces(nodeText(c))
					entry.Target, entry.Fragment = splitTarget(basePath, attr(c, "href"))
				}
			case atom.Span:
				if entry.Title == "" {
					entry.Title = collapseSpaces(nodeText(c))
				}
			case atom.Ol:
				children = c
			}
		}
		if entry.Title != "" || entry.Target != "" {
			out = append(out, entry)
		}
		if children != nil {
			out = appendNavList(out, children, level+1, basePath)
		}
	}
	return out
}

func firstDescendant(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := firstDescendant(c, a); found != nil {
			return found
		}
	}
	return nil
}

// splitTarget resolves href against basePath and returns the archive path
// and the fragment separately.
func splitTarget(basePath, href string) (target, fragment string) {
	href = strings.TrimSpace(href)
	if href == "" || hasURIScheme(href) {
		return "", ""
	}
	if i := strings.IndexByte(href, '#'); i >= 0 {
		fragment = href[i+1:]
		if i == 0 {
			return basePath, fragment
		}
	}
	return resolveHref(basePath, href), fragment
}

// --- ePub 2 NCX ---

type ncxDocument struct {
	XMLName xml.Name `xml:"ncx"`
	NavMap  struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	Label struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

func parseNCX(data []byte, ncxPath string) ([]NavEntry, error) {
	data = stripBOM(preprocessHTMLEntities(data))

	var doc ncxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return appendNavPoints([]NavEntry{}, doc.NavMap.NavPoints, 1, ncxPath), nil
}

func appendNavPoints(out []NavEntry, points []ncxNavPoint, level int, ncxPath string) []NavEntry {
	for _, np := range points {
		entry := NavEntry{Title: collapseSpaces(np.Label.Text), Level: level}
		entry.Target, entry.Fragment = splitTarget(ncxPath, np.Content.Src)
		if entry.Title != "" || entry.Target != "" {
			out = append(out, entry)
		}
		out = appendNavPoints(out, np.Children, level+1, ncxPath)
	}
	return out
}

// navTitles maps each target document to the title of its first nav entry.
func navTitles(entries []NavEntry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Target == "" || e.Title == "" {
			continue
		}
		if _, ok := m[e.Target]; !ok {
			m[e.Target] = e.Title
		}
	}
	return m
}
