package epub2md

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DetectCover returns the archive path of the cover image. Strategies, in
// priority order:
//  1. ePub 3 manifest item with properties="cover-image"
//  2. ePub 2 <meta name="cover" content="ID"/>, either an image or a cover page
//  3. <guide> reference type="cover", first image of that page
//  4. image manifest item whose id or href mentions "cover"
//  5. first image of the first spine document
func DetectCover(a *Archive, pkg *Package) (string, bool) {
	strategies := []func(*Archive, *Package) string{
		coverFromProperties,
		coverFromMeta,
		coverFromGuide,
		coverFromHeuristic,
		coverFromFirstSpine,
	}
	for _, s := range strategies {
		if p := s(a, pkg); p != "" && a.Has(p) {
			return p, true
		}
	}
	return "", false
}

func coverFromProperties(_ *Archive, pkg *Package) string {
	for _, m := range pkg.Manifest {
		if m.HasProperty("cover-image") {
			return m.Href
		}
	}
	return ""
}

func coverFromMeta(a *Archive, pkg *Package) string {
	for _, meta := range pkg.raw.Metadata.Metas {
		if !strings.EqualFold(meta.Name, "cover") || meta.Content == "" {
			continue
		}
		item, ok := pkg.Item(strings.TrimSpace(meta.Content))
		if !ok {
			continue
		}
		if isImageMediaType(item.MediaType) {
			return item.Href
		}
		if p := firstImageIn(a, item.Href); p != "" {
			return p
		}
	}
	return ""
}

func coverFromGuide(a *Archive, pkg *Package) string {
	for _, ref := range pkg.raw.Guide.References {
		if !strings.EqualFold(ref.Type, "cover") {
			continue
		}
		if p := firstImageIn(a, pkg.resolve(ref.Href)); p != "" {
			return p
		}
	}
	return ""
}

func coverFromHeuristic(_ *Archive, pkg *Package) string {
	for _, m := range pkg.Manifest {
		if !isImageMediaType(m.MediaType) {
			continue
		}
		if containsFold(m.ID, "cover") || containsFold(m.Href, "cover") {
			return m.Href
		}
	}
	return ""
}

func coverFromFirstSpine(a *Archive, pkg *Package) string {
	if len(pkg.Spine) == 0 {
		return ""
	}
	return firstImageIn(a, pkg.Spine[0].Href)
}

// firstImageIn returns the resolved path of the first <img> or SVG <image>
// in the document at docPath.
func firstImageIn(a *Archive, docPath string) string {
	if docPath == "" {
		return ""
	}
	data, err := a.ReadEntry(docPath)
	if err != nil {
		return ""
	}
	z := html.NewTokenizer(bytes.NewReader(data))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := atom.Lookup(name)
			if !hasAttr || (tag != atom.Img && tag != atom.Image) {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				k := string(key)
				if v := string(val); v != "" && (k == "src" || k == "href" || k == "xlink:href") {
					return resolveHref(docPath, v)
				}
				if !more {
					break
				}
			}
		}
	}
}

func isImageMediaType(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
