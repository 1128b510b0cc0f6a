package epub2md

import (
	"encoding/xml"
	"fmt"
	"path"
	"slices"
	"strings"
)

// opfPackage represents the root <package> element of an OPF file.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    *opfSpine   `xml:"spine"`
	Guide    opfGuide    `xml:"guide"`
}

// opfMetadata holds the metadata elements the pipeline consumes.
type opfMetadata struct {
	Titles    []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators  []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ language"`
	Metas     []opfMeta      `xml:"meta"`
}

// opfDCElement holds a Dublin Core element. ePub 2 carries the role inline,
// ePub 3 moves it into <meta refines="#id">.
type opfDCElement struct {
	Value  string `xml:",chardata"`
	ID     string `xml:"id,attr"`
	FileAs string `xml:"file-as,attr"`
	Role   string `xml:"role,attr"`
}

// opfMeta covers both <meta name content/> (ePub 2) and
// <meta property refines>value</meta> (ePub 3).
type opfMeta struct {
	Name     string `xml:"name,attr"`
	Content  string `xml:"content,attr"`
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
	Value    string `xml:",chardata"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	Toc      string            `xml:"toc,attr"`
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

type opfSpineItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

type opfGuide struct {
	References []opfGuideReference `xml:"reference"`
}

type opfGuideReference struct {
	Type string `xml:"type,attr"`
	Href string `xml:"href,attr"`
}

// ManifestItem is one resource declared by the package document.
type ManifestItem struct {
	ID string

	// Href is the archive-internal path, already resolved against the
	// package directory.
	Href string

	MediaType  string
	Properties []string
}

// HasProperty reports whether the item declares the given ePub 3 property.
func (m ManifestItem) HasProperty(p string) bool {
	return slices.Contains(m.Properties, p)
}

// SpineItem is one entry of the reading order.
type SpineItem struct {
	IDRef     string
	Href      string
	MediaType string

	// Linear is false for itemrefs declared linear="no".
	Linear bool
}

// Package is the parsed package document: manifest, spine and metadata.
type Package struct {
	// Path is the archive path of the OPF file; hrefs resolve against its directory.
	Path    string
	Version string

	Title string

	// Creator prefers an "aut" creator over earlier ones; see BookMetadata.
	Creator  string
	Language string
	Authors  []Author

	Manifest []ManifestItem
	Spine    []SpineItem

	// TOCID is the spine's toc attribute, naming the NCX manifest item.
	TOCID string

	// Warnings lists non-fatal inconsistencies such as dangling idrefs.
	Warnings []string

	byID   map[string]int
	byPath map[string]int
	raw    *opfPackage
}

// ParsePackage decodes OPF data located at packagePath inside the archive.
// It fails with ErrMalformedPackage when the XML is not well formed or the
// package declares no spine items.
func ParsePackage(data []byte, packagePath string) (*Package, error) {
	data = stripBOM(preprocessHTMLEntities(data))

	var raw opfPackage
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("epub: parse OPF %s: %w: %w", packagePath, ErrMalformedPackage, err)
	}
	if raw.Spine == nil {
		return nil, fmt.Errorf("epub: OPF %s has no <spine>: %w", packagePath, ErrMalformedPackage)
	}
	if len(raw.Spine.ItemRefs) == 0 {
		return nil, fmt.Errorf("epub: OPF %s has an empty spine: %w", packagePath, ErrMalformedPackage)
	}
	if raw.Version == "" {
		raw.Version = "2.0"
	}

	pkg := &Package{
		Path:    packagePath,
		Version: raw.Version,
		TOCID:   strings.TrimSpace(raw.Spine.Toc),
		raw:     &raw,
	}
	pkg.buildManifest(raw.Manifest)
	pkg.buildSpine(*raw.Spine)

	md := extractMetadata(&raw.Metadata)
	pkg.Title = md.title
	pkg.Creator = md.creator
	pkg.Language = md.language
	pkg.Authors = md.authors

	return pkg, nil
}

// Dir returns the package directory that relative hrefs resolve against.
func (p *Package) Dir() string {
	return path.Dir(p.Path)
}

// Item looks up a manifest item by id.
func (p *Package) Item(id string) (ManifestItem, bool) {
	i, ok := p.byID[id]
	if !ok {
		return ManifestItem{}, false
	}
	return p.Manifest[i], true
}

// ItemByPath looks up a manifest item by its resolved archive path,
// falling back to a case-insensitive comparison.
func (p *Package) ItemByPath(archivePath string) (ManifestItem, bool) {
	if i, ok := p.byPath[archivePath]; ok {
		return p.Manifest[i], true
	}
	for _, m := range p.Manifest {
		if strings.EqualFold(m.Href, archivePath) {
			return m, true
		}
	}
	return ManifestItem{}, false
}

// ReadingOrder returns the spine items to extract. Non-linear items are kept
// only when includeNonLinear is set.
func (p *Package) ReadingOrder(includeNonLinear bool) []SpineItem {
	out := make([]SpineItem, 0, len(p.Spine))
	for _, si := range p.Spine {
		if si.Linear || includeNonLinear {
			out = append(out, si)
		}
	}
	return out
}

// resolve resolves href relative to the package document.
func (p *Package) resolve(href string) string {
	return resolveHref(p.Path, href)
}

func (p *Package) buildManifest(m opfManifest) {
	p.Manifest = make([]ManifestItem, 0, len(m.Items))
	p.byID = make(map[string]int, len(m.Items))
	p.byPath = make(map[string]int, len(m.Items))

	for _, raw := range m.Items {
		item := ManifestItem{
			ID:         strings.TrimSpace(raw.ID),
			Href:       p.resolve(raw.Href),
			MediaType:  strings.ToLower(strings.TrimSpace(raw.MediaType)),
			Properties: strings.Fields(raw.Properties),
		}
		if item.Href == "" {
			p.Warnings = append(p.Warnings, fmt.Sprintf("manifest item %q has an unusable href %q", raw.ID, raw.Href))
		}
		idx := len(p.Manifest)
		p.Manifest = append(p.Manifest, item)
		if _, dup := p.byID[item.ID]; !dup {
			p.byID[item.ID] = idx
		}
		if _, dup := p.byPath[item.Href]; !dup && item.Href != "" {
			p.byPath[item.Href] = idx
		}
	}
}

func (p *Package) buildSpine(s opfSpine) {
	p.Spine = make([]SpineItem, 0, len(s.ItemRefs))
	for _, ref := range s.ItemRefs {
		idref := strings.TrimSpace(ref.IDRef)
		item, ok := p.Item(idref)
		if !ok || item.Href == "" {
			p.Warnings = append(p.Warnings, fmt.Sprintf("spine itemref %q has no usable manifest item", idref))
			continue
		}
		p.Spine = append(p.Spine, SpineItem{
			IDRef:     idref,
			Href:      item.Href,
			MediaType: item.MediaType,
			Linear:    !strings.EqualFold(strings.TrimSpace(ref.Linear), "no"),
		})
	}
}
