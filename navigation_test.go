package epub2md

import (
	"errors"
	"reflect"
	"testing"

	"github.com/simp-lee/epub2md/internal/epubtest"
)

const navOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Nav</dc:title></metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="ch1" href="Text/ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx"><itemref idref="ch1"/></spine>
</package>`

const navBody = `
<nav epub:type="landmarks"><ol><li><a href="Text/ch1.xhtml">Start</a></li></ol></nav>
<nav epub:type="toc"><h1>Contents</h1><ol>
  <li><a href="Text/ch1.xhtml">  Chapter
      One </a>
    <ol>
      <li><a href="Text/ch1.xhtml#s1">Section 1.1</a></li>
      <li><span>Unlinked</span></li>
    </ol>
  </li>
  <li><a href="http://example.com">External</a></li>
</ol></nav>`

const testNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="p1"><navLabel><text>NCX One</text></navLabel><content src="Text/ch1.xhtml"/>
      <navPoint id="p2"><navLabel><text>NCX Sub&nbsp;Part</text></navLabel><content src="Text/ch1.xhtml#sub"/></navPoint>
    </navPoint>
  </navMap>
</ncx>`

func navArchive(t *testing.T, extra map[string]string) (*Archive, *Package) {
	t.Helper()
	files := baseFiles(map[string]string{"OEBPS/content.opf": navOPF, "OEBPS/Text/ch1.xhtml": epubtest.XHTML("c", "<p>x</p>")})
	for k, v := range extra {
		files[k] = v
	}
	a := openTestArchive(t, files)
	data, err := a.ReadEntry(a.PackagePath())
	if err != nil {
		t.Fatal(err)
	}
	pkg, err := ParsePackage(data, a.PackagePath())
	if err != nil {
		t.Fatal(err)
	}
	return a, pkg
}

func TestResolveNavigation_NavDocument(t *testing.T) {
	a, pkg := navArchive(t, map[string]string{
		"OEBPS/nav.xhtml": epubtest.XHTML("Nav", navBody),
		"OEBPS/toc.ncx":   testNCX,
	})

	got, err := ResolveNavigation(a, pkg)
	if err != nil {
		t.Fatalf("ResolveNavigation: %v", err)
	}
	want := []NavEntry{
		{Title: "Chapter One", Level: 1, Target: "OEBPS/Text/ch1.xhtml"},
		{Title: "Section 1.1", Level: 2, Target: "OEBPS/Text/ch1.xhtml", Fragment: "s1"},
		{Title: "Unlinked", Level: 2},
		{Title: "External", Level: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("entries =\n%+v\nwant\n%+v", got, want)
	}
}

func TestResolveNavigation_NCXFallback(t *testing.T) {
	// The nav item is declared but its document is absent from the archive.
	a, pkg := navArchive(t, map[string]string{"OEBPS/toc.ncx": testNCX})

	got, err := ResolveNavigation(a, pkg)
	if err != nil {
		t.Fatalf("ResolveNavigation: %v", err)
	}
	want := []NavEntry{
		{Title: "NCX One", Level: 1, Target: "OEBPS/Text/ch1.xhtml"},
		{Title: "NCX Sub Part", Level: 2, Target: "OEBPS/Text/ch1.xhtml", Fragment: "sub"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("entries = %+v, want %+v", got, want)
	}
}

func TestResolveNavigation_NavBrokenFallsBackToNCX(t *testing.T) {
	a, pkg := navArchive(t, map[string]string{
		"OEBPS/nav.xhtml": epubtest.XHTML("Nav", "<p>no nav element here</p>"),
		"OEBPS/toc.ncx":   testNCX,
	})
	got, err := ResolveNavigation(a, pkg)
	if err != nil {
		t.Fatalf("ResolveNavigation: %v", err)
	}
	if len(got) != 2 || got[0].Title != "NCX One" {
		t.Errorf("entries = %+v", got)
	}
}

func TestResolveNavigation_Unavailable(t *testing.T) {
	a, pkg := navArchive(t, map[string]string{"OEBPS/toc.ncx": "<ncx><navMap>"})
	got, err := ResolveNavigation(a, pkg)
	if !errors.Is(err, ErrNavigationUnavailable) {
		t.Fatalf("err = %v, want ErrNavigationUnavailable", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("entries = %#v, want empty non-nil slice", got)
	}
}

func TestResolveNavigation_None(t *testing.T) {
	a := openTestArchive(t, baseFiles(nil))
	data, _ := a.ReadEntry(a.PackagePath())
	pkg, err := ParsePackage(data, a.PackagePath())
	if err != nil {
		t.Fatal(err)
	}
	got, err := ResolveNavigation(a, pkg)
	if err != nil {
		t.Fatalf("err = %v, want nil for a book without navigation", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("entries = %#v, want empty non-nil slice", got)
	}
}

func TestSplitTarget(t *testing.T) {
	tests := []struct {
		href, target, fragment string
	}{
		{"ch2.xhtml", "OEBPS/ch2.xhtml", ""},
		{"ch2.xhtml#x", "OEBPS/ch2.xhtml", "x"},
		{"#local", "OEBPS/nav.xhtml", "local"},
		{"https://example.com/", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		target, fragment := splitTarget("OEBPS/nav.xhtml", tt.href)
		if target != tt.target || fragment != tt.fragment {
			t.Errorf("splitTarget(%q) = %q, %q; want %q, %q", tt.href, target, fragment, tt.target, tt.fragment)
		}
	}
}

func TestNavTitles(t *testing.T) {
	m := navTitles([]NavEntry{
		{Title: "First", Target: "a.xhtml"},
		{Title: "Second", Target: "a.xhtml", Fragment: "s"},
		{Title: "", Target: "b.xhtml"},
		{Title: "Orphan"},
	})
	want := map[string]string{"a.xhtml": "First"}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("navTitles = %v, want %v", m, want)
	}
}
