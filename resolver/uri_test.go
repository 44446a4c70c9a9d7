package resolver

import "testing"

func TestFormatAndParsePackageURI(t *testing.T) {
	roots := NewPackageRoots()
	roots.Register("/cache/acme/resistors@1.2.0", "github.com/acme/resistors", "1.2.0")

	uri, err := FormatPackageURI(roots, "/cache/acme/resistors@1.2.0/footprints/0402.kicad_mod")
	if err != nil {
		t.Fatalf("FormatPackageURI: %v", err)
	}
	want := "package://github.com/acme/resistors@1.2.0/footprints/0402.kicad_mod"
	if uri != want {
		t.Errorf("got %q, want %q", uri, want)
	}

	url, version, rel, err := ParsePackageURI(uri)
	if err != nil {
		t.Fatalf("ParsePackageURI: %v", err)
	}
	if url != "github.com/acme/resistors" || version != "1.2.0" || rel != "footprints/0402.kicad_mod" {
		t.Errorf("got (%q, %q, %q)", url, version, rel)
	}

	abs, err := roots.AbsolutePath(uri)
	if err != nil {
		t.Fatalf("AbsolutePath: %v", err)
	}
	wantAbs := "/cache/acme/resistors@1.2.0/footprints/0402.kicad_mod"
	if abs != wantAbs {
		t.Errorf("got %q, want %q", abs, wantAbs)
	}
}

func TestFormatPackageURILongestPrefix(t *testing.T) {
	roots := NewPackageRoots()
	roots.Register("/cache/a", "github.com/acme/a", "1.0.0")
	roots.Register("/cache/a/nested", "github.com/acme/a-nested", "1.0.0")

	uri, err := FormatPackageURI(roots, "/cache/a/nested/x.zen")
	if err != nil {
		t.Fatalf("FormatPackageURI: %v", err)
	}
	if uri != "package://github.com/acme/a-nested@1.0.0/x.zen" {
		t.Errorf("expected longest-prefix match to win, got %q", uri)
	}
}
