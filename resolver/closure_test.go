package resolver

import "testing"

func TestFamilyOf(t *testing.T) {
	cases := []struct {
		version string
		want    string
	}{
		{"0.3.1", "v0.3"},
		{"0.3.9", "v0.3"},
		{"1.2.3", "v1"},
		{"2.0.0", "v2"},
	}
	for _, c := range cases {
		got, err := FamilyOf(c.version)
		if err != nil {
			t.Fatalf("FamilyOf(%q): %v", c.version, err)
		}
		if got != c.want {
			t.Errorf("FamilyOf(%q) = %q, want %q", c.version, got, c.want)
		}
	}
}

func TestBuildClosurePicksHighestInFamily(t *testing.T) {
	root := &Manifest{Dependencies: map[string]Dependency{
		"github.com/acme/a": {Version: "1.2.0"},
	}}

	manifests := map[string]*Manifest{
		"github.com/acme/a@1.2.0": {Dependencies: map[string]Dependency{
			"github.com/acme/b": {Version: "1.0.0"},
		}},
	}

	fetch := func(modulePath, version string) (*Manifest, error) {
		return manifests[modulePath+"@"+version], nil
	}

	closure, err := BuildClosure(root, fetch)
	if err != nil {
		t.Fatalf("BuildClosure: %v", err)
	}

	got, ok := closure[ModuleLine{ModulePath: "github.com/acme/a", Family: "v1"}]
	if !ok || got != "1.2.0" {
		t.Errorf("expected a@v1 = 1.2.0, got %q (ok=%v)", got, ok)
	}
	got, ok = closure[ModuleLine{ModulePath: "github.com/acme/b", Family: "v1"}]
	if !ok || got != "1.0.0" {
		t.Errorf("expected b@v1 = 1.0.0, got %q (ok=%v)", got, ok)
	}
}

func TestBuildClosureDifferentFamiliesCoexist(t *testing.T) {
	root := &Manifest{Dependencies: map[string]Dependency{
		"github.com/acme/a": {Version: "0.3.0"},
	}}

	manifests := map[string]*Manifest{
		"github.com/acme/a@0.3.0": {Dependencies: map[string]Dependency{
			"github.com/acme/a": {Version: "0.4.0"},
		}},
	}
	fetch := func(modulePath, version string) (*Manifest, error) {
		return manifests[modulePath+"@"+version], nil
	}

	closure, err := BuildClosure(root, fetch)
	if err != nil {
		t.Fatalf("BuildClosure: %v", err)
	}
	if len(closure) != 2 {
		t.Fatalf("expected two distinct ModuleLines for 0.3 and 0.4 families, got %d: %v", len(closure), closure)
	}
}

func TestBuildClosureUnversionedDependencyPassesThrough(t *testing.T) {
	root := &Manifest{Dependencies: map[string]Dependency{
		"github.com/acme/local": {Path: "../local"},
	}}
	closure, err := BuildClosure(root, nil)
	if err != nil {
		t.Fatalf("BuildClosure: %v", err)
	}
	line := ModuleLine{ModulePath: "github.com/acme/local", Family: "unversioned"}
	if v, ok := closure[line]; !ok || v != "" {
		t.Errorf("expected unversioned entry, got %q (ok=%v)", v, ok)
	}
}
