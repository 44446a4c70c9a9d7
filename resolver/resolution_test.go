package resolver

import (
	"testing"

	"github.com/zenhdl/zen/loadspec"
)

func TestResolveInjectsStdlibAndFetchesClosure(t *testing.T) {
	root := &Manifest{Dependencies: map[string]Dependency{
		"github.com/acme/resistors": {Version: "1.2.0"},
	}}

	fetched := map[string]string{}
	fetch := func(modulePath, version string) (string, error) {
		path := "/cache/" + modulePath + "@" + version
		fetched[modulePath] = path
		return path, nil
	}

	result, err := Resolve("/stdlib", root, nil, fetch, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.LockfileChanged {
		t.Error("expected LockfileChanged true with no prior lock and a non-empty closure")
	}

	importMap := result.PackageResolutions["."]
	if importMap[stdlibImportURL] != "/stdlib" {
		t.Errorf("stdlib not injected: %v", importMap)
	}
	if importMap["github.com/acme/resistors"] != "/cache/github.com/acme/resistors@1.2.0" {
		t.Errorf("unexpected resolution: %v", importMap)
	}
	if len(fetched) != 1 {
		t.Errorf("expected exactly one fetch, got %d", len(fetched))
	}
}

func TestResolvePackageRootFuncResolvesKinds(t *testing.T) {
	importMap := map[string]string{
		"github.com/acme/resistors": "/cache/resistors",
		"github.com/user/repo":      "/cache/gh",
	}
	resolveFn := ResolvePackageRoot(importMap)

	abs, err := resolveFn(loadspec.Package{URL: "github.com/acme/resistors", Path: "a.zen"})
	if err != nil {
		t.Fatalf("resolve package: %v", err)
	}
	if abs != "/cache/resistors/a.zen" {
		t.Errorf("got %q", abs)
	}

	abs, err = resolveFn(loadspec.Github{User: "user", Repo: "repo", Path: "b.zen"})
	if err != nil {
		t.Fatalf("resolve github: %v", err)
	}
	if abs != "/cache/gh/b.zen" {
		t.Errorf("got %q", abs)
	}

	if _, err := resolveFn(loadspec.Path{Value: "x"}); err == nil {
		t.Error("expected error for non-remote spec")
	}
}
