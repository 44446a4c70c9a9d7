// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/zenhdl/zen/internal/fs"
	"github.com/zenhdl/zen/loadspec"
)

// stdlibImportURL is injected into every package's import map, per spec
// §4.A's invariant that "stdlib is implicitly injected into every
// package's map."
const stdlibImportURL = "zen://stdlib"

// ResolutionResult is spec §3's ResolutionResult: everything needed to
// evaluate every transitively reachable unit of a workspace.
type ResolutionResult struct {
	WorkspaceInfo *Manifest
	// PackageResolutions maps a package root to its import URL ->
	// absolute path table. The workspace root is keyed "." and each
	// fetched dependency root by its absolute path; all entries share
	// one table.
	PackageResolutions map[string]map[string]string
	Closure            map[ModuleLine]string
	LockfileChanged    bool
	Roots              *PackageRoots
}

// FetchFunc materializes a dependency's source tree on disk, returning
// its absolute root path. Implemented by resolver/fetch.Cache.Fetch in
// production, faked in tests.
type FetchFunc func(modulePath, version string) (string, error)

// Resolve implements the orchestration spec §4.A describes: build the
// closure, fetch every selected version, and build the package-root /
// import-URL resolution table.
func Resolve(stdlibPath string, root *Manifest, fetchManifest FetchManifestFunc, fetch FetchFunc, existingLock *Lock) (*ResolutionResult, error) {
	closure, err := BuildClosure(root, fetchManifest)
	if err != nil {
		return nil, errors.Wrap(err, "building dependency closure")
	}

	roots := NewPackageRoots()
	result := &ResolutionResult{
		WorkspaceInfo:      root,
		PackageResolutions: make(map[string]map[string]string),
		Closure:            closure,
		Roots:              roots,
	}

	if existingLock != nil {
		result.LockfileChanged = existingLock.Diff(closure)
	} else {
		result.LockfileChanged = len(closure) > 0
	}

	importMap := map[string]string{stdlibImportURL: stdlibPath}

	for line, version := range closure {
		if line.Family == "unversioned" {
			continue
		}
		abs, err := fetch(line.ModulePath, version)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching %s@%s", line.ModulePath, version)
		}
		roots.Register(abs, line.ModulePath, version)
		importMap[line.ModulePath] = abs
		result.PackageResolutions[abs] = importMap
	}

	// Stdlib is implicitly injected into every package's map: every
	// resolved package root inherits the same base import table, with
	// per-package local path overrides layered on top by the caller as
	// relative Path specs are resolved.
	result.PackageResolutions[filepath.Clean(".")] = importMap

	return result, nil
}

// ResolvePackageRoot produces a PackageResolveFunc bound to a single
// package root's import map, suitable for passing to
// loadspec.ResolveLoad.
func ResolvePackageRoot(importMap map[string]string) loadspec.PackageResolveFunc {
	return func(spec loadspec.Spec) (string, error) {
		switch s := spec.(type) {
		case loadspec.Package:
			base, ok := importMap[s.URL]
			if !ok {
				return "", errors.Errorf("unresolved import URL %q", s.URL)
			}
			if s.Path == "" {
				return base, nil
			}
			return filepath.Join(base, s.Path), nil
		case loadspec.Github:
			key := "github.com/" + s.User + "/" + s.Repo
			base, ok := importMap[key]
			if !ok {
				return "", errors.Errorf("unresolved github reference %q", key)
			}
			return filepath.Join(base, s.Path), nil
		case loadspec.Gitlab:
			key := "gitlab.com/" + s.ProjectPath
			base, ok := importMap[key]
			if !ok {
				return "", errors.Errorf("unresolved gitlab reference %q", key)
			}
			return filepath.Join(base, s.Path), nil
		default:
			return "", errors.Errorf("not a remote load spec: %T", spec)
		}
	}
}

// ComputeSourceHash hashes a resolved dependency's source tree for
// inclusion in pcb.sum, using the teacher's breadth-first directory hash.
func ComputeSourceHash(root string) (string, error) {
	return fs.HashFromNode(root, ".")
}
