// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// ModuleLine is the semver family key from spec §3: a dependency's module
// path plus its compatibility family. Two versions sharing a ModuleLine
// compete for minimum-version-selection; different ModuleLines coexist.
type ModuleLine struct {
	ModulePath string
	Family     string
}

func (ml ModuleLine) String() string { return ml.ModulePath + "@" + ml.Family }

// FamilyOf computes the family component of a ModuleLine from a semver
// string: "v0.<minor>" for 0.x releases (where minor versions are
// breaking, following the usual 0.x convention), "v<major>" otherwise.
func FamilyOf(version string) (string, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return "", errors.Wrapf(err, "parsing version %q", version)
	}
	if v.Major() == 0 {
		return fmt.Sprintf("v0.%d", v.Minor()), nil
	}
	return fmt.Sprintf("v%d", v.Major()), nil
}

// FetchManifestFunc retrieves the manifest for a dependency at a given
// version, used by BuildClosure to walk the transitive dependency graph.
// It returns (nil, nil) for a dependency with no manifest (leaf package).
type FetchManifestFunc func(modulePath, version string) (*Manifest, error)

// BuildClosure implements spec §4.A's build_closure: walk declared
// dependencies from root and select one version per ModuleLine by taking
// the highest required minor/patch within the family (Go-modules-style
// minimum/maximum version selection restricted to within-family
// candidates — see DESIGN.md for why the teacher's SAT solver is not
// used here).
func BuildClosure(root *Manifest, fetch FetchManifestFunc) (map[ModuleLine]string, error) {
	selected := make(map[ModuleLine]string)

	type work struct {
		modulePath string
		version    string
	}
	queue := make([]work, 0, len(root.Dependencies))
	for modulePath, dep := range root.Dependencies {
		queue = append(queue, work{modulePath, dep.Version})
	}

	visited := make(map[string]bool)
	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]

		if w.version == "" {
			// Path or rev/branch-pinned dependency: not part of semver
			// family selection, recorded verbatim under its own line.
			line := ModuleLine{ModulePath: w.modulePath, Family: "unversioned"}
			selected[line] = w.version
			continue
		}

		family, err := FamilyOf(w.version)
		if err != nil {
			return nil, errors.Wrapf(err, "module %s", w.modulePath)
		}
		line := ModuleLine{ModulePath: w.modulePath, Family: family}

		if cur, ok := selected[line]; ok {
			winner, err := higherVersion(cur, w.version)
			if err != nil {
				return nil, err
			}
			if winner == cur {
				continue
			}
		}
		selected[line] = w.version

		key := w.modulePath + "@" + w.version
		if visited[key] {
			continue
		}
		visited[key] = true

		if fetch == nil {
			continue
		}
		childManifest, err := fetch(w.modulePath, w.version)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching manifest for %s@%s", w.modulePath, w.version)
		}
		if childManifest == nil {
			continue
		}
		for modulePath, dep := range childManifest.Dependencies {
			queue = append(queue, work{modulePath, dep.Version})
		}
	}

	return selected, nil
}

func higherVersion(a, b string) (string, error) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return "", errors.Wrapf(err, "parsing version %q", a)
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return "", errors.Wrapf(err, "parsing version %q", b)
	}
	if va.Compare(vb) >= 0 {
		return a, nil
	}
	return b, nil
}
