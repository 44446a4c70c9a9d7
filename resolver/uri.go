// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"fmt"
	"strings"

	radix "github.com/armon/go-radix"
	"github.com/pkg/errors"
)

// packageRootTrie is a typed wrapper over a radix tree mapping an absolute
// filesystem prefix to the package root that was resolved there, enabling
// longest-prefix lookup for the inverse of FormatPackageURI. Modeled
// directly on the teacher's deducerTrie in typed_radix.go, retargeted from
// import-path deducers to resolved package roots.
type packageRootTrie struct {
	t *radix.Tree
}

type packageRoot struct {
	URL     string
	Version string
}

func newPackageRootTrie() packageRootTrie {
	return packageRootTrie{t: radix.New()}
}

func (t packageRootTrie) Insert(absPrefix string, root packageRoot) (packageRoot, bool) {
	if v, had := t.t.Insert(absPrefix, root); had {
		return v.(packageRoot), had
	}
	return packageRoot{}, false
}

func (t packageRootTrie) LongestPrefix(abs string) (string, packageRoot, bool) {
	if p, v, has := t.t.LongestPrefix(abs); has {
		return p, v.(packageRoot), has
	}
	return "", packageRoot{}, false
}

// PackageRoots indexes resolved package roots by absolute cache path for
// bidirectional package URI <-> path mapping.
type PackageRoots struct {
	trie packageRootTrie
}

func NewPackageRoots() *PackageRoots {
	return &PackageRoots{trie: newPackageRootTrie()}
}

// Register records that absPrefix on disk corresponds to url@version.
func (p *PackageRoots) Register(absPrefix, url, version string) {
	p.trie.Insert(absPrefix, packageRoot{URL: url, Version: version})
}

// FormatPackageURI implements spec §4.A: "package://<url>@<version>/<rel>".
func FormatPackageURI(p *PackageRoots, abs string) (string, error) {
	prefix, root, ok := p.trie.LongestPrefix(abs)
	if !ok {
		return "", errors.Errorf("no package root registered for %s", abs)
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(abs, prefix), "/")
	return fmt.Sprintf("package://%s@%s/%s", root.URL, root.Version, rel), nil
}

// ParsePackageURI is the inverse of FormatPackageURI.
func ParsePackageURI(uri string) (url, version, rel string, err error) {
	const prefix = "package://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", "", errors.Errorf("not a package URI: %s", uri)
	}
	rest := strings.TrimPrefix(uri, prefix)
	at := strings.Index(rest, "@")
	if at < 0 {
		return "", "", "", errors.Errorf("malformed package URI, missing @version: %s", uri)
	}
	url = rest[:at]
	rest = rest[at+1:]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return url, rest, "", nil
	}
	version = rest[:slash]
	rel = rest[slash+1:]
	return url, version, rel, nil
}

// AbsolutePath resolves a package URI back to an absolute filesystem path
// using the same roots index, the other direction of the bidirectional
// mapping required by spec §6.
func (p *PackageRoots) AbsolutePath(uri string) (string, error) {
	url, version, rel, err := ParsePackageURI(uri)
	if err != nil {
		return "", err
	}
	var found string
	p.trie.t.Walk(func(s string, v interface{}) bool {
		root := v.(packageRoot)
		if root.URL == url && root.Version == version {
			found = s
			return true
		}
		return false
	})
	if found == "" {
		return "", errors.Errorf("no registered root for %s@%s", url, version)
	}
	if rel == "" {
		return found, nil
	}
	return found + "/" + rel, nil
}
