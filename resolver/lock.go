// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const LockName = "pcb.sum"

// LockEntry is one parsed line of pcb.sum. A pcb.toml-suffixed entry
// participates in closure verification (spec §6): it hashes the manifest
// of a dependency rather than its source tree.
type LockEntry struct {
	ModulePath string
	Version    string
	IsManifest bool // Module+"/pcb.toml" form
	Hash       string
}

func (e LockEntry) String() string {
	if e.IsManifest {
		return fmt.Sprintf("%s %s/pcb.toml h1:%s", e.ModulePath, e.Version, e.Hash)
	}
	return fmt.Sprintf("%s %s h1:%s", e.ModulePath, e.Version, e.Hash)
}

// Lock is the parsed form of pcb.sum: a line-oriented, sorted digest file
// analogous to Go's go.sum.
type Lock struct {
	Entries []LockEntry
}

// ReadLock parses a pcb.sum document.
func ReadLock(r io.Reader) (*Lock, error) {
	l := &Lock{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, errors.Errorf("pcb.sum:%d: expected 3 fields, got %d", lineNo, len(fields))
		}
		modulePath, versionField, hashField := fields[0], fields[1], fields[2]

		entry := LockEntry{ModulePath: modulePath}
		if strings.HasSuffix(versionField, "/pcb.toml") {
			entry.IsManifest = true
			entry.Version = strings.TrimSuffix(versionField, "/pcb.toml")
		} else {
			entry.Version = versionField
		}

		h, ok := strings.CutPrefix(hashField, "h1:")
		if !ok {
			return nil, errors.Errorf("pcb.sum:%d: hash field must be h1:<hash>, got %q", lineNo, hashField)
		}
		entry.Hash = h

		l.Entries = append(l.Entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading pcb.sum")
	}
	return l, nil
}

// Write serializes the lock in canonical sorted order so that repeated
// writes of an unchanged closure are byte-identical.
func (l *Lock) Write(w io.Writer) error {
	sorted := append([]LockEntry(nil), l.Entries...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ModulePath != sorted[j].ModulePath {
			return sorted[i].ModulePath < sorted[j].ModulePath
		}
		if sorted[i].Version != sorted[j].Version {
			return sorted[i].Version < sorted[j].Version
		}
		return !sorted[i].IsManifest && sorted[j].IsManifest
	})
	for _, e := range sorted {
		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			return err
		}
	}
	return nil
}

// Lookup finds the source-tree hash recorded for modulePath@version, if
// any.
func (l *Lock) Lookup(modulePath, version string) (string, bool) {
	for _, e := range l.Entries {
		if e.ModulePath == modulePath && e.Version == version && !e.IsManifest {
			return e.Hash, true
		}
	}
	return "", false
}

// Diff reports whether any versioned ModuleLine in closure lacks a
// source-tree entry for its selected version in the lock. Hashes are not
// compared. Resolve stores the result in ResolutionResult.LockfileChanged.
func (l *Lock) Diff(closure map[ModuleLine]string) (changed bool) {
	have := make(map[string]string, len(l.Entries))
	for _, e := range l.Entries {
		if !e.IsManifest {
			have[e.ModulePath+"@"+e.Version] = e.Hash
		}
	}
	for line, version := range closure {
		if line.Family == "unversioned" {
			continue
		}
		if _, ok := have[line.ModulePath+"@"+version]; !ok {
			return true
		}
	}
	return false
}
