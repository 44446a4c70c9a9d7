// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolver implements spec §4.A: the source resolver's manifest,
// lockfile, closure, and package-URI handling. Fetching itself lives in
// the resolver/fetch subpackage.
package resolver

import (
	"io"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const ManifestName = "pcb.toml"

// Dependency is one entry of a manifest's [dependencies] table: either a
// bare version string, or a detailed spec with rev/branch/path overrides.
type Dependency struct {
	Version string
	Rev     string
	Branch  string
	Path    string
}

// KicadLibrary describes one [[workspace.kicad_library]] entry.
type KicadLibrary struct {
	Version   string
	Symbols   string
	Footprints string
	Models    map[string]string // Var -> Repo
}

// Workspace holds the root-only [workspace] table.
type Workspace struct {
	PcbVersion     string
	Members        []string
	Exclude        []string
	KicadLibraries []KicadLibrary
}

// Board holds the member-only [board] table.
type Board struct {
	Name        string
	Path        string
	Description string
}

// Manifest is the decoded form of a pcb.toml file, root or member.
type Manifest struct {
	Workspace    *Workspace
	Board        *Board
	Dependencies map[string]Dependency
}

type rawKicadLibrary struct {
	Version    string            `toml:"version"`
	Symbols    string            `toml:"symbols"`
	Footprints string            `toml:"footprints"`
	Models     map[string]string `toml:"models"`
}

type rawWorkspace struct {
	PcbVersion     string            `toml:"pcb-version"`
	Members        []string          `toml:"members"`
	Exclude        []string          `toml:"exclude"`
	KicadLibraries []rawKicadLibrary `toml:"kicad_library"`
}

type rawBoard struct {
	Name        string `toml:"name"`
	Path        string `toml:"path"`
	Description string `toml:"description"`
}

type rawDependency struct {
	Version string `toml:"version"`
	Rev     string `toml:"rev"`
	Branch  string `toml:"branch"`
	Path    string `toml:"path"`
}

type rawManifest struct {
	Workspace    *rawWorkspace   `toml:"workspace"`
	Board        *rawBoard       `toml:"board"`
	Dependencies map[string]toml.Tree `toml:"dependencies"`
}

// ReadManifest decodes a pcb.toml document.
func ReadManifest(r io.Reader) (*Manifest, error) {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing pcb.toml")
	}

	m := &Manifest{Dependencies: make(map[string]Dependency)}

	if ws := tree.Get("workspace"); ws != nil {
		wsTree, ok := ws.(*toml.Tree)
		if !ok {
			return nil, errors.New("[workspace] must be a table")
		}
		var rw rawWorkspace
		if err := wsTree.Unmarshal(&rw); err != nil {
			return nil, errors.Wrap(err, "decoding [workspace]")
		}
		w := &Workspace{
			PcbVersion: rw.PcbVersion,
			Members:    rw.Members,
			Exclude:    rw.Exclude,
		}
		for _, rl := range rw.KicadLibraries {
			w.KicadLibraries = append(w.KicadLibraries, KicadLibrary{
				Version:    rl.Version,
				Symbols:    rl.Symbols,
				Footprints: rl.Footprints,
				Models:     rl.Models,
			})
		}
		m.Workspace = w
	}

	if b := tree.Get("board"); b != nil {
		bTree, ok := b.(*toml.Tree)
		if !ok {
			return nil, errors.New("[board] must be a table")
		}
		var rb rawBoard
		if err := bTree.Unmarshal(&rb); err != nil {
			return nil, errors.Wrap(err, "decoding [board]")
		}
		m.Board = &Board{Name: rb.Name, Path: rb.Path, Description: rb.Description}
	}

	if d := tree.Get("dependencies"); d != nil {
		depTree, ok := d.(*toml.Tree)
		if !ok {
			return nil, errors.New("[dependencies] must be a table")
		}
		for _, key := range depTree.Keys() {
			val := depTree.Get(key)
			switch v := val.(type) {
			case string:
				m.Dependencies[key] = Dependency{Version: v}
			case *toml.Tree:
				var rd rawDependency
				if err := v.Unmarshal(&rd); err != nil {
					return nil, errors.Wrapf(err, "decoding dependency %q", key)
				}
				m.Dependencies[key] = Dependency{
					Version: rd.Version,
					Rev:     rd.Rev,
					Branch:  rd.Branch,
					Path:    rd.Path,
				}
			default:
				return nil, errors.Errorf("dependency %q has unsupported shape %T", key, val)
			}
		}
	}

	return m, nil
}
