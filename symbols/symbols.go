// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symbols implements spec §4.E: a lazy parser/cache for KiCad
// symbol libraries with `extends` resolution, shared by the evaluator and
// the layout synchronizer.
//
// Grounded on the teacher's pkgtree package and source_manager.go. The
// first access to a library parses the whole file into an S-expression
// tree and records each top-level symbol's name and byte range; a
// Symbol's pins and properties are built only when that symbol is
// requested. A process-global RWMutex guards the registry of libraries,
// and a per-library mutex is held for the whole scan or symbol build, so
// callers working on different files do not block each other, while
// callers working on the same file are serialized even when they request
// different symbols.
package symbols

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/zenhdl/zen/sexpr"
)

// Symbol is a fully parsed schematic symbol definition.
type Symbol struct {
	Name         string
	PadToSignal  map[string]string // PadName -> SignalName, spec §3
	padOrder     []padEntry        // pads in declaration order, spec §4.C
	SourcePath   string
	RawSexp      *sexpr.Node
	Properties   map[string]string
}

// padEntry records one (pad, signal) assignment in the order it was
// declared, since PadToSignal's map iteration order is not stable across
// runs but spec §4.C requires component pin order to be.
type padEntry struct {
	Pad    string
	Signal string
}

// assignPad records a pad's signal, preserving first-seen declaration
// order: a re-assignment of an already-seen pad (e.g. a child symbol
// overriding an extends parent's pin) updates the existing entry in
// place rather than appending a duplicate.
func (s *Symbol) assignPad(pad, signal string) {
	if _, ok := s.PadToSignal[pad]; !ok {
		s.padOrder = append(s.padOrder, padEntry{Pad: pad, Signal: signal})
	} else {
		for i := range s.padOrder {
			if s.padOrder[i].Pad == pad {
				s.padOrder[i].Signal = signal
				break
			}
		}
	}
	s.PadToSignal[pad] = signal
}

// scanEntry records where a top-level (symbol "NAME" ...) definition
// lives in a library file, without parsing its body.
type scanEntry struct {
	name  string
	span  sexpr.Span
	extends string
}

// library is the lazily-populated cache entry for one .kicad_sym file.
type library struct {
	path string

	mu     sync.Mutex // guards parsed and the scan below
	src    []byte
	root   *sexpr.Node
	scan   map[string]scanEntry
	parsed map[string]*Symbol
}

// Cache is the process-global symbol library registry described in spec
// §4.E/§5: a single RWMutex-guarded map keyed by canonicalized absolute
// path, with per-library locking for the expensive parse step.
type Cache struct {
	mu   sync.RWMutex
	libs map[string]*library
}

// NewCache constructs an empty, independently-lockable cache. Most
// callers share the package-level Default cache; tests construct their
// own to avoid cross-test interference.
func NewCache() *Cache {
	return &Cache{libs: make(map[string]*library)}
}

// Default is the process-global cache consumed by the evaluator (§4.B's
// Symbol() built-in) and the layout synchronizer.
var Default = NewCache()

// Invalidate drops a library's cache entry, e.g. on file-change
// notification (spec §4.E).
func (c *Cache) Invalidate(path string) {
	canon, err := canonicalize(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	delete(c.libs, canon)
	c.mu.Unlock()
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (c *Cache) openLibrary(path string) (*library, error) {
	canon, err := canonicalize(path)
	if err != nil {
		canon = path
	}

	c.mu.RLock()
	lib, ok := c.libs[canon]
	c.mu.RUnlock()
	if ok {
		return lib, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if lib, ok := c.libs[canon]; ok {
		return lib, nil
	}
	lib = &library{path: canon}
	c.libs[canon] = lib
	return lib, nil
}

// ensureScanned performs the initial pass: find every top-level (symbol
// "NAME" ...) form and record its byte range and any (extends "PARENT"),
// without building a full Symbol. Must be called with lib.mu held.
func (lib *library) ensureScanned() error {
	if lib.scan != nil {
		return nil
	}
	src, err := os.ReadFile(lib.path)
	if err != nil {
		return errors.Wrapf(err, "reading symbol library %s", lib.path)
	}
	root, err := sexpr.Parse(src)
	if err != nil {
		return errors.Wrapf(err, "parsing symbol library %s", lib.path)
	}
	lib.src = src
	lib.root = root
	lib.scan = make(map[string]scanEntry)
	lib.parsed = make(map[string]*Symbol)

	for _, item := range root.ListItems() {
		if !item.IsListHeaded("symbol") {
			continue
		}
		nameNode := item.ListItems()[1]
		name := nameNode.AsString()
		entry := scanEntry{name: name, span: item.Span}
		for _, sub := range item.ListItems() {
			if sub.IsListHeaded("extends") && len(sub.ListItems()) > 1 {
				entry.extends = sub.ListItems()[1].AsString()
			}
		}
		lib.scan[name] = entry
	}
	return nil
}

// Names returns every symbol name found in the library's scan pass.
func (c *Cache) Names(path string) ([]string, error) {
	lib, err := c.openLibrary(path)
	if err != nil {
		return nil, err
	}
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if err := lib.ensureScanned(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(lib.scan))
	for n := range lib.scan {
		names = append(names, n)
	}
	return names, nil
}

// Get fully parses and returns the named symbol, resolving `extends`
// recursively: the parent is realized first, then its pins and
// properties are combined with the child's overrides. Graphics are not
// merged: RawSexp is the child's own node only.
func (c *Cache) Get(path, name string) (*Symbol, error) {
	lib, err := c.openLibrary(path)
	if err != nil {
		return nil, err
	}
	lib.mu.Lock()
	defer lib.mu.Unlock()
	return lib.resolve(name, nil)
}

// GetSole returns the library's single symbol, erroring if the library
// contains zero or more than one definition — spec §4.B's "Library path
// only, containing exactly one symbol" mode.
func (c *Cache) GetSole(path string) (*Symbol, error) {
	lib, err := c.openLibrary(path)
	if err != nil {
		return nil, err
	}
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if err := lib.ensureScanned(); err != nil {
		return nil, err
	}
	if len(lib.scan) != 1 {
		return nil, errors.Errorf("%s: expected exactly one symbol, found %d", path, len(lib.scan))
	}
	for name := range lib.scan {
		return lib.resolve(name, nil)
	}
	panic("unreachable")
}

// resolve must be called with lib.mu held. visiting guards against
// extends cycles.
func (lib *library) resolve(name string, visiting map[string]bool) (*Symbol, error) {
	if s, ok := lib.parsed[name]; ok {
		return s, nil
	}
	if err := lib.ensureScanned(); err != nil {
		return nil, err
	}
	entry, ok := lib.scan[name]
	if !ok {
		return nil, errors.Errorf("%s: no symbol named %q", lib.path, name)
	}
	if visiting == nil {
		visiting = make(map[string]bool)
	}
	if visiting[name] {
		return nil, errors.Errorf("%s: cycle in extends chain at %q", lib.path, name)
	}
	visiting[name] = true

	node := lib.root.NodeAt(entry.span)
	sym := &Symbol{
		Name:        name,
		PadToSignal: make(map[string]string),
		SourcePath:  lib.path,
		RawSexp:     node,
		Properties:  make(map[string]string),
	}

	if entry.extends != "" {
		parent, err := lib.resolve(entry.extends, visiting)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving extends %q for %q", entry.extends, name)
		}
		for _, pe := range parent.padOrder {
			sym.assignPad(pe.Pad, pe.Signal)
		}
		for k, v := range parent.Properties {
			sym.Properties[k] = v
		}
	}

	extractPins(node, sym)
	extractProperties(node, sym)

	lib.parsed[name] = sym
	return sym, nil
}

func extractPins(node *sexpr.Node, sym *Symbol) {
	for _, sub := range node.ListItems() {
		if sub.IsListHeaded("symbol") {
			// nested unit sub-symbols carry their own pins
			extractPins(sub, sym)
			continue
		}
		if !sub.IsListHeaded("pin") {
			continue
		}
		var padName, signalName string
		for _, field := range sub.ListItems() {
			if field.IsListHeaded("name") && len(field.ListItems()) > 1 {
				signalName = field.ListItems()[1].AsString()
			}
			if field.IsListHeaded("number") && len(field.ListItems()) > 1 {
				padName = field.ListItems()[1].AsString()
			}
		}
		if padName != "" {
			sym.assignPad(padName, signalName)
		}
	}
}

func extractProperties(node *sexpr.Node, sym *Symbol) {
	for _, sub := range node.ListItems() {
		if !sub.IsListHeaded("property") {
			continue
		}
		items := sub.ListItems()
		if len(items) < 3 {
			continue
		}
		key := items[1].AsString()
		val := items[2].AsString()
		sym.Properties[key] = val
	}
}

// DefinitionEntry is one (signal_name, [pad_names]) tuple used by the
// inline pin_defs constructor mode of Symbol().
type DefinitionEntry struct {
	Signal string
	Pads   []string
}

// FromDefinition builds an inline Symbol from pin_defs, the third
// construction mode in spec §4.B. Duplicate pad assignment is a type
// error, reported via the returned error.
func FromDefinition(entries []DefinitionEntry) (*Symbol, error) {
	sym := &Symbol{PadToSignal: make(map[string]string), Properties: make(map[string]string)}
	for _, e := range entries {
		for _, pad := range e.Pads {
			if existing, ok := sym.PadToSignal[pad]; ok {
				return nil, fmt.Errorf("duplicate pad assignment: pad %q already assigned to signal %q, cannot reassign to %q", pad, existing, e.Signal)
			}
			sym.assignPad(pad, e.Signal)
		}
	}
	return sym, nil
}

// SignalNames returns the set of distinct signal names the symbol
// declares, in the order their first pad was declared.
func (s *Symbol) SignalNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, pe := range s.padOrder {
		if !seen[pe.Signal] {
			seen[pe.Signal] = true
			names = append(names, pe.Signal)
		}
	}
	return names
}

// PadsForSignal returns every pad name mapped to the given signal, in the
// symbol's declaration order (spec §4.C: "Component pin names within an
// instance are stored in declaration order from the symbol").
func (s *Symbol) PadsForSignal(signal string) []string {
	var pads []string
	for _, pe := range s.padOrder {
		if pe.Signal == signal {
			pads = append(pads, pe.Pad)
		}
	}
	return pads
}
