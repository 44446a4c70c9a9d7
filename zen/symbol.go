// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zenlang

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/zenhdl/zen/symbols"
)

// Symbol is the evaluator-facing wrapper around a schematic symbol
// definition, built by one of the three constructor modes spec §4.B
// describes: inline pin_defs, a library path holding exactly one
// symbol, or a library path plus an explicit symbol name.
type Symbol struct {
	Name        *string // the library symbol name, nil for inline pin_defs
	LibraryPath string  // empty for inline pin_defs
	Properties  map[string]string
	PadToSignal map[string]string
	raw         *symbols.Symbol
}

var _ starlark.Value = (*Symbol)(nil)
var _ starlark.HasAttrs = (*Symbol)(nil)

func (s *Symbol) String() string {
	if s.Name != nil {
		return fmt.Sprintf("Symbol(%q, %q)", s.LibraryPath, *s.Name)
	}
	return "Symbol(<inline>)"
}
func (s *Symbol) Type() string          { return "Symbol" }
func (s *Symbol) Freeze()               {}
func (s *Symbol) Truth() starlark.Bool  { return starlark.True }
func (s *Symbol) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: Symbol") }

func (s *Symbol) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		if s.Name == nil {
			return starlark.None, nil
		}
		return starlark.String(*s.Name), nil
	case "library_path":
		return starlark.String(s.LibraryPath), nil
	case "properties":
		return mapToStruct(s.Properties), nil
	}
	return nil, nil
}

func (s *Symbol) AttrNames() []string {
	return []string{"name", "library_path", "properties"}
}

// PadsForSignal returns the pad names the given signal maps to, in the
// order recorded by the backing symbol definition. Used by the schematic
// builder (spec §4.C) to populate each Pin instance's pad list.
func (s *Symbol) PadsForSignal(signal string) []string {
	if s.raw == nil {
		return nil
	}
	return s.raw.PadsForSignal(signal)
}

// symbolCache is the process-global cache the Symbol() builtin consults.
var symbolCache = symbols.Default

// newSymbolBuiltin returns the Symbol(...) built-in function, spec
// §4.B's three-mode constructor: Symbol(library, name=...),
// Symbol(library=...) alone (library must hold exactly one symbol), or
// Symbol(pin_defs={...}).
func newSymbolBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("Symbol", symbolBuiltinImpl)
}

func symbolBuiltinImpl(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var library starlark.String
	var name starlark.String
	var pinDefs *starlark.Dict

	if err := starlark.UnpackArgs("Symbol", args, kwargs,
		"library?", &library,
		"name?", &name,
		"pin_defs?", &pinDefs,
	); err != nil {
		return nil, err
	}

	if pinDefs != nil {
		if library != "" || name != "" {
			return nil, fmt.Errorf("Symbol: pin_defs cannot be combined with library/name")
		}
		return symbolFromPinDefs(pinDefs)
	}

	if library == "" {
		return nil, fmt.Errorf("Symbol: one of library or pin_defs is required")
	}

	path := string(library)
	if name != "" {
		raw, err := symbolCache.Get(path, string(name))
		if err != nil {
			return nil, fmt.Errorf("Symbol: %w", err)
		}
		n := string(name)
		return &Symbol{Name: &n, LibraryPath: path, Properties: raw.Properties, PadToSignal: raw.PadToSignal, raw: raw}, nil
	}

	raw, err := symbolCache.GetSole(path)
	if err != nil {
		return nil, fmt.Errorf("Symbol: %w", err)
	}
	n := raw.Name
	return &Symbol{Name: &n, LibraryPath: path, Properties: raw.Properties, PadToSignal: raw.PadToSignal, raw: raw}, nil
}

func symbolFromPinDefs(pinDefs *starlark.Dict) (*Symbol, error) {
	var entries []symbols.DefinitionEntry
	for _, item := range pinDefs.Items() {
		signalKey, ok := item[0].(starlark.String)
		if !ok {
			return nil, fmt.Errorf("Symbol: pin_defs keys must be strings")
		}
		pads, err := unpackStringList(item[1])
		if err != nil {
			return nil, fmt.Errorf("Symbol: pin_defs[%q]: %w", string(signalKey), err)
		}
		entries = append(entries, symbols.DefinitionEntry{Signal: string(signalKey), Pads: pads})
	}
	raw, err := symbols.FromDefinition(entries)
	if err != nil {
		return nil, fmt.Errorf("Symbol: %w", err)
	}
	return &Symbol{Properties: raw.Properties, PadToSignal: raw.PadToSignal, raw: raw}, nil
}

func unpackStringList(v starlark.Value) ([]string, error) {
	if s, ok := v.(starlark.String); ok {
		return []string{string(s)}, nil
	}
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("expected string or list of strings")
	}
	var out []string
	it := iterable.Iterate()
	defer it.Done()
	var x starlark.Value
	for it.Next(&x) {
		s, ok := x.(starlark.String)
		if !ok {
			return nil, fmt.Errorf("expected string elements")
		}
		out = append(out, string(s))
	}
	return out, nil
}