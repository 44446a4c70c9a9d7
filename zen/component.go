// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zenlang

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.starlark.net/starlark"

	"github.com/zenhdl/zen/symbols"
)

// Component is spec §3's leaf circuit element: a named instance of a
// Symbol's pinout, wired to Nets via its declared signals.
type Component struct {
	Name        string
	MPN         string
	CType       string
	Footprint   string
	Prefix      string
	Connections map[string]*Net // SignalName -> Net, in declaration order via SignalOrder
	SignalOrder []string
	Properties  map[string]starlark.Value
	Symbol      *Symbol
	SpiceModel  string

	frozen bool
}

var _ starlark.Value = (*Component)(nil)
var _ starlark.HasAttrs = (*Component)(nil)

func (c *Component) String() string        { return fmt.Sprintf("Component(%q)", c.Name) }
func (c *Component) Type() string          { return "Component" }
func (c *Component) Freeze()               { c.frozen = true }
func (c *Component) Truth() starlark.Bool  { return starlark.True }
func (c *Component) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: Component") }

func (c *Component) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(c.Name), nil
	case "mpn":
		return starlark.String(c.MPN), nil
	case "type":
		return starlark.String(c.CType), nil
	case "footprint":
		return starlark.String(c.Footprint), nil
	case "prefix":
		return starlark.String(c.Prefix), nil
	case "spice_model":
		return starlark.String(c.SpiceModel), nil
	case "properties":
		fields := make(starlark.StringDict, len(c.Properties))
		for k, v := range c.Properties {
			fields[k] = v
		}
		return structFromDict(fields), nil
	}
	if n, ok := c.Connections[name]; ok {
		return n, nil
	}
	return nil, nil
}

func (c *Component) AttrNames() []string {
	names := []string{"name", "mpn", "type", "footprint", "prefix", "spice_model", "properties"}
	names = append(names, c.SignalOrder...)
	return names
}

// newComponentBuiltin returns the Component(...) built-in implementing
// spec §4.B's constructor contract.
func newComponentBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("Component", componentBuiltinImpl)
}

func componentBuiltinImpl(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name       starlark.String
		footprint  starlark.String
		pinDefs    *starlark.Dict
		symbol     *Symbol
		pins       *starlark.Dict
		prefix     starlark.String = "U"
		mpn        starlark.String
		ctype      starlark.String
		properties *starlark.Dict
		spiceModel starlark.String
	)

	if err := starlark.UnpackArgs("Component", args, kwargs,
		"name", &name,
		"footprint", &footprint,
		"pin_defs?", &pinDefs,
		"symbol?", &symbol,
		"pins", &pins,
		"prefix?", &prefix,
		"mpn?", &mpn,
		"type?", &ctype,
		"properties?", &properties,
		"spice_model?", &spiceModel,
	); err != nil {
		return nil, err
	}

	if pinDefs == nil && symbol == nil {
		return nil, fmt.Errorf("Component %q: exactly one of pin_defs or symbol is required", string(name))
	}

	mctx, err := currentModuleCtx(thread)
	if err != nil {
		return nil, err
	}

	// Pin map: pin_defs overrides the symbol's pad map while the symbol's
	// metadata (properties, raw s-expression) is retained — the Open
	// Question decision recorded for this constructor.
	var padToSignal map[string]string
	var effectiveSymbol *Symbol
	if symbol != nil {
		effectiveSymbol = symbol
		padToSignal = symbol.PadToSignal
	}
	if pinDefs != nil {
		overridden, err := padMapFromDict(pinDefs)
		if err != nil {
			return nil, fmt.Errorf("Component %q: pin_defs: %w", string(name), err)
		}
		padToSignal = overridden
		raw, err := symbolFromPadMap(pinDefs)
		if err != nil {
			return nil, fmt.Errorf("Component %q: pin_defs: %w", string(name), err)
		}
		if effectiveSymbol == nil {
			effectiveSymbol = &Symbol{PadToSignal: overridden, raw: raw}
		} else {
			if symbol.raw != nil {
				raw.Name, raw.SourcePath = symbol.raw.Name, symbol.raw.SourcePath
				raw.RawSexp, raw.Properties = symbol.raw.RawSexp, symbol.raw.Properties
			}
			effectiveSymbol = &Symbol{Name: symbol.Name, LibraryPath: symbol.LibraryPath, Properties: symbol.Properties, PadToSignal: overridden, raw: raw}
		}
	}

	declaredSignals := make(map[string]bool)
	for _, sig := range padToSignal {
		declaredSignals[sig] = true
	}

	connections := make(map[string]*Net)
	seenPins := make(map[string]bool)
	if pins != nil {
		for _, item := range pins.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("Component %q: pins keys must be strings", string(name))
			}
			signal := string(key)
			if !declaredSignals[signal] {
				return nil, fmt.Errorf("Component %q: unknown pin %q", string(name), signal)
			}
			n, ok := item[1].(*Net)
			if !ok {
				return nil, fmt.Errorf("Component %q: pin %q must be a Net, got %s", string(name), signal, item[1].Type())
			}
			connections[signal] = n
			seenPins[signal] = true
		}
	}
	for sig := range declaredSignals {
		if !seenPins[sig] {
			return nil, fmt.Errorf("Component %q: missing pin for declared signal %q", string(name), sig)
		}
	}

	// Declaration order, not alphabetical: spec §4.C requires component
	// pin order to follow the backing symbol's declaration order, which
	// effectiveSymbol.raw.SignalNames() preserves (derived from the pad
	// parse order, or from pin_defs's dict order for inline symbols).
	signalOrder := effectiveSymbol.raw.SignalNames()

	fp := string(footprint)
	if strings.HasSuffix(fp, ".kicad_mod") && !filepath.IsAbs(fp) {
		if dir := filepath.Dir(mctx.Path); dir != "." {
			fp = filepath.Join(dir, fp)
		}
	}

	props := make(map[string]starlark.Value)
	if properties != nil {
		for _, item := range properties.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				continue
			}
			props[string(key)] = item[1]
			if sval, ok := item[1].(starlark.String); ok {
				if pv, ok := parsePhysicalValue(string(sval)); ok {
					props["__"+string(key)+"__"] = pv
				}
			}
		}
	}

	c := &Component{
		Name:        string(name),
		MPN:         string(mpn),
		CType:       string(ctype),
		Footprint:   fp,
		Prefix:      string(prefix),
		Connections: connections,
		SignalOrder: signalOrder,
		Properties:  props,
		Symbol:      effectiveSymbol,
		SpiceModel:  string(spiceModel),
	}
	mctx.registerComponent(c.Name, c)
	return c, nil
}

// symbolFromPadMap builds the backing symbols.Symbol for a Component's
// inline pin_defs, mirroring symbolFromPinDefs in symbol.go, so that
// Component(pin_defs=...) gets a working PadsForSignal just like
// Symbol(pin_defs=...) does.
func symbolFromPadMap(d *starlark.Dict) (*symbols.Symbol, error) {
	var entries []symbols.DefinitionEntry
	for _, item := range d.Items() {
		signalKey, ok := item[0].(starlark.String)
		if !ok {
			return nil, fmt.Errorf("pin_defs keys must be strings")
		}
		pads, err := unpackStringList(item[1])
		if err != nil {
			return nil, fmt.Errorf("pin_defs[%q]: %w", string(signalKey), err)
		}
		entries = append(entries, symbols.DefinitionEntry{Signal: string(signalKey), Pads: pads})
	}
	return symbols.FromDefinition(entries)
}

func padMapFromDict(d *starlark.Dict) (map[string]string, error) {
	out := make(map[string]string)
	for _, item := range d.Items() {
		signalKey, ok := item[0].(starlark.String)
		if !ok {
			return nil, fmt.Errorf("keys must be strings")
		}
		pads, err := unpackStringList(item[1])
		if err != nil {
			return nil, fmt.Errorf("%q: %w", string(signalKey), err)
		}
		for _, pad := range pads {
			if existing, ok := out[pad]; ok {
				return nil, fmt.Errorf("duplicate pad assignment: pad %q already assigned to signal %q", pad, existing)
			}
			out[pad] = string(signalKey)
		}
	}
	return out, nil
}