// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zenlang

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/zenhdl/zen/internal/diag"
)

const moduleCtxKey = "zen.moduleCtx"

// maxDedupSuffixAttempts bounds name dedup exhaustion (spec §7
// NameCollision: "reserved identifier after dedup exhausted (>= 1000
// suffix attempts)").
const maxDedupSuffixAttempts = 1000

// absentSentinel is bound to a config/io parameter in non-strict
// (TestBench exploration) mode when no value, default, is supplied; using
// it raises a diagnostic only once it's actually read.
type absentSentinel struct{ name string }

func (a absentSentinel) String() string        { return fmt.Sprintf("<absent %s>", a.name) }
func (a absentSentinel) Type() string          { return "Absent" }
func (a absentSentinel) Freeze()               {}
func (a absentSentinel) Truth() starlark.Bool  { return starlark.False }
func (a absentSentinel) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: Absent") }

var _ starlark.Value = absentSentinel{}

// ChildKind distinguishes the four kinds of children a module can carry
// in insertion order: nested modules, components, raw nets declared
// directly in the module body, and io() port declarations.
type ChildKind int

const (
	ChildModule ChildKind = iota
	ChildComponent
	ChildNet
	ChildPort
)

// Child is one entry in a Module's insertion-ordered child list. Ports
// are interleaved with nets, components, and modules in true call order
// since all four are registered as their constructing builtin runs,
// which is what the schematic builder's preorder walk (spec §4.C) relies
// on to order net.ports correctly.
type Child struct {
	Kind      ChildKind
	Name      string
	Module    *Module
	Component *Component
	Net       *Net
	PortValue starlark.Value
}

// ModuleCtx accumulates the state of a single module evaluation: its
// declared config/io parameters, its children in insertion order, its net
// name dedup table, and its diagnostics. One ModuleCtx exists per module
// instantiation and is discarded once finish() has captured its result
// in a Module, matching spec §5's "one heap per evaluation context".
type ModuleCtx struct {
	Name   string // the call-site instance name chosen by the parent
	Path   string // source file being evaluated
	Strict bool   // false inside TestBench exploration

	configValues map[string]starlark.Value
	ioValues     map[string]starlark.Value

	children []Child

	netNameCounts map[string]int

	properties map[string]starlark.Value

	diags diag.Bag
}

func newModuleCtx(name, path string, strict bool, configValues, ioValues map[string]starlark.Value) *ModuleCtx {
	return &ModuleCtx{
		Name:          name,
		Path:          path,
		Strict:        strict,
		configValues:  configValues,
		ioValues:      ioValues,
		netNameCounts: make(map[string]int),
		properties:    make(map[string]starlark.Value),
	}
}

func currentModuleCtx(thread *starlark.Thread) (*ModuleCtx, error) {
	v := thread.Local(moduleCtxKey)
	mctx, ok := v.(*ModuleCtx)
	if !ok {
		return nil, fmt.Errorf("internal: no module context bound to thread")
	}
	return mctx, nil
}

func withModuleCtx(thread *starlark.Thread, mctx *ModuleCtx) {
	thread.SetLocal(moduleCtxKey, mctx)
}

// dedupName implements spec §4.B's net name deduplication: the first
// request for a name gets it verbatim; the k-th request (k >= 2) gets the
// first free suffix from "_k" upward, so repeats yield N, N_2, N_3, ...;
// the original requested name is retained separately.
func (m *ModuleCtx) dedupName(requested string) (final string, original *string) {
	count := m.netNameCounts[requested]
	m.netNameCounts[requested] = count + 1
	if count == 0 {
		return requested, nil
	}
	for suffix := count + 1; suffix <= maxDedupSuffixAttempts; suffix++ {
		candidate := fmt.Sprintf("%s_%d", requested, suffix)
		if _, taken := m.netNameCounts[candidate]; !taken {
			m.netNameCounts[candidate] = 1
			orig := requested
			return candidate, &orig
		}
	}
	orig := requested
	m.diags.Add(diag.New(diag.KindNameCollide, diag.SeverityError, m.Path,
		fmt.Sprintf("exhausted %d dedup suffixes for net name %q", maxDedupSuffixAttempts, requested)))
	return requested, &orig
}

func (m *ModuleCtx) registerNet(n *Net) {
	m.children = append(m.children, Child{Kind: ChildNet, Name: n.finalName, Net: n})
}

func (m *ModuleCtx) registerComponent(name string, c *Component) {
	m.children = append(m.children, Child{Kind: ChildComponent, Name: name, Component: c})
}

func (m *ModuleCtx) registerModule(name string, child *Module) {
	m.children = append(m.children, Child{Kind: ChildModule, Name: name, Module: child})
}

func (m *ModuleCtx) registerPort(name string, value starlark.Value) {
	m.children = append(m.children, Child{Kind: ChildPort, Name: name, PortValue: value})
}

func (m *ModuleCtx) addProperty(key string, value starlark.Value) {
	m.properties[key] = value
}

// config implements spec §4.B's config(name, T, optional?, default?,
// convert?) declaration.
func (m *ModuleCtx) config(name string, typ starlark.Value, optional bool, def starlark.Value, convert starlark.Callable, thread *starlark.Thread) (starlark.Value, error) {
	if v, ok := m.configValues[name]; ok {
		return convertIfNeeded(thread, v, typ, convert, name)
	}
	if def != nil {
		return convertIfNeeded(thread, def, typ, convert, name)
	}
	if optional {
		return starlark.None, nil
	}
	if !m.Strict {
		return absentSentinel{name: name}, nil
	}
	d := diag.New(diag.KindMissingInput, diag.SeverityError, m.Path,
		fmt.Sprintf("missing required input %q", name))
	m.diags.Add(d)
	return nil, d
}

// io implements spec §4.B's io(name, U, optional?) port declaration. U is
// either a *NetType or an *InterfaceType. Optional Net-typed ports with
// no supplied value default to a fresh anonymous Net of that type;
// optional interface-typed ports with no value default to None.
func (m *ModuleCtx) io(name string, typ starlark.Value, optional bool, thread *starlark.Thread) (starlark.Value, error) {
	if v, ok := m.ioValues[name]; ok {
		if !typeMatches(v, typ) {
			d := diag.New(diag.KindType, diag.SeverityError, m.Path,
				fmt.Sprintf("io %q: value does not match declared type", name))
			m.diags.Add(d)
			return nil, d
		}
		m.registerPort(name, v)
		return v, nil
	}
	if nt, ok := typ.(*NetType); ok && optional {
		v, err := nt.CallInternal(thread, nil, nil)
		if err != nil {
			return nil, err
		}
		m.registerPort(name, v)
		return v, nil
	}
	if optional {
		m.registerPort(name, starlark.None)
		return starlark.None, nil
	}
	d := diag.New(diag.KindMissingInput, diag.SeverityError, m.Path,
		fmt.Sprintf("missing required io %q", name))
	m.diags.Add(d)
	return nil, d
}

func convertIfNeeded(thread *starlark.Thread, v starlark.Value, typ starlark.Value, convert starlark.Callable, name string) (starlark.Value, error) {
	if typeMatches(v, typ) {
		return v, nil
	}
	if et, ok := typ.(*EnumType); ok {
		if ev, ok := et.Coerce(v); ok {
			return ev, nil
		}
	}
	if convert == nil {
		return nil, fmt.Errorf("config %q: value of type %s does not match declared type and no convert function given", name, v.Type())
	}
	result, err := starlark.Call(thread, convert, starlark.Tuple{v}, nil)
	if err != nil {
		return nil, fmt.Errorf("config %q: convert failed: %w", name, err)
	}
	if !typeMatches(result, typ) {
		return nil, fmt.Errorf("config %q: convert output does not match declared type", name)
	}
	return result, nil
}

// typeMatches implements the evaluator's nominal + structural type
// discipline: Net subtypes compare by NetType name; an interface value
// matches an interface type with the same name or, failing that, with
// the same set of field names; enum values must belong to the same
// EnumType; a type given as a string is compared with the value's
// Starlark type name; any other type value accepts every value.
func typeMatches(v starlark.Value, typ starlark.Value) bool {
	if typ == nil {
		return true
	}
	switch t := typ.(type) {
	case *NetType:
		n, ok := v.(*Net)
		return ok && n.typeName == t.name
	case *InterfaceType:
		iv, ok := v.(*InterfaceValue)
		if !ok {
			return false
		}
		if iv.typeName == t.name {
			return true
		}
		if len(iv.fieldOrder) != len(t.fields) {
			return false
		}
		for _, f := range t.fields {
			if _, has := iv.values[f.name]; !has {
				return false
			}
		}
		return true
	case *EnumType:
		ev, ok := v.(*EnumValue)
		return ok && ev.owner == t
	case starlark.String:
		return v.Type() == string(t)
	default:
		return true
	}
}