// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zenlang

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// NetType is the callable type object returned by builtin.net("Name"): a
// nominal Net subtype. Net types are matched nominally (spec §4.B: "Power"
// != "Ground" even with identical structure), so equality and type
// matching are keyed on the type's name, not its structure.
type NetType struct {
	name string
}

var (
	_ starlark.Value    = (*NetType)(nil)
	_ starlark.Callable = (*NetType)(nil)
)

func NewNetType(name string) *NetType { return &NetType{name: name} }

func (t *NetType) String() string        { return fmt.Sprintf("<net type %s>", t.name) }
func (t *NetType) Type() string          { return "NetType" }
func (t *NetType) Freeze()               {}
func (t *NetType) Truth() starlark.Bool  { return starlark.True }
func (t *NetType) Hash() (uint32, error) { return starlark.String(t.name).Hash() }
func (t *NetType) Name() string          { return t.name }

// CallInternal implements Net(name_or_template?, *, name?, symbol?): spec
// §4.B's Net constructor. When called with another Net as the positional
// argument, it copies properties and symbol unless explicitly overridden.
func (t *NetType) CallInternal(thread *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var nameOrTemplate starlark.Value
	var name starlark.String
	var symbol *Symbol

	if err := starlark.UnpackArgs("Net", args, kwargs,
		"name_or_template?", &nameOrTemplate,
		"name?", &name,
		"symbol?", &symbol,
	); err != nil {
		return nil, err
	}

	mctx, err := currentModuleCtx(thread)
	if err != nil {
		return nil, err
	}

	var requested string
	var properties map[string]string
	var symbolName *string

	if template, ok := nameOrTemplate.(*Net); ok {
		requested = template.finalName
		properties = cloneProps(template.properties)
		if template.symbolName != nil {
			sn := *template.symbolName
			symbolName = &sn
		}
	} else if s, ok := nameOrTemplate.(starlark.String); ok {
		requested = string(s)
	}
	if name != "" {
		requested = string(name)
	}
	if requested == "" {
		requested = fmt.Sprintf("%s_%d", t.name, nextNetID())
	}
	if symbol != nil {
		properties = cloneProps(symbol.Properties)
		if symbol.Name != nil {
			sn := *symbol.Name
			symbolName = &sn
		}
	}

	finalName, original := mctx.dedupName(requested)

	n := &Net{
		id:           nextNetID(),
		finalName:    finalName,
		originalName: original,
		typeName:     t.name,
		properties:   properties,
		symbolName:   symbolName,
	}
	mctx.registerNet(n)
	return n, nil
}

// Net is spec §3's typed, first-class connectivity node.
type Net struct {
	id           NetID
	finalName    string
	originalName *string // nil when no dedup suffix was applied
	typeName     string
	properties   map[string]string
	symbolName   *string
	frozen       bool
}

var _ starlark.Value = (*Net)(nil)
var _ starlark.HasAttrs = (*Net)(nil)

func (n *Net) String() string       { return fmt.Sprintf("%s(%q)", n.typeName, n.finalName) }
func (n *Net) Type() string         { return "Net" }
func (n *Net) Freeze()              { n.frozen = true }
func (n *Net) Truth() starlark.Bool { return starlark.True }
func (n *Net) Hash() (uint32, error) {
	return starlark.MakeUint64(uint64(n.id)).Hash()
}

// ID returns the process-unique net identifier.
func (n *Net) ID() NetID { return n.id }

// Name returns the final, deduplicated name.
func (n *Net) Name() string { return n.finalName }

// OriginalName returns the name originally requested before dedup,
// falling back to the final name when no collision occurred.
func (n *Net) OriginalName() string {
	if n.originalName != nil {
		return *n.originalName
	}
	return n.finalName
}

// TypeName returns the nominal Net subtype name ("Net", "Power", ...).
func (n *Net) TypeName() string { return n.typeName }

// Properties returns the net's property map.
func (n *Net) Properties() map[string]string { return n.properties }

func (n *Net) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(n.finalName), nil
	case "net_id":
		return starlark.MakeUint64(uint64(n.id)), nil
	case "original_name":
		return starlark.String(n.OriginalName()), nil
	case "type":
		return starlark.String(n.typeName), nil
	case "properties":
		return mapToStruct(n.properties), nil
	}
	return nil, nil
}

func (n *Net) AttrNames() []string {
	return []string{"name", "net_id", "original_name", "type", "properties"}
}

func cloneProps(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mapToStruct(m map[string]string) *starlarkstruct.Struct {
	fields := make(starlark.StringDict, len(m))
	for k, v := range m {
		fields[k] = starlark.String(v)
	}
	return starlarkstruct.FromStringDict(starlarkstruct.Default, fields)
}

func structFromDict(fields starlark.StringDict) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlarkstruct.Default, fields)
}