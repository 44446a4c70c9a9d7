// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zenlang

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
)

// InterfaceType is the callable type object returned by
// interface(field=T, ...): spec §3's "record type describing a named
// bundle of Nets and nested Interfaces". Fields are declared once and
// instantiated any number of times; each instantiation with a prefix
// produces a structurally independent copy so sibling instances never
// alias the same Net.
type InterfaceType struct {
	name   string
	fields []interfaceField
}

type interfaceField struct {
	name string
	typ  starlark.Value // *NetType or *InterfaceType
}

var (
	_ starlark.Value    = (*InterfaceType)(nil)
	_ starlark.Callable = (*InterfaceType)(nil)
)

// NewInterfaceType builds a named interface type from an ordered list of
// (fieldName, fieldType) pairs, preserving declaration order since field
// order determines the iteration order callers see on InterfaceValue.
func NewInterfaceType(name string, fieldNames []string, fieldTypes map[string]starlark.Value) (*InterfaceType, error) {
	it := &InterfaceType{name: name}
	for _, fn := range fieldNames {
		ft, ok := fieldTypes[fn]
		if !ok {
			return nil, fmt.Errorf("interface %q: missing type for field %q", name, fn)
		}
		switch ft.(type) {
		case *NetType, *InterfaceType:
		default:
			return nil, fmt.Errorf("interface %q: field %q has unsupported type %s", name, fn, ft.Type())
		}
		it.fields = append(it.fields, interfaceField{name: fn, typ: ft})
	}
	return it, nil
}

func (t *InterfaceType) String() string        { return fmt.Sprintf("<interface type %s>", t.name) }
func (t *InterfaceType) Type() string          { return "InterfaceType" }
func (t *InterfaceType) Freeze()               {}
func (t *InterfaceType) Truth() starlark.Bool  { return starlark.True }
func (t *InterfaceType) Hash() (uint32, error) { return starlark.String(t.name).Hash() }
func (t *InterfaceType) Name() string          { return t.name }

// FieldNames returns the interface's field names in declaration order.
func (t *InterfaceType) FieldNames() []string {
	names := make([]string, len(t.fields))
	for i, f := range t.fields {
		names[i] = f.name
	}
	return names
}

// CallInternal implements T(prefix?) and T(name=Net(...), ...): spec
// §4.B's interface instantiation. With no arguments, a new structural
// copy is built using each field's own default construction (fresh Nets
// named after the field, nested interfaces instantiated recursively).
// A string positional argument is used as a net-name prefix for every
// leaf; explicit keyword arguments override individual fields with
// caller-supplied Nets or InterfaceValues, which must type-match.
func (t *InterfaceType) CallInternal(thread *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var prefix starlark.String
	if err := starlark.UnpackArgs(t.name, args, nil, "prefix?", &prefix); err != nil {
		return nil, err
	}

	overrides := make(map[string]starlark.Value, len(kwargs))
	for _, kw := range kwargs {
		key, ok := kw[0].(starlark.String)
		if !ok {
			continue
		}
		overrides[string(key)] = kw[1]
	}

	mctx, err := currentModuleCtx(thread)
	if err != nil {
		return nil, err
	}

	values := make(map[string]starlark.Value, len(t.fields))
	for _, f := range t.fields {
		if v, ok := overrides[f.name]; ok {
			if !typeMatches(v, f.typ) {
				return nil, fmt.Errorf("interface %q: field %q type mismatch", t.name, f.name)
			}
			values[f.name] = v
			continue
		}

		leafName := f.name
		if prefix != "" {
			leafName = fmt.Sprintf("%s_%s", string(prefix), f.name)
		}

		switch ft := f.typ.(type) {
		case *NetType:
			v, err := ft.CallInternal(thread, nil, []starlark.Tuple{{starlark.String("name"), starlark.String(leafName)}})
			if err != nil {
				return nil, err
			}
			values[f.name] = v
		case *InterfaceType:
			var subArgs starlark.Tuple
			if leafName != f.name || prefix != "" {
				subArgs = starlark.Tuple{starlark.String(leafName)}
			}
			v, err := ft.CallInternal(thread, subArgs, nil)
			if err != nil {
				return nil, err
			}
			values[f.name] = v
		}
	}

	_ = mctx // interfaces don't register themselves as children; their leaf Nets already did.

	return &InterfaceValue{typeName: t.name, fieldOrder: t.FieldNames(), values: values}, nil
}

// InterfaceValue is one instantiation of an InterfaceType: a structural
// bundle of Nets and nested InterfaceValues addressed by field name.
type InterfaceValue struct {
	typeName   string
	fieldOrder []string
	values     map[string]starlark.Value
	frozen     bool
}

var (
	_ starlark.Value    = (*InterfaceValue)(nil)
	_ starlark.HasAttrs = (*InterfaceValue)(nil)
)

func (v *InterfaceValue) String() string {
	return fmt.Sprintf("%s(%s)", v.typeName, joinFieldOrder(v.fieldOrder))
}
func (v *InterfaceValue) Type() string { return "Interface" }
func (v *InterfaceValue) Freeze() {
	v.frozen = true
	for _, f := range v.values {
		f.Freeze()
	}
}
func (v *InterfaceValue) Truth() starlark.Bool { return starlark.True }
func (v *InterfaceValue) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable: Interface")
}

func (v *InterfaceValue) TypeName() string { return v.typeName }

// Field returns the named leaf value, which is either a *Net or a
// nested *InterfaceValue.
func (v *InterfaceValue) Field(name string) (starlark.Value, bool) {
	f, ok := v.values[name]
	return f, ok
}

// Fields returns every (name, value) pair in declaration order, used by
// the schematic builder to flatten an interface-typed port into its
// leaf Net connections.
func (v *InterfaceValue) Fields() []struct {
	Name  string
	Value starlark.Value
} {
	out := make([]struct {
		Name  string
		Value starlark.Value
	}, 0, len(v.fieldOrder))
	for _, name := range v.fieldOrder {
		out = append(out, struct {
			Name  string
			Value starlark.Value
		}{Name: name, Value: v.values[name]})
	}
	return out
}

func (v *InterfaceValue) Attr(name string) (starlark.Value, error) {
	if f, ok := v.values[name]; ok {
		return f, nil
	}
	return nil, nil
}

func (v *InterfaceValue) AttrNames() []string {
	names := make([]string, len(v.fieldOrder))
	copy(names, v.fieldOrder)
	sort.Strings(names)
	return names
}

func joinFieldOrder(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ", "
		}
		out += f
	}
	return out
}