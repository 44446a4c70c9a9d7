// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zenlang

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// EnumType is the callable type object returned by enum("A", "B", ...).
// Enum values permit implicit conversion from a string literal equal to
// a variant name, per spec §4.B's primitive-type rules.
type EnumType struct {
	variants map[string]bool
	order    []string
}

var (
	_ starlark.Value    = (*EnumType)(nil)
	_ starlark.Callable = (*EnumType)(nil)
)

func newEnumBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("enum", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("enum: unexpected keyword arguments")
		}
		et := &EnumType{variants: make(map[string]bool)}
		for _, a := range args {
			s, ok := a.(starlark.String)
			if !ok {
				return nil, fmt.Errorf("enum: variant names must be strings")
			}
			if et.variants[string(s)] {
				return nil, fmt.Errorf("enum: duplicate variant %q", string(s))
			}
			et.variants[string(s)] = true
			et.order = append(et.order, string(s))
		}
		if len(et.order) == 0 {
			return nil, fmt.Errorf("enum: at least one variant is required")
		}
		return et, nil
	})
}

func (t *EnumType) String() string        { return fmt.Sprintf("<enum %v>", t.order) }
func (t *EnumType) Type() string          { return "EnumType" }
func (t *EnumType) Freeze()               {}
func (t *EnumType) Truth() starlark.Bool  { return starlark.True }
func (t *EnumType) Hash() (uint32, error) { return starlark.String(fmt.Sprint(t.order)).Hash() }

// CallInternal implements implicit construction from a string literal:
// T("A") returns an EnumValue if "A" names a declared variant.
func (t *EnumType) CallInternal(thread *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name starlark.String
	if err := starlark.UnpackArgs("enum", args, kwargs, "variant", &name); err != nil {
		return nil, err
	}
	if !t.variants[string(name)] {
		return nil, fmt.Errorf("enum: %q is not a declared variant of %v", string(name), t.order)
	}
	return &EnumValue{owner: t, variant: string(name)}, nil
}

// Coerce attempts the implicit string-literal-to-enum conversion spec
// §4.B describes for config()/io() contracts.
func (t *EnumType) Coerce(v starlark.Value) (*EnumValue, bool) {
	if ev, ok := v.(*EnumValue); ok && ev.owner == t {
		return ev, true
	}
	if s, ok := v.(starlark.String); ok && t.variants[string(s)] {
		return &EnumValue{owner: t, variant: string(s)}, true
	}
	return nil, false
}

// EnumValue is one instantiated variant of an EnumType.
type EnumValue struct {
	owner   *EnumType
	variant string
}

var _ starlark.Value = (*EnumValue)(nil)
var _ starlark.Comparable = (*EnumValue)(nil)

func (v *EnumValue) String() string        { return v.variant }
func (v *EnumValue) Type() string          { return "Enum" }
func (v *EnumValue) Freeze()               {}
func (v *EnumValue) Truth() starlark.Bool  { return starlark.True }
func (v *EnumValue) Hash() (uint32, error) { return starlark.String(v.variant).Hash() }

func (v *EnumValue) CompareSameType(op syntax.Token, yV starlark.Value, depth int) (bool, error) {
	y, ok := yV.(*EnumValue)
	if !ok || y.owner != v.owner {
		return false, fmt.Errorf("cannot compare enums of different types")
	}
	switch op {
	case syntax.EQL:
		return v.variant == y.variant, nil
	case syntax.NEQ:
		return v.variant != y.variant, nil
	}
	return false, fmt.Errorf("enums only support == and !=")
}

// Variant returns the selected variant name.
func (v *EnumValue) Variant() string { return v.variant }