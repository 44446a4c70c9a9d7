// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zenlang

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/zenhdl/zen/internal/diag"
)

// Module is the frozen result of evaluating one Zen source unit, spec
// §3's "callable entity with declared config/io parameters and a set of
// children". Once built, a Module is immutable and safe to share across
// goroutines.
type Module struct {
	Name   string
	Path   string
	Strict bool

	Children   []Child // insertion order, spec §4.B determinism requirement
	Properties map[string]starlark.Value

	LayoutPath         string
	DefaultBoardConfig string
	BoardConfigs       map[string]string

	Diagnostics []*diag.Diagnostic

	frozen bool
}

var _ starlark.Value = (*Module)(nil)
var _ starlark.HasAttrs = (*Module)(nil)

func (m *Module) String() string        { return fmt.Sprintf("Module(%q)", m.Name) }
func (m *Module) Type() string          { return "Module" }
func (m *Module) Freeze()               { m.frozen = true }
func (m *Module) Truth() starlark.Bool  { return starlark.True }
func (m *Module) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: Module") }

func (m *Module) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(m.Name), nil
	case "layout_path":
		return starlark.String(m.LayoutPath), nil
	case "default_board_config":
		return starlark.String(m.DefaultBoardConfig), nil
	}
	if v, ok := m.Properties[name]; ok {
		return v, nil
	}
	for _, c := range m.Children {
		if c.Name == name {
			switch c.Kind {
			case ChildNet:
				return c.Net, nil
			case ChildComponent:
				return c.Component, nil
			case ChildModule:
				return c.Module, nil
			case ChildPort:
				return c.PortValue, nil
			}
		}
	}
	return nil, nil
}

func (m *Module) AttrNames() []string {
	names := []string{"name", "layout_path", "default_board_config"}
	for k := range m.Properties {
		names = append(names, k)
	}
	for _, c := range m.Children {
		names = append(names, c.Name)
	}
	return names
}

// HasErrors reports whether this module, or any descendant captured as
// a Diagnostic during a failed child evaluation, recorded an
// error-severity diagnostic.
func (m *Module) HasErrors() bool {
	for _, d := range m.Diagnostics {
		if d.Severity == diag.SeverityError {
			return true
		}
	}
	return false
}

func (mctx *ModuleCtx) finish() *Module {
	return &Module{
		Name:        mctx.Name,
		Path:        mctx.Path,
		Strict:      mctx.Strict,
		Children:    mctx.children,
		Properties:  mctx.properties,
		Diagnostics: mctx.diags.Items(),
	}
}

// moduleExecKey is the thread-local slot holding the callback that
// actually loads and evaluates a target source file into a *Module.
// eval.go installs it once per top-level EvalModule call; ModuleLoader
// uses it to recurse into Module(path)(**kwargs) calls without this
// package needing to know about the source resolver.
const moduleExecKey = "zen.moduleExec"

// ModuleExecFunc loads and evaluates the Zen source at path under the
// given provided config/io values, returning the frozen child Module.
// strict is false only for TestBench exploration (spec §4.B): missing,
// non-optional, non-defaulted inputs bind to the absent sentinel instead
// of failing immediately.
type ModuleExecFunc func(thread *starlark.Thread, path string, provided map[string]starlark.Value, strict bool) (*Module, error)

func withModuleExec(thread *starlark.Thread, fn ModuleExecFunc) {
	thread.SetLocal(moduleExecKey, fn)
}

func currentModuleExec(thread *starlark.Thread) (ModuleExecFunc, error) {
	v := thread.Local(moduleExecKey)
	fn, ok := v.(ModuleExecFunc)
	if !ok {
		return nil, fmt.Errorf("internal: no module loader bound to thread")
	}
	return fn, nil
}

// ModuleLoader is the callable value returned by Module(path_or_spec):
// spec §4.B, "when called with keyword arguments matching the module's
// config/io, evaluates the target source into a child module."
type ModuleLoader struct {
	path string
}

var (
	_ starlark.Value    = (*ModuleLoader)(nil)
	_ starlark.Callable = (*ModuleLoader)(nil)
)

// NewModuleLoader constructs a loader bound to a resolved absolute path.
// Path resolution itself (loadspec.ResolveLoad) happens before this
// constructor is reached, in the Module(...) builtin.
func NewModuleLoader(path string) *ModuleLoader { return &ModuleLoader{path: path} }

func (l *ModuleLoader) String() string        { return fmt.Sprintf("<module loader %s>", l.path) }
func (l *ModuleLoader) Type() string          { return "ModuleLoader" }
func (l *ModuleLoader) Freeze()               {}
func (l *ModuleLoader) Truth() starlark.Bool  { return starlark.True }
func (l *ModuleLoader) Hash() (uint32, error) { return starlark.String(l.path).Hash() }

// CallInternal evaluates the target module with the caller's kwargs
// bound as its provided config/io values. A string `name` keyword sets
// the instance name recorded on the parent's Child entry; without one,
// the name is the file's base name plus "_" and a fresh numeric ID.
// Positional arguments are rejected.
func (l *ModuleLoader) CallInternal(thread *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("module %q: unexpected positional arguments", l.path)
	}

	provided := make(map[string]starlark.Value, len(kwargs))
	instanceName := ""
	for _, kw := range kwargs {
		key, ok := kw[0].(starlark.String)
		if !ok {
			return nil, fmt.Errorf("module %q: keyword argument names must be strings", l.path)
		}
		if string(key) == "name" {
			if s, ok := kw[1].(starlark.String); ok {
				instanceName = string(s)
				continue
			}
		}
		provided[string(key)] = kw[1]
	}

	exec, err := currentModuleExec(thread)
	if err != nil {
		return nil, err
	}

	parent, err := currentModuleCtx(thread)
	if err != nil {
		return nil, err
	}

	if instanceName == "" {
		instanceName = fmt.Sprintf("%s_%d", baseName(l.path), nextNetID())
	}

	// A failed child evaluation is recorded as a Diagnostic on the
	// parent and does NOT propagate as a Starlark error: the call site
	// yields None and the parent's evaluation continues (spec §4.B).
	child, err := exec(thread, l.path, provided, true)
	if err != nil {
		d := diag.Wrap(err, diag.KindInternal, l.path, fmt.Sprintf("evaluating module %q", l.path))
		parent.diags.Add(d)
		return starlark.None, nil
	}
	child.Name = instanceName
	for _, d := range child.Diagnostics {
		parent.diags.Add(diag.Frame(instanceName, d))
	}
	parent.registerModule(instanceName, child)
	return child, nil
}

func baseName(path string) string {
	i := len(path) - 1
	for ; i >= 0; i-- {
		if path[i] == '/' {
			break
		}
	}
	name := path[i+1:]
	for j := 0; j < len(name); j++ {
		if name[j] == '.' {
			return name[:j]
		}
	}
	return name
}

// newModuleBuiltin returns the Module(path_or_spec) built-in. resolve
// turns a load-spec string into an absolute, already-fetched path, the
// same way a Starlark load() statement would; it is supplied by eval.go.
func newModuleBuiltin(resolve func(thread *starlark.Thread, spec string) (string, error)) *starlark.Builtin {
	return starlark.NewBuiltin("Module", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var pathOrSpec starlark.String
		if err := starlark.UnpackArgs("Module", args, kwargs, "path_or_spec", &pathOrSpec); err != nil {
			return nil, err
		}
		abs, err := resolve(thread, string(pathOrSpec))
		if err != nil {
			return nil, fmt.Errorf("Module: %w", err)
		}
		return NewModuleLoader(abs), nil
	})
}