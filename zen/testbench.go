// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zenlang

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/zenhdl/zen/internal/diag"
)

// ModuleView is the read-only view a TestBench's deferred check
// functions receive: nets, ports, and component attributes of one
// evaluated test case, without exposing any mutating builtin.
type ModuleView struct {
	m *Module
}

var _ starlark.Value = (*ModuleView)(nil)
var _ starlark.HasAttrs = (*ModuleView)(nil)

func (v *ModuleView) String() string        { return fmt.Sprintf("ModuleView(%q)", v.m.Name) }
func (v *ModuleView) Type() string          { return "ModuleView" }
func (v *ModuleView) Freeze()               {}
func (v *ModuleView) Truth() starlark.Bool  { return starlark.True }
func (v *ModuleView) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: ModuleView") }

func (v *ModuleView) Attr(name string) (starlark.Value, error) { return v.m.Attr(name) }
func (v *ModuleView) AttrNames() []string                      { return v.m.AttrNames() }

// TestCase is one named set of config/io overrides a TestBench evaluates
// the target module under.
type TestCase struct {
	Name      string
	Overrides map[string]starlark.Value
}

// TestBenchResult is the frozen outcome of evaluating every test case and
// running every deferred check against it.
type TestBenchResult struct {
	Name        string
	Modules     map[string]*Module // test case name -> evaluated module
	Diagnostics []*diag.Diagnostic
}

var _ starlark.Value = (*TestBenchResult)(nil)
var _ starlark.HasAttrs = (*TestBenchResult)(nil)

func (r *TestBenchResult) String() string        { return fmt.Sprintf("TestBench(%q)", r.Name) }
func (r *TestBenchResult) Type() string          { return "TestBenchResult" }
func (r *TestBenchResult) Freeze()               {}
func (r *TestBenchResult) Truth() starlark.Bool  { return starlark.Bool(!r.HasErrors()) }
func (r *TestBenchResult) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: TestBenchResult") }

func (r *TestBenchResult) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(r.Name), nil
	case "passed":
		return starlark.Bool(!r.HasErrors()), nil
	}
	if m, ok := r.Modules[name]; ok {
		return &ModuleView{m: m}, nil
	}
	return nil, nil
}

func (r *TestBenchResult) AttrNames() []string {
	names := []string{"name", "passed"}
	for k := range r.Modules {
		names = append(names, k)
	}
	return names
}

// HasErrors reports whether any test case evaluation or deferred check
// recorded an error-severity diagnostic.
func (r *TestBenchResult) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == diag.SeverityError {
			return true
		}
	}
	return false
}

// newTestBenchBuiltin returns the TestBench(name, module, test_cases,
// checks?) top-level construct. module is a ModuleLoader; test_cases
// maps case name -> dict of config/io overrides; checks is an optional
// list of single-argument callables invoked with a ModuleView per case.
func newTestBenchBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("TestBench", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			name      starlark.String
			loader    *ModuleLoader
			testCases *starlark.Dict
			checks    *starlark.List
		)
		if err := starlark.UnpackArgs("TestBench", args, kwargs,
			"name", &name,
			"module", &loader,
			"test_cases", &testCases,
			"checks?", &checks,
		); err != nil {
			return nil, err
		}

		exec, err := currentModuleExec(thread)
		if err != nil {
			return nil, err
		}

		result := &TestBenchResult{Name: string(name), Modules: make(map[string]*Module)}

		for _, item := range testCases.Items() {
			caseNameV, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("TestBench %q: test_cases keys must be strings", string(name))
			}
			caseName := string(caseNameV)
			overridesDict, ok := item[1].(*starlark.Dict)
			if !ok {
				return nil, fmt.Errorf("TestBench %q: test case %q overrides must be a dict", string(name), caseName)
			}
			overrides := make(map[string]starlark.Value)
			for _, ov := range overridesDict.Items() {
				key, ok := ov[0].(starlark.String)
				if !ok {
					return nil, fmt.Errorf("TestBench %q: override keys must be strings", string(name))
				}
				overrides[string(key)] = ov[1]
			}

			mod, err := exec(thread, loader.path, overrides, false)
			if err != nil {
				d := diag.Wrap(err, diag.KindCheck, loader.path,
					fmt.Sprintf("TestBench %q: test case %q evaluation failed", string(name), caseName))
				result.Diagnostics = append(result.Diagnostics, d)
				continue
			}
			result.Modules[caseName] = mod
			result.Diagnostics = append(result.Diagnostics, mod.Diagnostics...)

			if checks != nil {
				view := &ModuleView{m: mod}
				checkDiags, err := runChecks(thread, checks, view, caseName)
				if err != nil {
					return nil, fmt.Errorf("TestBench %q: test case %q: %w", string(name), caseName, err)
				}
				result.Diagnostics = append(result.Diagnostics, checkDiags...)
			}
		}

		return result, nil
	})
}

// runChecks invokes each deferred check callable with view, binding a
// throwaway non-strict ModuleCtx on the thread so any check(...) calls
// inside record into a local diag.Bag, which is tagged with the test
// case name before being merged into the TestBench's results.
func runChecks(thread *starlark.Thread, checks *starlark.List, view *ModuleView, caseName string) ([]*diag.Diagnostic, error) {
	checkCtx := newModuleCtx(view.m.Name, view.m.Path, false, nil, nil)
	prior := thread.Local(moduleCtxKey)
	withModuleCtx(thread, checkCtx)
	defer thread.SetLocal(moduleCtxKey, prior)

	iter := checks.Iterate()
	defer iter.Done()
	var x starlark.Value
	for iter.Next(&x) {
		fn, ok := x.(starlark.Callable)
		if !ok {
			return nil, fmt.Errorf("checks entries must be callable")
		}
		if _, err := starlark.Call(thread, fn, starlark.Tuple{view}, nil); err != nil {
			return nil, fmt.Errorf("check function failed: %w", err)
		}
	}

	out := make([]*diag.Diagnostic, 0, checkCtx.diags.Len())
	for _, d := range checkCtx.diags.Items() {
		out = append(out, diag.New(d.Kind, d.Severity, d.Path, fmt.Sprintf("[%s] %s", caseName, d.Body)))
	}
	return out, nil
}

// check implements the check(condition, message) builtin: spec §4.B,
// "records a pass/fail diagnostic; does not abort evaluation unless run
// inside a TestBench check where error severity implies failure."
func (m *ModuleCtx) check(condition bool, message string) {
	if condition {
		return
	}
	m.diags.Add(diag.New(diag.KindCheck, diag.SeverityError, m.Path, message))
}

func newCheckBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("check", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var condition starlark.Value
		var message starlark.String
		if err := starlark.UnpackArgs("check", args, kwargs, "condition", &condition, "message", &message); err != nil {
			return nil, err
		}
		mctx, err := currentModuleCtx(thread)
		if err != nil {
			return nil, err
		}
		mctx.check(bool(condition.Truth()), string(message))
		return starlark.None, nil
	})
}

func newAddPropertyBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("add_property", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var key starlark.String
		var value starlark.Value
		if err := starlark.UnpackArgs("add_property", args, kwargs, "key", &key, "value", &value); err != nil {
			return nil, err
		}
		mctx, err := currentModuleCtx(thread)
		if err != nil {
			return nil, err
		}
		mctx.addProperty(string(key), value)
		return starlark.None, nil
	})
}