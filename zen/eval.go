// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zenlang

import (
	"fmt"
	"os"
	"strings"

	"go.starlark.net/starlark"

	"github.com/zenhdl/zen/internal/diag"
	"github.com/zenhdl/zen/loadspec"
)

// EvalResult is the outcome of evaluating a root Zen source unit: the
// frozen top-level Module plus every diagnostic accumulated while
// evaluating it and its descendants.
type EvalResult struct {
	Root        *Module
	Diagnostics []*diag.Diagnostic
}

// PackageResolveFunc resolves a loadspec.Package/Github/Gitlab reference
// to an absolute directory root, exactly as resolver.ResolvePackageRoot
// produces from a ResolutionResult.
type PackageResolveFunc = loadspec.PackageResolveFunc

// EvalModule evaluates the Zen source at rootPath, wiring load-spec
// resolution (spec §4.A) into the Module(...) builtin's path_or_spec
// argument so Package/Github/Gitlab references and relative paths both
// work from any source unit in the closure.
func EvalModule(rootPath string, pkgResolve PackageResolveFunc) (*EvalResult, error) {
	thread := &starlark.Thread{Name: "zen-eval"}

	resolve := func(thread *starlark.Thread, spec string) (string, error) {
		mctx, err := currentModuleCtx(thread)
		if err != nil {
			return "", err
		}
		parsed, err := parseLoadSpec(spec)
		if err != nil {
			return "", err
		}
		return loadspec.ResolveLoad(parsed, mctx.Path, pkgResolve)
	}

	var exec ModuleExecFunc
	exec = func(thread *starlark.Thread, path string, provided map[string]starlark.Value, strict bool) (*Module, error) {
		return evalFile(thread, path, provided, strict, resolve)
	}
	withModuleExec(thread, exec)

	mod, err := exec(thread, rootPath, nil, true)
	if err != nil {
		return nil, err
	}
	return &EvalResult{Root: mod, Diagnostics: mod.Diagnostics}, nil
}

// evalFile executes one Zen source file to completion inside a fresh
// ModuleCtx, then freezes and returns the resulting Module.
func evalFile(thread *starlark.Thread, path string, provided map[string]starlark.Value, strict bool, resolve ResolveSpecFunc) (*Module, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", path, err)
	}

	mctx := newModuleCtx(baseName(path), path, strict, provided, provided)
	prior := thread.Local(moduleCtxKey)
	withModuleCtx(thread, mctx)
	defer thread.SetLocal(moduleCtxKey, prior)

	predeclared := Predeclared(resolve)
	if _, err := starlark.ExecFile(thread, path, nil, predeclared); err != nil {
		return nil, err
	}

	mod := mctx.finish()
	mod.Freeze()
	return mod, nil
}

// parseLoadSpec turns the string argument of Module(path_or_spec) into a
// loadspec.Spec. A bare string is a Path spec (possibly relative); the
// package://, github:// and gitlab:// URI forms select the corresponding
// remote spec kind.
func parseLoadSpec(raw string) (loadspec.Spec, error) {
	if !strings.Contains(raw, "://") {
		return loadspec.Path{Value: raw}, nil
	}
	u, err := loadspec.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid load spec %q: %w", raw, err)
	}
	switch u.Scheme {
	case "package":
		return loadspec.Package{URL: u.Host, Path: strings.TrimPrefix(u.Path, "/")}, nil
	case "github":
		parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
		path := ""
		if len(parts) > 1 {
			path = parts[1]
		}
		return loadspec.Github{User: u.Host, Repo: firstOrEmpty(parts), Path: path}, nil
	case "gitlab":
		return loadspec.Gitlab{ProjectPath: u.Host + u.Path}, nil
	default:
		return loadspec.Path{Value: raw}, nil
	}
}

func firstOrEmpty(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}