// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zenhdl/zen/internal/fs"
	zenlog "github.com/zenhdl/zen/log"
	"github.com/zenhdl/zen/layout"
	"github.com/zenhdl/zen/resolver"
	"github.com/zenhdl/zen/resolver/fetch"
	"github.com/zenhdl/zen/schematic"
	"github.com/zenhdl/zen/sexpr"
	zenlang "github.com/zenhdl/zen/zen"
)

type buildFlags struct {
	manifestPath    string
	stdlibPath      string
	cacheDir        string
	boardPath       string
	boardConfigPath string
	movedPath       string
	modelRoots      []string
}

func newBuildCmd(logger *zenlog.Logger) *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build <root.zen>",
		Short: "Evaluate a Zen module and, optionally, sync its layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(logger, args[0], f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.manifestPath, "manifest", resolver.ManifestName, "path to the workspace pcb.toml")
	flags.StringVar(&f.stdlibPath, "stdlib", "", "path to the zen standard library (injected as zen://stdlib)")
	flags.StringVar(&f.cacheDir, "cache-dir", defaultCacheDir(), "directory for cached dependency checkouts")
	flags.StringVar(&f.boardPath, "board", "", "existing .kicad_pcb file to synchronize in place")
	flags.StringVar(&f.boardConfigPath, "board-config", "", "JSON file describing the desired stackup")
	flags.StringVar(&f.movedPath, "moved", "", "JSON file mapping old paths to new paths")
	flags.StringArrayVar(&f.modelRoots, "model-root", nil, "VAR=DIR mapping for 3D model embedding, repeatable")
	return cmd
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "zen", "deps")
	}
	return filepath.Join(os.TempDir(), "zen-deps")
}

func runBuild(logger *zenlog.Logger, rootZen string, f buildFlags) error {
	importMap := map[string]string{}
	if f.stdlibPath != "" {
		importMap["zen://stdlib"] = f.stdlibPath
	}

	if manifest, err := readManifestIfPresent(f.manifestPath); err != nil {
		return err
	} else if manifest != nil {
		logger.LogZenfln("resolving dependency closure from %s", f.manifestPath)
		cache := fetch.NewCache(f.cacheDir)
		lock, err := readLockIfPresent(filepath.Join(filepath.Dir(f.manifestPath), resolver.LockName))
		if err != nil {
			return err
		}
		result, err := resolver.Resolve(f.stdlibPath, manifest, manifestFetcher(cache), sourceFetcher(cache), lock)
		if err != nil {
			return errors.Wrap(err, "resolving dependency closure")
		}
		for url, path := range result.PackageResolutions["."] {
			importMap[url] = path
		}
		if result.LockfileChanged {
			logger.LogZenfln("dependency closure changed, rewriting %s", resolver.LockName)
			if err := writeLock(filepath.Join(filepath.Dir(f.manifestPath), resolver.LockName), result.Closure, importMap); err != nil {
				return err
			}
		}
	}

	logger.LogZenfln("evaluating %s", rootZen)
	evalResult, err := zenlang.EvalModule(rootZen, resolver.ResolvePackageRoot(importMap))
	if err != nil {
		return errors.Wrap(err, "evaluating module")
	}
	for _, d := range evalResult.Diagnostics {
		logger.LogZenfln("%s", d.Error())
	}

	sch, err := schematic.Build(evalResult.Root)
	if err != nil {
		return errors.Wrap(err, "building schematic")
	}
	logger.LogZenfln("built schematic: %d instance(s), %d net(s)", len(sch.Instances), len(sch.Nets))

	if f.boardPath == "" {
		return nil
	}
	return syncBoard(logger, sch, f)
}

func syncBoard(logger *zenlog.Logger, sch *schematic.Schematic, f buildFlags) error {
	src, err := os.ReadFile(f.boardPath)
	if err != nil {
		return errors.Wrap(err, "reading board")
	}
	board, err := sexpr.Parse(src)
	if err != nil {
		return errors.Wrap(err, "parsing board")
	}

	opts := layout.Options{PCBDir: filepath.Dir(f.boardPath)}
	if f.movedPath != "" {
		moved, err := readMovedMap(f.movedPath)
		if err != nil {
			return err
		}
		opts.Moved = moved
	}
	if f.boardConfigPath != "" {
		cfg, err := os.ReadFile(f.boardConfigPath)
		if err != nil {
			return errors.Wrap(err, "reading board config")
		}
		opts.BoardConfigJSON = cfg
	}
	if len(f.modelRoots) > 0 {
		roots, err := parseModelRoots(f.modelRoots)
		if err != nil {
			return err
		}
		opts.ModelRoots = roots
	}

	logger.LogZenfln("syncing layout %s", f.boardPath)
	result, diagnostic := layout.Sync(board, src, sch, opts)
	if diagnostic != nil {
		return diagnostic
	}
	for _, r := range result.MovedRenames {
		logger.LogZenfln("renamed %s -> %s", r.Old, r.New)
	}
	for _, r := range result.InferredRenames {
		logger.LogZenfln("inferred net rename %s -> %s", r.Old, r.New)
	}
	if result.Embed.FilesEmbedded > 0 {
		logger.LogZenfln("embedded %d 3D model file(s)", result.Embed.FilesEmbedded)
	}
	if result.StackupPatched {
		logger.LogZenfln("rewrote board stackup")
	}

	return fs.WriteFileAtomic(f.boardPath, result.Patched, 0o644)
}

func parseModelRoots(entries []string) (layout.ModelRoots, error) {
	roots := make(layout.ModelRoots, len(entries))
	for _, entry := range entries {
		name, dir, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, errors.Errorf("--model-root %q must be in VAR=DIR form", entry)
		}
		roots[name] = dir
	}
	return roots, nil
}

func readMovedMap(path string) (layout.MovedPaths, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading moved map")
	}
	var moved layout.MovedPaths
	if err := json.Unmarshal(data, &moved); err != nil {
		return nil, errors.Wrap(err, "parsing moved map")
	}
	return moved, nil
}

func readManifestIfPresent(path string) (*resolver.Manifest, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening manifest")
	}
	defer f.Close()
	manifest, err := resolver.ReadManifest(f)
	if err != nil {
		return nil, errors.Wrap(err, "reading manifest")
	}
	return manifest, nil
}

func readLockIfPresent(path string) (*resolver.Lock, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening lockfile")
	}
	defer f.Close()
	lock, err := resolver.ReadLock(f)
	if err != nil {
		return nil, errors.Wrap(err, "reading lockfile")
	}
	return lock, nil
}

func writeLock(path string, closure map[resolver.ModuleLine]string, importMap map[string]string) error {
	lock := &resolver.Lock{}
	for line, version := range closure {
		abs, ok := importMap[line.ModulePath]
		if !ok {
			continue
		}
		hash, err := resolver.ComputeSourceHash(abs)
		if err != nil {
			return errors.Wrapf(err, "hashing %s", line.ModulePath)
		}
		lock.Entries = append(lock.Entries, resolver.LockEntry{
			ModulePath: line.ModulePath,
			Version:    version,
			Hash:       hash,
		})
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating lockfile")
	}
	defer f.Close()
	return lock.Write(f)
}

// manifestFetcher retrieves a dependency's pcb.toml over the shared fetch
// cache, deriving its VCS remote from the module path the way spec §4.A's
// Github/Package loadspecs do: the module path itself is an https remote.
func manifestFetcher(cache *fetch.Cache) resolver.FetchManifestFunc {
	return func(modulePath, version string) (*resolver.Manifest, error) {
		dir, err := cache.Fetch(remoteURL(modulePath), revisionFor(version))
		if err != nil {
			return nil, errors.Wrapf(err, "fetching %s@%s", modulePath, version)
		}
		f, err := os.Open(filepath.Join(dir, resolver.ManifestName))
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s for %s", resolver.ManifestName, modulePath)
		}
		defer f.Close()
		return resolver.ReadManifest(f)
	}
}

func sourceFetcher(cache *fetch.Cache) resolver.FetchFunc {
	return func(modulePath, version string) (string, error) {
		return cache.Fetch(remoteURL(modulePath), revisionFor(version))
	}
}

func remoteURL(modulePath string) string {
	return "https://" + modulePath
}

func revisionFor(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
