// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"path/filepath"
	"sort"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// ExpandWorkspaceMembers resolves a root manifest's `[workspace] members`
// and `exclude` glob lists (spec §6) into the absolute directories of
// every member board. Globs are matched against paths relative to
// rootDir using the same shell-glob semantics as filepath.Match, applied
// at every directory godirwalk visits so that a member pattern like
// "boards/*" matches one level of subdirectories without requiring the
// caller to pre-enumerate them.
func ExpandWorkspaceMembers(rootDir string, ws *Workspace) ([]string, error) {
	if ws == nil || len(ws.Members) == 0 {
		return nil, nil
	}

	var matches []string
	seen := make(map[string]bool)
	err := godirwalk.Walk(rootDir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if !de.IsDir() || osPathname == rootDir {
				return nil
			}
			rel, err := filepath.Rel(rootDir, osPathname)
			if err != nil {
				return err
			}
			excluded, err := matchesAny(rel, ws.Exclude)
			if err != nil {
				return err
			}
			if excluded {
				return filepath.SkipDir
			}
			included, err := matchesAny(rel, ws.Members)
			if err != nil {
				return err
			}
			if included && !seen[osPathname] {
				seen[osPathname] = true
				matches = append(matches, osPathname)
			}
			return nil
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "expanding workspace members under %s", rootDir)
	}
	sort.Strings(matches)
	return matches, nil
}

func matchesAny(rel string, globs []string) (bool, error) {
	for _, glob := range globs {
		ok, err := filepath.Match(glob, rel)
		if err != nil {
			return false, errors.Wrapf(err, "invalid glob %q", glob)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
