// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestExpandWorkspaceMembersMatchesGlobAndHonorsExclude(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"boards/power", "boards/sensor", "boards/legacy", "vendor/thirdparty"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}

	ws := &Workspace{
		Members: []string{filepath.Join("boards", "*")},
		Exclude: []string{filepath.Join("boards", "legacy")},
	}
	matches, err := ExpandWorkspaceMembers(root, ws)
	if err != nil {
		t.Fatalf("ExpandWorkspaceMembers: %v", err)
	}

	var rel []string
	for _, m := range matches {
		r, err := filepath.Rel(root, m)
		if err != nil {
			t.Fatalf("Rel: %v", err)
		}
		rel = append(rel, r)
	}
	sort.Strings(rel)
	want := []string{filepath.Join("boards", "power"), filepath.Join("boards", "sensor")}
	if len(rel) != len(want) || rel[0] != want[0] || rel[1] != want[1] {
		t.Errorf("got %v, want %v", rel, want)
	}
}

func TestExpandWorkspaceMembersReturnsNilWithoutMembers(t *testing.T) {
	matches, err := ExpandWorkspaceMembers(t.TempDir(), &Workspace{})
	if err != nil {
		t.Fatalf("ExpandWorkspaceMembers: %v", err)
	}
	if matches != nil {
		t.Errorf("expected nil matches, got %v", matches)
	}
}
