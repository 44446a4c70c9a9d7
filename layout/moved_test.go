// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

import (
	"strings"
	"testing"

	"github.com/zenhdl/zen/sexpr"
)

func TestApplyMovedPathsRewritesFootprintPathAndUUID(t *testing.T) {
	oldUUID := footprintPathUUID("Power.R1")
	newUUID := footprintPathUUID("Supply.R1")
	src := []byte(`(kicad_pcb
		(footprint "R_0402"
			(property "Path" "Power.R1")
			(path "/` + oldUUID + `/` + oldUUID + `")
		)
	)`)
	board, err := sexpr.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	patches := sexpr.NewPatchSet(src)
	renames := ApplyMovedPaths(board, patches, MovedPaths{"Power": "Supply"})
	if len(renames) != 1 || renames[0].Old != "Power.R1" || renames[0].New != "Supply.R1" {
		t.Fatalf("unexpected renames: %+v", renames)
	}

	out, err := patches.Apply()
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !strings.Contains(string(out), `"Supply.R1"`) {
		t.Errorf("expected rewritten path, got %s", out)
	}
	if !strings.Contains(string(out), `/`+newUUID+`/`+newUUID) {
		t.Errorf("expected rewritten footprint KIID, got %s", out)
	}
	if strings.Contains(string(out), oldUUID) {
		t.Errorf("expected old UUID to be fully replaced, got %s", out)
	}
}

func TestApplyMovedPathsSkipsOnCollision(t *testing.T) {
	src := []byte(`(kicad_pcb
		(footprint "R_0402" (property "Path" "Power.R1"))
		(footprint "R_0402" (property "Path" "Supply.R1"))
	)`)
	board, err := sexpr.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	patches := sexpr.NewPatchSet(src)
	renames := ApplyMovedPaths(board, patches, MovedPaths{"Power": "Supply"})
	if len(renames) != 0 {
		t.Fatalf("expected no renames due to collision, got %+v", renames)
	}
}

func TestLongestPrefixMatchRespectsDotBoundary(t *testing.T) {
	moved := MovedPaths{"Power": "Supply"}
	if _, ok := longestPrefixMatch("PowerSupply.R1", moved); ok {
		t.Error("expected no match across a non-dot boundary")
	}
	got, ok := longestPrefixMatch("Power.R1.A", moved)
	if !ok || got != "Supply.R1.A" {
		t.Errorf("got (%q, %v), want (Supply.R1.A, true)", got, ok)
	}
}

func TestLongestPrefixMatchPicksLongerPrefix(t *testing.T) {
	moved := MovedPaths{"Power": "Supply", "Power.Reg": "Regulator"}
	got, ok := longestPrefixMatch("Power.Reg.R1", moved)
	if !ok || got != "Regulator.R1" {
		t.Errorf("got (%q, %v), want (Regulator.R1, true)", got, ok)
	}
}
