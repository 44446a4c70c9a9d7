// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zenhdl/zen/sexpr"
)

func writeModelFile(t *testing.T, dir, name string, contents []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestEmbedModelsRewritesManagedReference(t *testing.T) {
	modelRoot := t.TempDir()
	writeModelFile(t, modelRoot, "resistor.step", []byte("fake step contents"))

	pcbDir := t.TempDir()
	src := []byte(`(kicad_pcb
		(footprint "R_0402"
			(model "${KICAD9_3DMODEL_DIR}/resistor.step" (offset (xyz 0 0 0)))
		)
	)`)
	board, err := sexpr.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	patches := sexpr.NewPatchSet(src)
	stats, err := EmbedModels(board, patches, pcbDir, ModelRoots{"KICAD9_3DMODEL_DIR": modelRoot})
	if err != nil {
		t.Fatalf("EmbedModels: %v", err)
	}
	if stats.ManagedRefs != 1 || stats.FilesEmbedded != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	out, err := patches.Apply()
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, `"kicad-embed://resistor.step"`) {
		t.Errorf("expected rewritten model reference, got %s", text)
	}
	if !strings.Contains(text, "(embedded_files") {
		t.Errorf("expected a board-level embedded_files block, got %s", text)
	}
	if !strings.Contains(text, "(name resistor.step)") {
		t.Errorf("expected embedded file metadata, got %s", text)
	}

	reparsed, err := sexpr.Parse(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if reparsed.Find("embedded_files") == nil {
		t.Error("expected embedded_files to survive a reparse")
	}
}

func TestEmbedModelsLeavesAlreadyEmbeddedAlone(t *testing.T) {
	src := []byte(`(kicad_pcb
		(footprint "R_0402" (model "kicad-embed://resistor.step" (offset (xyz 0 0 0))))
	)`)
	board, err := sexpr.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	patches := sexpr.NewPatchSet(src)
	stats, err := EmbedModels(board, patches, t.TempDir(), ModelRoots{})
	if err != nil {
		t.Fatalf("EmbedModels: %v", err)
	}
	if stats.AlreadyEmbedded != 1 || stats.FilesEmbedded != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if patches.Len() != 0 {
		t.Errorf("expected no patches for an already-embedded reference")
	}
}

func TestEmbedModelsClassifiesKiprjmodAsUnmanaged(t *testing.T) {
	outcome, _ := classifyModelRef("${KIPRJMOD}/models/custom.step", "/pcb", ModelRoots{})
	if outcome != outcomeUnmanaged {
		t.Errorf("expected ${KIPRJMOD} reference to be unmanaged, got %v", outcome)
	}
}

func TestEmbedModelsWrlFollowsStepSidecar(t *testing.T) {
	modelRoot := t.TempDir()
	writeModelFile(t, modelRoot, "part.step", []byte("step body"))
	writeModelFile(t, modelRoot, "part.wrl", []byte("vrml body"))

	outcome, source := classifyModelRef("${ROOT}/part.wrl", "/pcb", ModelRoots{"ROOT": modelRoot})
	if outcome != outcomeManaged {
		t.Fatalf("expected managed outcome, got %v", outcome)
	}
	if filepath.Base(source) != "part.step" {
		t.Errorf("expected the .step sidecar to be selected, got %s", source)
	}
}
