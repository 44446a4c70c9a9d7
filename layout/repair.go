// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

import (
	"sort"
	"strings"

	"github.com/zenhdl/zen/schematic"
	"github.com/zenhdl/zen/sexpr"
)

// Port identifies one pad of one footprint: a component's structural
// path paired with the pad name on that footprint, spec §4.D.2's unit
// of comparison between the netlist and the board file.
type Port struct {
	ComponentPath string
	PadName       string
}

// netPorts maps a net name to the set of ports connected to it.
type netPorts map[string][]Port

// signature is the sorted, deduplicated port set a net connects,
// compared structurally rather than by name: two nets with identical
// signatures but different names are almost certainly the same net
// renamed between schematic and board.
type signature string

func portSignature(ports []Port) signature {
	strs := make([]string, len(ports))
	for i, p := range ports {
		strs[i] = p.ComponentPath + "\x00" + p.PadName
	}
	sort.Strings(strs)
	uniq := strs[:0]
	for _, s := range strs {
		if len(uniq) == 0 || s != uniq[len(uniq)-1] {
			uniq = append(uniq, s)
		}
	}
	return signature(strings.Join(uniq, "\x01"))
}

// netlistPorts derives each net's port set from a lowered Schematic:
// every KindPin instance whose ref resolves to a component contributes
// one Port per physical pad name (inst.Pads, from the owning symbol's
// signal-to-pad map), keyed by the pin's parent component path, so the
// signature lines up with boardPorts's per-pad (net N "NAME") entries.
// A pin with no resolvable pad list falls back to its own path segment
// (the signal name), which still compares consistently as long as both
// sides of a comparison are built the same way.
func netlistPorts(sch *schematic.Schematic) netPorts {
	out := make(netPorts)
	for name, net := range sch.Nets {
		for _, ref := range net.Ports {
			inst, ok := sch.Instances[ref.Key()]
			if !ok || inst.Kind != schematic.KindPin {
				continue
			}
			path := ref.Path
			if len(path) == 0 {
				continue
			}
			componentPath := strings.Join(path[:len(path)-1], ".")
			pads := inst.Pads
			if len(pads) == 0 {
				pads = []string{path[len(path)-1]}
			}
			for _, pad := range pads {
				out[name] = append(out[name], Port{ComponentPath: componentPath, PadName: pad})
			}
		}
	}
	return out
}

// boardPorts derives each net's port set from the existing .kicad_pcb
// tree: every footprint's Path property gives the component path, and
// each of its pads carries its own (net N "NAME") declaration.
func boardPorts(board *sexpr.Node) netPorts {
	out := make(netPorts)
	for _, fp := range board.FindAll("footprint") {
		path := footprintPath(fp)
		if path == "" {
			continue
		}
		for _, pad := range fp.FindAll("pad") {
			items := pad.ListItems()
			if len(items) < 2 {
				continue
			}
			padName := items[1].AsString()
			netNode := pad.Find("net")
			if netNode == nil || len(netNode.ListItems()) < 3 {
				continue
			}
			netName := netNode.ListItems()[2].AsString()
			out[netName] = append(out[netName], Port{ComponentPath: path, PadName: padName})
		}
	}
	return out
}

func footprintPath(fp *sexpr.Node) string {
	for _, prop := range fp.FindAll("property") {
		items := prop.ListItems()
		if len(items) >= 3 && items[1].AsString() == "Path" {
			return items[2].AsString()
		}
	}
	return ""
}

// commonPorts returns the set of ports that appear on both sides of the
// comparison, so that components added or removed since the board was
// last laid out (present in only one of netlist/board) don't perturb
// the signature of nets they happen to also share with the other side.
func commonPorts(netlist, board netPorts) map[Port]bool {
	inNetlist := make(map[Port]bool)
	for _, ports := range netlist {
		for _, p := range ports {
			inNetlist[p] = true
		}
	}
	common := make(map[Port]bool)
	for _, ports := range board {
		for _, p := range ports {
			if inNetlist[p] {
				common[p] = true
			}
		}
	}
	return common
}

func restrictPorts(ports []Port, common map[Port]bool) []Port {
	var out []Port
	for _, p := range ports {
		if common[p] {
			out = append(out, p)
		}
	}
	return out
}

// InferNetRenames implements spec §4.D.2: signature-based detection of
// implicit net renames. A board net and a netlist net are inferred to
// be the same net renamed only when their port signatures, restricted
// to the ports common to both sides, are identical; that signature is
// unique on both sides (no other net on either side shares it); the
// names actually differ; and the board's old name is not itself a net
// that still exists in the netlist under that name (otherwise the
// "rename" would silently collide two unrelated, legitimately
// coexisting nets). Ambiguous signatures are left alone — spec §4.D.2
// prefers a false negative (leaving a stale name in place, caught by a
// later validation pass) over a false positive (silently rewriting the
// wrong net).
func InferNetRenames(sch *schematic.Schematic, board *sexpr.Node) MovedPaths {
	netlist := netlistPorts(sch)
	existing := boardPorts(board)
	common := commonPorts(netlist, existing)

	bySignatureNetlist := make(map[signature][]string)
	for name, ports := range netlist {
		restricted := restrictPorts(ports, common)
		if len(restricted) == 0 {
			continue
		}
		sig := portSignature(restricted)
		bySignatureNetlist[sig] = append(bySignatureNetlist[sig], name)
	}
	bySignatureBoard := make(map[signature][]string)
	for name, ports := range existing {
		restricted := restrictPorts(ports, common)
		if len(restricted) == 0 {
			continue
		}
		sig := portSignature(restricted)
		bySignatureBoard[sig] = append(bySignatureBoard[sig], name)
	}

	renames := make(MovedPaths)
	for sig, netlistNames := range bySignatureNetlist {
		if len(netlistNames) != 1 {
			continue
		}
		boardNames := bySignatureBoard[sig]
		if len(boardNames) != 1 {
			continue
		}
		oldName, newName := boardNames[0], netlistNames[0]
		if oldName == newName {
			continue
		}
		if _, stillExists := netlist[oldName]; stillExists {
			// oldName names a distinct, legitimate net in the netlist;
			// renaming it away would collide it with newName.
			continue
		}
		renames[oldName] = newName
	}
	return renames
}

// ApplyNetRenames patches every net-only-patchable string (`(net N
// "NAME")` lists, board-level and per-pad alike, and zone net_name
// entries; not footprint paths or group names) whose whole value is a
// key of renames. Matching is exact: unlike explicit moved paths, no
// prefix matching is done. A rename whose new name already appears
// among those strings is skipped.
func ApplyNetRenames(board *sexpr.Node, patches *sexpr.PatchSet, renames MovedPaths) []Rename {
	if len(renames) == 0 {
		return nil
	}
	existing := make(map[string]bool)
	walkStrings(board, func(n *sexpr.Node, ctx stringCtx) {
		if isNetOnlyPatchable(ctx) {
			existing[n.AsString()] = true
		}
	})

	var applied []Rename
	walkStrings(board, func(n *sexpr.Node, ctx stringCtx) {
		if !isNetOnlyPatchable(ctx) {
			return
		}
		newName, ok := renames[n.AsString()]
		if !ok || existing[newName] {
			return
		}
		patches.ReplaceNode(n, quoteString(newName))
		applied = append(applied, Rename{Old: n.AsString(), New: newName})
	})
	return applied
}
