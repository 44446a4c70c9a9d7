// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schematic implements spec §4.C: lowering a frozen zenlang
// module tree into a canonical Schematic — instances keyed by
// hierarchical path, net connectivity, and attributes. The layout
// package consumes its output to synchronize a .kicad_pcb file.
package schematic

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"

	zenlang "github.com/zenhdl/zen/zen"
)

// InstanceKind distinguishes the four node kinds spec §4.C names.
type InstanceKind int

const (
	KindModule InstanceKind = iota
	KindComponent
	KindPin
	KindPort
)

func (k InstanceKind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindComponent:
		return "component"
	case KindPin:
		return "pin"
	case KindPort:
		return "port"
	default:
		return "unknown"
	}
}

// InstanceRef identifies a node in the schematic: the defining module's
// source path, paired with the symbolic name path from the schematic
// root. The root's path is empty.
type InstanceRef struct {
	ModuleRef string
	Path      []string
}

// Key returns a stable map key for the ref: its path segments joined by
// "/". The root ref's key is the empty string.
func (r InstanceRef) Key() string { return strings.Join(r.Path, "/") }

func (r InstanceRef) child(name string) InstanceRef {
	path := make([]string, len(r.Path)+1)
	copy(path, r.Path)
	path[len(r.Path)] = name
	return InstanceRef{ModuleRef: r.ModuleRef, Path: path}
}

// Instance is one node of the schematic graph.
type Instance struct {
	Kind       InstanceKind
	Ref        InstanceRef
	Attributes map[string]starlark.Value

	// Pads is populated only for KindPin instances: the pad names the
	// owning component's symbol maps to this signal, in symbol order.
	Pads []string
}

// Net is one connectivity entry in the schematic, spec §3's "`{ net_id,
// final_name, original_name?, type_name, properties }`" plus the ordered
// port list spec §4.C's net-construction rule assembles.
type Net struct {
	ID           zenlang.NetID
	Name         string
	OriginalName string
	TypeName     string
	Properties   map[string]string
	Ports        []InstanceRef
}

// Schematic is spec §3's canonical lowered connectivity graph: `{
// root_ref, instances: Map<InstanceRef, Instance>, nets: Map<NetName,
// Net> }`.
type Schematic struct {
	RootRef   InstanceRef
	Instances map[string]*Instance
	Nets      map[string]*Net
}

// Build walks the frozen module tree rooted at root and lowers it into a
// Schematic, per spec §4.C. The walk is preorder with children visited
// in their recorded insertion order, which is also what determines
// net.Ports ordering.
func Build(root *zenlang.Module) (*Schematic, error) {
	b := &builder{
		sch: &Schematic{
			Instances: make(map[string]*Instance),
			Nets:      make(map[string]*Net),
		},
		netsByID: make(map[zenlang.NetID]*Net),
	}
	rootRef := InstanceRef{ModuleRef: root.Path}
	b.sch.RootRef = rootRef
	if err := b.walkModule(root, rootRef); err != nil {
		return nil, err
	}
	return b.sch, nil
}

type builder struct {
	sch      *Schematic
	netsByID map[zenlang.NetID]*Net
}

func (b *builder) walkModule(m *zenlang.Module, ref InstanceRef) error {
	b.sch.Instances[ref.Key()] = &Instance{
		Kind:       KindModule,
		Ref:        ref,
		Attributes: moduleAttributes(m),
	}

	for _, c := range m.Children {
		switch c.Kind {
		case zenlang.ChildComponent:
			if err := b.walkComponent(c.Component, ref.child(c.Name)); err != nil {
				return fmt.Errorf("component %q: %w", c.Name, err)
			}
		case zenlang.ChildModule:
			childRef := InstanceRef{ModuleRef: c.Module.Path, Path: ref.child(c.Name).Path}
			if err := b.walkModule(c.Module, childRef); err != nil {
				return err
			}
		case zenlang.ChildPort:
			b.walkPort(c.PortValue, ref.child(c.Name))
		case zenlang.ChildNet:
			b.ensureNet(c.Net)
		}
	}
	return nil
}

func (b *builder) walkComponent(c *zenlang.Component, ref InstanceRef) error {
	attrs := map[string]starlark.Value{
		"footprint": starlark.String(c.Footprint),
		"mpn":       starlark.String(c.MPN),
		"ctype":     starlark.String(c.CType),
		"prefix":    starlark.String(c.Prefix),
	}
	for k, v := range c.Properties {
		attrs[k] = v
	}
	b.sch.Instances[ref.Key()] = &Instance{Kind: KindComponent, Ref: ref, Attributes: attrs}

	for _, signal := range c.SignalOrder {
		pinRef := ref.child(signal)
		var pads []string
		if c.Symbol != nil {
			pads = c.Symbol.PadsForSignal(signal)
		}
		b.sch.Instances[pinRef.Key()] = &Instance{Kind: KindPin, Ref: pinRef, Pads: pads}

		if net, ok := c.Connections[signal]; ok && net != nil {
			b.connect(net, pinRef)
		}
	}
	return nil
}

func (b *builder) walkPort(value starlark.Value, ref InstanceRef) {
	b.sch.Instances[ref.Key()] = &Instance{Kind: KindPort, Ref: ref}

	if net, ok := value.(*zenlang.Net); ok {
		b.connect(net, ref)
		return
	}
	if iv, ok := value.(*zenlang.InterfaceValue); ok {
		for _, f := range iv.Fields() {
			b.walkPort(f.Value, ref.child(f.Name))
		}
	}
}

// ensureNet registers a net declared directly in a module body even
// before any component or port connects to it, so that an unconnected
// net still appears in the schematic with an empty port list.
func (b *builder) ensureNet(n *zenlang.Net) *Net {
	if existing, ok := b.netsByID[n.ID()]; ok {
		return existing
	}
	entry := &Net{
		ID:           n.ID(),
		Name:         n.Name(),
		OriginalName: n.OriginalName(),
		TypeName:     n.TypeName(),
		Properties:   n.Properties(),
	}
	b.netsByID[n.ID()] = entry
	b.sch.Nets[entry.Name] = entry
	return entry
}

func (b *builder) connect(n *zenlang.Net, ref InstanceRef) {
	entry := b.ensureNet(n)
	entry.Ports = append(entry.Ports, ref)
}

func moduleAttributes(m *zenlang.Module) map[string]starlark.Value {
	attrs := map[string]starlark.Value{
		"layout_path":          starlark.String(m.LayoutPath),
		"default_board_config": starlark.String(m.DefaultBoardConfig),
	}
	for name, cfg := range m.BoardConfigs {
		attrs["board_config."+name] = starlark.String(cfg)
	}
	for k, v := range m.Properties {
		attrs[k] = v
	}
	return attrs
}
