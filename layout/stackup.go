// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zenhdl/zen/sexpr"
)

// thicknessEpsilonMM is spec §4.D.4's 1 micron comparison tolerance.
const thicknessEpsilonMM = 0.001

// Layer is one entry of a requested or existing board stackup: a copper,
// dielectric, soldermask, or silkscreen layer.
type Layer struct {
	Name         string
	Type         string
	ThicknessMM  float64
	HasThickness bool
	Material     string
	EpsilonR     float64
	LossTangent  float64
}

// Stackup is spec §3's board stackup: "layer structure of the PCB:
// copper layers, dielectric layers, finishes, thicknesses."
type Stackup struct {
	Layers []Layer
}

// BoardConfig is the subset of the `board_config` JSON blob spec §4.D.4
// names: an optional stackup description. Other board_config keys
// (e.g. design rules) are out of this package's scope and ignored.
type BoardConfig struct {
	Stackup *stackupJSON `json:"stackup"`
}

type stackupJSON struct {
	Layers []layerJSON `json:"layers"`
}

type layerJSON struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	ThicknessMM *float64 `json:"thickness_mm"`
	Material    string   `json:"material"`
	EpsilonR    float64  `json:"epsilon_r"`
	LossTangent float64  `json:"loss_tangent"`
}

// ParseBoardConfig decodes a board_config JSON blob per spec §4.D.4.
// encoding/json is used directly: no library in the retrieved corpus
// offers a JSON decoder, and the teacher's own TOML-based config layer
// (toml.go) has no JSON analogue to borrow from.
func ParseBoardConfig(data []byte) (*BoardConfig, error) {
	var cfg BoardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("layout: malformed board_config: %w", err)
	}
	return &cfg, nil
}

// ToStackup converts the JSON description into a Stackup, or nil if the
// board_config carried no stackup section.
func (c *BoardConfig) ToStackup() *Stackup {
	if c == nil || c.Stackup == nil {
		return nil
	}
	s := &Stackup{Layers: make([]Layer, len(c.Stackup.Layers))}
	for i, l := range c.Stackup.Layers {
		layer := Layer{
			Name: l.Name, Type: l.Type, Material: l.Material,
			EpsilonR: l.EpsilonR, LossTangent: l.LossTangent,
		}
		if l.ThicknessMM != nil {
			layer.ThicknessMM = *l.ThicknessMM
			layer.HasThickness = true
		}
		s.Layers[i] = layer
	}
	return s
}

// ApproxEq implements spec §4.D.4's comparison: element-wise structural
// equality on layer name and type, with thickness compared under
// epsMM tolerance.
func (s *Stackup) ApproxEq(other *Stackup, epsMM float64) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Layers) != len(other.Layers) {
		return false
	}
	for i, a := range s.Layers {
		b := other.Layers[i]
		if a.Name != b.Name || a.Type != b.Type || a.Material != b.Material {
			return false
		}
		if a.HasThickness != b.HasThickness {
			return false
		}
		if a.HasThickness && math.Abs(a.ThicknessMM-b.ThicknessMM) > epsMM {
			return false
		}
	}
	return true
}

// StackupFromKicadPCB parses the `(setup ... (stackup ...))` block out
// of an existing board, returning nil if no stackup section is present.
func StackupFromKicadPCB(board *sexpr.Node) *Stackup {
	setup := board.Find("setup")
	if setup == nil {
		return nil
	}
	stackupNode := setup.Find("stackup")
	if stackupNode == nil {
		return nil
	}
	var layers []Layer
	for _, l := range stackupNode.FindAll("layer") {
		items := l.ListItems()
		if len(items) < 2 {
			continue
		}
		layer := Layer{Name: items[1].AsString()}
		if t := l.Find("type"); t != nil && len(t.ListItems()) >= 2 {
			layer.Type = t.ListItems()[1].AsString()
		}
		if th := l.Find("thickness"); th != nil && len(th.ListItems()) >= 2 {
			layer.ThicknessMM = th.ListItems()[1].AsFloat()
			layer.HasThickness = true
		}
		if m := l.Find("material"); m != nil && len(m.ListItems()) >= 2 {
			layer.Material = m.ListItems()[1].AsString()
		}
		if e := l.Find("epsilon_r"); e != nil && len(e.ListItems()) >= 2 {
			layer.EpsilonR = e.ListItems()[1].AsFloat()
		}
		if lt := l.Find("loss_tangent"); lt != nil && len(lt.ListItems()) >= 2 {
			layer.LossTangent = lt.ListItems()[1].AsFloat()
		}
		layers = append(layers, layer)
	}
	return &Stackup{Layers: layers}
}

// GenerateLayersSexpr renders the board-root `(layers ...)` block: one
// ordinal entry per copper layer, numbered 0 for the top layer, 31 for
// the bottom layer, and consecutively (1, 2, ...) for inner layers.
func (s *Stackup) GenerateLayersSexpr() string {
	var sb strings.Builder
	sb.WriteString("(layers")
	ordinal := 0
	copperCount := 0
	for _, l := range s.Layers {
		if l.Type != "copper" {
			continue
		}
		copperCount++
	}
	for _, l := range s.Layers {
		if l.Type != "copper" {
			continue
		}
		n := layerOrdinal(ordinal, copperCount)
		kind := "signal"
		if strings.Contains(strings.ToLower(l.Name), "gnd") || strings.Contains(strings.ToLower(l.Name), "power") {
			kind = "power"
		}
		fmt.Fprintf(&sb, "\n\t\t(%d %s %s)", n, quoteString(l.Name), kind)
		ordinal++
	}
	sb.WriteString("\n\t)")
	return sb.String()
}

// layerOrdinal maps a copper layer's position (0-indexed, top to
// bottom) to its layer number: 31 for the bottom layer, and the
// position itself (0 for the top layer, then 1, 2, ...) for every
// other layer.
func layerOrdinal(pos, total int) int {
	if pos == total-1 {
		return 31
	}
	return pos
}

// GenerateStackupSexpr renders the `(stackup ...)` block nested inside
// `(setup ...)`: one `(layer ...)` entry per stackup element, in order.
func (s *Stackup) GenerateStackupSexpr() string {
	var sb strings.Builder
	sb.WriteString("(stackup")
	for _, l := range s.Layers {
		sb.WriteString("\n\t\t\t(layer ")
		sb.WriteString(quoteString(l.Name))
		fmt.Fprintf(&sb, " (type %s)", quoteString(l.Type))
		if l.HasThickness {
			fmt.Fprintf(&sb, " (thickness %s)", formatThickness(l.ThicknessMM))
		}
		if l.Material != "" {
			fmt.Fprintf(&sb, " (material %s)", quoteString(l.Material))
		}
		if l.EpsilonR != 0 {
			fmt.Fprintf(&sb, " (epsilon_r %s)", strconv.FormatFloat(l.EpsilonR, 'g', -1, 64))
		}
		if l.LossTangent != 0 {
			fmt.Fprintf(&sb, " (loss_tangent %s)", strconv.FormatFloat(l.LossTangent, 'g', -1, 64))
		}
		sb.WriteString(")")
	}
	sb.WriteString("\n\t\t)")
	return sb.String()
}

func formatThickness(mm float64) string {
	return strconv.FormatFloat(mm, 'f', -1, 64)
}

// PatchStackup implements spec §4.D.4 end to end: compare the
// board_config's requested stackup against the board's existing one
// under thicknessEpsilonMM, and if they diverge, surgically replace the
// `(layers ...)` and `(stackup ...)` blocks (or insert them if absent)
// as patches over the existing nodes' parsed spans rather than through
// a generic tree printer, so comments and formatting elsewhere in the
// file survive untouched.
func PatchStackup(board *sexpr.Node, patches *sexpr.PatchSet, boardConfigJSON []byte) (bool, error) {
	cfg, err := ParseBoardConfig(boardConfigJSON)
	if err != nil {
		return false, err
	}
	requested := cfg.ToStackup()
	if requested == nil {
		return false, nil
	}

	existing := StackupFromKicadPCB(board)
	if existing != nil && requested.ApproxEq(existing, thicknessEpsilonMM) {
		return false, nil
	}

	if err := replaceOrInsertSection(board, patches, "layers", requested.GenerateLayersSexpr()); err != nil {
		return false, err
	}
	if err := replaceOrInsertSection(board, patches, "stackup", requested.GenerateStackupSexpr()); err != nil {
		return false, err
	}
	return true, nil
}

// replaceOrInsertSection patches head's existing top-level (or
// setup-nested) section with replacement, or inserts it at the
// structural anchor spec §4.D.4 names if the section doesn't exist yet:
// "layers" goes after "(general ...)" at board root, "stackup" goes
// inside "(setup ...)".
func replaceOrInsertSection(board *sexpr.Node, patches *sexpr.PatchSet, head, replacement string) error {
	if head == "layers" {
		if existing := board.Find("layers"); existing != nil {
			patches.ReplaceNode(existing, replacement)
			return nil
		}
		general := board.Find("general")
		if general == nil {
			return fmt.Errorf("layout: no (general ...) section to anchor a new (layers ...) block")
		}
		patches.InsertAfter(general, "\n\t"+replacement)
		return nil
	}

	setup := board.Find("setup")
	if setup == nil {
		return fmt.Errorf("layout: no (setup ...) section to hold a (stackup ...) block")
	}
	if existing := setup.Find("stackup"); existing != nil {
		patches.ReplaceNode(existing, replacement)
		return nil
	}
	insertBeforeClose(patches, setup, "\n\t\t"+replacement)
	return nil
}
