// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zenlang

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Position is a schematic editor placement persisted in source as a
// `# pcb:sch <element_id> x=<f> y=<f> rot=<deg> [mirror=x|y]` comment,
// spec §6. Units are 0.1mm; rotation is normalized to [0, 360).
type Position struct {
	ElementID string
	X, Y      float64
	Rotation  float64
	Mirror    string // "", "x", or "y"
}

var positionCommentPattern = regexp.MustCompile(
	`^#\s*pcb:sch\s+(\S+)\s+x=(-?[0-9.]+)\s+y=(-?[0-9.]+)\s+rot=(-?[0-9.]+)(?:\s+mirror=(x|y))?\s*$`)

// ParsePositionComment parses one position comment line. It returns
// (nil, false) when line is not a `# pcb:sch` comment at all, and an
// error when it looks like one but is malformed.
func ParsePositionComment(line string) (*Position, bool, error) {
	trimmed := strings.TrimRight(line, "\r\n")
	if !strings.Contains(trimmed, "pcb:sch") {
		return nil, false, nil
	}
	m := positionCommentPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return nil, true, fmt.Errorf("malformed position comment: %q", trimmed)
	}
	x, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil, true, fmt.Errorf("position comment %q: bad x: %w", trimmed, err)
	}
	y, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return nil, true, fmt.Errorf("position comment %q: bad y: %w", trimmed, err)
	}
	rot, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return nil, true, fmt.Errorf("position comment %q: bad rot: %w", trimmed, err)
	}
	return &Position{
		ElementID: m[1],
		X:         x,
		Y:         y,
		Rotation:  normalizeRotation(rot),
		Mirror:    m[5],
	}, true, nil
}

// FormatPositionComment serializes p back into its source comment form.
func FormatPositionComment(p *Position) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# pcb:sch %s x=%s y=%s rot=%s",
		p.ElementID, trimFloat(p.X), trimFloat(p.Y), trimFloat(normalizeRotation(p.Rotation)))
	if p.Mirror != "" {
		fmt.Fprintf(&sb, " mirror=%s", p.Mirror)
	}
	return sb.String()
}

func normalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}

func trimFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	return s
}