// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zenlang

import (
	"fmt"
	"regexp"
	"strconv"

	"go.starlark.net/starlark"
)

// physicalValuePattern recognizes strings like "100nF", "10kOhm", "3.3V",
// "1.5A", matching spec §4.B's Component property typing rule.
var physicalValuePattern = regexp.MustCompile(`^([-+]?[0-9]*\.?[0-9]+)\s*([pnuµmkMG]?)(F|H|Ohm|Ω|V|A|W|Hz)$`)

var siMultipliers = map[string]float64{
	"p": 1e-12,
	"n": 1e-9,
	"u": 1e-6,
	"µ": 1e-6,
	"m": 1e-3,
	"":  1,
	"k": 1e3,
	"M": 1e6,
	"G": 1e9,
}

// PhysicalValue is the typed value stored under a Component's "__<key>__"
// entry when a string property parses as a physical quantity.
type PhysicalValue struct {
	Raw    string
	Value  float64
	Unit   string
	Prefix string
}

var _ starlark.Value = (*PhysicalValue)(nil)

func (p *PhysicalValue) String() string        { return p.Raw }
func (p *PhysicalValue) Type() string          { return "PhysicalValue" }
func (p *PhysicalValue) Freeze()               {}
func (p *PhysicalValue) Truth() starlark.Bool  { return starlark.Bool(p.Value != 0) }
func (p *PhysicalValue) Hash() (uint32, error) { return starlark.String(p.Raw).Hash() }

// parsePhysicalValue returns (value, true) when s matches a recognized
// physical-quantity shorthand, and (nil, false) otherwise — in which
// case the property is stored only under its plain key.
func parsePhysicalValue(s string) (*PhysicalValue, bool) {
	m := physicalValuePattern.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, false
	}
	mult, ok := siMultipliers[m[2]]
	if !ok {
		return nil, false
	}
	return &PhysicalValue{Raw: s, Value: num * mult, Unit: m[3], Prefix: m[2]}, true
}

func physicalValueError(key, raw string) error {
	return fmt.Errorf("property %q: %q does not parse as a physical value", key, raw)
}