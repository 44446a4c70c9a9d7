// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag implements the error-kind/severity/diagnostic model shared
// by the resolver and the evaluator.
package diag

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

// Kind tags a Diagnostic for programmatic suppression, matching spec §7.
type Kind string

const (
	KindParse        Kind = "parse"
	KindType         Kind = "type"
	KindMissingInput Kind = "missing_input"
	KindNameCollide  Kind = "name_collision"
	KindResolve      Kind = "resolve"
	KindLayoutSync   Kind = "layout_sync"
	KindCheck        Kind = "check"
	KindInternal     Kind = "internal"
)

// Severity distinguishes aborting errors from advisory warnings.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Span locates a diagnostic in a source unit. Line/Col are 1-based; a zero
// Span means "whole file".
type Span struct {
	Path string
	Line int
	Col  int
}

func (s Span) String() string {
	if s.Line == 0 {
		return s.Path
	}
	return fmt.Sprintf("%s:%d:%d", s.Path, s.Line, s.Col)
}

// Diagnostic is the unit of error/warning propagation described in spec §7.
// Diagnostics accumulate on the enclosing module context and are wrapped
// with an added framing message at each level as they propagate upward.
type Diagnostic struct {
	Kind       Kind
	Severity   Severity
	Path       string
	Span       *Span
	Body       string
	CallStack  []string
	Child      *Diagnostic
	SourceErr  error
}

func (d *Diagnostic) Error() string {
	var buf bytes.Buffer
	if d.Span != nil {
		fmt.Fprintf(&buf, "%s: ", d.Span)
	}
	fmt.Fprintf(&buf, "%s: %s", d.Kind, d.Body)
	if d.SourceErr != nil {
		fmt.Fprintf(&buf, ": %s", d.SourceErr)
	}
	return buf.String()
}

// Unwrap exposes the wrapped source error so errors.Is/As keep working
// across diagnostic boundaries.
func (d *Diagnostic) Unwrap() error { return d.SourceErr }

// New builds a fresh Diagnostic of the given kind and severity.
func New(kind Kind, severity Severity, path, body string) *Diagnostic {
	return &Diagnostic{Kind: kind, Severity: severity, Path: path, Body: body}
}

// Frame wraps an existing diagnostic with an added stack frame, mirroring
// the teacher's "Error in module `X` ..." propagation style from
// errors.Wrap use throughout golang-dep.
func Frame(moduleName string, child *Diagnostic) *Diagnostic {
	return &Diagnostic{
		Kind:      child.Kind,
		Severity:  child.Severity,
		Path:      child.Path,
		Span:      child.Span,
		Body:      fmt.Sprintf("Error in module `%s`: %s", moduleName, child.Body),
		CallStack: append([]string{moduleName}, child.CallStack...),
		Child:     child,
		SourceErr: child.SourceErr,
	}
}

// Wrap attaches a message to a plain error the way the rest of the module
// wraps internal failures before they become Diagnostics.
func Wrap(err error, kind Kind, path, msg string) *Diagnostic {
	return &Diagnostic{
		Kind:      kind,
		Severity:  SeverityError,
		Path:      path,
		Body:      msg,
		SourceErr: errors.Wrap(err, msg),
	}
}

// Bag accumulates diagnostics for a single evaluation context (a module, a
// resolution run). It never aborts on append; callers decide whether an
// Error-severity diagnostic should stop further work at their level.
type Bag struct {
	items []*Diagnostic
}

func (b *Bag) Add(d *Diagnostic) { b.items = append(b.items, d) }

func (b *Bag) Items() []*Diagnostic { return b.items }

// HasErrors reports whether any accumulated diagnostic is Error severity.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int { return len(b.items) }
