// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zen evaluates a Zen hardware-description module and, given an
// existing KiCad layout, synchronizes that layout with the evaluated
// design. It is a thin wire-up of the resolver, evaluator, schematic
// builder and layout synchronizer packages; it is not a replacement for
// a full CLI or editor integration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	zenlog "github.com/zenhdl/zen/log"
)

func main() {
	logger := zenlog.New(os.Stderr)
	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(logger *zenlog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "zen",
		Short: "zen evaluates hardware modules and syncs them to KiCad layouts",
	}
	root.AddCommand(newBuildCmd(logger))
	return root
}
