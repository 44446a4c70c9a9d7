package sexpr

import (
	"fmt"
	"sort"
	"strings"
)

// Patch replaces the byte range [Start, End) of the original source with
// Replacement.
type Patch struct {
	Start, End  int
	Replacement string
}

// PatchSet accumulates non-overlapping byte-range edits against one
// source buffer and applies them in a single pass, so the layout
// package's moved-path, net-rename, stackup and model-embedding passes
// can describe their edits declaratively without building the output
// string by hand.
type PatchSet struct {
	src     []byte
	patches []Patch
}

// NewPatchSet creates a PatchSet over src. Spans passed to Replace must
// be sub-ranges of src.
func NewPatchSet(src []byte) *PatchSet {
	return &PatchSet{src: src}
}

// Replace schedules the replacement of span with text.
func (p *PatchSet) Replace(span Span, text string) {
	p.patches = append(p.patches, Patch{Start: span.Start, End: span.End, Replacement: text})
}

// ReplaceNode schedules the replacement of n's entire source span.
func (p *PatchSet) ReplaceNode(n *Node, text string) {
	p.Replace(n.Span, text)
}

// InsertAfter schedules text to be spliced in immediately after n's
// span, without disturbing n itself.
func (p *PatchSet) InsertAfter(n *Node, text string) {
	p.patches = append(p.patches, Patch{Start: n.Span.End, End: n.Span.End, Replacement: text})
}

// Apply returns the source with every scheduled patch applied. Patches
// are sorted by start offset; overlapping patches are an error, since
// spec §4.D requires every edit to be independently traceable to one
// field (moved-path patch, net rename, stackup thickness, 3D model ref).
func (p *PatchSet) Apply() ([]byte, error) {
	sorted := make([]Patch, len(p.patches))
	copy(sorted, p.patches)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out strings.Builder
	cursor := 0
	for _, patch := range sorted {
		if patch.Start < cursor {
			return nil, fmt.Errorf("sexpr: overlapping patch at offset %d (cursor at %d)", patch.Start, cursor)
		}
		out.Write(p.src[cursor:patch.Start])
		out.WriteString(patch.Replacement)
		cursor = patch.End
	}
	out.Write(p.src[cursor:])
	return []byte(out.String()), nil
}

// Len reports how many edits are scheduled, used by callers to skip a
// no-op write when a sync pass made no changes.
func (p *PatchSet) Len() int { return len(p.patches) }
