package zenlang

import (
	"os"
	"path/filepath"
	"testing"

	"go.starlark.net/starlark"
)

func TestTestBenchRunsEveryCaseAndDefersChecks(t *testing.T) {
	dir := t.TempDir()
	writeZenFile(t, dir, "divider.zen", `
ratio = config("ratio", float)
add_property("ratio", ratio)
`)
	path := writeZenFile(t, dir, "bench.zen", `
def check_ratio(view):
    check(view.ratio > 0, "ratio must be positive")

bench = TestBench(
    name = "divider_bench",
    module = Module("./divider.zen"),
    test_cases = {
        "half": {"ratio": 0.5},
        "negative": {"ratio": -1.0},
    },
    checks = [check_ratio],
)
add_property("passed", bench.passed)
`)

	result, err := EvalModule(path, nil)
	if err != nil {
		t.Fatalf("EvalModule: %v", err)
	}
	passed, ok := result.Root.Properties["passed"].(starlark.Bool)
	if !ok {
		t.Fatalf("expected bench.passed bool property, got %T", result.Root.Properties["passed"])
	}
	if bool(passed) {
		t.Error("expected bench.passed to be false: the negative-ratio case should fail its check")
	}
}

func TestFormatPositionCommentRoundTrips(t *testing.T) {
	p := &Position{ElementID: "R1", X: 12.5, Y: -3.25, Rotation: 90, Mirror: "x"}
	line := FormatPositionComment(p)
	parsed, ok, err := ParsePositionComment(line)
	if err != nil {
		t.Fatalf("ParsePositionComment: %v", err)
	}
	if !ok {
		t.Fatal("expected line to be recognized as a position comment")
	}
	if parsed.ElementID != p.ElementID || parsed.X != p.X || parsed.Y != p.Y || parsed.Rotation != p.Rotation || parsed.Mirror != p.Mirror {
		t.Errorf("round trip mismatch: got %+v, want %+v", parsed, p)
	}
}

func TestParsePositionCommentNormalizesRotation(t *testing.T) {
	parsed, ok, err := ParsePositionComment("# pcb:sch U1 x=0 y=0 rot=450")
	if err != nil || !ok {
		t.Fatalf("parse failed: ok=%v err=%v", ok, err)
	}
	if parsed.Rotation != 90 {
		t.Errorf("rotation = %v, want 90 (450 mod 360)", parsed.Rotation)
	}
}

func TestParsePositionCommentIgnoresUnrelatedComments(t *testing.T) {
	_, ok, err := ParsePositionComment("# just a regular comment")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected unrelated comment to be ignored")
	}
}

func TestParsePositionCommentRejectsMalformed(t *testing.T) {
	_, ok, err := ParsePositionComment("# pcb:sch U1 x=abc y=0 rot=0")
	if !ok {
		t.Fatal("expected line to be recognized as a position comment attempt")
	}
	if err == nil {
		t.Error("expected malformed x value to error")
	}
}

func TestSymbolLibraryModeLoadsSoleSymbol(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "r.kicad_sym")
	if err := os.WriteFile(lib, []byte(`(kicad_symbol_lib (symbol "R_0402" (pin (name "1") (number "1")) (pin (name "2") (number "2"))))`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	thread := &starlark.Thread{Name: "test"}
	sym, err := symbolBuiltinImpl(thread, nil, nil, []starlark.Tuple{
		{starlark.String("library"), starlark.String(lib)},
	})
	if err != nil {
		t.Fatalf("Symbol builtin: %v", err)
	}
	s := sym.(*Symbol)
	if s.Name == nil || *s.Name != "R_0402" {
		t.Errorf("expected sole symbol name R_0402, got %+v", s.Name)
	}
}
