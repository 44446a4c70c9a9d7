package zenlang

import (
	"os"
	"path/filepath"
	"testing"
)

func writeZenFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestEvalModuleSimpleNetAndComponent(t *testing.T) {
	dir := t.TempDir()
	path := writeZenFile(t, dir, "top.zen", `
vcc = Net("VCC")
gnd = Net("GND")

r1 = Component(
    name = "R1",
    footprint = "R_0402",
    pin_defs = {"A": ["1"], "B": ["2"]},
    pins = {"A": vcc, "B": gnd},
)

add_property("board_name", "demo")
check(True, "always true")
`)

	result, err := EvalModule(path, nil)
	if err != nil {
		t.Fatalf("EvalModule: %v", err)
	}
	if result.Root.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", result.Root.Diagnostics)
	}
	if len(result.Root.Children) != 3 {
		t.Fatalf("expected 3 children (2 nets + 1 component), got %d", len(result.Root.Children))
	}
	if result.Root.Properties["board_name"] == nil {
		t.Error("expected board_name property to be recorded")
	}
}

func TestEvalModuleConfigMissingRequiredInputIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeZenFile(t, dir, "needs_input.zen", `
v = config("voltage", float)
`)

	_, err := EvalModule(path, nil)
	if err == nil {
		t.Error("expected evaluation to fail on missing required config")
	}
}

func TestEvalModuleNestedModuleInclusion(t *testing.T) {
	dir := t.TempDir()
	writeZenFile(t, dir, "child.zen", `
v = config("voltage", float, default = 3.3)
add_property("voltage_used", v)
`)
	path := writeZenFile(t, dir, "parent.zen", `
child = Module("./child.zen")(name = "child", voltage = 5.0)
`)

	result, err := EvalModule(path, nil)
	if err != nil {
		t.Fatalf("EvalModule: %v", err)
	}
	if result.Root.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", result.Root.Diagnostics)
	}
	if len(result.Root.Children) != 1 || result.Root.Children[0].Kind != ChildModule {
		t.Fatalf("expected exactly one module child, got %+v", result.Root.Children)
	}
	child := result.Root.Children[0].Module
	if child.Properties["voltage_used"] == nil {
		t.Error("expected child module property to be populated from the voltage override")
	}
}

func TestEvalModuleFailedChildDoesNotAbortParent(t *testing.T) {
	dir := t.TempDir()
	writeZenFile(t, dir, "broken.zen", `
v = config("voltage", float)
`)
	path := writeZenFile(t, dir, "parent.zen", `
add_property("before", True)
broken = Module("./broken.zen")(name = "broken")
add_property("after", True)
`)

	result, err := EvalModule(path, nil)
	if err != nil {
		t.Fatalf("EvalModule: %v", err)
	}
	if result.Root.Properties["after"] == nil {
		t.Error("expected parent evaluation to continue after a failed child")
	}
	if len(result.Root.Children) != 0 {
		t.Error("expected no child registered for the failed module call")
	}
	if !result.Root.HasErrors() {
		t.Error("expected a diagnostic recording the failed child evaluation")
	}
}
