package symbols

import (
	"os"
	"path/filepath"
	"testing"
)

const testLib = `(kicad_symbol_lib (version 20231120)
  (symbol "Base"
    (pin (name "VCC") (number "1"))
    (pin (name "GND") (number "2"))
    (property "Reference" "U"))
  (symbol "Derived" (extends "Base")
    (pin (name "OUT") (number "3"))
    (property "Reference" "U2")))`

func writeTestLib(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.kicad_sym")
	if err := os.WriteFile(path, []byte(testLib), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestGetBaseSymbol(t *testing.T) {
	path := writeTestLib(t)
	c := NewCache()
	sym, err := c.Get(path, "Base")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sym.PadToSignal["1"] != "VCC" || sym.PadToSignal["2"] != "GND" {
		t.Errorf("unexpected pad map: %+v", sym.PadToSignal)
	}
	if sym.Properties["Reference"] != "U" {
		t.Errorf("unexpected properties: %+v", sym.Properties)
	}
}

func TestGetDerivedSymbolInheritsExtends(t *testing.T) {
	path := writeTestLib(t)
	c := NewCache()
	sym, err := c.Get(path, "Derived")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sym.PadToSignal["1"] != "VCC" {
		t.Errorf("expected inherited pad 1=VCC, got %+v", sym.PadToSignal)
	}
	if sym.PadToSignal["3"] != "OUT" {
		t.Errorf("expected own pad 3=OUT, got %+v", sym.PadToSignal)
	}
	if sym.Properties["Reference"] != "U2" {
		t.Errorf("expected overridden Reference=U2, got %q", sym.Properties["Reference"])
	}
}

func TestNamesListsAllTopLevelSymbols(t *testing.T) {
	path := writeTestLib(t)
	c := NewCache()
	names, err := c.Names(path)
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("got %d names, want 2: %v", len(names), names)
	}
}

func TestGetSoleRejectsMultiSymbolLibrary(t *testing.T) {
	path := writeTestLib(t)
	c := NewCache()
	if _, err := c.GetSole(path); err == nil {
		t.Error("expected error for multi-symbol library")
	}
}

func TestGetCachesParsedSymbol(t *testing.T) {
	path := writeTestLib(t)
	c := NewCache()
	a, err := c.Get(path, "Base")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := c.Get(path, "Base")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a != b {
		t.Error("expected cached Symbol pointer to be reused")
	}
}

func TestFromDefinitionRejectsDuplicatePad(t *testing.T) {
	_, err := FromDefinition([]DefinitionEntry{
		{Signal: "VCC", Pads: []string{"1"}},
		{Signal: "GND", Pads: []string{"1"}},
	})
	if err == nil {
		t.Error("expected error for duplicate pad assignment")
	}
}

func TestPadsForSignalReturnsAllMatchingPads(t *testing.T) {
	sym, err := FromDefinition([]DefinitionEntry{
		{Signal: "GND", Pads: []string{"2", "4"}},
	})
	if err != nil {
		t.Fatalf("FromDefinition: %v", err)
	}
	pads := sym.PadsForSignal("GND")
	if len(pads) != 2 {
		t.Errorf("got %d pads, want 2: %v", len(pads), pads)
	}
}

func TestPadsForSignalPreservesDeclarationOrder(t *testing.T) {
	sym, err := FromDefinition([]DefinitionEntry{
		{Signal: "GND", Pads: []string{"4", "2", "7"}},
	})
	if err != nil {
		t.Fatalf("FromDefinition: %v", err)
	}
	want := []string{"4", "2", "7"}
	for i := 0; i < 20; i++ {
		pads := sym.PadsForSignal("GND")
		if len(pads) != len(want) {
			t.Fatalf("got %v, want %v", pads, want)
		}
		for j := range want {
			if pads[j] != want[j] {
				t.Fatalf("got %v, want %v", pads, want)
			}
		}
	}
}

func TestSignalNamesOrderedByFirstPadDeclaration(t *testing.T) {
	path := writeTestLib(t)
	c := NewCache()
	sym, err := c.Get(path, "Derived")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := []string{"VCC", "GND", "OUT"}
	names := sym.SignalNames()
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}
