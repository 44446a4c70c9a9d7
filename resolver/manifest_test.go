package resolver

import (
	"strings"
	"testing"
)

func TestReadManifestWorkspaceAndBoard(t *testing.T) {
	doc := `
[workspace]
pcb-version = "0.5"
members = ["boards/*"]
exclude = ["boards/wip"]

[[workspace.kicad_library]]
version = "7.0"
symbols = "symbols/"
footprints = "footprints/"

[workspace.kicad_library.models]
KICAD7_3DMODEL_DIR = "github.com/kicad/models"

[dependencies]
"github.com/acme/resistors" = "1.2.0"

[dependencies."github.com/acme/connectors"]
version = "2.0.0"
`
	m, err := ReadManifest(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.Workspace == nil {
		t.Fatal("expected workspace table")
	}
	if m.Workspace.PcbVersion != "0.5" {
		t.Errorf("got pcb-version %q", m.Workspace.PcbVersion)
	}
	if len(m.Workspace.Members) != 1 || m.Workspace.Members[0] != "boards/*" {
		t.Errorf("got members %v", m.Workspace.Members)
	}
	if len(m.Workspace.KicadLibraries) != 1 {
		t.Fatalf("expected one kicad_library entry, got %d", len(m.Workspace.KicadLibraries))
	}
	lib := m.Workspace.KicadLibraries[0]
	if lib.Version != "7.0" || lib.Models["KICAD7_3DMODEL_DIR"] != "github.com/kicad/models" {
		t.Errorf("unexpected kicad library: %+v", lib)
	}

	if d, ok := m.Dependencies["github.com/acme/resistors"]; !ok || d.Version != "1.2.0" {
		t.Errorf("got dependency %+v (ok=%v)", d, ok)
	}
	if d, ok := m.Dependencies["github.com/acme/connectors"]; !ok || d.Version != "2.0.0" {
		t.Errorf("got dependency %+v (ok=%v)", d, ok)
	}
}

func TestReadManifestBoardMember(t *testing.T) {
	doc := `
[board]
name = "power-supply"
path = "power.zen"
description = "5V rail"
`
	m, err := ReadManifest(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.Board == nil || m.Board.Name != "power-supply" {
		t.Fatalf("got board %+v", m.Board)
	}
}
