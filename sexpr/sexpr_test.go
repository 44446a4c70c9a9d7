package sexpr

import "testing"

func TestParseSimpleList(t *testing.T) {
	n, err := Parse([]byte(`(symbol "R" (pin (name "1") (number "1")))`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !n.IsListHeaded("symbol") {
		t.Fatalf("expected root headed by symbol, got %+v", n)
	}
	if got := n.ListItems()[1].AsString(); got != "R" {
		t.Errorf("name = %q, want R", got)
	}
	pin := n.Find("pin")
	if pin == nil {
		t.Fatal("expected pin child")
	}
	if got := pin.Find("name").ListItems()[1].AsString(); got != "1" {
		t.Errorf("pin name = %q", got)
	}
}

func TestParseNestedAndAtoms(t *testing.T) {
	n, err := Parse([]byte(`(footprint (at 10.5 -2.25 90) (layer "F.Cu"))`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	at := n.Find("at")
	if at == nil {
		t.Fatal("expected at child")
	}
	if got := at.ListItems()[1].AsFloat(); got != 10.5 {
		t.Errorf("x = %v, want 10.5", got)
	}
	if got := at.ListItems()[2].AsFloat(); got != -2.25 {
		t.Errorf("y = %v, want -2.25", got)
	}
}

func TestParseEscapedString(t *testing.T) {
	n, err := Parse([]byte(`(property "Value" "100\"nF")`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := n.ListItems()[2].AsString(); got != `100"nF` {
		t.Errorf("got %q", got)
	}
}

func TestParseUnterminatedList(t *testing.T) {
	if _, err := Parse([]byte(`(symbol "R"`)); err == nil {
		t.Error("expected error for unterminated list")
	}
}

func TestNodeAtRoundTrip(t *testing.T) {
	n, err := Parse([]byte(`(root (a 1) (b 2))`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	b := n.Find("b")
	found := n.NodeAt(b.Span)
	if found != b {
		t.Error("NodeAt did not recover the same node")
	}
}

func TestPatchSetNonOverlapping(t *testing.T) {
	src := []byte(`(at 10.5 -2.25 90)`)
	n, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ps := NewPatchSet(src)
	ps.ReplaceNode(n.ListItems()[1], "20")
	ps.ReplaceNode(n.ListItems()[2], "30")
	out, err := ps.Apply()
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := `(at 20 30 90)`
	if string(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestPatchSetOverlapError(t *testing.T) {
	src := []byte(`(at 10.5 -2.25 90)`)
	n, _ := Parse(src)
	ps := NewPatchSet(src)
	ps.ReplaceNode(n, "(at 0 0 0)")
	ps.ReplaceNode(n.ListItems()[1], "99")
	if _, err := ps.Apply(); err == nil {
		t.Error("expected overlap error")
	}
}

func TestWriteNewSubtree(t *testing.T) {
	n := List(Atom("net"), String("GND"), Atom("1"))
	got := Write(n)
	want := `(net "GND" 1)`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
