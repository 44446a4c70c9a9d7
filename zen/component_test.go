package zenlang

import (
	"testing"

	"go.starlark.net/starlark"
)

func makeNet(t *testing.T, thread *starlark.Thread, name string) *Net {
	t.Helper()
	netType := NewNetType("Net")
	n, err := netType.CallInternal(thread, nil, []starlark.Tuple{{starlark.String("name"), starlark.String(name)}})
	if err != nil {
		t.Fatalf("construct net: %v", err)
	}
	return n.(*Net)
}

func TestComponentRequiresPinDefsOrSymbol(t *testing.T) {
	thread, _ := newTestModuleCtx()
	_, err := componentBuiltinImpl(thread, nil, starlark.Tuple{}, []starlark.Tuple{
		{starlark.String("name"), starlark.String("R1")},
		{starlark.String("footprint"), starlark.String("R_0402")},
		{starlark.String("pins"), starlark.NewDict(0)},
	})
	if err == nil {
		t.Error("expected error when neither pin_defs nor symbol is supplied")
	}
}

func TestComponentValidatesPinCompleteness(t *testing.T) {
	thread, _ := newTestModuleCtx()
	vcc := makeNet(t, thread, "VCC")

	pinDefs := starlark.NewDict(2)
	pinDefs.SetKey(starlark.String("VCC"), starlark.String("1"))
	pinDefs.SetKey(starlark.String("GND"), starlark.String("2"))

	pins := starlark.NewDict(1)
	pins.SetKey(starlark.String("VCC"), vcc)
	// GND intentionally missing.

	_, err := componentBuiltinImpl(thread, nil, starlark.Tuple{}, []starlark.Tuple{
		{starlark.String("name"), starlark.String("U1")},
		{starlark.String("footprint"), starlark.String("SOT-23")},
		{starlark.String("pin_defs"), pinDefs},
		{starlark.String("pins"), pins},
	})
	if err == nil {
		t.Error("expected missing-pin error")
	}
}

func TestComponentRejectsUnknownPin(t *testing.T) {
	thread, _ := newTestModuleCtx()
	vcc := makeNet(t, thread, "VCC")
	bogus := makeNet(t, thread, "BOGUS")

	pinDefs := starlark.NewDict(1)
	pinDefs.SetKey(starlark.String("VCC"), starlark.String("1"))

	pins := starlark.NewDict(2)
	pins.SetKey(starlark.String("VCC"), vcc)
	pins.SetKey(starlark.String("EXTRA"), bogus)

	_, err := componentBuiltinImpl(thread, nil, starlark.Tuple{}, []starlark.Tuple{
		{starlark.String("name"), starlark.String("U1")},
		{starlark.String("footprint"), starlark.String("SOT-23")},
		{starlark.String("pin_defs"), pinDefs},
		{starlark.String("pins"), pins},
	})
	if err == nil {
		t.Error("expected unknown-pin error")
	}
}

func TestComponentBuildsSuccessfullyAndRegistersChild(t *testing.T) {
	thread, mctx := newTestModuleCtx()
	vcc := makeNet(t, thread, "VCC")
	gnd := makeNet(t, thread, "GND")

	pinDefs := starlark.NewDict(2)
	pinDefs.SetKey(starlark.String("VCC"), starlark.String("1"))
	pinDefs.SetKey(starlark.String("GND"), starlark.String("2"))

	pins := starlark.NewDict(2)
	pins.SetKey(starlark.String("VCC"), vcc)
	pins.SetKey(starlark.String("GND"), gnd)

	v, err := componentBuiltinImpl(thread, nil, starlark.Tuple{}, []starlark.Tuple{
		{starlark.String("name"), starlark.String("U1")},
		{starlark.String("footprint"), starlark.String("SOT-23")},
		{starlark.String("pin_defs"), pinDefs},
		{starlark.String("pins"), pins},
		{starlark.String("properties"), mustDict(t, "value", "100nF")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := v.(*Component)
	if c.Properties["__value__"] == nil {
		t.Error("expected physical-value typed property for \"100nF\"")
	}
	// makeNet registered VCC and GND as the first two children.
	if len(mctx.children) != 3 || mctx.children[2].Component != c {
		t.Error("expected component registered as a module child")
	}
}

func TestComponentSignalOrderFollowsDeclarationNotAlphabet(t *testing.T) {
	thread, _ := newTestModuleCtx()
	zNet := makeNet(t, thread, "Z")
	aNet := makeNet(t, thread, "A")

	pinDefs := starlark.NewDict(2)
	pinDefs.SetKey(starlark.String("Z"), starlark.String("1"))
	pinDefs.SetKey(starlark.String("A"), starlark.String("2"))

	pins := starlark.NewDict(2)
	pins.SetKey(starlark.String("Z"), zNet)
	pins.SetKey(starlark.String("A"), aNet)

	v, err := componentBuiltinImpl(thread, nil, starlark.Tuple{}, []starlark.Tuple{
		{starlark.String("name"), starlark.String("U1")},
		{starlark.String("footprint"), starlark.String("SOT-23")},
		{starlark.String("pin_defs"), pinDefs},
		{starlark.String("pins"), pins},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := v.(*Component)
	want := []string{"Z", "A"}
	if len(c.SignalOrder) != len(want) {
		t.Fatalf("got %v, want %v", c.SignalOrder, want)
	}
	for i := range want {
		if c.SignalOrder[i] != want[i] {
			t.Fatalf("got %v, want %v (declaration order, not alphabetical)", c.SignalOrder, want)
		}
	}
}

func mustDict(t *testing.T, k, v string) *starlark.Dict {
	t.Helper()
	d := starlark.NewDict(1)
	if err := d.SetKey(starlark.String(k), starlark.String(v)); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	return d
}
