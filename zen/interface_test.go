package zenlang

import (
	"testing"

	"go.starlark.net/starlark"
)

func TestInterfaceInstantiationCreatesDistinctNets(t *testing.T) {
	thread, _ := newTestModuleCtx()
	netType := NewNetType("Net")

	it, err := NewInterfaceType("Power", []string{"vcc", "gnd"}, map[string]starlark.Value{
		"vcc": netType,
		"gnd": netType,
	})
	if err != nil {
		t.Fatalf("NewInterfaceType: %v", err)
	}

	a, err := it.CallInternal(thread, starlark.Tuple{starlark.String("left")}, nil)
	if err != nil {
		t.Fatalf("instantiate a: %v", err)
	}
	b, err := it.CallInternal(thread, starlark.Tuple{starlark.String("right")}, nil)
	if err != nil {
		t.Fatalf("instantiate b: %v", err)
	}

	av := a.(*InterfaceValue)
	bv := b.(*InterfaceValue)

	avVCC, _ := av.Field("vcc")
	bvVCC, _ := bv.Field("vcc")
	if avVCC.(*Net).ID() == bvVCC.(*Net).ID() {
		t.Error("expected structurally independent net instances across interface instantiations")
	}
	if avVCC.(*Net).Name() != "left_vcc" {
		t.Errorf("expected prefixed leaf name, got %q", avVCC.(*Net).Name())
	}
}

func TestInterfaceOverrideFieldTypeChecked(t *testing.T) {
	thread, _ := newTestModuleCtx()
	power := NewNetType("Power")
	ground := NewNetType("Ground")

	it, err := NewInterfaceType("Bundle", []string{"p"}, map[string]starlark.Value{"p": power})
	if err != nil {
		t.Fatalf("NewInterfaceType: %v", err)
	}

	wrongNet, err := ground.CallInternal(thread, nil, nil)
	if err != nil {
		t.Fatalf("construct ground net: %v", err)
	}

	_, err = it.CallInternal(thread, nil, []starlark.Tuple{{starlark.String("p"), wrongNet}})
	if err == nil {
		t.Error("expected type mismatch error overriding field with wrong Net subtype")
	}
}

func TestNestedInterfaceInstantiation(t *testing.T) {
	thread, _ := newTestModuleCtx()
	netType := NewNetType("Net")

	pair, err := NewInterfaceType("Pair", []string{"a", "b"}, map[string]starlark.Value{"a": netType, "b": netType})
	if err != nil {
		t.Fatalf("NewInterfaceType pair: %v", err)
	}
	outer, err := NewInterfaceType("Outer", []string{"pair", "extra"}, map[string]starlark.Value{"pair": pair, "extra": netType})
	if err != nil {
		t.Fatalf("NewInterfaceType outer: %v", err)
	}

	v, err := outer.CallInternal(thread, nil, nil)
	if err != nil {
		t.Fatalf("instantiate outer: %v", err)
	}
	inner, ok := v.(*InterfaceValue).Field("pair")
	if !ok {
		t.Fatal("expected nested pair field")
	}
	if _, ok := inner.(*InterfaceValue); !ok {
		t.Errorf("expected nested InterfaceValue, got %T", inner)
	}
}
