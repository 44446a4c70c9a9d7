package resolver

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadLockRoundTrip(t *testing.T) {
	doc := `github.com/acme/resistors 1.2.0 h1:deadbeef
github.com/acme/resistors 1.2.0/pcb.toml h1:cafef00d
`
	l, err := ReadLock(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadLock: %v", err)
	}
	if len(l.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(l.Entries))
	}
	if h, ok := l.Lookup("github.com/acme/resistors", "1.2.0"); !ok || h != "deadbeef" {
		t.Errorf("Lookup = %q, %v", h, ok)
	}

	var buf bytes.Buffer
	if err := l.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	roundTripped, err := ReadLock(&buf)
	if err != nil {
		t.Fatalf("ReadLock (round trip): %v", err)
	}
	if len(roundTripped.Entries) != len(l.Entries) {
		t.Fatalf("round trip changed entry count: %d != %d", len(roundTripped.Entries), len(l.Entries))
	}
}

func TestLockDiffDetectsMissingEntry(t *testing.T) {
	l, err := ReadLock(strings.NewReader("github.com/acme/resistors 1.2.0 h1:deadbeef\n"))
	if err != nil {
		t.Fatalf("ReadLock: %v", err)
	}
	closure := map[ModuleLine]string{
		{ModulePath: "github.com/acme/resistors", Family: "v1"}: "1.2.0",
		{ModulePath: "github.com/acme/connectors", Family: "v2"}: "2.0.0",
	}
	if !l.Diff(closure) {
		t.Error("expected Diff to report a change for the missing connectors entry")
	}
}

func TestLockDiffNoChangeWhenClosureCovered(t *testing.T) {
	l, err := ReadLock(strings.NewReader("github.com/acme/resistors 1.2.0 h1:deadbeef\n"))
	if err != nil {
		t.Fatalf("ReadLock: %v", err)
	}
	closure := map[ModuleLine]string{
		{ModulePath: "github.com/acme/resistors", Family: "v1"}: "1.2.0",
	}
	if l.Diff(closure) {
		t.Error("expected no change when lock already covers the closure")
	}
}

func TestReadLockRejectsMalformedHash(t *testing.T) {
	_, err := ReadLock(strings.NewReader("github.com/acme/resistors 1.2.0 sha256:deadbeef\n"))
	if err == nil {
		t.Fatal("expected error for non h1: hash field")
	}
}
