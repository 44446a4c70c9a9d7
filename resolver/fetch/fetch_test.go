package fetch

import (
	"context"
	"testing"
)

func TestAlternateURLsFallsBackToSSH(t *testing.T) {
	got := AlternateURLs("https://github.com/acme/widgets")
	want := []string{
		"https://github.com/acme/widgets",
		"ssh://git@github.com/acme/widgets",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAlternateURLsPassesThroughNonHTTPS(t *testing.T) {
	got := AlternateURLs("ssh://git@gitlab.com/acme/widgets")
	if len(got) != 1 || got[0] != "ssh://git@gitlab.com/acme/widgets" {
		t.Errorf("expected passthrough, got %v", got)
	}
}

func TestHashRemoteIsDeterministic(t *testing.T) {
	a := hashRemote("https://github.com/acme/widgets")
	b := hashRemote("https://github.com/acme/widgets")
	if a != b {
		t.Errorf("hashRemote not deterministic: %q != %q", a, b)
	}
	c := hashRemote("https://github.com/acme/other")
	if a == c {
		t.Errorf("hashRemote collided for distinct remotes")
	}
}

func TestCacheFetchSerializesSameRevision(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir)
	rl1 := c.lockFor("https://example.com/repo.git")
	rl2 := c.lockFor("https://example.com/repo.git")
	if rl1 != rl2 {
		t.Error("expected the same per-remote lock to be returned for repeated lookups")
	}
}

func TestFetchContextReturnsOnAlreadyCanceledContext(t *testing.T) {
	c := NewCache(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchContext(ctx, "https://example.invalid/repo.git", "v1.0.0")
	if err == nil {
		t.Fatal("expected an error for an already-canceled context")
	}
}
