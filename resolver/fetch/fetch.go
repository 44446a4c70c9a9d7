// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fetch implements spec §4.A's fetch_remote and the concurrency
// model of spec §5: one shared clone per remote URL (Masterminds/vcs's
// Get makes a regular clone, not a bare one) and, per revision, a full
// copy of that clone checked out at the revision. Git worktrees are not
// used. Fetches are coordinated across processes with a per-repo file
// lock and each revision's copy is promoted into place with an atomic
// rename.
//
// Grounded on the teacher's vcs_repo.go/vcs_source.go/source_manager.go,
// generalized from the teacher's per-import-path GOPATH cache to a
// per-remote-URL clone cache keyed by (remote, revision).
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"
	"github.com/sdboyer/constext"
	flock "github.com/theckman/go-flock"

	zfs "github.com/zenhdl/zen/internal/fs"
)

// hashRemote derives a filesystem-safe, collision-resistant cache key for
// a remote URL.
func hashRemote(remote string) string {
	sum := sha256.Sum256([]byte(remote))
	return hex.EncodeToString(sum[:])[:16]
}

func randomSuffix() string {
	return fmt.Sprintf("%x", rand.Uint64())
}

// AlternateURLs returns the URLs to try in order for a fetch, falling
// back from https to ssh the way spec §4.A requires. Hosts not matching a
// known scheme rewrite are returned unchanged as a single-element slice.
func AlternateURLs(remote string) []string {
	if rest, ok := cutPrefix(remote, "https://"); ok {
		return []string{remote, "ssh://git@" + rest}
	}
	return []string{remote}
}

func cutPrefix(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return "", false
}

// Cache manages the on-disk bare-repo/worktree cache under root. It is
// safe for concurrent use by multiple goroutines within this process and
// coordinates with other processes via per-repo flock files.
type Cache struct {
	root string

	mu        sync.Mutex // guards reposByRemote
	reposByRemote map[string]*repoLock
}

type repoLock struct {
	mu sync.Mutex // in-process mutual exclusion, layered under the flock
}

func NewCache(root string) *Cache {
	return &Cache{root: root, reposByRemote: make(map[string]*repoLock)}
}

func (c *Cache) lockFor(remote string) *repoLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	rl, ok := c.reposByRemote[remote]
	if !ok {
		rl = &repoLock{}
		c.reposByRemote[remote] = rl
	}
	return rl
}

func (c *Cache) bareRepoPath(remote string) string {
	return filepath.Join(c.root, "bare", hashRemote(remote))
}

func (c *Cache) worktreePath(remote, revision string) string {
	return filepath.Join(c.root, "worktrees", hashRemote(remote), revision)
}

// Fetch materializes revision of remote on disk and returns its path.
// Concurrent fetchers of the same (remote, revision) serialize through a
// per-repo file lock; the loser of the race observes the canonical
// worktree path already populated and returns immediately without doing
// any work, per spec §5.
func (c *Cache) Fetch(remote, revision string) (string, error) {
	rl := c.lockFor(remote)
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lockPath := c.bareRepoPath(remote) + ".lock"
	if err := zfs.EnsureDir(filepath.Dir(lockPath), 0755); err != nil {
		return "", errors.Wrap(err, "creating cache directory")
	}
	fl := flock.NewFlock(lockPath)
	if err := fl.Lock(); err != nil {
		return "", errors.Wrapf(err, "locking %s", lockPath)
	}
	defer fl.Unlock()

	c.pruneStaleTemp(remote)

	target := c.worktreePath(remote, revision)
	if ok, err := zfs.IsDir(target); err != nil {
		return "", err
	} else if ok {
		return target, nil
	}

	var lastErr error
	for _, url := range AlternateURLs(remote) {
		path, err := c.fetchOne(url, remote, revision)
		if err == nil {
			return path, nil
		}
		lastErr = err
	}
	return "", errors.Wrapf(lastErr, "fetching %s@%s from all alternate URLs", remote, revision)
}

// FetchContext behaves like Fetch but races it against ctx's
// cancellation, for callers (e.g. a CLI handling SIGINT mid-resolve)
// that need to abandon an in-flight clone without blocking on it.
// Joining ctx with a background context via constext.Cons, rather than
// passing ctx straight through, keeps the done-channel goroutine's own
// shutdown independent of which of the two parents cancels first.
func (c *Cache) FetchContext(ctx context.Context, remote, revision string) (string, error) {
	joined, cancel := constext.Cons(ctx, context.Background())
	defer cancel()

	type result struct {
		path string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		path, err := c.Fetch(remote, revision)
		done <- result{path, err}
	}()

	select {
	case <-joined.Done():
		return "", joined.Err()
	case r := <-done:
		return r.path, r.err
	}
}

func (c *Cache) fetchOne(url, canonicalRemote, revision string) (string, error) {
	barePath := c.bareRepoPath(canonicalRemote)
	repo, err := c.openOrCloneBare(url, barePath)
	if err != nil {
		return "", err
	}

	if err := repo.Update(); err != nil {
		// Non-fatal: the bare repo may already carry the requested
		// revision (e.g. offline re-run); UpdateVersion below is the
		// authoritative check.
	}

	target := c.worktreePath(canonicalRemote, revision)
	tmp := target + ".tmp-" + randomSuffix()

	if err := zfs.EnsureDir(filepath.Dir(tmp), 0755); err != nil {
		return "", err
	}
	if err := zfs.CopyDir(barePath, tmp); err != nil {
		return "", errors.Wrap(err, "copying bare repo into worktree")
	}
	wtRepo, err := vcs.NewGitRepo(url, tmp)
	if err != nil {
		return "", err
	}
	if err := wtRepo.UpdateVersion(revision); err != nil {
		os.RemoveAll(tmp)
		return "", errors.Wrapf(err, "checking out %s", revision)
	}

	if err := os.Rename(tmp, target); err != nil {
		if ok, _ := zfs.IsDir(target); ok {
			// Another process won the race between our existence check
			// and this rename; that's fine, their result is equivalent.
			os.RemoveAll(tmp)
			return target, nil
		}
		return "", errors.Wrap(err, "promoting worktree into place")
	}

	return target, nil
}

func (c *Cache) openOrCloneBare(url, barePath string) (*vcs.GitRepo, error) {
	repo, err := vcs.NewGitRepo(url, barePath)
	if err != nil {
		return nil, err
	}
	if !repo.CheckLocal() {
		if err := zfs.EnsureDir(filepath.Dir(barePath), 0755); err != nil {
			return nil, err
		}
		if err := repo.Get(); err != nil {
			return nil, errors.Wrapf(err, "cloning %s", url)
		}
	}
	return repo, nil
}

// pruneStaleTemp removes partially-created worktree directories left
// behind by a previous run that was interrupted mid-fetch, per spec §5
// ("partial temporary directories are cleaned up on next run (prune on
// lock acquisition)"). Must be called while holding the per-repo flock.
func (c *Cache) pruneStaleTemp(remote string) {
	dir := filepath.Dir(c.worktreePath(remote, "x"))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			os.RemoveAll(filepath.Join(dir, e.Name()))
		}
	}
}
