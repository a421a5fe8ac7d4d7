// Package dircache implements the bounded LRU of DirectorySnapshot values
// keyed by path (spec component "Directory Cache", §4.4).
//
// The staleness discipline mirrors the GileBrowser teacher's directory-size
// cache: a cached value is always returned synchronously, and go-stale
// detection never blocks the caller — it only ever decides whether the
// model should also kick off a background revalidation.
package dircache

import (
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nexusfs/engine/types"
)

// DefaultMaxEntries is the default LRU capacity (spec §4.4).
const DefaultMaxEntries = 64

// DefaultFreshnessWindow bounds how long a cached snapshot is trusted
// without a confirming stat, even absent a watcher-reported dirty flag. The
// spec leaves the exact value as an implementation choice (Open Questions,
// §9); two seconds keeps rapid re-navigation free while still catching
// changes made by processes the watcher missed within one interactive
// session.
const DefaultFreshnessWindow = 2 * time.Second

type entry struct {
	mu       sync.Mutex
	snapshot types.DirectorySnapshot
	dirty    bool
}

// Cache is a bounded LRU of directory snapshots. It is safe for concurrent
// use; Get/Put/Invalidate/MarkDirty may all be called from any goroutine.
type Cache struct {
	lru       *lru.Cache[string, *entry]
	freshness time.Duration
}

// New creates a Cache holding at most maxEntries snapshots. A non-positive
// maxEntries falls back to DefaultMaxEntries; a non-positive freshness
// falls back to DefaultFreshnessWindow.
func New(maxEntries int, freshness time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if freshness <= 0 {
		freshness = DefaultFreshnessWindow
	}
	c := &Cache{freshness: freshness}
	l, err := lru.NewWithEvict[string, *entry](maxEntries, func(_ string, e *entry) {
		e.mu.Lock()
		e.snapshot.Release()
		e.mu.Unlock()
	})
	if err != nil {
		// Only returns an error for a non-positive size, which cannot
		// happen after the guard above.
		panic(err)
	}
	c.lru = l
	return c
}

// Get returns the cached snapshot for path, retained for the caller (the
// caller must Release it once done), along with whether the entry should be
// treated as stale. A false ok means no entry is cached at all.
func (c *Cache) Get(path string) (snapshot types.DirectorySnapshot, stale bool, ok bool) {
	e, found := c.lru.Get(path)
	if !found {
		return types.DirectorySnapshot{}, false, false
	}

	e.mu.Lock()
	snap := e.snapshot.Retain()
	dirty := e.dirty
	e.mu.Unlock()

	stale = dirty || c.isStale(path, snap)
	return snap, stale, true
}

// Put inserts or replaces the snapshot for its path. The cache takes a
// retained reference; the caller's own reference is unaffected.
func (c *Cache) Put(snapshot types.DirectorySnapshot) {
	e := &entry{snapshot: snapshot.Retain()}
	c.lru.Add(snapshot.Path, e)
}

// Invalidate removes path's entry entirely, releasing its snapshot
// reference. Use this when a directory is known to be gone (deleted or
// renamed away) so the entry does not linger.
func (c *Cache) Invalidate(path string) {
	c.lru.Remove(path)
}

// MarkDirty flags an already-cached path as stale without evicting it, so
// the last-known entries remain available for a synchronous hit while the
// model schedules a revalidation. A path with no cached entry is a no-op —
// there is nothing to mark.
func (c *Cache) MarkDirty(path string) {
	e, ok := c.lru.Peek(path)
	if !ok {
		return
	}
	e.mu.Lock()
	e.dirty = true
	e.mu.Unlock()
}

// clearDirty is called once a revalidating traversal republishes path, so
// the next Get does not immediately re-report stale.
func (c *Cache) clearDirty(path string) {
	e, ok := c.lru.Peek(path)
	if !ok {
		return
	}
	e.mu.Lock()
	e.dirty = false
	e.mu.Unlock()
}

// RefreshFrom replaces path's snapshot after a successful revalidation and
// clears its dirty flag in one step.
func (c *Cache) RefreshFrom(snapshot types.DirectorySnapshot) {
	c.Put(snapshot)
	c.clearDirty(snapshot.Path)
}

// isStale performs the cheap single-stat freshness check described in
// §4.4: if the snapshot is older than the freshness window, compare the
// directory's current mtime against the mtime recorded at capture time.
// Any stat error is treated as staleness — the model's revalidating
// traversal will surface the real error to the load state instead.
func (c *Cache) isStale(path string, snapshot types.DirectorySnapshot) bool {
	if time.Since(snapshot.CapturedAt) < c.freshness {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return !info.ModTime().Equal(snapshot.SourceMTime)
}

// Len reports the current number of cached entries, primarily for tests and
// telemetry.
func (c *Cache) Len() int { return c.lru.Len() }
