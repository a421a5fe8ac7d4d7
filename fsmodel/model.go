// Package fsmodel implements the FileSystem Model (spec component §4.1):
// the coordinator owning the currently viewed directory, the published
// load state, the generation counter, and the glue between the traversal
// pipeline, the directory cache, the search index, and the platform
// watcher.
package fsmodel

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexusfs/engine/dircache"
	"github.com/nexusfs/engine/searchindex"
	"github.com/nexusfs/engine/traversal"
	"github.com/nexusfs/engine/types"
)

// Model is the coordinator described in §4.1. It is safe for concurrent
// use; every exported method may be called from any goroutine, though the
// spec's scheduling model expects load_path/navigate_up/refresh/entries to
// be called from a single coordination goroutine in practice.
type Model struct {
	cfg   Config
	cache *dircache.Cache
	index *searchindex.Index

	generation uint64 // atomic

	mu          sync.Mutex
	currentPath string
	state       types.LoadState
	snapshot    types.DirectorySnapshot
	cancelLoad  context.CancelFunc

	notifyMu sync.Mutex
	notify   chan struct{}

	closed chan struct{}
}

// New constructs a Model with no path loaded (state Idle). If cfg.Watcher
// is set, a background goroutine begins translating its events into
// directory-cache invalidations and live revalidation of the currently
// viewed path.
func New(cfg Config) *Model {
	m := &Model{
		cfg:    cfg,
		cache:  cfg.newCache(),
		index:  searchindex.New(),
		state:  types.Idle(),
		notify: make(chan struct{}),
		closed: make(chan struct{}),
	}
	if cfg.Watcher != nil {
		go m.watchLoop()
	}
	return m
}

// Close releases the model's background resources (the watcher loop). It
// does not close cfg.Watcher itself, since the embedder may own it beyond
// this model's lifetime.
func (m *Model) Close() {
	close(m.closed)
}

// Generation returns the model's current generation counter.
func (m *Model) Generation() types.Generation {
	return types.Generation(atomic.LoadUint64(&m.generation))
}

// CurrentPath returns the path of the last requested navigation, or "" if
// none has been requested yet.
func (m *Model) CurrentPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentPath
}

// State returns the last published load state.
func (m *Model) State() types.LoadState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Entries returns a retained copy of the last published snapshot. The
// caller must call Release on it once done. A zero-value, already-released
// snapshot is returned if nothing has ever been published.
func (m *Model) Entries() types.DirectorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot.Retain()
}

// Subscribe returns a channel that is closed the next time the model
// publishes a new state or snapshot. Call Subscribe again after it fires
// to wait for the following change — each returned channel fires exactly
// once.
func (m *Model) Subscribe() <-chan struct{} {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	return m.notify
}

func (m *Model) publish() {
	m.notifyMu.Lock()
	close(m.notify)
	m.notify = make(chan struct{})
	m.notifyMu.Unlock()
}

// Index exposes the model's search index so a viewport can drive
// set_pattern/inject/snapshot directly against the currently loaded
// entries.
func (m *Model) Index() *searchindex.Index { return m.index }

// LoadPath requests navigation to path. See §4.1 for the full decision
// table: a cache hit publishes Cached{stale} synchronously and may still
// schedule a background revalidation; a miss publishes Loading and always
// schedules a traversal.
func (m *Model) LoadPath(path string) {
	path = filepath.Clean(path)
	gen := m.bumpGeneration()
	m.updateWatch(path)

	if snap, stale, ok := m.cache.Get(path); ok {
		m.index.Clear()
		cached := snap.Entries()
		sources := make([]searchindex.Source, len(cached))
		for i, e := range cached {
			sources[i] = searchindex.StringSource(e.Name)
		}
		m.index.Inject(sources...)
		m.setPathAndSnapshot(path, snap, types.Cached(stale))
		if stale {
			m.startTraversal(path, gen)
		}
		return
	}

	m.setPath(path, types.Loading(gen))
	m.startTraversal(path, gen)
}

// NavigateUp loads the parent of the current path. It is a no-op at the
// filesystem root.
func (m *Model) NavigateUp() {
	cur := m.CurrentPath()
	if cur == "" {
		return
	}
	parent := filepath.Dir(cur)
	if parent == cur {
		return
	}
	m.LoadPath(parent)
}

// Refresh re-traverses the current path, incrementing the generation and
// discarding just that path's cache entry first.
func (m *Model) Refresh() {
	cur := m.CurrentPath()
	if cur == "" {
		return
	}
	m.cache.Invalidate(cur)
	gen := m.bumpGeneration()
	m.setPath(cur, types.Loading(gen))
	m.startTraversal(cur, gen)
}

// updateWatch moves the platform watch from the previously loaded directory
// onto path, so the watcher's resource usage tracks the single directory
// the model is actually showing rather than accumulating one registration
// per navigation.
func (m *Model) updateWatch(path string) {
	if m.cfg.Watcher == nil {
		return
	}
	old := m.CurrentPath()
	if old == path {
		return
	}
	if old != "" {
		_ = m.cfg.Watcher.Unwatch(old)
	}
	_ = m.cfg.Watcher.Watch(path)
}

func (m *Model) bumpGeneration() types.Generation {
	return types.Generation(atomic.AddUint64(&m.generation, 1))
}

func (m *Model) currentGeneration() types.Generation {
	return types.Generation(atomic.LoadUint64(&m.generation))
}

func (m *Model) setPath(path string, state types.LoadState) {
	m.mu.Lock()
	if m.cancelLoad != nil {
		m.cancelLoad()
		m.cancelLoad = nil
	}
	m.currentPath = path
	m.state = state
	m.mu.Unlock()
	m.publish()
}

func (m *Model) setPathAndSnapshot(path string, snap types.DirectorySnapshot, state types.LoadState) {
	m.mu.Lock()
	if m.cancelLoad != nil {
		m.cancelLoad()
		m.cancelLoad = nil
	}
	m.currentPath = path
	prev := m.snapshot
	m.snapshot = snap
	m.state = state
	m.mu.Unlock()
	prev.Release()
	m.publish()
}

// startTraversal launches a traversal of path tagged with gen and consumes
// its batches on a background goroutine, applying the generational
// discipline: any batch arriving once gen is no longer current is dropped
// silently.
func (m *Model) startTraversal(path string, gen types.Generation) {
	info, err := os.Stat(path)
	if err != nil {
		m.finishWithError(gen, types.Classify(path, err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	if m.cancelLoad != nil {
		m.cancelLoad()
	}
	m.cancelLoad = cancel
	m.mu.Unlock()

	opts := m.cfg.walkOptions(gen, path)
	batches, _ := traversal.Walk(ctx, opts)

	go m.consumeTraversal(path, gen, info.ModTime(), batches)
}

func (m *Model) consumeTraversal(path string, gen types.Generation, sourceMTime time.Time, batches <-chan traversal.Batch) {
	start := time.Now()
	var entries []types.FileEntry

	for b := range batches {
		if gen != m.currentGeneration() {
			continue // stale generation; drain silently to release the channel
		}
		entries = append(entries, b.Entries...)

		if b.Done {
			if b.Err != nil {
				m.finishWithError(gen, b.Err)
				return
			}
			m.finishLoaded(path, gen, sourceMTime, entries, time.Since(start))
			return
		}
	}
}

func (m *Model) finishLoaded(path string, gen types.Generation, sourceMTime time.Time, entries []types.FileEntry, dur time.Duration) {
	snap := types.NewDirectorySnapshot(path, gen, time.Now(), sourceMTime, m.cfg.SortKey, m.cfg.DirectoriesFirst, entries)
	m.cache.RefreshFrom(snap)

	m.index.Clear()
	sources := make([]searchindex.Source, len(entries))
	for i, e := range entries {
		sources[i] = searchindex.StringSource(e.Name)
	}
	m.index.Inject(sources...)

	m.mu.Lock()
	if gen != types.Generation(atomic.LoadUint64(&m.generation)) {
		m.mu.Unlock()
		snap.Release()
		return
	}
	prev := m.snapshot
	m.snapshot = snap
	m.state = types.Loaded(len(entries), dur)
	m.cancelLoad = nil
	m.mu.Unlock()
	prev.Release()
	m.publish()
}

func (m *Model) finishWithError(gen types.Generation, err *types.Error) {
	m.mu.Lock()
	if gen != types.Generation(atomic.LoadUint64(&m.generation)) {
		m.mu.Unlock()
		return
	}
	m.state = types.ErrorState(err.Error())
	m.cancelLoad = nil
	m.mu.Unlock()
	m.publish()
}

// watchLoop translates platform events into directory-cache invalidations,
// and live-revalidates the currently viewed directory when one of its
// direct children changes.
func (m *Model) watchLoop() {
	for {
		select {
		case ev, ok := <-m.cfg.Watcher.Events():
			if !ok {
				return
			}
			dir := filepath.Dir(ev.Path)
			m.cache.MarkDirty(dir)

			if dir == m.CurrentPath() {
				m.startTraversal(dir, m.currentGeneration())
			}
		case <-m.closed:
			return
		}
	}
}
