package fsmodel

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nexusfs/engine/types"
)

// fakeWatcher is a minimal platform.Watcher double that records Watch/
// Unwatch calls and lets a test inject events directly.
type fakeWatcher struct {
	mu           sync.Mutex
	watchedSet   map[string]bool
	unwatchedSet map[string]bool
	events       chan types.FsEvent
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{
		watchedSet:   make(map[string]bool),
		unwatchedSet: make(map[string]bool),
		events:       make(chan types.FsEvent, 8),
	}
}

func (f *fakeWatcher) Watch(path string) error {
	f.mu.Lock()
	f.watchedSet[path] = true
	f.mu.Unlock()
	return nil
}

func (f *fakeWatcher) Unwatch(path string) error {
	f.mu.Lock()
	f.unwatchedSet[path] = true
	f.mu.Unlock()
	return nil
}

func (f *fakeWatcher) Events() <-chan types.FsEvent { return f.events }

func (f *fakeWatcher) Close() error { return nil }

func (f *fakeWatcher) push(ev types.FsEvent) { f.events <- ev }

func (f *fakeWatcher) watched(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watchedSet[path]
}

func (f *fakeWatcher) unwatched(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unwatchedSet[path]
}

func waitForState(t *testing.T, m *Model, timeout time.Duration, pred func(types.LoadState) bool) types.LoadState {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s := m.State(); pred(s) {
			return s
		}
		select {
		case <-m.Subscribe():
		case <-time.After(10 * time.Millisecond):
		}
	}
	t.Fatalf("timed out waiting for state, last = %+v", m.State())
	return types.LoadState{}
}

func mkTree(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(root, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestLoadPathReachesLoaded(t *testing.T) {
	root := mkTree(t, "a.txt", "b.txt", "c.txt")
	m := New(Config{})
	defer m.Close()

	m.LoadPath(root)
	state := waitForState(t, m, 5*time.Second, func(s types.LoadState) bool { return s.Kind == types.StateLoaded })

	if state.Count != 3 {
		t.Fatalf("count = %d, want 3", state.Count)
	}

	snap := m.Entries()
	defer snap.Release()
	if snap.Len() != 3 {
		t.Fatalf("entries len = %d, want 3", snap.Len())
	}
}

func TestLoadPathMissingYieldsError(t *testing.T) {
	m := New(Config{})
	defer m.Close()

	m.LoadPath(filepath.Join(t.TempDir(), "missing"))
	state := waitForState(t, m, 5*time.Second, func(s types.LoadState) bool { return s.Kind == types.StateError })
	if state.Message == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestSecondLoadPathReturnsCachedSnapshot(t *testing.T) {
	root := mkTree(t, "a.txt")
	m := New(Config{})
	defer m.Close()

	m.LoadPath(root)
	waitForState(t, m, 5*time.Second, func(s types.LoadState) bool { return s.Kind == types.StateLoaded })

	m.LoadPath(root)
	state := m.State()
	if state.Kind != types.StateCached {
		t.Fatalf("second load kind = %v, want StateCached", state.Kind)
	}
}

func TestRefreshIncrementsGeneration(t *testing.T) {
	root := mkTree(t, "a.txt")
	m := New(Config{})
	defer m.Close()

	m.LoadPath(root)
	waitForState(t, m, 5*time.Second, func(s types.LoadState) bool { return s.Kind == types.StateLoaded })
	before := m.Generation()

	m.Refresh()
	waitForState(t, m, 5*time.Second, func(s types.LoadState) bool { return s.Kind == types.StateLoaded })
	after := m.Generation()

	if after <= before {
		t.Fatalf("generation did not advance: before=%d after=%d", before, after)
	}
}

func TestNavigateUpLoadsParent(t *testing.T) {
	root := mkTree(t)
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	m := New(Config{})
	defer m.Close()

	m.LoadPath(sub)
	waitForState(t, m, 5*time.Second, func(s types.LoadState) bool { return s.Kind == types.StateLoaded })

	m.NavigateUp()
	waitForState(t, m, 5*time.Second, func(s types.LoadState) bool { return s.Kind == types.StateLoaded })

	if m.CurrentPath() != root {
		t.Fatalf("current path = %q, want %q", m.CurrentPath(), root)
	}
}

func TestRapidNavigationLeavesOnlyLatestGenerationVisible(t *testing.T) {
	rootA := mkTree(t, "a1.txt")
	rootB := mkTree(t, "b1.txt", "b2.txt")

	m := New(Config{})
	defer m.Close()

	m.LoadPath(rootA)
	m.LoadPath(rootB)

	state := waitForState(t, m, 5*time.Second, func(s types.LoadState) bool { return s.Kind == types.StateLoaded })
	if m.CurrentPath() != rootB {
		t.Fatalf("current path = %q, want %q", m.CurrentPath(), rootB)
	}
	if state.Count != 2 {
		t.Fatalf("count = %d, want 2 (rootB's entries, not a mix)", state.Count)
	}
}

func TestLoadPathMovesWatchToNewDirectory(t *testing.T) {
	rootA := mkTree(t, "a1.txt")
	rootB := mkTree(t, "b1.txt")
	fw := newFakeWatcher()

	m := New(Config{Watcher: fw})
	defer m.Close()

	m.LoadPath(rootA)
	waitForState(t, m, 5*time.Second, func(s types.LoadState) bool { return s.Kind == types.StateLoaded })
	if !fw.watched(rootA) {
		t.Fatalf("expected Watch(%q)", rootA)
	}

	m.LoadPath(rootB)
	waitForState(t, m, 5*time.Second, func(s types.LoadState) bool { return s.Kind == types.StateLoaded })

	if !fw.unwatched(rootA) {
		t.Fatalf("expected Unwatch(%q) after navigating away", rootA)
	}
	if !fw.watched(rootB) {
		t.Fatalf("expected Watch(%q) after navigating to it", rootB)
	}
}

func TestWatcherEventTriggersLiveRevalidation(t *testing.T) {
	root := mkTree(t, "a.txt")
	fw := newFakeWatcher()

	m := New(Config{Watcher: fw})
	defer m.Close()

	m.LoadPath(root)
	waitForState(t, m, 5*time.Second, func(s types.LoadState) bool { return s.Kind == types.StateLoaded })

	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	fw.push(types.Modified(filepath.Join(root, "b.txt")))

	state := waitForState(t, m, 5*time.Second, func(s types.LoadState) bool {
		return s.Kind == types.StateLoaded && s.Count == 2
	})
	if state.Count != 2 {
		t.Fatalf("count = %d, want 2 after watcher-triggered revalidation", state.Count)
	}
}

func TestSearchIndexReflectsLoadedEntries(t *testing.T) {
	root := mkTree(t, "report.pdf", "readme.md")
	m := New(Config{})
	defer m.Close()

	m.LoadPath(root)
	waitForState(t, m, 5*time.Second, func(s types.LoadState) bool { return s.Kind == types.StateLoaded })

	m.Index().SetPattern("re")
	snap := m.Index().Snapshot()
	if snap.TotalItems != 2 {
		t.Fatalf("TotalItems = %d, want 2", snap.TotalItems)
	}
}
