package platform

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nexusfs/engine/types"
)

// pollWatcher is the fallback backend for filesystems that expose no native
// change notification (network shares mounted without inotify/FSEvents
// support, some FUSE filesystems), and the backend the fsnotify-based
// watcher switches to once its native handle starts erroring. It
// periodically restats every watched path and, for watched directories,
// diffs their immediate children so it can report per-child
// Created/Modified/Deleted events with the same path shape the native
// backends use, then still runs those through the shared coalescer so
// callers see the same debounced shape regardless of backend.
type pollWatcher struct {
	interval time.Duration
	c        *coalescer
	done     chan struct{}

	mu       sync.Mutex
	state    map[string]os.FileInfo
	children map[string]map[string]os.FileInfo // watched dir -> its last known children
}

// NewPolling constructs a Watcher that restats its watched set every
// interval instead of relying on native OS events.
func NewPolling(interval time.Duration) Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	pw := &pollWatcher{
		interval: interval,
		c:        newCoalescer(DefaultDebounce),
		done:     make(chan struct{}),
		state:    make(map[string]os.FileInfo),
		children: make(map[string]map[string]os.FileInfo),
	}
	go pw.run()
	return pw
}

func (pw *pollWatcher) Watch(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return types.Classify(path, err)
	}
	pw.mu.Lock()
	pw.state[path] = info
	pw.mu.Unlock()

	if info.IsDir() {
		pw.seedChildren(path)
	}
	return nil
}

// seedChildren records dir's current children as the baseline, so the next
// sweep only reports children that change after Watch was called rather
// than treating every pre-existing file as newly created.
func (pw *pollWatcher) seedChildren(dir string) {
	snap := statChildren(dir)
	pw.mu.Lock()
	pw.children[dir] = snap
	pw.mu.Unlock()
}

func statChildren(dir string) map[string]os.FileInfo {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return map[string]os.FileInfo{}
	}
	snap := make(map[string]os.FileInfo, len(entries))
	for _, e := range entries {
		if info, err := e.Info(); err == nil {
			snap[e.Name()] = info
		}
	}
	return snap
}

func (pw *pollWatcher) Unwatch(path string) error {
	pw.mu.Lock()
	delete(pw.state, path)
	delete(pw.children, path)
	pw.mu.Unlock()
	return nil
}

func (pw *pollWatcher) Events() <-chan types.FsEvent { return pw.c.events() }

func (pw *pollWatcher) Close() error {
	close(pw.done)
	pw.c.close()
	return nil
}

func (pw *pollWatcher) run() {
	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pw.sweep()
		case <-pw.done:
			return
		}
	}
}

func (pw *pollWatcher) sweep() {
	pw.mu.Lock()
	paths := make([]string, 0, len(pw.state))
	for p := range pw.state {
		paths = append(paths, p)
	}
	pw.mu.Unlock()

	for _, path := range paths {
		pw.sweepOne(path)
	}
}

func (pw *pollWatcher) sweepOne(path string) {
	info, err := os.Stat(path)

	pw.mu.Lock()
	prev, known := pw.state[path]
	pw.mu.Unlock()

	switch {
	case err != nil:
		if known {
			pw.mu.Lock()
			delete(pw.state, path)
			delete(pw.children, path)
			pw.mu.Unlock()
			pw.c.push(types.Deleted(path))
		}
		return
	case !known:
		pw.mu.Lock()
		pw.state[path] = info
		pw.mu.Unlock()
		pw.c.push(types.Created(path))
	case info.ModTime() != prev.ModTime() || info.Size() != prev.Size():
		pw.mu.Lock()
		pw.state[path] = info
		pw.mu.Unlock()
		if !info.IsDir() {
			pw.c.push(types.Modified(path))
		}
	}

	if info.IsDir() {
		pw.diffChildren(path)
	}
}

// diffChildren compares dir's current children against the last known
// snapshot, pushing one event per changed child and recursively adopting
// any newly created subdirectory so its own future contents are covered
// too, matching the dynamic re-add behavior of the native backends.
func (pw *pollWatcher) diffChildren(dir string) {
	current := statChildren(dir)

	pw.mu.Lock()
	prev := pw.children[dir]
	pw.children[dir] = current
	pw.mu.Unlock()

	for name, info := range current {
		childPath := filepath.Join(dir, name)
		prevInfo, existed := prev[name]
		switch {
		case !existed:
			pw.c.push(types.Created(childPath))
			if info.IsDir() {
				pw.mu.Lock()
				pw.state[childPath] = info
				pw.mu.Unlock()
				pw.seedChildren(childPath)
			}
		case info.ModTime() != prevInfo.ModTime() || info.Size() != prevInfo.Size():
			pw.c.push(types.Modified(childPath))
		}
	}
	for name := range prev {
		if _, stillThere := current[name]; !stillThere {
			childPath := filepath.Join(dir, name)
			pw.c.push(types.Deleted(childPath))
			pw.mu.Lock()
			delete(pw.state, childPath)
			delete(pw.children, childPath)
			pw.mu.Unlock()
		}
	}
}
