//go:build !(darwin && cgo)

package platform

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/nexusfs/engine/types"
)

// fsnotifyWatcher is the default Watcher backend, used on every platform
// fsnotify supports natively (Linux inotify, Windows ReadDirectoryChangesW)
// and as the fallback on Darwin when the FSEvents backend isn't built in.
// Recursive coverage is emulated by walking and re-registering each
// directory individually, the same approach the GileBrowser teacher used
// for its cache-invalidation watcher.
type fsnotifyWatcher struct {
	w    *fsnotify.Watcher
	c    *coalescer
	done chan struct{}

	mu       sync.Mutex
	watched  map[string]bool
	fallback Watcher
}

// NewDefault constructs the fsnotify-backed Watcher with the default
// coalescing window.
func NewDefault() (Watcher, error) {
	w, err := newFsnotifyWatcher(DefaultDebounce)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func newFsnotifyWatcher(debounce time.Duration) (*fsnotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}

	fw := &fsnotifyWatcher{
		w:       w,
		c:       newCoalescer(debounce),
		done:    make(chan struct{}),
		watched: make(map[string]bool),
	}
	go fw.run()
	return fw, nil
}

func (fw *fsnotifyWatcher) Watch(path string) error {
	fw.mu.Lock()
	fb := fw.fallback
	fw.mu.Unlock()
	if fb != nil {
		return fb.Watch(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return types.Classify(path, err)
	}
	if !info.IsDir() {
		return fw.addOne(path)
	}
	return fw.watchRecursive(path)
}

func (fw *fsnotifyWatcher) watchRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return fw.addOne(path)
	})
}

func (fw *fsnotifyWatcher) addOne(path string) error {
	fw.mu.Lock()
	already := fw.watched[path]
	fw.mu.Unlock()
	if already {
		return nil
	}
	if err := fw.w.Add(path); err != nil {
		return types.NewError(types.ErrPlatform, path, err)
	}
	fw.mu.Lock()
	fw.watched[path] = true
	fw.mu.Unlock()
	return nil
}

func (fw *fsnotifyWatcher) Unwatch(path string) error {
	fw.mu.Lock()
	fb := fw.fallback
	fw.mu.Unlock()
	if fb != nil {
		return fb.Unwatch(path)
	}

	fw.mu.Lock()
	toRemove := make([]string, 0, 1)
	for p := range fw.watched {
		if p == path || strings.HasPrefix(p, path+string(filepath.Separator)) {
			toRemove = append(toRemove, p)
		}
	}
	fw.mu.Unlock()

	for _, p := range toRemove {
		_ = fw.w.Remove(p)
		fw.mu.Lock()
		delete(fw.watched, p)
		fw.mu.Unlock()
	}
	return nil
}

func (fw *fsnotifyWatcher) Events() <-chan types.FsEvent { return fw.c.events() }

func (fw *fsnotifyWatcher) Close() error {
	close(fw.done)
	err := fw.w.Close()
	fw.mu.Lock()
	fb := fw.fallback
	fw.mu.Unlock()
	if fb != nil {
		_ = fb.Close()
	}
	fw.c.close()
	return err
}

func (fw *fsnotifyWatcher) run() {
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			fw.handle(ev)
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			fw.fallbackToPolling(err)
		case <-fw.done:
			return
		}
	}
}

// fallbackToPolling switches the watcher onto the polling backend the first
// time the native backend reports an error, logging the failure exactly
// once (spec §4.7/§7: a watcher failure surfaces a Platform error once and
// falls back to coarse polling rather than going silent). Every
// subsequently-watched path, and every path already watched, is carried
// over to the poll watcher; the native fsnotify handle is torn down since it
// is no longer trusted.
func (fw *fsnotifyWatcher) fallbackToPolling(cause error) {
	fw.mu.Lock()
	if fw.fallback != nil {
		fw.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(fw.watched))
	for p := range fw.watched {
		paths = append(paths, p)
	}
	pw := NewPolling(DefaultDebounce)
	fw.fallback = pw
	fw.mu.Unlock()

	log.Error("watcher backend failed, falling back to polling", "error", cause)

	for _, p := range paths {
		_ = pw.Watch(p)
	}
	go fw.pumpFallback(pw)
	_ = fw.w.Close()
}

// pumpFallback relays the poll watcher's already-coalesced events into this
// watcher's own coalescer, so callers holding the original Events() channel
// keep receiving updates without knowing the backend switched underneath
// them.
func (fw *fsnotifyWatcher) pumpFallback(pw Watcher) {
	for {
		select {
		case ev, ok := <-pw.Events():
			if !ok {
				return
			}
			fw.c.push(ev)
		case <-fw.done:
			_ = pw.Close()
			return
		}
	}
}

// handle translates one fsnotify.Event into the engine's FsEvent shape and
// pushes it through the coalescer. A newly created directory is watched
// immediately so its own future contents are caught too, matching
// watchRecursive's dynamic-add behavior in the original teacher code.
func (fw *fsnotifyWatcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = fw.watchRecursive(ev.Name)
		}
		fw.c.push(types.Created(ev.Name))
	case ev.Has(fsnotify.Write):
		fw.c.push(types.Modified(ev.Name))
	case ev.Has(fsnotify.Remove):
		_ = fw.Unwatch(ev.Name)
		fw.c.push(types.Deleted(ev.Name))
	case ev.Has(fsnotify.Rename):
		_ = fw.Unwatch(ev.Name)
		fw.c.push(types.Deleted(ev.Name))
	}
}
