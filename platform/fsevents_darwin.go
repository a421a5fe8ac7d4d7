//go:build darwin && cgo

package platform

import (
	"os"
	"sync"
	"time"

	"github.com/mutagen-io/fsevents"

	"github.com/nexusfs/engine/types"
)

// fseventsLatency is the coalescing latency requested from the kernel
// FSEvents facility itself, kept short because the engine applies its own
// debounce window uniformly across backends afterward.
const fseventsLatency = 10 * time.Millisecond

// darwinWatcher uses the native, natively-recursive FSEvents facility,
// grounded on mutagen's recursiveWatch (pkg/filesystem/watching). Unlike
// the fsnotify backend it never needs to walk a directory tree to register
// every subdirectory individually — one stream per watched root covers
// everything beneath it.
type darwinWatcher struct {
	c    *coalescer
	done chan struct{}

	mu      sync.Mutex
	streams map[string]*fsevents.EventStream
}

// NewDefault constructs the FSEvents-backed Watcher on Darwin.
func NewDefault() (Watcher, error) {
	return &darwinWatcher{
		c:       newCoalescer(DefaultDebounce),
		done:    make(chan struct{}),
		streams: make(map[string]*fsevents.EventStream),
	}, nil
}

func (dw *darwinWatcher) Watch(path string) error {
	if _, err := os.Stat(path); err != nil {
		return types.Classify(path, err)
	}

	dw.mu.Lock()
	if _, already := dw.streams[path]; already {
		dw.mu.Unlock()
		return nil
	}
	dw.mu.Unlock()

	raw := make(chan []fsevents.Event, 64)
	stream := &fsevents.EventStream{
		Events:  raw,
		Paths:   []string{path},
		Latency: fseventsLatency,
		Flags:   fsevents.WatchRoot | fsevents.FileEvents,
	}

	dw.mu.Lock()
	dw.streams[path] = stream
	dw.mu.Unlock()

	go dw.forward(raw)
	stream.Start()
	return nil
}

func (dw *darwinWatcher) forward(raw chan []fsevents.Event) {
	for {
		select {
		case events, ok := <-raw:
			if !ok {
				return
			}
			for _, e := range events {
				dw.c.push(classifyFSEvent(e))
			}
		case <-dw.done:
			return
		}
	}
}

func classifyFSEvent(e fsevents.Event) types.FsEvent {
	switch {
	case e.Flags&fsevents.ItemRemoved != 0:
		return types.Deleted(e.Path)
	case e.Flags&fsevents.ItemCreated != 0:
		return types.Created(e.Path)
	default:
		return types.Modified(e.Path)
	}
}

func (dw *darwinWatcher) Unwatch(path string) error {
	dw.mu.Lock()
	stream, ok := dw.streams[path]
	if ok {
		delete(dw.streams, path)
	}
	dw.mu.Unlock()
	if ok {
		stream.Stop()
	}
	return nil
}

func (dw *darwinWatcher) Events() <-chan types.FsEvent { return dw.c.events() }

func (dw *darwinWatcher) Close() error {
	close(dw.done)
	dw.mu.Lock()
	for _, s := range dw.streams {
		s.Stop()
	}
	dw.mu.Unlock()
	dw.c.close()
	return nil
}
