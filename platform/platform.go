// Package platform implements the Platform FS Layer (spec component §4.7):
// a uniform watch/unwatch/event interface over whatever native change
// notification facility the host offers, with event coalescing applied
// uniformly regardless of backend.
//
// The dispatch shape — one goroutine owning the native handle, translating
// its events onto a Go channel — is grounded on the GileBrowser teacher's
// StartWatcher/handleEvent pair in handlers/watcher.go; NewDefault wires
// fsnotify the same way that file does, generalized from a fixed root map
// to the engine's dynamic watch/unwatch contract.
package platform

import (
	"time"

	"github.com/nexusfs/engine/logging"
	"github.com/nexusfs/engine/types"
)

var log = logging.New("platform")

// DefaultDebounce is the event-coalescing window applied uniformly across
// backends, per spec §4.7.
const DefaultDebounce = 50 * time.Millisecond

// Watcher is the uniform interface every backend (fsnotify, FSEvents, or
// the polling fallback) satisfies.
type Watcher interface {
	// Watch begins monitoring path (and, for directories, everything
	// created under it afterward) for changes. Watching an already-watched
	// path is a no-op.
	Watch(path string) error

	// Unwatch stops monitoring path. Unwatching a path that was never
	// watched, or was already removed from the filesystem, is a no-op.
	Unwatch(path string) error

	// Events returns the channel of coalesced filesystem events. It is
	// closed once Close returns.
	Events() <-chan types.FsEvent

	// Close stops the watcher and releases its native resources.
	Close() error
}
