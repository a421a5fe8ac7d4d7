package platform

import (
	"sync"
	"time"

	"github.com/nexusfs/engine/types"
)

// coalescer batches raw backend events per path over a debounce window,
// collapsing bursts (an editor's save-as-temp-then-rename dance, a build
// tool rewriting a file several times in a row) into one event per path
// per window. The last kind observed for a path within the window wins,
// with two exceptions: a Created followed by a Modified is still reported
// as Created, and a Created followed by a Deleted collapses to nothing.
type coalescer struct {
	window time.Duration
	out    chan types.FsEvent

	mu      sync.Mutex
	pending map[string]types.FsEvent
	timer   *time.Timer
}

func newCoalescer(window time.Duration) *coalescer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &coalescer{
		window:  window,
		out:     make(chan types.FsEvent, 256),
		pending: make(map[string]types.FsEvent),
	}
}

// push records a raw event, superseding any pending event for the same
// path, and arms the flush timer if it is not already running. The window
// is measured from the first event pushed since the last flush.
func (c *coalescer) push(ev types.FsEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.pending[ev.Path]; ok && prev.Kind == types.EventCreated && ev.Kind == types.EventModified {
		// A create immediately followed by a modify in the same window is
		// still, from the model's point of view, just "this path appeared."
		ev.Kind = types.EventCreated
	}
	if prev, ok := c.pending[ev.Path]; ok && prev.Kind == types.EventCreated && ev.Kind == types.EventDeleted {
		// A path that appeared and vanished within one window never
		// happened, as far as the consumer is concerned.
		delete(c.pending, ev.Path)
		return
	}
	c.pending[ev.Path] = ev

	if c.timer == nil {
		c.timer = time.AfterFunc(c.window, c.flush)
	}
}

func (c *coalescer) flush() {
	c.mu.Lock()
	batch := c.pending
	c.pending = make(map[string]types.FsEvent)
	c.timer = nil
	c.mu.Unlock()

	for _, ev := range batch {
		c.out <- ev
	}
}

func (c *coalescer) events() <-chan types.FsEvent { return c.out }

func (c *coalescer) close() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	close(c.out)
}
