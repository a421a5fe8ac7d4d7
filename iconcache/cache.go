// Package iconcache implements the Icon Cache (spec component §4.5): a
// bounded LRU of decoded Texture values keyed by IconKey, with a pixel-byte
// budget rather than an entry-count budget, pending-fetch de-duplication,
// and a pin/unpin discipline that defers eviction of textures currently on
// screen.
//
// The staleness-free, always-synchronous-read shape is grounded on the same
// GileBrowser cache pattern dircache adapts for directory snapshots; the
// pending-fetch coalescing is built on golang.org/x/sync/singleflight,
// already part of this module's dependency surface via the traversal
// package's errgroup usage.
package iconcache

import (
	"container/list"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nexusfs/engine/logging"
	"github.com/nexusfs/engine/types"
)

var log = logging.New("iconcache")

// DefaultMaxBytes bounds the cache at roughly 16MiB of decoded pixel data,
// enough for a few hundred typical 48x48 RGBA icons with headroom.
const DefaultMaxBytes = 16 * 1024 * 1024

type node struct {
	key     types.IconKey
	texture Texture
	pins    int
}

// Cache is a pin-aware, byte-budgeted LRU of decoded icon textures. It is
// safe for concurrent use.
type Cache struct {
	mu            sync.Mutex
	ll            *list.List
	items         map[types.IconKey]*list.Element
	atlas         map[types.IconKey]Texture
	pending       map[types.IconKey]bool
	loggedFailure map[types.IconKey]bool
	maxBytes      int
	curBytes      int

	placeholder Texture
	decode      DecodeFunc
	onReady     func(types.IconKey)
	group       singleflight.Group
}

// New creates a Cache. placeholder is returned by GetOrDefault while a
// texture is still decoding. onReady, if non-nil, is invoked (on the
// decoding goroutine) once a requested texture has been published, so a
// viewport can schedule a redraw; it must not block.
func New(maxBytes int, placeholder Texture, decode DecodeFunc, onReady func(types.IconKey)) *Cache {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Cache{
		ll:            list.New(),
		items:         make(map[types.IconKey]*list.Element),
		atlas:         make(map[types.IconKey]Texture),
		pending:       make(map[types.IconKey]bool),
		loggedFailure: make(map[types.IconKey]bool),
		maxBytes:      maxBytes,
		placeholder:   placeholder,
		decode:        decode,
		onReady:       onReady,
	}
}

// Preload installs tex under key in the atlas: a pre-populated set of
// common icons (directory, generic file, and the like) that is exempt from
// eviction entirely, since it is small and reused constantly.
func (c *Cache) Preload(key types.IconKey, tex Texture) {
	swizzleRGBAToBGRA(tex.Pixels)
	c.mu.Lock()
	c.atlas[key] = tex
	c.mu.Unlock()
}

// Get returns the cached texture for key without scheduling a decode.
func (c *Cache) Get(key types.IconKey) (Texture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(key)
}

func (c *Cache) lookupLocked(key types.IconKey) (Texture, bool) {
	if tex, ok := c.atlas[key]; ok {
		return tex, true
	}
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*node).texture, true
	}
	return Texture{}, false
}

// GetOrDefault returns the cached texture for key if present; otherwise it
// schedules an async decode (coalescing with any already in flight for the
// same key) and returns the placeholder immediately.
func (c *Cache) GetOrDefault(key types.IconKey) Texture {
	if tex, ok := c.Get(key); ok {
		return tex
	}
	c.Request(key)
	return c.placeholder
}

// Request schedules an async decode for key if it is not already cached or
// already pending. Duplicate requests for the same key while a decode is
// in flight are no-ops: the pending set ensures exactly one decode task is
// issued regardless of how many times Request is called concurrently.
func (c *Cache) Request(key types.IconKey) {
	c.mu.Lock()
	if _, cached := c.lookupLocked(key); cached {
		c.mu.Unlock()
		return
	}
	if c.pending[key] {
		c.mu.Unlock()
		return
	}
	c.pending[key] = true
	c.mu.Unlock()

	go c.decodeOne(key)
}

func (c *Cache) decodeOne(key types.IconKey) {
	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		return c.decode(key)
	})

	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()

	if err != nil {
		c.mu.Lock()
		alreadyLogged := c.loggedFailure[key]
		c.loggedFailure[key] = true
		c.mu.Unlock()
		if !alreadyLogged {
			log.Error("decode failed", "key", key.String(), "error", err)
		}
		return
	}

	tex := v.(Texture)
	swizzleRGBAToBGRA(tex.Pixels)
	c.publish(key, tex)

	if c.onReady != nil {
		c.onReady(key)
	}
}

func (c *Cache) publish(key types.IconKey, tex Texture) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.loggedFailure, key)

	if el, ok := c.items[key]; ok {
		n := el.Value.(*node)
		c.curBytes += tex.ByteSize() - n.texture.ByteSize()
		n.texture = tex
		c.ll.MoveToFront(el)
	} else {
		n := &node{key: key, texture: tex}
		c.items[key] = c.ll.PushFront(n)
		c.curBytes += tex.ByteSize()
	}
	c.evictLocked()
}

// Pin marks key's texture as in use, deferring its eviction until a
// matching Unpin. Pinning a key with no cached texture is a no-op.
func (c *Cache) Pin(key types.IconKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*node).pins++
	}
}

// Unpin releases one pin on key's texture, and re-evaluates the eviction
// budget — an over-budget cache can only be trimmed once its pinned
// entries are released.
func (c *Cache) Unpin(key types.IconKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		if n := el.Value.(*node); n.pins > 0 {
			n.pins--
		}
	}
	c.evictLocked()
}

// evictLocked walks the LRU list from least- to most-recently-used,
// removing unpinned entries until the unpinned entries fit the budget or no
// evictable entry remains. Pinned bytes are not counted against the budget,
// so the total may exceed it while pins are held. Pinned entries are skipped
// in place rather than stopping the walk, so a single hot entry can't block
// eviction of everything behind it.
func (c *Cache) evictLocked() {
	pinnedBytes := 0
	for el := c.ll.Front(); el != nil; el = el.Next() {
		if n := el.Value.(*node); n.pins > 0 {
			pinnedBytes += n.texture.ByteSize()
		}
	}
	el := c.ll.Back()
	for c.curBytes-pinnedBytes > c.maxBytes && el != nil {
		prev := el.Prev()
		n := el.Value.(*node)
		if n.pins == 0 {
			c.ll.Remove(el)
			delete(c.items, n.key)
			c.curBytes -= n.texture.ByteSize()
		}
		el = prev
	}
}

// Len reports the number of non-atlas entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Pending reports whether key currently has a decode in flight, mainly for
// tests.
func (c *Cache) Pending(key types.IconKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[key]
}
