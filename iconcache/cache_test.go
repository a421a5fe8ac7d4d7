package iconcache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nexusfs/engine/types"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func tex(n int) Texture {
	return Texture{Width: 1, Height: n, Pixels: make([]byte, n*4)}
}

func TestGetOrDefaultSchedulesDecodeAndReturnsPlaceholder(t *testing.T) {
	placeholder := tex(1)
	key := types.GenericFileIconKey()

	var calls int32
	decode := func(types.IconKey) (Texture, error) {
		atomic.AddInt32(&calls, 1)
		return tex(4), nil
	}

	c := New(0, placeholder, decode, nil)
	got := c.GetOrDefault(key)
	if got.ByteSize() != placeholder.ByteSize() {
		t.Fatal("expected placeholder on first call")
	}

	waitFor(t, time.Second, func() bool { _, ok := c.Get(key); return ok })
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("decode called %d times, want 1", calls)
	}
}

func TestRequestDeduplicatesConcurrentCalls(t *testing.T) {
	key := types.GenericFileIconKey()
	var calls int32
	release := make(chan struct{})
	decode := func(types.IconKey) (Texture, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return tex(4), nil
	}

	c := New(0, tex(1), decode, nil)

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Request(key)
		}()
	}
	wg.Wait()

	close(release)
	waitFor(t, time.Second, func() bool { _, ok := c.Get(key); return ok })

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("decode issued %d times, want exactly 1", got)
	}
}

func TestSwizzleAppliedOnPublish(t *testing.T) {
	key := types.GenericFileIconKey()
	decode := func(types.IconKey) (Texture, error) {
		return Texture{Width: 1, Height: 1, Pixels: []byte{10, 20, 30, 255}}, nil
	}

	c := New(0, tex(1), decode, nil)
	c.Request(key)
	waitFor(t, time.Second, func() bool { _, ok := c.Get(key); return ok })

	got, _ := c.Get(key)
	want := []byte{30, 20, 10, 255}
	if got.Pixels[0] != want[0] || got.Pixels[1] != want[1] || got.Pixels[2] != want[2] || got.Pixels[3] != want[3] {
		t.Fatalf("pixels = %v, want %v (BGRA)", got.Pixels, want)
	}
}

func TestEvictionRespectsByteBudget(t *testing.T) {
	decode := func(types.IconKey) (Texture, error) { return tex(4), nil }
	c := New(tex(4).ByteSize()*2, tex(1), decode, nil)

	for i := 0; i < 5; i++ {
		key := types.ExtensionIconKey("ext" + string(rune('a'+i)))
		c.Request(key)
		waitFor(t, time.Second, func() bool { _, ok := c.Get(key); return ok })
	}

	if c.Len() > 2 {
		t.Fatalf("cache holds %d entries, want <= 2 given the byte budget", c.Len())
	}
}

func TestPinPreventsEviction(t *testing.T) {
	decode := func(types.IconKey) (Texture, error) { return tex(4), nil }
	budget := tex(4).ByteSize()
	c := New(budget, tex(1), decode, nil)

	pinned := types.ExtensionIconKey("pinned")
	c.Request(pinned)
	waitFor(t, time.Second, func() bool { _, ok := c.Get(pinned); return ok })
	c.Pin(pinned)

	for i := 0; i < 5; i++ {
		key := types.ExtensionIconKey("other" + string(rune('a'+i)))
		c.Request(key)
		waitFor(t, time.Second, func() bool { _, ok := c.Get(key); return ok })
	}

	if _, ok := c.Get(pinned); !ok {
		t.Fatal("pinned entry must survive eviction pressure")
	}

	c.Unpin(pinned)
}

func TestPreloadedAtlasNeverEvicted(t *testing.T) {
	decode := func(types.IconKey) (Texture, error) { return tex(4), nil }
	budget := tex(4).ByteSize()
	c := New(budget, tex(1), decode, nil)

	dirKey := types.DirectoryIconKey()
	c.Preload(dirKey, tex(1))

	for i := 0; i < 10; i++ {
		key := types.ExtensionIconKey("other" + string(rune('a'+i)))
		c.Request(key)
		waitFor(t, time.Second, func() bool { _, ok := c.Get(key); return ok })
	}

	if _, ok := c.Get(dirKey); !ok {
		t.Fatal("atlas entry must never be evicted")
	}
}

func TestOnReadyCallbackFires(t *testing.T) {
	key := types.GenericFileIconKey()
	decode := func(types.IconKey) (Texture, error) { return tex(4), nil }

	var fired int32
	c := New(0, tex(1), decode, func(types.IconKey) { atomic.AddInt32(&fired, 1) })

	c.Request(key)
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&fired) == 1 })
}

func TestDecodeErrorLeavesPlaceholder(t *testing.T) {
	key := types.GenericFileIconKey()
	decode := func(types.IconKey) (Texture, error) { return Texture{}, errTest }

	c := New(0, tex(1), decode, nil)
	got := c.GetOrDefault(key)
	if got.ByteSize() != tex(1).ByteSize() {
		t.Fatal("expected placeholder")
	}

	waitFor(t, time.Second, func() bool { return !c.Pending(key) })
	if _, ok := c.Get(key); ok {
		t.Fatal("a failed decode must not publish a texture")
	}
}

type testError string

func (e testError) Error() string { return string(e) }

var errTest = testError("decode failed")
