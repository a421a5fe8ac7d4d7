package platform

import (
	"testing"
	"time"

	"github.com/nexusfs/engine/types"
)

func TestCoalescerCollapsesBurstIntoOneEvent(t *testing.T) {
	c := newCoalescer(20 * time.Millisecond)
	defer c.close()

	for i := 0; i < 10; i++ {
		c.push(types.Modified("/a"))
	}

	select {
	case ev := <-c.events():
		if ev.Path != "/a" || ev.Kind != types.EventModified {
			t.Fatalf("got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for coalesced event")
	}

	select {
	case ev := <-c.events():
		t.Fatalf("unexpected second event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCoalescerCreateThenModifyStaysCreated(t *testing.T) {
	c := newCoalescer(20 * time.Millisecond)
	defer c.close()

	c.push(types.Created("/a"))
	c.push(types.Modified("/a"))

	select {
	case ev := <-c.events():
		if ev.Kind != types.EventCreated {
			t.Fatalf("kind = %v, want EventCreated", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestCoalescerTracksMultiplePaths(t *testing.T) {
	c := newCoalescer(20 * time.Millisecond)
	defer c.close()

	c.push(types.Created("/a"))
	c.push(types.Created("/b"))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-c.events():
			seen[ev.Path] = true
		case <-time.After(time.Second):
			t.Fatal("timed out")
		}
	}
	if !seen["/a"] || !seen["/b"] {
		t.Fatalf("expected events for both paths, got %v", seen)
	}
}
