//go:build !(darwin && cgo)

package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nexusfs/engine/types"
)

func TestFsnotifyWatcherReportsCreate(t *testing.T) {
	dir := t.TempDir()
	w, err := newFsnotifyWatcher(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("newFsnotifyWatcher: %v", err)
	}
	defer w.Close()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	target := filepath.Join(dir, "new.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		if ev.Path != target {
			t.Fatalf("path = %q, want %q", ev.Path, target)
		}
		if ev.Kind != types.EventCreated {
			t.Fatalf("kind = %v, want EventCreated", ev.Kind)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for create event")
	}
}

func TestFsnotifyWatcherFollowsNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	w, err := newFsnotifyWatcher(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("newFsnotifyWatcher: %v", err)
	}
	defer w.Close()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	// Drain the subdirectory's own create event before exercising it.
	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subdirectory create event")
	}

	// Give the dynamic re-add a moment to land before writing inside it.
	time.Sleep(50 * time.Millisecond)

	target := filepath.Join(sub, "inner.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		if ev.Path != target {
			t.Fatalf("path = %q, want %q", ev.Path, target)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for nested create event")
	}
}
