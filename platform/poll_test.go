package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nexusfs/engine/types"
)

func TestPollWatcherReportsCreate(t *testing.T) {
	dir := t.TempDir()
	w := NewPolling(10 * time.Millisecond)
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

func TestPollWatcherReportsDelete(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "gone.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewPolling(10 * time.Millisecond)
	defer w.Close()
	if err := w.Watch(dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.Remove(target); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		if ev.Path != target {
			t.Fatalf("path = %q, want %q", ev.Path, target)
		}
		if ev.Kind != types.EventDeleted {
			t.Fatalf("kind = %v, want EventDeleted", ev.Kind)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delete event")
	}
}

func TestPollWatcherDoesNotReportPreexistingChildrenAsCreated(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "already-here.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewPolling(10 * time.Millisecond)
	defer w.Close()
	if err := w.Watch(dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for pre-existing child: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
