package volumeindex

import (
	"testing"
	"time"

	"github.com/nexusfs/engine/types"
)

func TestPathReconstructionToRoot(t *testing.T) {
	idx := New()
	idx.Apply(
		JournalRecord{Op: JournalCreated, Record: Record{ID: 1, ParentID: RootID, Name: "home", IsDir: true}},
		JournalRecord{Op: JournalCreated, Record: Record{ID: 2, ParentID: 1, Name: "alice", IsDir: true}},
		JournalRecord{Op: JournalCreated, Record: Record{ID: 3, ParentID: 2, Name: "notes.txt"}},
	)

	path, err := idx.Path(3)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if path != "/home/alice/notes.txt" {
		t.Fatalf("path = %q, want /home/alice/notes.txt", path)
	}
}

func TestJournalCreateThenDeleteLeavesIndexWithoutPath(t *testing.T) {
	idx := New()
	rec := Record{ID: 1, ParentID: RootID, Name: "tmpfile"}
	idx.Apply(JournalRecord{Op: JournalCreated, Record: rec})
	if _, ok := idx.Lookup(1); !ok {
		t.Fatal("expected record present after create")
	}

	idx.Apply(JournalRecord{Op: JournalDeleted, Record: rec})
	if _, ok := idx.Lookup(1); ok {
		t.Fatal("expected record gone after delete")
	}
}

func TestPathMissingParentErrors(t *testing.T) {
	idx := New()
	idx.Apply(JournalRecord{Op: JournalCreated, Record: Record{ID: 5, ParentID: 999, Name: "orphan"}})

	_, err := idx.Path(5)
	if err == nil {
		t.Fatal("expected error for missing parent")
	}
	if terr, ok := err.(*types.Error); !ok || terr.Kind != types.ErrPathNotFound {
		t.Fatalf("err = %v, want ErrPathNotFound", err)
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	idx := New()
	idx.Apply(
		JournalRecord{Op: JournalCreated, Record: Record{ID: 1, ParentID: RootID, Name: "var", IsDir: true, Modified: time.Now()}},
		JournalRecord{Op: JournalCreated, Record: Record{ID: 2, ParentID: 1, Name: "log.txt", Size: 42, Modified: time.Now()}},
	)

	data, err := Serialize(idx)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	restored, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if restored.Len() != idx.Len() {
		t.Fatalf("restored has %d records, want %d", restored.Len(), idx.Len())
	}

	origPath, _ := idx.Path(2)
	restoredPath, err := restored.Path(2)
	if err != nil {
		t.Fatalf("Path on restored index: %v", err)
	}
	if origPath != restoredPath {
		t.Fatalf("restored path = %q, want %q", restoredPath, origPath)
	}
}

func TestDeserializeRejectsGarbageBytes(t *testing.T) {
	_, err := Deserialize([]byte("not a sqlite database"))
	if err == nil {
		t.Fatal("expected error for malformed bytes")
	}
	terr, ok := err.(*types.Error)
	if !ok || terr.Kind != types.ErrSerialization {
		t.Fatalf("err = %v, want ErrSerialization", err)
	}
}

func TestDeserializeRejectsTruncatedBytes(t *testing.T) {
	idx := New()
	idx.Apply(JournalRecord{Op: JournalCreated, Record: Record{ID: 1, ParentID: RootID, Name: "a"}})
	data, err := Serialize(idx)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	truncated := data[:len(data)/2]
	if _, err := Deserialize(truncated); err == nil {
		t.Fatal("expected error for truncated bytes")
	}
}

func TestRestartThenFurtherJournalRecordsMatchFreshBuild(t *testing.T) {
	live := New()
	live.Apply(
		JournalRecord{Op: JournalCreated, Record: Record{ID: 1, ParentID: RootID, Name: "a", IsDir: true}},
		JournalRecord{Op: JournalCreated, Record: Record{ID: 2, ParentID: 1, Name: "b.txt"}},
	)

	data, err := Serialize(live)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	restarted, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	more := []JournalRecord{
		{Op: JournalCreated, Record: Record{ID: 3, ParentID: 1, Name: "c.txt"}},
		{Op: JournalDeleted, Record: Record{ID: 2, ParentID: 1, Name: "b.txt"}},
	}
	restarted.Apply(more...)
	live.Apply(more...)

	if restarted.Len() != live.Len() {
		t.Fatalf("restarted has %d records, want %d matching a from-scratch build", restarted.Len(), live.Len())
	}
}
