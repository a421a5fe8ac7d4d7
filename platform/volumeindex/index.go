// Package volumeindex implements the optional whole-volume metadata index
// described in spec §4.7: an in-memory map from a platform file identifier
// to a parent/name/metadata record, built by consuming an ordered change
// journal (the shape of an NTFS USN journal, though nothing here is
// Windows-specific — any backend that can hand the engine ordered
// create/modify/delete/rename records by file ID can drive it).
package volumeindex

import (
	"sync"
	"time"

	"github.com/nexusfs/engine/types"
)

// RootID is the sentinel parent identifying the volume root. A record whose
// ParentID is RootID is reconstructed as a top-level path.
const RootID uint64 = 0

// Record is one file's metadata as known to the index.
type Record struct {
	ID       uint64
	ParentID uint64
	Name     string
	IsDir    bool
	Size     int64
	Modified time.Time
}

// JournalOp tags the kind of change a JournalRecord applies.
type JournalOp int

const (
	JournalCreated JournalOp = iota
	JournalModified
	JournalDeleted
	JournalRenamed
)

// JournalRecord is one ordered entry from the platform's change journal.
// Renamed carries the new ParentID/Name directly in Record under the same
// ID; it replaces the stored record without checking that one existed.
type JournalRecord struct {
	Op     JournalOp
	Record Record
}

// Index is the in-memory whole-volume metadata index. It is safe for
// concurrent use: journal application is serialized internally, and reads
// (Lookup, Path) take a read lock.
type Index struct {
	mu      sync.RWMutex
	records map[uint64]Record
}

// New returns an empty index.
func New() *Index {
	return &Index{records: make(map[uint64]Record)}
}

// Apply consumes journal records in order, mutating the index atomically
// per record. Records must be supplied in the order the journal produced
// them; applying them out of order is not detected and will silently
// produce a wrong index, the same hazard a real USN journal consumer has.
func (idx *Index) Apply(records ...JournalRecord) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, r := range records {
		idx.applyOneLocked(r)
	}
}

func (idx *Index) applyOneLocked(r JournalRecord) {
	switch r.Op {
	case JournalCreated, JournalModified, JournalRenamed:
		idx.records[r.Record.ID] = r.Record
	case JournalDeleted:
		delete(idx.records, r.Record.ID)
	}
}

// Lookup returns the record for id, if present.
func (idx *Index) Lookup(id uint64) (Record, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	rec, ok := idx.records[id]
	return rec, ok
}

// Path reconstructs the absolute path for id by following ParentID links to
// RootID. It returns an error rather than looping forever if the parent
// chain is cyclic or a link is missing — a valid index can never produce
// either, but corrupted journal application could.
func (idx *Index) Path(id uint64) (string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var segments []string
	seen := make(map[uint64]bool)
	cur := id
	for cur != RootID {
		if seen[cur] {
			return "", types.NewError(types.ErrIO, "", errCyclicParentChain)
		}
		seen[cur] = true

		rec, ok := idx.records[cur]
		if !ok {
			return "", types.NewError(types.ErrPathNotFound, "", errMissingParent)
		}
		segments = append(segments, rec.Name)
		cur = rec.ParentID
	}

	path := "/"
	for i := len(segments) - 1; i >= 0; i-- {
		path += segments[i]
		if i > 0 {
			path += "/"
		}
	}
	return path, nil
}

// Len reports how many records the index currently holds.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Snapshot returns a defensive copy of every record, primarily for
// serialization and tests.
func (idx *Index) Snapshot() []Record {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Record, 0, len(idx.records))
	for _, r := range idx.records {
		out = append(out, r)
	}
	return out
}

// Restore replaces the index's contents with records, used when loading a
// persisted index.
func (idx *Index) Restore(records []Record) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.records = make(map[uint64]Record, len(records))
	for _, r := range records {
		idx.records[r.ID] = r
	}
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

const (
	errCyclicParentChain = sentinelError("volumeindex: cyclic parent chain")
	errMissingParent     = sentinelError("volumeindex: missing parent record")
)
