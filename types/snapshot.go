package types

import (
	"sync/atomic"
	"time"
)

// entryVector is the reference-counted backing store for a snapshot's
// entries. Multiple DirectorySnapshot values (handed to the viewport by
// value-copy of the header) can share one entryVector; the slice itself is
// released for garbage collection only once the last reference drops it.
//
// Go's GC would reclaim the slice anyway once every DirectorySnapshot
// pointing at it is gone, but the explicit refcount gives the retain+evict
// discipline the data model requires (I4, the pin/unpin contract mirrored by
// the icon cache) an observable, testable shape rather than relying on GC
// timing, and lets callers eagerly drop a large slice's memory the moment
// they know they are done with it instead of waiting on the next cycle.
type entryVector struct {
	entries []FileEntry
	refs    atomic.Int32
}

func newEntryVector(entries []FileEntry) *entryVector {
	v := &entryVector{entries: entries}
	v.refs.Store(1)
	return v
}

func (v *entryVector) retain() *entryVector {
	if v == nil {
		return nil
	}
	v.refs.Add(1)
	return v
}

func (v *entryVector) release() {
	if v == nil {
		return
	}
	if v.refs.Add(-1) == 0 {
		v.entries = nil
	}
}

// DirectorySnapshot is an immutable, ordered, reference-counted view of a
// directory at a point in time. Copying a DirectorySnapshot by value (as
// happens whenever it is handed to a viewport) is cheap: it copies the
// header and retains the shared entry vector.
type DirectorySnapshot struct {
	Path             string
	Generation       uint64
	CapturedAt       time.Time
	SourceMTime      time.Time
	SortKey          SortKey
	DirectoriesFirst bool

	vec *entryVector
}

// NewDirectorySnapshot takes ownership of entries (the caller must not
// mutate the slice afterwards) and returns a snapshot with one outstanding
// reference.
func NewDirectorySnapshot(path string, generation uint64, capturedAt, sourceMTime time.Time, sortKey SortKey, directoriesFirst bool, entries []FileEntry) DirectorySnapshot {
	return DirectorySnapshot{
		Path:             path,
		Generation:       generation,
		CapturedAt:       capturedAt,
		SourceMTime:      sourceMTime,
		SortKey:          sortKey,
		DirectoriesFirst: directoriesFirst,
		vec:              newEntryVector(entries),
	}
}

// Entries returns the snapshot's entry slice. The slice must be treated as
// read-only by the caller; it is shared with every other copy of this
// snapshot.
func (s DirectorySnapshot) Entries() []FileEntry {
	if s.vec == nil {
		return nil
	}
	return s.vec.entries
}

// Len is a convenience accessor used by callers that only need a count.
func (s DirectorySnapshot) Len() int {
	if s.vec == nil {
		return 0
	}
	return len(s.vec.entries)
}

// IsZero reports whether this is the unpopulated zero value (no traversal
// has ever completed for this path).
func (s DirectorySnapshot) IsZero() bool { return s.vec == nil }

// Retain returns a copy of s with its own outstanding reference on the
// shared entry vector. Callers that hold onto a snapshot across an async
// boundary (e.g. a background revalidation comparing against the last
// published snapshot) should Retain it and Release when done.
func (s DirectorySnapshot) Retain() DirectorySnapshot {
	out := s
	out.vec = s.vec.retain()
	return out
}

// Release drops this snapshot's reference to the shared entry vector. It is
// a no-op on the zero value and safe to call more than once only if every
// call corresponds to a distinct Retain/NewDirectorySnapshot.
func (s DirectorySnapshot) Release() {
	s.vec.release()
}

// SameContent reports whether two snapshots carry identical entries: the
// same count, and every entry equal field by field in the same order
// (invariant I1 in reverse: same path+generation never differ, but two
// different generations may still coincidentally agree).
func (s DirectorySnapshot) SameContent(other DirectorySnapshot) bool {
	a, b := s.Entries(), other.Entries()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
