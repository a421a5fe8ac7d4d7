// Package searchindex implements the incremental fuzzy-search index (spec
// component §4.6): a writer-serialized mutation path over an append-only
// item list, with lock-free snapshot reads via an atomic pointer swap, and
// matching delegated to github.com/sahilm/fuzzy.
//
// There is no dedicated writer goroutine: SetPattern, Inject and Clear run
// the matcher synchronously on the caller's goroutine under a mutex and
// publish the result before returning, so no matching work is ever left in
// flight. Readers only ever load the published snapshot.
package searchindex

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sahilm/fuzzy"

	"github.com/nexusfs/engine/types"
)

// Source supplies the literal strings items are matched against, e.g. a
// FileEntry's Name. It is defined independently of types.FileEntry so the
// index can be reused to search anything string-keyed.
type Source interface {
	String() string
}

type stringSource string

func (s stringSource) String() string { return string(s) }

// StringSource adapts a plain string to Source.
func StringSource(s string) Source { return stringSource(s) }

type published struct {
	items   []Source
	pattern string
	matches []types.MatchedItem
}

// Index is an incrementally updated fuzzy-search index. All mutating calls
// (SetPattern, Inject, Clear) are serialized internally; Snapshot is
// lock-free and always returns a consistent, immediately-usable view.
type Index struct {
	mu  sync.Mutex // guards writer-side state only
	cur atomic.Pointer[published]

	items []Source
}

// New returns an empty index.
func New() *Index {
	idx := &Index{}
	idx.cur.Store(&published{})
	return idx
}

// Inject appends items to the index and re-runs the current pattern against
// the full item set. Call this as traversal batches arrive.
func (idx *Index) Inject(items ...Source) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.items = append(idx.items, items...)
	idx.republishLocked()
}

// SetPattern changes the active search pattern and re-runs it against the
// full item set.
func (idx *Index) SetPattern(pattern string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.republishPatternLocked(pattern)
}

// Clear empties the index and the current pattern.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.items = nil
	idx.republishPatternLocked("")
}

func (idx *Index) republishLocked() {
	idx.republishPatternLocked(idx.cur.Load().pattern)
}

// republishPatternLocked recomputes matches for pattern against the current
// item set and publishes a fresh snapshot atomically. An empty pattern
// matches every item with unit score and no highlighted positions, in
// index order.
func (idx *Index) republishPatternLocked(pattern string) {
	items := make([]Source, len(idx.items))
	copy(items, idx.items)

	var matches []types.MatchedItem
	if pattern == "" {
		matches = make([]types.MatchedItem, len(items))
		for i := range items {
			matches[i] = types.MatchedItem{EntryIndex: i, Score: 1, Positions: nil}
		}
	} else {
		names := make([]string, len(items))
		for i, it := range items {
			names[i] = it.String()
		}
		results := fuzzy.Find(pattern, names)
		matches = make([]types.MatchedItem, len(results))
		for i, r := range results {
			positions := make([]int, len(r.MatchedIndexes))
			copy(positions, r.MatchedIndexes)
			matches[i] = types.MatchedItem{
				EntryIndex: r.Index,
				Score:      r.Score,
				Positions:  positions,
			}
		}
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	}

	idx.cur.Store(&published{items: items, pattern: pattern, matches: matches})
}

// Snapshot returns the most recently published match set. It never blocks
// on the writer and is safe to call from any goroutine, any number of
// times concurrently.
func (idx *Index) Snapshot() types.MatcherSnapshot {
	p := idx.cur.Load()
	matches := make([]types.MatchedItem, len(p.matches))
	copy(matches, p.matches)
	return types.MatcherSnapshot{
		Matches:    matches,
		Pattern:    p.pattern,
		TotalItems: len(p.items),
	}
}

// Len reports the number of items currently indexed, regardless of pattern.
func (idx *Index) Len() int {
	return len(idx.cur.Load().items)
}
