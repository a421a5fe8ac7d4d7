package types

// MatchedItem is one scored hit from the Search Index. EntryIndex refers
// into the slice of items that were indexed at injection time, not into any
// particular DirectorySnapshot.
type MatchedItem struct {
	EntryIndex int
	Score      int
	Positions  []int
}

// MatcherSnapshot is an immutable, cheaply-copyable view of the Search
// Index's current best-known results for Pattern. TotalItems is the size of
// the indexed corpus regardless of how many matched, so a viewport can
// render "37 of 4,215" without a second round trip.
type MatcherSnapshot struct {
	Matches    []MatchedItem
	Pattern    string
	TotalItems int
}
