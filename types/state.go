package types

import "time"

// LoadStateKind is the tag of the LoadState variant.
type LoadStateKind int

const (
	StateIdle LoadStateKind = iota
	StateLoading
	StateLoaded
	StateCached
	StateError
)

// LoadState is the viewport-visible lifecycle of the currently selected
// path. Exactly the fields relevant to Kind are meaningful; the rest are
// zero.
type LoadState struct {
	Kind LoadStateKind

	// Loading
	Generation uint64

	// Loaded
	Count    int
	Duration time.Duration

	// Cached
	Stale bool

	// Error
	Message string
}

func Idle() LoadState { return LoadState{Kind: StateIdle} }

func Loading(generation uint64) LoadState {
	return LoadState{Kind: StateLoading, Generation: generation}
}

func Loaded(count int, duration time.Duration) LoadState {
	return LoadState{Kind: StateLoaded, Count: count, Duration: duration}
}

func Cached(stale bool) LoadState { return LoadState{Kind: StateCached, Stale: stale} }

func ErrorState(message string) LoadState {
	return LoadState{Kind: StateError, Message: message}
}

// Generation is a process-wide monotonically increasing counter. The
// FileSystem Model is the sole owner of the counter that produces these
// values; everything downstream only compares them.
type Generation = uint64
