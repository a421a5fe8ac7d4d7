package fsmodel

import (
	"time"

	"github.com/nexusfs/engine/dircache"
	"github.com/nexusfs/engine/platform"
	"github.com/nexusfs/engine/traversal"
	"github.com/nexusfs/engine/types"
)

// Config bundles every tunable and collaborator the model needs at
// construction. There is deliberately no package-level default instance:
// every embedder constructs its own Model with its own Config, so multiple
// independent models (e.g. two browser windows) never share hidden state.
type Config struct {
	// MaxCacheEntries bounds the Directory Cache. Zero uses
	// dircache.DefaultMaxEntries.
	MaxCacheEntries int

	// FreshnessWindow bounds how long a cached snapshot is trusted without
	// a confirming stat. Zero uses dircache.DefaultFreshnessWindow.
	FreshnessWindow time.Duration

	// BatchCount and BatchInterval tune the traversal batcher. Zero values
	// use the traversal package's defaults.
	BatchCount    int
	BatchInterval time.Duration

	SortKey          types.SortKey
	DirectoriesFirst bool
	ShowHidden       bool

	// Watcher, if non-nil, is used to mark cached directories dirty as the
	// platform reports changes. A nil Watcher disables live invalidation;
	// the directory cache still falls back to its own staleness window.
	Watcher platform.Watcher
}

func (c Config) walkOptions(generation types.Generation, path string) traversal.Options {
	return traversal.Options{
		Generation:       generation,
		Path:             path,
		SortKey:          c.SortKey,
		DirectoriesFirst: c.DirectoriesFirst,
		ShowHidden:       c.ShowHidden,
		BatchCount:       c.BatchCount,
		BatchInterval:    c.BatchInterval,
	}
}

func (c Config) newCache() *dircache.Cache {
	return dircache.New(c.MaxCacheEntries, c.FreshnessWindow)
}
