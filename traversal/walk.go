// Package traversal implements the parallel directory scanner and the
// batcher that coalesces its output for the viewport (spec components
// "Traversal Pipeline" and "Batcher").
package traversal

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nexusfs/engine/logging"
	"github.com/nexusfs/engine/types"
)

var log = logging.New("traversal")

// Default tuning constants from the batching policy and the bounded
// producer-to-batcher channel.
const (
	DefaultBatchCount    = 100
	DefaultBatchInterval = 16 * time.Millisecond
	DefaultChannelCap    = 1024
)

// Options configures a single traversal of one directory.
type Options struct {
	// Generation is stamped on every Batch this traversal produces.
	Generation types.Generation
	// Path is the directory to list. Non-recursive.
	Path string
	// SortKey selects the ordering applied before entries are ever placed
	// on the channel.
	SortKey types.SortKey
	// DirectoriesFirst stably partitions the sorted output so every
	// directory precedes every file.
	DirectoriesFirst bool
	// ShowHidden includes dot-prefixed entries when true.
	ShowHidden bool

	// BatchCount and BatchInterval override the batching policy; zero
	// values fall back to the package defaults.
	BatchCount    int
	BatchInterval time.Duration
	// ChannelCap overrides the bounded channel capacity; zero falls back
	// to DefaultChannelCap.
	ChannelCap int
}

func (o Options) batchCount() int {
	if o.BatchCount > 0 {
		return o.BatchCount
	}
	return DefaultBatchCount
}

func (o Options) batchInterval() time.Duration {
	if o.BatchInterval > 0 {
		return o.BatchInterval
	}
	return DefaultBatchInterval
}

func (o Options) channelCap() int {
	if o.ChannelCap > 0 {
		return o.ChannelCap
	}
	return DefaultChannelCap
}

// Batch is a bounded, ordered group of entries emitted by the Batcher.
// Done marks the terminal batch for a traversal; Err is only set on that
// terminal batch, and only when the traversal failed at the directory
// level (per-entry errors are logged and the entry is simply omitted).
type Batch struct {
	Generation types.Generation
	Entries    []types.FileEntry
	Done       bool
	Err        *types.Error
}

// Walk starts a traversal of opts.Path and returns the batched output
// channel together with a cancel function. Cancelling stops the
// traversal cooperatively: workers check ctx between entries and before
// each stat, per the cancellation design.
//
// The underlying directory read, per-entry stat, and sort all happen on
// background goroutines; Walk itself never blocks.
func Walk(ctx context.Context, opts Options) (<-chan Batch, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	rawEntries := make(chan types.FileEntry, opts.channelCap())
	errc := make(chan error, 1)

	go runWalk(ctx, opts, rawEntries, errc)

	out := batchChannel(opts.Generation, rawEntries, errc, opts.batchCount(), opts.batchInterval())
	return out, cancel
}

// runWalk performs the directory read, parallel stat, and sort, then
// streams the sorted entries onto rawEntries respecting backpressure. It
// always closes rawEntries exactly once and sends at most one terminal
// error onto errc before closing it.
func runWalk(ctx context.Context, opts Options, rawEntries chan<- types.FileEntry, errc chan<- error) {
	defer close(rawEntries)
	defer close(errc)

	dirEntries, err := os.ReadDir(opts.Path)
	if err != nil {
		errc <- err
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if workers > len(dirEntries) && len(dirEntries) > 0 {
		workers = len(dirEntries)
	}

	type indexed struct {
		idx   int
		entry types.FileEntry
		ok    bool
	}
	results := make([]indexed, len(dirEntries))

	jobs := make(chan int, len(dirEntries))
	for i := range dirEntries {
		jobs <- i
	}
	close(jobs)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				d := dirEntries[i]
				name := d.Name()
				if !opts.ShowHidden && strings.HasPrefix(name, ".") {
					continue
				}
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				info, statErr := d.Info()
				if statErr != nil {
					log.Warn("stat failed, omitting entry", "path", filepath.Join(opts.Path, name), "error", statErr)
					continue
				}
				entry := types.FileEntry{
					Name:     name,
					Path:     filepath.Join(opts.Path, name),
					IsDir:    d.IsDir(),
					Size:     info.Size(),
					Modified: info.ModTime(),
				}
				if entry.IsDir {
					entry.FileType = types.TypeDirectory
					entry.IconKey = types.DirectoryIconKey()
					entry.Size = 0
				} else {
					entry.FileType, entry.IconKey = Classify(name)
				}
				results[i] = indexed{idx: i, entry: entry, ok: true}
			}
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]types.FileEntry, 0, len(results))
	for _, r := range results {
		if r.ok {
			entries = append(entries, r.entry)
		}
	}

	sortEntries(entries, opts.SortKey, opts.DirectoriesFirst)

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return
		case rawEntries <- e:
		}
	}
}

// sortEntries applies the tie-break rule (case-insensitive name compare,
// then lexicographic byte compare) for the requested SortKey, then performs
// the directories-first stable partition so the Batcher never has to
// re-sort (spec §4.2).
func sortEntries(entries []types.FileEntry, key types.SortKey, directoriesFirst bool) {
	less := nameLess
	switch key {
	case types.SortBySize:
		less = func(a, b types.FileEntry) bool {
			if a.Size != b.Size {
				return a.Size < b.Size
			}
			return nameLess(a, b)
		}
	case types.SortByModified:
		less = func(a, b types.FileEntry) bool {
			if !a.Modified.Equal(b.Modified) {
				return a.Modified.Before(b.Modified)
			}
			return nameLess(a, b)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return less(entries[i], entries[j]) })

	if directoriesFirst {
		stablePartitionDirsFirst(entries)
	}
}

func nameLess(a, b types.FileEntry) bool {
	al, bl := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if al != bl {
		return al < bl
	}
	return a.Name < b.Name
}

// stablePartitionDirsFirst moves all directories ahead of all files while
// preserving the relative order within each group.
func stablePartitionDirsFirst(entries []types.FileEntry) {
	dirs := make([]types.FileEntry, 0, len(entries))
	files := make([]types.FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}
	copy(entries, dirs)
	copy(entries[len(dirs):], files)
}
