package traversal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nexusfs/engine/types"
)

func mustMkTree(t *testing.T, files int, dirs int) string {
	t.Helper()
	root := t.TempDir()
	for i := 0; i < files; i++ {
		name := filepath.Join(root, "file"+padded(i)+".txt")
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < dirs; i++ {
		name := filepath.Join(root, "dir"+padded(i))
		if err := os.Mkdir(name, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func padded(i int) string {
	s := "000000" + itoa(i)
	return s[len(s)-6:]
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

func drain(t *testing.T, batches <-chan Batch, timeout time.Duration) []Batch {
	t.Helper()
	var got []Batch
	deadline := time.After(timeout)
	for {
		select {
		case b, ok := <-batches:
			if !ok {
				return got
			}
			got = append(got, b)
			if b.Done {
				return got
			}
		case <-deadline:
			t.Fatal("timed out waiting for batches")
			return got
		}
	}
}

func TestWalkBatchCountBound(t *testing.T) {
	const n = 350
	root := mustMkTree(t, n, 0)

	out, cancel := Walk(context.Background(), Options{Generation: 1, Path: root})
	defer cancel()

	batches := drain(t, out, 5*time.Second)

	total := 0
	nonTerminal := 0
	for _, b := range batches {
		total += len(b.Entries)
		if !b.Done {
			nonTerminal++
		}
	}
	if total != n {
		t.Fatalf("got %d entries, want %d", total, n)
	}
	// ceil(n/100) = 4 non-terminal batches at minimum for a fast local walk;
	// time flushes could add more but never fewer.
	minBatches := (n + DefaultBatchCount - 1) / DefaultBatchCount
	if nonTerminal < minBatches {
		t.Fatalf("got %d non-terminal batches, want at least %d", nonTerminal, minBatches)
	}
	if !batches[len(batches)-1].Done {
		t.Fatal("last batch must be the terminal done batch")
	}
}

func TestWalkDirectoriesFirst(t *testing.T) {
	root := mustMkTree(t, 5, 5)

	out, cancel := Walk(context.Background(), Options{
		Generation:       1,
		Path:             root,
		DirectoriesFirst: true,
	})
	defer cancel()

	batches := drain(t, out, 5*time.Second)
	var all []types.FileEntry
	for _, b := range batches {
		all = append(all, b.Entries...)
	}

	seenFile := false
	for _, e := range all {
		if !e.IsDir {
			seenFile = true
		}
		if e.IsDir && seenFile {
			t.Fatalf("directory %q appeared after a file; directories-first violated", e.Name)
		}
	}
}

func TestWalkGenerationStamped(t *testing.T) {
	root := mustMkTree(t, 3, 0)
	out, cancel := Walk(context.Background(), Options{Generation: 42, Path: root})
	defer cancel()

	for _, b := range drain(t, out, 5*time.Second) {
		if b.Generation != 42 {
			t.Fatalf("batch generation = %d, want 42", b.Generation)
		}
	}
}

func TestWalkMissingPath(t *testing.T) {
	out, cancel := Walk(context.Background(), Options{Generation: 1, Path: filepath.Join(t.TempDir(), "missing")})
	defer cancel()

	batches := drain(t, out, 5*time.Second)
	last := batches[len(batches)-1]
	if !last.Done || last.Err == nil {
		t.Fatalf("expected terminal error batch, got %+v", last)
	}
	if last.Err.Kind != types.ErrPathNotFound {
		t.Fatalf("kind = %v, want ErrPathNotFound", last.Err.Kind)
	}
}
