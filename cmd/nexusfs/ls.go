package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nexusfs/engine/fsmodel"
	"github.com/nexusfs/engine/types"
)

var lsCommand = &cobra.Command{
	Use:   "ls <path>",
	Short: "Load a directory through the engine and print its entries",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m := fsmodel.New(fsmodel.Config{DirectoriesFirst: true})
		defer m.Close()

		m.LoadPath(args[0])
		state := awaitTerminal(m)

		if state.Kind == types.StateError {
			fatal(fmt.Errorf("%s", state.Message))
		}

		snap := m.Entries()
		defer snap.Release()

		for _, e := range snap.Entries() {
			size := ""
			if !e.IsDir {
				size = humanize.Bytes(uint64(e.Size))
			}
			fmt.Printf("%-40s %10s  %s\n", e.Name, size, e.Modified.Format(time.RFC3339))
		}
	},
}

// awaitTerminal blocks until the model reaches a Loaded, Cached, or Error
// state — whichever comes first — and returns it. It exists only for the
// CLI's synchronous output needs; a real embedder would use Subscribe
// directly on its own event loop.
func awaitTerminal(m *fsmodel.Model) types.LoadState {
	for {
		s := m.State()
		switch s.Kind {
		case types.StateLoaded, types.StateCached, types.StateError:
			return s
		}
		<-m.Subscribe()
	}
}
