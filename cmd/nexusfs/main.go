// Command nexusfs is a demo/embedding CLI over the engine: enough of a
// host to exercise load_path/navigate/refresh, the icon-free TUI viewport,
// document export, and the whole-volume indexer from a terminal, the way a
// real desktop file browser would embed the same packages behind a GUI.
package main

import "os"

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
