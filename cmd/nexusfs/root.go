package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCommand = &cobra.Command{
	Use:   "nexusfs",
	Short: "Exercise the file-browsing engine from a terminal",
}

func init() {
	cobra.EnableCommandSorting = false
	cobra.MousetrapHelpText = ""

	rootCommand.AddCommand(
		lsCommand,
		browseCommand,
		exportCommand,
		reindexCommand,
		serveCommand,
	)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "nexusfs:", err)
	os.Exit(1)
}
