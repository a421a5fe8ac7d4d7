package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexusfs/engine/fsmodel"
	"github.com/nexusfs/engine/htmlexport"
	"github.com/nexusfs/engine/mimetype"
	"github.com/nexusfs/engine/types"
)

var exportOutput string

var exportCommand = &cobra.Command{
	Use:   "export <path>",
	Short: "Render a directory listing, or a single document, to a static HTML file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := args[0]

		info, err := os.Stat(target)
		if err != nil {
			fatal(err)
		}

		var html string
		if info.IsDir() {
			html, err = exportListingHTML(target)
		} else {
			html, err = exportDocumentHTML(target)
		}
		if err != nil {
			fatal(err)
		}

		if exportOutput == "" {
			exportOutput = "export.html"
		}
		if err := os.WriteFile(exportOutput, []byte(html), 0o644); err != nil {
			fatal(fmt.Errorf("write output: %w", err))
		}
		fmt.Println(exportOutput)
	},
}

func init() {
	exportCommand.Flags().StringVarP(&exportOutput, "output", "o", "", "output HTML file (default: export.html)")
}

func exportListingHTML(dir string) (string, error) {
	m := fsmodel.New(fsmodel.Config{DirectoriesFirst: true})
	defer m.Close()

	m.LoadPath(dir)
	state := awaitTerminal(m)
	if state.Kind == types.StateError {
		return "", fmt.Errorf("%s", state.Message)
	}

	snap := m.Entries()
	defer snap.Release()
	return htmlexport.ExportListing(snap)
}

func exportDocumentHTML(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	mime := mimetype.ForPath(path)
	switch {
	case mime == "text/markdown" || mime == "text/x-org" || mime == "text/html":
		rendered, err := htmlexport.RenderDocument(string(content), mime, true)
		if err != nil {
			return "", err
		}
		return string(rendered), nil
	case mimetype.IsText(mime):
		return htmlexport.HighlightFile(path, string(content)), nil
	default:
		return "", fmt.Errorf("%s is not previewable (detected %s)", path, mime)
	}
}
