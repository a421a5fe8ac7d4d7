package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nexusfs/engine/fsmodel"
	"github.com/nexusfs/engine/mimetype"
	"github.com/nexusfs/engine/platform"
	"github.com/nexusfs/engine/types"
)

var browseCommand = &cobra.Command{
	Use:   "browse [path]",
	Short: "Interactively browse the filesystem through the engine",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		start := "."
		if len(args) == 1 {
			start = args[0]
		}

		m := newBrowseModel(start)
		defer m.engine.Close()
		if m.watcher != nil {
			defer m.watcher.Close()
		}

		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			fatal(err)
		}
	},
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dirStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	searchBoxText = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

// publishMsg carries a fresh model.State(), produced whenever the engine's
// Subscribe channel fires; entries are re-read from the engine on demand.
type publishMsg struct {
	state types.LoadState
}

// browseModel is the bubbletea Model wrapping the engine's fsmodel.Model. It
// mirrors the single-struct, switch-on-message-type shape used for terminal
// file browsers built on the same framework: Init arms the first wait,
// Update reacts to either key presses or engine publications, View renders
// the tree pane and a one-line status/search bar.
type browseModel struct {
	engine  *fsmodel.Model
	watcher platform.Watcher

	cursor int
	width  int
	height int

	searching bool
	search    textinput.Model

	previewing bool
	preview    string

	state types.LoadState
	err   string
}

func newBrowseModel(start string) *browseModel {
	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "filter by name"
	search.CharLimit = 256

	watcher, err := platform.NewDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nexusfs: live updates disabled: %v\n", err)
	}

	engine := fsmodel.New(fsmodel.Config{DirectoriesFirst: true, Watcher: watcher})
	engine.LoadPath(start)

	return &browseModel{
		engine:  engine,
		watcher: watcher,
		search:  search,
		state:   engine.State(),
	}
}

func (m *browseModel) Init() tea.Cmd {
	return waitForPublish(m.engine)
}

// waitForPublish returns a tea.Cmd that blocks on the engine's broadcast
// channel and resolves to a publishMsg once it fires, the standard way to
// bridge a foreign notification channel into bubbletea's message loop.
func waitForPublish(engine *fsmodel.Model) tea.Cmd {
	ch := engine.Subscribe()
	return func() tea.Msg {
		<-ch
		return publishMsg{state: engine.State()}
	}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case publishMsg:
		m.state = msg.state
		if m.state.Kind == types.StateError {
			m.err = m.state.Message
		} else {
			m.err = ""
		}
		m.clampCursor()
		return m, waitForPublish(m.engine)

	case tea.KeyMsg:
		if m.previewing {
			return m.handlePreviewKey(msg)
		}
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleBrowseKey(msg)
	}
	return m, nil
}

func (m *browseModel) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "j", "down":
		m.cursor++
		m.clampCursor()
	case "k", "up":
		m.cursor--
		m.clampCursor()
	case "enter", "l", "right":
		m.descend()
	case "h", "left", "backspace":
		m.engine.NavigateUp()
	case "r":
		m.engine.Refresh()
	case "p":
		m.openPreview()
	case "/":
		m.searching = true
		m.search.SetValue("")
		m.search.Focus()
		m.engine.Index().SetPattern("")
	}
	return m, nil
}

func (m *browseModel) handlePreviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "p":
		m.previewing = false
		m.preview = ""
	}
	return m, nil
}

// openPreview renders the selected file's content in place, using glamour
// for markdown and a plain truncated dump otherwise. Directories and
// unreadable files show a one-line message instead of failing silently.
func (m *browseModel) openPreview() {
	entries := m.entries()
	if m.cursor < 0 || m.cursor >= len(entries) {
		return
	}
	e := entries[m.cursor]
	m.previewing = true
	if e.IsDir {
		m.preview = e.Name + "/ is a directory"
		return
	}

	content, err := os.ReadFile(e.Path)
	if err != nil {
		m.preview = "cannot read file: " + err.Error()
		return
	}

	if mimetype.ForPath(e.Path) == "text/markdown" {
		width := m.width
		if width <= 0 {
			width = 80
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			if out, err := renderer.Render(string(content)); err == nil {
				m.preview = out
				return
			}
		}
	}

	const maxPreviewBytes = 8192
	text := string(content)
	if len(text) > maxPreviewBytes {
		text = text[:maxPreviewBytes] + "\n... (truncated)"
	}
	m.preview = text
}

func (m *browseModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.engine.Index().SetPattern("")
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		if snap := m.entries(); len(snap) > 0 {
			if idx := m.firstMatchEntryIndex(); idx >= 0 {
				m.cursor = idx
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.engine.Index().SetPattern(m.search.Value())
	return m, cmd
}

func (m *browseModel) firstMatchEntryIndex() int {
	snap := m.engine.Index().Snapshot()
	if len(snap.Matches) == 0 {
		return -1
	}
	return snap.Matches[0].EntryIndex
}

func (m *browseModel) entries() []types.FileEntry {
	snap := m.engine.Entries()
	defer snap.Release()
	return append([]types.FileEntry(nil), snap.Entries()...)
}

func (m *browseModel) clampCursor() {
	n := len(m.entries())
	if n == 0 {
		m.cursor = 0
		return
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
}

func (m *browseModel) descend() {
	entries := m.entries()
	if m.cursor < 0 || m.cursor >= len(entries) {
		return
	}
	e := entries[m.cursor]
	if e.IsDir {
		m.cursor = 0
		m.engine.LoadPath(e.Path)
	}
}

func (m *browseModel) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", headerStyle.Render(m.engine.CurrentPath()))

	if m.previewing {
		fmt.Fprintln(&b, m.preview)
		fmt.Fprintln(&b, statusStyle.Render("esc/p/q close preview"))
		return b.String()
	}

	switch m.state.Kind {
	case types.StateLoading:
		fmt.Fprintln(&b, statusStyle.Render("loading..."))
	case types.StateError:
		fmt.Fprintln(&b, statusStyle.Render("error: "+m.err))
	}

	entries := m.entries()
	maxRows := m.height - 4
	if maxRows < 1 {
		maxRows = len(entries)
	}
	for i, e := range entries {
		if i >= maxRows {
			fmt.Fprintln(&b, statusStyle.Render(fmt.Sprintf("... %d more", len(entries)-maxRows)))
			break
		}
		line := e.Name
		if e.IsDir {
			line = dirStyle.Render(e.Name + "/")
		}
		if i == m.cursor {
			fmt.Fprintf(&b, "%s %s\n", cursorStyle.Render(">"), line)
		} else {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	if m.searching {
		fmt.Fprintf(&b, "\n%s\n", searchBoxText.Render(m.search.View()))
	} else {
		fmt.Fprintln(&b, "\n"+statusStyle.Render("j/k move  l/enter open  h/backspace up  r refresh  p preview  / search  q quit"))
	}

	return b.String()
}
