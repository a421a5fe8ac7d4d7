package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nexusfs/engine/fsmodel"
	"github.com/nexusfs/engine/platform"
	"github.com/nexusfs/engine/platform/ipc"
)

var serveSocketPath string

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine as a background process reachable over a local control socket",
	Run: func(cmd *cobra.Command, args []string) {
		if serveSocketPath == "" {
			serveSocketPath = filepath.Join(os.TempDir(), "nexusfs.sock")
		}

		listener, err := ipc.NewListener(serveSocketPath)
		if err != nil {
			fatal(fmt.Errorf("listen on %s: %w", serveSocketPath, err))
		}
		defer listener.Close()

		watcher, err := platform.NewDefault()
		if err != nil {
			fmt.Fprintf(os.Stderr, "nexusfs: live updates disabled: %v\n", err)
		} else {
			defer watcher.Close()
		}

		m := fsmodel.New(fsmodel.Config{DirectoriesFirst: true, Watcher: watcher})
		defer m.Close()

		fmt.Fprintf(os.Stderr, "nexusfs: listening on %s\n", serveSocketPath)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sig
			listener.Close()
		}()

		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go handleConn(conn, m)
		}
	},
}

func init() {
	serveCommand.Flags().StringVar(&serveSocketPath, "socket", "", "control socket path (default: $TMPDIR/nexusfs.sock)")
}

// handleConn implements a minimal line protocol: "load <path>" triggers a
// navigation and replies with the resulting state once it settles; any other
// line gets a fixed error reply naming the expected form. It exists to keep platform/ipc's listener
// demonstrably exercised by a real client/server round trip, not to be a
// serious control protocol.
func handleConn(conn net.Conn, m *fsmodel.Model) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 || fields[0] != "load" {
			fmt.Fprintf(conn, "error: expected \"load <path>\"\n")
			continue
		}

		m.LoadPath(fields[1])
		state := awaitTerminal(m)
		fmt.Fprintf(conn, "state=%d message=%q\n", state.Kind, state.Message)
	}
}
