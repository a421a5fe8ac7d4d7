// Package ipc provides the engine's local control socket: a small
// request/response channel a host application (or the demo CLI's serve
// subcommand) can use to talk to a running engine instance out-of-process.
//
// The split between a POSIX (net.Listen("unix", ...)) implementation and a
// Windows (github.com/Microsoft/go-winio named pipe) implementation mirrors
// mutagen's pkg/ipc, including its approach of recording the live endpoint
// name in a small file at path so a second process can find it.
package ipc

import (
	"context"
	"net"
)

// DialContext connects to the listener previously created with
// NewListener(path).
func DialContext(ctx context.Context, path string) (net.Conn, error) {
	return dialContext(ctx, path)
}

// NewListener creates the platform-appropriate IPC listener, recording
// whatever the native endpoint needs (a socket file's permissions on
// POSIX, a named pipe's name on Windows) at path.
func NewListener(path string) (net.Listener, error) {
	return newListener(path)
}
