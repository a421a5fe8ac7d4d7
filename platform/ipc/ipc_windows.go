//go:build windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/user"

	"github.com/Microsoft/go-winio"
	"github.com/google/uuid"
)

func dialContext(ctx context.Context, path string) (net.Conn, error) {
	pipeNameBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipe name: %w", err)
	}
	return winio.DialPipeContext(ctx, string(pipeNameBytes))
}

// listener removes the pipe-name record file alongside closing the pipe.
type listener struct {
	net.Listener
	path string
}

func (l *listener) Close() error {
	os.Remove(l.path)
	return l.Listener.Close()
}

func newListener(path string) (net.Listener, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate pipe name: %w", err)
	}
	pipeName := fmt.Sprintf(`\\.\pipe\nexusfs-%s`, id.String())

	u, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("look up current user: %w", err)
	}
	securityDescriptor := fmt.Sprintf("D:P(A;;GA;;;%s)", u.Uid)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("create endpoint record: %w", err)
	}

	var ok bool
	defer func() {
		file.Close()
		if !ok {
			os.Remove(path)
		}
	}()

	raw, err := winio.ListenPipe(pipeName, &winio.PipeConfig{SecurityDescriptor: securityDescriptor})
	if err != nil {
		return nil, err
	}
	if _, err := file.Write([]byte(pipeName)); err != nil {
		return nil, fmt.Errorf("write pipe name: %w", err)
	}

	ok = true
	return &listener{Listener: raw, path: path}, nil
}
