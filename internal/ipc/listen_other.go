//go:build !windows

package ipc

import (
	"net"
	"os"
	"strings"
)

// Listen serves on a unix socket when not on Windows. Pipe-style names are
// mapped to a socket path so the same configuration works on both sides.
func Listen(pipeName string) (net.Listener, error) {
	path := socketPath(pipeName)
	os.Remove(path)
	return net.Listen("unix", path)
}

// Dial connects to a serving agent's socket.
func Dial(pipeName string) (net.Conn, error) {
	return net.Dial("unix", socketPath(pipeName))
}

func socketPath(pipeName string) string {
	if strings.HasPrefix(pipeName, `\\.\pipe\`) {
		name := strings.TrimPrefix(pipeName, `\\.\pipe\`)
		return "/tmp/" + name + ".sock"
	}
	return pipeName
}
