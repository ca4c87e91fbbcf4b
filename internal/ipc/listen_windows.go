//go:build windows

package ipc

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// pipeSecurityDescriptor restricts the pipe to SYSTEM, Administrators and
// the interactive user.
const pipeSecurityDescriptor = "D:P(A;;GA;;;SY)(A;;GA;;;BA)(A;;GRGW;;;IU)"

// Listen opens the named pipe the agent serves on, e.g.
// `\\.\pipe\capture-agent`.
func Listen(pipeName string) (net.Listener, error) {
	return winio.ListenPipe(pipeName, &winio.PipeConfig{
		SecurityDescriptor: pipeSecurityDescriptor,
		MessageMode:        false,
		InputBufferSize:    65536,
		OutputBufferSize:   65536,
	})
}

// Dial connects to a serving agent's pipe.
func Dial(pipeName string) (net.Conn, error) {
	return winio.DialPipe(pipeName, nil)
}
