//go:build windows

package main

import (
	"fmt"

	"golang.org/x/sys/windows/svc"

	"github.com/uakbr/bypass-methods/internal/logging"
)

var svclog = logging.L("service")

// isWindowsService reports whether the process was started by the Windows
// Service Control Manager. Must be called early, before any console I/O.
func isWindowsService() bool {
	ok, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return ok
}

// captureService implements svc.Handler for the Windows SCM.
type captureService struct {
	startFn func() (*serverParts, error)
}

// runAsService runs serve mode under the Windows Service Control Manager.
// startFn is called once the SCM has accepted the start; the returned parts
// are shut down when the SCM sends Stop or Shutdown.
func runAsService(startFn func() (*serverParts, error)) error {
	return svc.Run(windowsServiceName, &captureService{startFn: startFn})
}

// Execute is the SCM callback. It signals SERVICE_RUNNING after startFn
// succeeds, then blocks until the SCM requests a stop.
func (s *captureService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown

	changes <- svc.Status{State: svc.StartPending}

	parts, err := s.startFn()
	if err != nil {
		svclog.Error("serve start failed", logging.KeyError, err)
		changes <- svc.Status{State: svc.StopPending}
		return true, 1
	}

	changes <- svc.Status{State: svc.Running, Accepts: accepted}
	svclog.Info("serving as Windows service")

	for {
		select {
		case cr := <-r:
			switch cr.Cmd {
			case svc.Interrogate:
				changes <- cr.CurrentStatus
			case svc.Stop, svc.Shutdown:
				svclog.Info("SCM requested stop")
				changes <- svc.Status{State: svc.StopPending}
				stopServer(parts)
				return false, 0
			default:
				svclog.Warn(fmt.Sprintf("unexpected SCM control request #%d", cr.Cmd))
			}
		case err := <-parts.errCh:
			if err != nil {
				svclog.Error("server stopped", logging.KeyError, err)
				changes <- svc.Status{State: svc.StopPending}
				stopServer(parts)
				return true, 1
			}
		}
	}
}
