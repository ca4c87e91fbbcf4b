//go:build windows

package capture

import (
	"github.com/shirou/gopsutil/v3/host"

	"github.com/uakbr/bypass-methods/internal/logging"
)

// probeCapabilities determines which backends can possibly work in this
// process. The checks are cheap: DLL export presence, OS build, and the
// projection's own IsSupported. Runtime failures (device lost, access
// denied) are handled per-call, not here.
func probeCapabilities() *Capabilities {
	available := map[BackendID]bool{
		// GDI is the floor: if user32/gdi32 are missing nothing here runs.
		BackendGDI:    true,
		BackendScreen: true,
		BackendZOrder: true,
	}

	available[BackendPrintWindow] = procPrintWindow.Find() == nil
	available[BackendAffinity] = procSetWindowDisplayAffinity.Find() == nil
	available[BackendDuplication] = procD3D11CreateDevice.Find() == nil

	build := windowsBuild()
	if build > 0 && build < wgcMinBuild {
		available[BackendComposition] = false
	} else {
		available[BackendComposition] = compositionCaptureSupported()
	}

	log.Info("backend capabilities probed",
		"build", build,
		"composition", available[BackendComposition],
		"duplication", available[BackendDuplication],
		"affinity", available[BackendAffinity],
		"printwindow", available[BackendPrintWindow])
	return NewCapabilities(available)
}

func windowsBuild() int {
	info, err := host.Info()
	if err != nil {
		log.Warn("host info unavailable", logging.KeyError, err)
		return 0
	}
	if b := parseWindowsBuild(info.KernelVersion); b > 0 {
		return b
	}
	return parseWindowsBuild(info.PlatformVersion)
}
