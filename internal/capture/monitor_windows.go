//go:build windows

package capture

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/uakbr/bypass-methods/internal/logging"
)

// ListMonitors enumerates attached outputs via DXGI. The index of each entry
// is the adapter's output index, so it matches what the duplication backend
// passes to EnumOutputs.
func ListMonitors() ([]MonitorInfo, error) {
	device, ctx, err := newD3D11Device()
	if err != nil {
		return nil, err
	}
	defer comRelease(ctx)
	defer comRelease(device)

	dxgiDevice, err := comQuery(device, &iidIDXGIDevice)
	if err != nil {
		return nil, fmt.Errorf("QueryInterface IDXGIDevice: %w", err)
	}
	defer comRelease(dxgiDevice)

	var adapter uintptr
	if _, err := comCall(dxgiDevice, dxgiDeviceGetAdapter,
		uintptr(unsafe.Pointer(&adapter))); err != nil {
		return nil, fmt.Errorf("IDXGIDevice::GetAdapter: %w", err)
	}
	defer comRelease(adapter)

	var monitors []MonitorInfo
	for i := 0; ; i++ {
		var output uintptr
		if _, err := comCall(adapter, dxgiAdapterEnumOutputs,
			uintptr(i), uintptr(unsafe.Pointer(&output))); err != nil {
			if !isHRESULT(err, dxgiErrNotFound) {
				log.Warn("DXGI EnumOutputs failed", "index", i, logging.KeyError, err)
			}
			break
		}

		var desc dxgiOutputDesc
		_, derr := comCall(output, dxgiOutputGetDesc, uintptr(unsafe.Pointer(&desc)))
		comRelease(output)
		if derr != nil {
			log.Warn("DXGI output GetDesc failed", "index", i, logging.KeyError, derr)
			continue
		}
		if desc.AttachedToDesktop == 0 {
			continue
		}

		c := desc.DesktopCoordinates
		monitors = append(monitors, MonitorInfo{
			Index:     i,
			Name:      syscall.UTF16ToString(desc.DeviceName[:]),
			X:         int(c.Left),
			Y:         int(c.Top),
			Width:     int(c.Right - c.Left),
			Height:    int(c.Bottom - c.Top),
			IsPrimary: c.Left == 0 && c.Top == 0,
		})
	}

	if len(monitors) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}
	return monitors, nil
}
