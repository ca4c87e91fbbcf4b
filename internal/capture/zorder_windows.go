//go:build windows

package capture

import (
	"time"
	"unsafe"

	"github.com/uakbr/bypass-methods/internal/logging"
)

// zorderBackend momentarily raises the window to the top of the z-order with
// its dialog frame stripped, blits it off the screen, then puts everything
// back. The frame strip forces a WM_NCCALCSIZE pass that makes some capture
// protected renderers repaint through the normal path.
//
// Style, placement and foreground window are all restored unconditionally,
// capture outcome notwithstanding.
type zorderBackend struct{}

func (zorderBackend) ID() BackendID { return BackendZOrder }

func (zorderBackend) Capture(res Resolved) (*Frame, *BackendError) {
	if !res.HasWindow {
		return nil, backendErr(BackendZOrder, KindInit, "requires a window target")
	}
	hwnd := res.Window

	var placement windowPlacement
	placement.Length = uint32(unsafe.Sizeof(placement))
	if ret, _, _ := procGetWindowPlacement.Call(hwnd, uintptr(unsafe.Pointer(&placement))); ret == 0 {
		return nil, backendErr(BackendZOrder, KindInit,
			"GetWindowPlacement failed for window 0x%X", hwnd)
	}

	style, _, _ := procGetWindowLongPtrW.Call(hwnd, gwlStyle)
	if style == 0 {
		return nil, backendErr(BackendZOrder, KindInit,
			"GetWindowLongPtr failed for window 0x%X", hwnd)
	}
	foreground, _, _ := procGetForegroundWindow.Call()

	stripped := style &^ uintptr(wsDlgFrame|wsSysMenu)
	procSetWindowLongPtrW.Call(hwnd, gwlStyle, stripped)
	procSetWindowPos.Call(hwnd, hwndTop, 0, 0, 0, 0,
		swpNoSize|swpNoMove|swpFrameChanged)

	defer func() {
		procSetWindowLongPtrW.Call(hwnd, gwlStyle, style)
		procSetWindowPos.Call(hwnd, hwndTop, 0, 0, 0, 0,
			swpNoSize|swpNoMove|swpFrameChanged|swpNoActivate)
		if ret, _, _ := procSetWindowPlacement.Call(hwnd, uintptr(unsafe.Pointer(&placement))); ret == 0 {
			log.Warn("failed to restore window placement",
				logging.KeyBackend, string(BackendZOrder), "window", hwnd)
		}
		if foreground != 0 && foreground != hwnd {
			procSetForegroundWindow.Call(foreground)
		}
	}()

	// Give the window one repaint after the frame change before reading
	// the screen underneath it.
	time.Sleep(50 * time.Millisecond)

	pix, err := blitScreenRect(res.Bounds)
	if err != nil {
		return nil, backendErr(BackendZOrder, KindInit, "%v", err)
	}
	return &Frame{Pix: pix, Width: res.Bounds.Dx(), Height: res.Bounds.Dy()}, nil
}
