//go:build windows

package capture

import (
	"fmt"
	"image"
	"syscall"
	"unsafe"
)

var (
	user32 = syscall.NewLazyDLL("user32.dll")
	gdi32  = syscall.NewLazyDLL("gdi32.dll")

	procIsWindow                 = user32.NewProc("IsWindow")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetDC                    = user32.NewProc("GetDC")
	procGetWindowDC              = user32.NewProc("GetWindowDC")
	procReleaseDC                = user32.NewProc("ReleaseDC")
	procSetProcessDPIAware       = user32.NewProc("SetProcessDPIAware")
	procPrintWindow              = user32.NewProc("PrintWindow")
	procGetWindowDisplayAffinity = user32.NewProc("GetWindowDisplayAffinity")
	procSetWindowDisplayAffinity = user32.NewProc("SetWindowDisplayAffinity")
	procGetWindowLongPtrW        = user32.NewProc("GetWindowLongPtrW")
	procSetWindowLongPtrW        = user32.NewProc("SetWindowLongPtrW")
	procGetWindowPlacement       = user32.NewProc("GetWindowPlacement")
	procSetWindowPlacement       = user32.NewProc("SetWindowPlacement")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")

	procCreateDCW              = gdi32.NewProc("CreateDCW")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
)

const (
	srcCopy    = 0x00CC0020
	captureBlt = 0x40000000
	biRGB      = 0
	dibColors  = 0

	// PrintWindow flags
	pwRenderFullContent = 2

	// Window display affinity values
	wdaNone               = 0x00000000
	wdaMonitor            = 0x00000001
	wdaExcludeFromCapture = 0x00000011

	// Window style manipulation
	gwlStyle        = ^uintptr(15) // -16 as uintptr
	wsDlgFrame      = 0x00400000
	wsSysMenu       = 0x00080000
	hwndTop         = 0
	swpNoSize       = 0x0001
	swpNoMove       = 0x0002
	swpNoActivate   = 0x0010
	swpFrameChanged = 0x0020
)

func init() {
	if procSetProcessDPIAware.Find() == nil {
		procSetProcessDPIAware.Call()
	}
}

type winRect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

type winPoint struct {
	X int32
	Y int32
}

// windowPlacement matches WINDOWPLACEMENT.
type windowPlacement struct {
	Length         uint32
	Flags          uint32
	ShowCmd        uint32
	MinPosition    winPoint
	MaxPosition    winPoint
	NormalPosition winRect
}

type bitmapInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct {
	BmiHeader bitmapInfoHeader
	BmiColors [1]uint32
}

// displayDeviceName is L"DISPLAY" as a UTF-16 null-terminated string.
var displayDeviceName = syscall.StringToUTF16Ptr("DISPLAY")

func isWindow(hwnd uintptr) bool {
	ret, _, _ := procIsWindow.Call(hwnd)
	return ret != 0
}

func getWindowRect(hwnd uintptr) (image.Rectangle, error) {
	var r winRect
	ret, _, _ := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return image.Rectangle{}, fmt.Errorf("GetWindowRect failed for window 0x%X", hwnd)
	}
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), nil
}

func getWindowDisplayAffinity(hwnd uintptr) (uint32, error) {
	var affinity uint32
	ret, _, _ := procGetWindowDisplayAffinity.Call(hwnd, uintptr(unsafe.Pointer(&affinity)))
	if ret == 0 {
		return 0, fmt.Errorf("GetWindowDisplayAffinity failed for window 0x%X", hwnd)
	}
	return affinity, nil
}

func setWindowDisplayAffinity(hwnd uintptr, affinity uint32) bool {
	ret, _, _ := procSetWindowDisplayAffinity.Call(hwnd, uintptr(affinity))
	return ret != 0
}

// openScreenDC creates a DC for the physical display. CreateDC("DISPLAY")
// works on all desktops where GetDC(0) fails on the secure desktop; fall
// back to GetDC(0) if it is unavailable. The bool reports whether the DC
// was created (DeleteDC) rather than obtained (ReleaseDC).
func openScreenDC() (uintptr, bool, error) {
	hdc, _, _ := procCreateDCW.Call(uintptr(unsafe.Pointer(displayDeviceName)), 0, 0, 0)
	if hdc != 0 {
		return hdc, true, nil
	}
	hdc, _, _ = procGetDC.Call(0)
	if hdc == 0 {
		return 0, false, fmt.Errorf("both CreateDC and GetDC failed")
	}
	return hdc, false, nil
}

func closeScreenDC(hdc uintptr, owned bool) {
	if owned {
		procDeleteDC.Call(hdc)
	} else {
		procReleaseDC.Call(0, hdc)
	}
}

// readDIBits extracts 32-bit top-down BGRA pixels from a bitmap. The bitmap
// must be deselected from its memory DC before the call.
func readDIBits(hdc, hBitmap uintptr, width, height int) ([]byte, error) {
	bi := bitmapInfo{
		BmiHeader: bitmapInfoHeader{
			BiSize:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
			BiWidth:       int32(width),
			BiHeight:      -int32(height), // negative = top-down
			BiPlanes:      1,
			BiBitCount:    32,
			BiCompression: biRGB,
		},
	}
	buf := make([]byte, width*height*4)
	ret, _, _ := procGetDIBits.Call(
		hdc, hBitmap, 0, uintptr(height),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&bi)),
		dibColors,
	)
	if ret == 0 {
		return nil, fmt.Errorf("GetDIBits failed")
	}
	return buf, nil
}

// blitScreenRect BitBlts a virtual-screen rectangle from the display DC into
// a packed RGB buffer. SRCCOPY|CAPTUREBLT first (includes layered windows),
// plain SRCCOPY retry for secure-desktop transitions that reject CAPTUREBLT.
func blitScreenRect(r image.Rectangle) ([]byte, error) {
	width, height := r.Dx(), r.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid blit dimensions %dx%d", width, height)
	}

	screenDC, owned, err := openScreenDC()
	if err != nil {
		return nil, err
	}
	defer closeScreenDC(screenDC, owned)

	memDC, _, _ := procCreateCompatibleDC.Call(screenDC)
	if memDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(memDC)

	hBitmap, _, _ := procCreateCompatibleBitmap.Call(screenDC, uintptr(width), uintptr(height))
	if hBitmap == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap failed")
	}
	defer procDeleteObject.Call(hBitmap)

	oldBitmap, _, _ := procSelectObject.Call(memDC, hBitmap)

	ret, _, _ := procBitBlt.Call(memDC, 0, 0, uintptr(width), uintptr(height),
		screenDC, uintptr(r.Min.X), uintptr(r.Min.Y), srcCopy|captureBlt)
	if ret == 0 {
		ret, _, _ = procBitBlt.Call(memDC, 0, 0, uintptr(width), uintptr(height),
			screenDC, uintptr(r.Min.X), uintptr(r.Min.Y), srcCopy)
		if ret == 0 {
			procSelectObject.Call(memDC, oldBitmap)
			return nil, fmt.Errorf("BitBlt failed")
		}
	}

	// Deselect before GetDIBits: the bitmap must not be selected into a DC.
	procSelectObject.Call(memDC, oldBitmap)

	bgra, err := readDIBits(memDC, hBitmap, width, height)
	if err != nil {
		return nil, err
	}
	return bgraToRGB(bgra, width, height, width*4), nil
}

// blitWindowDC BitBlts directly from the window's own DC into a packed RGB
// buffer. Unlike blitScreenRect this reads the window surface, not the
// composited screen, so it observes whatever the window presents to GDI.
func blitWindowDC(hwnd uintptr, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid window dimensions %dx%d", width, height)
	}

	windowDC, _, _ := procGetWindowDC.Call(hwnd)
	if windowDC == 0 {
		return nil, fmt.Errorf("GetWindowDC failed for window 0x%X", hwnd)
	}
	defer procReleaseDC.Call(hwnd, windowDC)

	memDC, _, _ := procCreateCompatibleDC.Call(windowDC)
	if memDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(memDC)

	hBitmap, _, _ := procCreateCompatibleBitmap.Call(windowDC, uintptr(width), uintptr(height))
	if hBitmap == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap failed")
	}
	defer procDeleteObject.Call(hBitmap)

	oldBitmap, _, _ := procSelectObject.Call(memDC, hBitmap)

	ret, _, _ := procBitBlt.Call(memDC, 0, 0, uintptr(width), uintptr(height),
		windowDC, 0, 0, srcCopy|captureBlt)
	if ret == 0 {
		procSelectObject.Call(memDC, oldBitmap)
		return nil, fmt.Errorf("BitBlt from window DC failed")
	}

	procSelectObject.Call(memDC, oldBitmap)

	bgra, err := readDIBits(memDC, hBitmap, width, height)
	if err != nil {
		return nil, err
	}
	return bgraToRGB(bgra, width, height, width*4), nil
}

// printWindowRGB asks the window to render itself into a memory DC via
// PrintWindow with PW_RENDERFULLCONTENT, which reaches DirectComposition
// content that BitBlt misses.
func printWindowRGB(hwnd uintptr, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid window dimensions %dx%d", width, height)
	}

	windowDC, _, _ := procGetWindowDC.Call(hwnd)
	if windowDC == 0 {
		return nil, fmt.Errorf("GetWindowDC failed for window 0x%X", hwnd)
	}
	defer procReleaseDC.Call(hwnd, windowDC)

	memDC, _, _ := procCreateCompatibleDC.Call(windowDC)
	if memDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(memDC)

	hBitmap, _, _ := procCreateCompatibleBitmap.Call(windowDC, uintptr(width), uintptr(height))
	if hBitmap == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap failed")
	}
	defer procDeleteObject.Call(hBitmap)

	oldBitmap, _, _ := procSelectObject.Call(memDC, hBitmap)

	ret, _, _ := procPrintWindow.Call(hwnd, memDC, pwRenderFullContent)
	if ret == 0 {
		procSelectObject.Call(memDC, oldBitmap)
		return nil, fmt.Errorf("PrintWindow failed")
	}

	procSelectObject.Call(memDC, oldBitmap)

	bgra, err := readDIBits(memDC, hBitmap, width, height)
	if err != nil {
		return nil, err
	}
	return bgraToRGB(bgra, width, height, width*4), nil
}
