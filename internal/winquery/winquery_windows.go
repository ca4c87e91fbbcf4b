//go:build windows

package winquery

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"
)

var (
	user32 = syscall.NewLazyDLL("user32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetWindowDisplayAffinity = user32.NewProc("GetWindowDisplayAffinity")
)

// List enumerates visible top-level windows that have a title, with each
// window's current display affinity.
func List() ([]Window, error) {
	var windows []Window

	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
			return 1 // continue
		}
		title := windowTitle(hwnd)
		if title == "" {
			return 1
		}
		var affinity uint32
		procGetWindowDisplayAffinity.Call(hwnd, uintptr(unsafe.Pointer(&affinity)))
		windows = append(windows, Window{Handle: hwnd, Title: title, Affinity: affinity})
		return 1
	})

	if ret, _, _ := procEnumWindows.Call(cb, 0); ret == 0 {
		return nil, fmt.Errorf("EnumWindows failed")
	}
	return windows, nil
}

// FindWindow returns the first visible window whose title matches. With
// partial true the match is a case-insensitive substring, otherwise an
// exact, case-sensitive comparison.
func FindWindow(title string, partial bool) (uintptr, error) {
	windows, err := List()
	if err != nil {
		return 0, err
	}
	lower := strings.ToLower(title)
	for _, w := range windows {
		if partial {
			if strings.Contains(strings.ToLower(w.Title), lower) {
				return w.Handle, nil
			}
		} else if w.Title == title {
			return w.Handle, nil
		}
	}
	return 0, fmt.Errorf("no window matching %q", title)
}

func windowTitle(hwnd uintptr) string {
	length, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if length == 0 {
		return ""
	}
	buf := make([]uint16, length+1)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), length+1)
	if n == 0 {
		return ""
	}
	return syscall.UTF16ToString(buf[:n])
}
