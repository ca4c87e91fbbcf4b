//go:build !windows

package winquery

import "errors"

// ErrNotSupported is returned on platforms without a window manager API.
var ErrNotSupported = errors.New("window enumeration is only supported on windows")

// List is a stub for non-Windows platforms.
func List() ([]Window, error) {
	return nil, ErrNotSupported
}

// FindWindow is a stub for non-Windows platforms.
func FindWindow(string, bool) (uintptr, error) {
	return 0, ErrNotSupported
}
