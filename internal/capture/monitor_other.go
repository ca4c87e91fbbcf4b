//go:build !windows

package capture

// ListMonitors is a stub for non-Windows platforms.
func ListMonitors() ([]MonitorInfo, error) {
	return nil, ErrNotSupported
}
