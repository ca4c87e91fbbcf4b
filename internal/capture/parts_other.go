//go:build !windows

package capture

import "errors"

// ErrNotSupported is returned when the engine is constructed on a platform
// without any capture backends.
var ErrNotSupported = errors.New("screen capture is only supported on windows")

func newPlatformParts(Options) (Resolver, map[BackendID]Backend, *Capabilities, error) {
	return nil, nil, nil, ErrNotSupported
}
