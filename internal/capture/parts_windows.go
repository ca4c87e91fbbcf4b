//go:build windows

package capture

// newPlatformParts assembles the Windows resolver, the full backend set and
// the probed capability table. Session-based backends initialize lazily on
// first use, so construction never touches the GPU.
func newPlatformParts(opts Options) (Resolver, map[BackendID]Backend, *Capabilities, error) {
	backends := map[BackendID]Backend{
		BackendComposition: newCompositionBackend(opts.CompositionTimeout),
		BackendDuplication: newDuplicationBackend(opts.AcquireTimeout),
		BackendAffinity:    affinityBackend{},
		BackendPrintWindow: printWindowBackend{},
		BackendGDI:         gdiBackend{},
		BackendZOrder:      zorderBackend{},
		BackendScreen:      screenBackend{},
	}
	return windowsResolver{}, backends, probeCapabilities(), nil
}
