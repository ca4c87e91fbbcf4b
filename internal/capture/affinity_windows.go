//go:build windows

package capture

import "github.com/uakbr/bypass-methods/internal/logging"

// affinityBackend clears the window's display affinity for the duration of
// one blit, then restores it. SetWindowDisplayAffinity succeeds only for
// windows owned by the calling process, so against foreign windows this
// fails fast and the chain moves on.
//
// The restore runs unconditionally: whatever happens after the flag is
// cleared, the window never stays observable longer than one capture.
type affinityBackend struct{}

func (affinityBackend) ID() BackendID { return BackendAffinity }

func (affinityBackend) Capture(res Resolved) (*Frame, *BackendError) {
	if !res.HasWindow {
		return nil, backendErr(BackendAffinity, KindInit, "requires a window target")
	}
	hwnd := res.Window

	original, err := getWindowDisplayAffinity(hwnd)
	if err != nil {
		return nil, backendErr(BackendAffinity, KindInit, "%v", err)
	}

	if original != wdaNone {
		if !setWindowDisplayAffinity(hwnd, wdaNone) {
			return nil, backendErr(BackendAffinity, KindInit,
				"cannot clear display affinity, window 0x%X is not owned by this process", hwnd)
		}
		defer func() {
			if !setWindowDisplayAffinity(hwnd, original) {
				log.Warn("failed to restore display affinity",
					logging.KeyBackend, string(BackendAffinity), "window", hwnd)
			}
		}()
	}

	w, h := res.WindowRect.Dx(), res.WindowRect.Dy()
	pix, berr := blitWindowDC(hwnd, w, h)
	if berr != nil {
		return nil, backendErr(BackendAffinity, KindInit, "%v", berr)
	}

	local := res.Bounds.Sub(res.WindowRect.Min)
	bw, bh := local.Dx(), local.Dy()
	return &Frame{
		Pix:    cropRGB(pix, w, local.Min.X, local.Min.Y, bw, bh),
		Width:  bw,
		Height: bh,
	}, nil
}
