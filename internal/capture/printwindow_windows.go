//go:build windows

package capture

// printWindowBackend asks the window to render itself. Because the window
// draws into our DC instead of us reading the screen, it survives occlusion
// and, with PW_RENDERFULLCONTENT, reaches composed (DWM) content.
type printWindowBackend struct{}

func (printWindowBackend) ID() BackendID { return BackendPrintWindow }

func (printWindowBackend) Capture(res Resolved) (*Frame, *BackendError) {
	if !res.HasWindow {
		return nil, backendErr(BackendPrintWindow, KindInit, "requires a window target")
	}

	w, h := res.WindowRect.Dx(), res.WindowRect.Dy()
	pix, err := printWindowRGB(res.Window, w, h)
	if err != nil {
		return nil, backendErr(BackendPrintWindow, KindInit, "%v", err)
	}

	// PrintWindow renders the whole window; narrow to the clamped bounds.
	local := res.Bounds.Sub(res.WindowRect.Min)
	bw, bh := local.Dx(), local.Dy()
	return &Frame{
		Pix:    cropRGB(pix, w, local.Min.X, local.Min.Y, bw, bh),
		Width:  bw,
		Height: bh,
	}, nil
}
