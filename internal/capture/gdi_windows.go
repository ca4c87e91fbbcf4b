//go:build windows

package capture

// gdiBackend BitBlts the target rectangle straight off the display DC. It is
// the cheapest strategy and the one an exclusion flag defeats most easily;
// the validator downstream turns the resulting black frame into a soft fail.
type gdiBackend struct{}

func (gdiBackend) ID() BackendID { return BackendGDI }

func (gdiBackend) Capture(res Resolved) (*Frame, *BackendError) {
	pix, err := blitScreenRect(res.Bounds)
	if err != nil {
		return nil, backendErr(BackendGDI, KindInit, "%v", err)
	}
	return &Frame{Pix: pix, Width: res.Bounds.Dx(), Height: res.Bounds.Dy()}, nil
}

// screenBackend duplicates the whole output via GDI and crops afterwards.
// It ignores the window entirely, so it works for monitor-only targets and
// serves as the terminal strategy in the chain.
type screenBackend struct{}

func (screenBackend) ID() BackendID { return BackendScreen }

func (screenBackend) Capture(res Resolved) (*Frame, *BackendError) {
	full := res.Monitor.Bounds()
	pix, err := blitScreenRect(full)
	if err != nil {
		return nil, backendErr(BackendScreen, KindInit, "%v", err)
	}
	local := res.Bounds.Sub(full.Min)
	w, h := local.Dx(), local.Dy()
	return &Frame{
		Pix:    cropRGB(pix, full.Dx(), local.Min.X, local.Min.Y, w, h),
		Width:  w,
		Height: h,
	}, nil
}
