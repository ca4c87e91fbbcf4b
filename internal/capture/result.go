package capture

import (
	"fmt"
	"image"
	"strings"
	"time"
)

// BackendID identifies one capture strategy in the fallback chain.
type BackendID string

const (
	// BackendComposition is WinRT Windows.Graphics.Capture bound to one window.
	BackendComposition BackendID = "composition"
	// BackendDuplication is DXGI desktop duplication of one output.
	BackendDuplication BackendID = "duplication"
	// BackendAffinity temporarily clears the window's display affinity, then BitBlts.
	BackendAffinity BackendID = "affinity"
	// BackendPrintWindow asks the window to render into a provided DC.
	BackendPrintWindow BackendID = "printwindow"
	// BackendGDI BitBlts the window's screen rectangle from the display DC.
	BackendGDI BackendID = "gdi"
	// BackendZOrder briefly reshuffles window style/position before a BitBlt.
	BackendZOrder BackendID = "zorder"
	// BackendScreen BitBlts the full resolved output rectangle.
	BackendScreen BackendID = "screen"
)

// AllBackends lists every backend ID in default priority order.
var AllBackends = []BackendID{
	BackendComposition, BackendDuplication, BackendAffinity,
	BackendPrintWindow, BackendGDI, BackendZOrder, BackendScreen,
}

// ParseBackendID validates a configured backend name.
func ParseBackendID(s string) (BackendID, error) {
	id := BackendID(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllBackends {
		if id == known {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown backend %q", s)
}

// FailureKind classifies a backend failure for the orchestrator.
type FailureKind int

const (
	// KindInit means the backend could not set up its resources for this call.
	KindInit FailureKind = iota
	// KindTimeout means no frame arrived within the configured bound; retry next call.
	KindTimeout
	// KindDeviceLost means the driver invalidated the session; it is recreated lazily.
	KindDeviceLost
	// KindUnsupported means the backend can never work in this process.
	KindUnsupported
	// KindValidation means a frame was produced but judged invalid.
	KindValidation
)

func (k FailureKind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindTimeout:
		return "timeout"
	case KindDeviceLost:
		return "device-lost"
	case KindUnsupported:
		return "unsupported"
	case KindValidation:
		return "validation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// BackendError is the tagged failure value returned by every backend call.
// No backend panics or raw errors cross the orchestrator boundary.
type BackendError struct {
	Backend BackendID
	Kind    FailureKind
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backendErr(id BackendID, kind FailureKind, format string, args ...any) *BackendError {
	return &BackendError{Backend: id, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Attempt records one failed backend invocation for the exhaustion report.
type Attempt struct {
	Backend BackendID
	Reason  string
}

// ExhaustedError is returned when every backend in the chain failed. It is
// the only capture error surfaced to transport collaborators.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "capture failed: no backend available"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s (%s)", a.Backend, a.Reason)
	}
	return "capture failed, attempted: " + strings.Join(parts, ", ")
}

// Frame is one captured image: packed RGB, 3 bytes per pixel, no row padding.
// The buffer is owned by the caller and never aliases session state.
type Frame struct {
	Pix     []byte
	Width   int
	Height  int
	Backend BackendID
	Elapsed time.Duration
}

// ToImage copies the frame into an *image.RGBA for encoding.
func (f *Frame) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i := 0; i < f.Width*f.Height; i++ {
		img.Pix[i*4+0] = f.Pix[i*3+0]
		img.Pix[i*4+1] = f.Pix[i*3+1]
		img.Pix[i*4+2] = f.Pix[i*3+2]
		img.Pix[i*4+3] = 0xFF
	}
	return img
}
