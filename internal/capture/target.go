package capture

import (
	"fmt"
	"image"
)

// Target describes what to capture. Immutable per request.
// Window 0 means "no window": the monitor with the given index is captured.
type Target struct {
	Window  uintptr
	Monitor int
	Crop    *image.Rectangle
}

// MonitorInfo describes one attached display output.
type MonitorInfo struct {
	Index     int
	Name      string
	X         int
	Y         int
	Width     int
	Height    int
	IsPrimary bool
}

// Bounds returns the output rectangle in virtual-screen coordinates.
func (m MonitorInfo) Bounds() image.Rectangle {
	return image.Rect(m.X, m.Y, m.X+m.Width, m.Y+m.Height)
}

// Resolved is the concrete geometry computed from a Target: the window
// rectangle (when a window is targeted), the owning output, and the final
// crop rectangle in virtual-screen coordinates.
type Resolved struct {
	Window     uintptr
	HasWindow  bool
	WindowRect image.Rectangle
	Monitor    MonitorInfo
	// Bounds is the region a backend must deliver: the clamped window
	// rectangle for window targets, the full output otherwise, further
	// narrowed by the request's crop rectangle.
	Bounds image.Rectangle
}

// Resolver maps a Target to concrete geometry. No side effects.
type Resolver interface {
	Resolve(t Target) (Resolved, error)
}

// clampToFrame clamps r to the containing frame. A rectangle that clamps to
// zero area is a resolution failure, not a crash.
func clampToFrame(r, frame image.Rectangle) (image.Rectangle, error) {
	clamped := r.Intersect(frame)
	if clamped.Empty() {
		return image.Rectangle{}, fmt.Errorf("rectangle %v clamps to zero area within %v", r, frame)
	}
	return clamped, nil
}

// resolveBounds computes Resolved.Bounds from the window/monitor geometry
// and an optional crop rectangle. Shared by all platform resolvers.
func resolveBounds(windowRect image.Rectangle, hasWindow bool, monitor MonitorInfo, crop *image.Rectangle) (image.Rectangle, error) {
	frame := monitor.Bounds()

	bounds := frame
	if hasWindow {
		var err error
		bounds, err = clampToFrame(windowRect, frame)
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("window rectangle: %w", err)
		}
	}

	if crop != nil {
		var err error
		bounds, err = clampToFrame(*crop, bounds)
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("crop rectangle: %w", err)
		}
	}

	return bounds, nil
}
