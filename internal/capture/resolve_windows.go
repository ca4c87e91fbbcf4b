//go:build windows

package capture

import (
	"fmt"
	"image"
)

// windowsResolver turns window handles and monitor indexes into concrete
// geometry. Monitors are re-enumerated on every call so hotplug and mode
// changes between requests are picked up.
type windowsResolver struct{}

func (windowsResolver) Resolve(t Target) (Resolved, error) {
	monitors, err := ListMonitors()
	if err != nil {
		return Resolved{}, err
	}

	res := Resolved{Window: t.Window, HasWindow: t.Window != 0}

	if res.HasWindow {
		if !isWindow(t.Window) {
			return Resolved{}, fmt.Errorf("0x%X is not a window handle", t.Window)
		}
		rect, err := getWindowRect(t.Window)
		if err != nil {
			return Resolved{}, err
		}
		if rect.Dx() <= 0 || rect.Dy() <= 0 {
			return Resolved{}, fmt.Errorf("window 0x%X has empty rectangle %v", t.Window, rect)
		}
		res.WindowRect = rect
		res.Monitor = owningMonitor(rect, monitors)
	} else {
		found := false
		for _, m := range monitors {
			if m.Index == t.Monitor {
				res.Monitor = m
				found = true
				break
			}
		}
		if !found {
			return Resolved{}, fmt.Errorf("monitor index %d out of range (%d attached)", t.Monitor, len(monitors))
		}
	}

	bounds, err := resolveBounds(res.WindowRect, res.HasWindow, res.Monitor, t.Crop)
	if err != nil {
		return Resolved{}, err
	}
	res.Bounds = bounds
	return res, nil
}

// owningMonitor picks the output containing the window's center point,
// falling back to the primary, then the first, output. A window straddling
// two outputs is captured on the side holding most of it.
func owningMonitor(rect image.Rectangle, monitors []MonitorInfo) MonitorInfo {
	center := rect.Min.Add(rect.Max).Div(2)
	for _, m := range monitors {
		if center.In(m.Bounds()) {
			return m
		}
	}
	for _, m := range monitors {
		if m.IsPrimary {
			return m
		}
	}
	return monitors[0]
}
