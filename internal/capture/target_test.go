package capture

import (
	"image"
	"testing"
)

func TestResolveBounds_WindowOverhangClamps(t *testing.T) {
	// Window extends 50px past the right edge of a 1920-wide output.
	mon := MonitorInfo{Width: 1920, Height: 1080}
	rect := image.Rect(1570, 100, 1970, 400)

	bounds, err := resolveBounds(rect, true, mon, nil)
	if err != nil {
		t.Fatalf("resolveBounds failed: %v", err)
	}
	if bounds.Max.X != 1920 {
		t.Fatalf("right edge not clamped: %v", bounds)
	}
	if got, want := bounds.Dx(), 1920-1570; got != want {
		t.Fatalf("clamped width %d, want %d", got, want)
	}
	if bounds.Dy() != 300 {
		t.Fatalf("height changed by horizontal clamp: %v", bounds)
	}
}

func TestResolveBounds_FullyOffscreenFails(t *testing.T) {
	mon := MonitorInfo{Width: 1920, Height: 1080}
	rect := image.Rect(2000, 100, 2400, 400)

	if _, err := resolveBounds(rect, true, mon, nil); err == nil {
		t.Fatal("window entirely outside the output must fail resolution, not crash")
	}
}

func TestResolveBounds_MonitorTargetIsFullOutput(t *testing.T) {
	mon := MonitorInfo{X: 1920, Width: 2560, Height: 1440}
	bounds, err := resolveBounds(image.Rectangle{}, false, mon, nil)
	if err != nil {
		t.Fatalf("resolveBounds failed: %v", err)
	}
	if bounds != image.Rect(1920, 0, 1920+2560, 1440) {
		t.Fatalf("unexpected bounds %v", bounds)
	}
}

func TestResolveBounds_CropNarrowsWindow(t *testing.T) {
	mon := MonitorInfo{Width: 1920, Height: 1080}
	rect := image.Rect(100, 100, 500, 400)
	crop := image.Rect(150, 150, 300, 250)

	bounds, err := resolveBounds(rect, true, mon, &crop)
	if err != nil {
		t.Fatalf("resolveBounds failed: %v", err)
	}
	if bounds != crop {
		t.Fatalf("crop not applied: %v", bounds)
	}
}

func TestResolveBounds_CropOutsideWindowFails(t *testing.T) {
	mon := MonitorInfo{Width: 1920, Height: 1080}
	rect := image.Rect(100, 100, 500, 400)
	crop := image.Rect(600, 600, 700, 700)

	if _, err := resolveBounds(rect, true, mon, &crop); err == nil {
		t.Fatal("disjoint crop must fail resolution")
	}
}

func TestMonitorBounds(t *testing.T) {
	m := MonitorInfo{X: -1920, Y: 0, Width: 1920, Height: 1080}
	if m.Bounds() != image.Rect(-1920, 0, 0, 1080) {
		t.Fatalf("unexpected bounds %v", m.Bounds())
	}
}
