// Package screenshot persists captured frames as PNG files. It owns the
// output directory and the file naming scheme; the capture engine knows
// nothing about disks.
package screenshot

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/uakbr/bypass-methods/internal/capture"
	"github.com/uakbr/bypass-methods/internal/logging"
)

var log = logging.L("screenshot")

// Service writes frames to a configured directory.
type Service struct {
	dir      string
	maxWidth int
}

// New creates the service and the output directory if it is absent.
func New(dir string, maxWidth int) (*Service, error) {
	if dir == "" {
		return nil, fmt.Errorf("screenshot directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create screenshot directory %s: %w", dir, err)
	}
	return &Service{dir: dir, maxWidth: maxWidth}, nil
}

// Dir returns the output directory.
func (s *Service) Dir() string { return s.dir }

// Save encodes the frame as PNG under <backendId>_<timestamp>.png and
// returns the absolute path. Frames wider than the configured maximum are
// scaled down before encoding.
func (s *Service) Save(frame *capture.Frame) (string, error) {
	if frame == nil || len(frame.Pix) == 0 {
		return "", fmt.Errorf("empty frame")
	}

	img := frame.ToImage()
	if s.maxWidth > 0 && frame.Width > s.maxWidth {
		img = downscale(img, s.maxWidth)
	}

	name := fileName(frame.Backend, time.Now())
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	log.Info("screenshot written", "path", abs,
		logging.KeyBackend, string(frame.Backend),
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return abs, nil
}

// fileName builds <backendId>_<timestamp>.png with a microsecond timestamp
// so bursts never collide.
func fileName(backend capture.BackendID, at time.Time) string {
	ts := at.Format("20060102_150405.000000")
	ts = strings.ReplaceAll(ts, ".", "")
	return fmt.Sprintf("%s_%s.png", backend, ts)
}

// downscale resizes the image to the given width, preserving aspect ratio.
func downscale(src *image.RGBA, maxWidth int) *image.RGBA {
	b := src.Bounds()
	factor := float64(maxWidth) / float64(b.Dx())
	h := int(float64(b.Dy()) * factor)
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
