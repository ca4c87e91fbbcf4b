package screenshot

import (
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/uakbr/bypass-methods/internal/capture"
)

func testFrame(w, h int, value byte) *capture.Frame {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = value
	}
	return &capture.Frame{Pix: pix, Width: w, Height: h, Backend: capture.BackendGDI}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "shots")
	if _, err := New(dir, 0); err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestSave_WritesDecodablePNG(t *testing.T) {
	svc, err := New(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	path, err := svc.Save(testFrame(64, 48, 128))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Fatalf("expected absolute path, got %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open written file: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("written file is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Fatalf("decoded %v, want 64x48", img.Bounds())
	}
}

func TestSave_DownscalesWideFrames(t *testing.T) {
	svc, err := New(t.TempDir(), 100)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	path, err := svc.Save(testFrame(200, 100, 90))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open written file: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Fatalf("decoded %v, want 100x50", img.Bounds())
	}
}

func TestSave_RejectsEmptyFrame(t *testing.T) {
	svc, err := New(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := svc.Save(&capture.Frame{}); err == nil {
		t.Fatal("expected error for empty frame")
	}
}

func TestFileName_Format(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)
	got := fileName(capture.BackendDuplication, at)
	want := "duplication_20250314_092653589793.png"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	if !regexp.MustCompile(`^[a-z]+_\d{8}_\d{12}\.png$`).MatchString(got) {
		t.Fatalf("name %s does not match <backendId>_<timestamp>.png", got)
	}
	if strings.ContainsAny(got, `/\:`) {
		t.Fatalf("name %s contains path separators", got)
	}
}
