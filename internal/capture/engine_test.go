package capture

import (
	"errors"
	"image"
	"strings"
	"testing"
)

// stubResolver returns fixed geometry without touching the OS.
type stubResolver struct {
	res Resolved
	err error
}

func (s stubResolver) Resolve(Target) (Resolved, error) { return s.res, s.err }

// stubBackend scripts a sequence of results, one per Capture call.
type stubBackend struct {
	id    BackendID
	calls int
	fn    func(call int, res Resolved) (*Frame, *BackendError)
}

func (s *stubBackend) ID() BackendID { return s.id }

func (s *stubBackend) Capture(res Resolved) (*Frame, *BackendError) {
	s.calls++
	return s.fn(s.calls, res)
}

func grayFrame(w, h int, value byte) *Frame {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = value
	}
	return &Frame{Pix: pix, Width: w, Height: h}
}

func testResolved() Resolved {
	mon := MonitorInfo{Index: 0, Width: 1920, Height: 1080, IsPrimary: true}
	return Resolved{
		Window:     0x1234,
		HasWindow:  true,
		WindowRect: image.Rect(100, 100, 500, 400),
		Monitor:    mon,
		Bounds:     image.Rect(100, 100, 500, 400),
	}
}

func failing(id BackendID, kind FailureKind) *stubBackend {
	return &stubBackend{id: id, fn: func(int, Resolved) (*Frame, *BackendError) {
		return nil, backendErr(id, kind, "scripted failure")
	}}
}

func succeeding(id BackendID, value byte) *stubBackend {
	return &stubBackend{id: id, fn: func(_ int, res Resolved) (*Frame, *BackendError) {
		return grayFrame(res.Bounds.Dx(), res.Bounds.Dy(), value), nil
	}}
}

func testEngine(chain []BackendID, backends map[BackendID]Backend, caps *Capabilities) *Engine {
	if caps == nil {
		m := make(map[BackendID]bool, len(backends))
		for id := range backends {
			m[id] = true
		}
		caps = NewCapabilities(m)
	}
	return newEngine(stubResolver{res: testResolved()}, backends, caps, Validator{Threshold: 5.0}, chain)
}

func TestCapture_FirstBackendWins(t *testing.T) {
	second := succeeding(BackendDuplication, 200)
	e := testEngine(
		[]BackendID{BackendComposition, BackendDuplication},
		map[BackendID]Backend{
			BackendComposition: succeeding(BackendComposition, 128),
			BackendDuplication: second,
		}, nil)

	frame, err := e.Capture(Target{Window: 0x1234})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if frame.Backend != BackendComposition {
		t.Fatalf("expected composition frame, got %s", frame.Backend)
	}
	if second.calls != 0 {
		t.Fatalf("second backend should not run after first succeeds, ran %d times", second.calls)
	}
}

func TestCapture_FallsThroughFailures(t *testing.T) {
	e := testEngine(
		[]BackendID{BackendComposition, BackendDuplication, BackendGDI},
		map[BackendID]Backend{
			BackendComposition: failing(BackendComposition, KindTimeout),
			BackendDuplication: failing(BackendDuplication, KindDeviceLost),
			BackendGDI:         succeeding(BackendGDI, 90),
		}, nil)

	frame, err := e.Capture(Target{Window: 0x1234})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if frame.Backend != BackendGDI {
		t.Fatalf("expected gdi frame, got %s", frame.Backend)
	}
}

func TestCapture_ExhaustionListsEveryAttempt(t *testing.T) {
	e := testEngine(
		[]BackendID{BackendComposition, BackendGDI},
		map[BackendID]Backend{
			BackendComposition: failing(BackendComposition, KindInit),
			BackendGDI:         failing(BackendGDI, KindTimeout),
		}, nil)

	_, err := e.Capture(Target{Window: 0x1234})
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if len(ex.Attempts) != 2 {
		t.Fatalf("expected 2 attempts in report, got %d", len(ex.Attempts))
	}
	if ex.Attempts[0].Backend != BackendComposition || ex.Attempts[1].Backend != BackendGDI {
		t.Fatalf("attempt order wrong: %+v", ex.Attempts)
	}
}

func TestCapture_SkippedBackendsAreNotAttempts(t *testing.T) {
	caps := NewCapabilities(map[BackendID]bool{
		BackendComposition: false,
		BackendGDI:         false,
	})
	e := testEngine(
		[]BackendID{BackendComposition, BackendGDI},
		map[BackendID]Backend{
			BackendComposition: succeeding(BackendComposition, 128),
			BackendGDI:         succeeding(BackendGDI, 128),
		}, caps)

	_, err := e.Capture(Target{Window: 0x1234})
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if len(ex.Attempts) != 0 {
		t.Fatalf("capability-skipped backends must not appear as attempts, got %+v", ex.Attempts)
	}
}

func TestCapture_UnsupportedDisablesPermanently(t *testing.T) {
	unsupported := failing(BackendComposition, KindUnsupported)
	e := testEngine(
		[]BackendID{BackendComposition, BackendGDI},
		map[BackendID]Backend{
			BackendComposition: unsupported,
			BackendGDI:         succeeding(BackendGDI, 128),
		}, nil)

	for i := 0; i < 3; i++ {
		if _, err := e.Capture(Target{Window: 0x1234}); err != nil {
			t.Fatalf("Capture %d failed: %v", i, err)
		}
	}
	if unsupported.calls != 1 {
		t.Fatalf("unsupported backend should run exactly once, ran %d times", unsupported.calls)
	}
	if e.Capabilities()[BackendComposition] {
		t.Fatal("unsupported backend still marked available")
	}
}

func TestCapture_TimeoutIsRetriedNextCall(t *testing.T) {
	flaky := &stubBackend{id: BackendDuplication, fn: func(call int, res Resolved) (*Frame, *BackendError) {
		if call == 1 {
			return nil, backendErr(BackendDuplication, KindTimeout, "no frame")
		}
		return grayFrame(res.Bounds.Dx(), res.Bounds.Dy(), 128), nil
	}}
	e := testEngine(
		[]BackendID{BackendDuplication, BackendGDI},
		map[BackendID]Backend{
			BackendDuplication: flaky,
			BackendGDI:         succeeding(BackendGDI, 128),
		}, nil)

	frame, err := e.Capture(Target{Window: 0x1234})
	if err != nil {
		t.Fatalf("first Capture failed: %v", err)
	}
	if frame.Backend != BackendGDI {
		t.Fatalf("expected gdi fallback on timeout, got %s", frame.Backend)
	}

	frame, err = e.Capture(Target{Window: 0x1234})
	if err != nil {
		t.Fatalf("second Capture failed: %v", err)
	}
	if frame.Backend != BackendDuplication {
		t.Fatalf("timed-out backend must be retried next call, got %s", frame.Backend)
	}
}

func TestCapture_BlackFrameFallsThrough(t *testing.T) {
	e := testEngine(
		[]BackendID{BackendGDI, BackendZOrder},
		map[BackendID]Backend{
			BackendGDI:    succeeding(BackendGDI, 0), // defeated by exclusion flag
			BackendZOrder: succeeding(BackendZOrder, 128),
		}, nil)

	frame, err := e.Capture(Target{Window: 0x1234})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if frame.Backend != BackendZOrder {
		t.Fatalf("black frame should fall through to zorder, got %s", frame.Backend)
	}
}

func TestCapture_PanickingBackendIsIsolated(t *testing.T) {
	panicky := &stubBackend{id: BackendComposition, fn: func(int, Resolved) (*Frame, *BackendError) {
		panic("vtable call went sideways")
	}}
	e := testEngine(
		[]BackendID{BackendComposition, BackendGDI},
		map[BackendID]Backend{
			BackendComposition: panicky,
			BackendGDI:         succeeding(BackendGDI, 128),
		}, nil)

	frame, err := e.Capture(Target{Window: 0x1234})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if frame.Backend != BackendGDI {
		t.Fatalf("expected gdi after panic isolation, got %s", frame.Backend)
	}
}

func TestCapture_ResolveFailureIsNotExhaustion(t *testing.T) {
	e := newEngine(
		stubResolver{err: errors.New("no such window")},
		map[BackendID]Backend{BackendGDI: succeeding(BackendGDI, 128)},
		NewCapabilities(map[BackendID]bool{BackendGDI: true}),
		Validator{Threshold: 5.0},
		[]BackendID{BackendGDI})

	_, err := e.Capture(Target{Window: 0xDEAD})
	if err == nil {
		t.Fatal("expected resolve error")
	}
	var ex *ExhaustedError
	if errors.As(err, &ex) {
		t.Fatal("resolve failure must not be reported as exhaustion")
	}
	if !strings.Contains(err.Error(), "no such window") {
		t.Fatalf("resolve cause missing from error: %v", err)
	}
}

func TestCapture_FrameSizedToBounds(t *testing.T) {
	e := testEngine(
		[]BackendID{BackendGDI},
		map[BackendID]Backend{BackendGDI: succeeding(BackendGDI, 128)}, nil)

	frame, err := e.Capture(Target{Window: 0x1234})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	want := testResolved().Bounds
	if frame.Width != want.Dx() || frame.Height != want.Dy() {
		t.Fatalf("frame %dx%d, want %dx%d", frame.Width, frame.Height, want.Dx(), want.Dy())
	}
	if len(frame.Pix) != frame.Width*frame.Height*3 {
		t.Fatalf("pixel buffer length %d, want %d", len(frame.Pix), frame.Width*frame.Height*3)
	}
}

func TestClose_Idempotent(t *testing.T) {
	e := testEngine(
		[]BackendID{BackendGDI},
		map[BackendID]Backend{BackendGDI: succeeding(BackendGDI, 128)}, nil)

	if err := e.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if _, err := e.Capture(Target{Window: 0x1234}); err == nil {
		t.Fatal("Capture after Close should fail")
	}
}

func TestParseBackendID(t *testing.T) {
	if _, err := ParseBackendID("Duplication"); err != nil {
		t.Fatalf("case-insensitive parse failed: %v", err)
	}
	if _, err := ParseBackendID("nonsense"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
