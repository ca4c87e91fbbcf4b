//go:build windows

package capture

import (
	"fmt"
	"image"
	"sync"
	"time"
	"unsafe"

	"github.com/uakbr/bypass-methods/internal/logging"
)

const d3d11MapRead = 1

// DuplicationSession owns one IDXGIOutputDuplication and the D3D11 device,
// context and staging texture it reads through. A session is bound to a
// single output and is rebuilt from scratch after the driver invalidates it.
type DuplicationSession struct {
	monitor int

	device  uintptr // ID3D11Device
	ctx     uintptr // ID3D11DeviceContext
	dupl    uintptr // IDXGIOutputDuplication
	staging uintptr // ID3D11Texture2D, staging usage

	width   int
	height  int
	desktop image.Rectangle // output position in virtual-screen coordinates

	guard frameGuard
}

// newDuplicationSession builds the full duplication pipeline for one output:
// D3D11 device (hardware, WARP fallback), adapter/output walk, DuplicateOutput,
// and a CPU-readable staging texture sized to the output mode.
func newDuplicationSession(monitor int) (*DuplicationSession, *BackendError) {
	s := &DuplicationSession{monitor: monitor}

	if err := s.createDevice(); err != nil {
		return nil, err
	}
	if err := s.duplicateOutput(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.createStaging(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *DuplicationSession) createDevice() *BackendError {
	device, ctx, err := newD3D11Device()
	if err != nil {
		return backendErr(BackendDuplication, KindInit, "%v", err)
	}
	s.device, s.ctx = device, ctx
	return nil
}

// newD3D11Device creates a BGRA-capable D3D11 device and its immediate
// context. Headless and RDP hosts have no hardware adapter; WARP still
// drives capture there, so it is the fallback driver type.
func newD3D11Device() (device, ctx uintptr, err error) {
	var featureLevel uint32
	hr, _, _ := procD3D11CreateDevice.Call(
		0, // default adapter
		d3dDriverTypeHardware,
		0, // no software module
		d3d11CreateDeviceBGRASupport,
		0, 0, // default feature levels
		d3d11SDKVersion,
		uintptr(unsafe.Pointer(&device)),
		uintptr(unsafe.Pointer(&featureLevel)),
		uintptr(unsafe.Pointer(&ctx)),
	)
	if int32(hr) < 0 {
		hr, _, _ = procD3D11CreateDevice.Call(
			0, d3dDriverTypeWARP, 0,
			d3d11CreateDeviceBGRASupport,
			0, 0, d3d11SDKVersion,
			uintptr(unsafe.Pointer(&device)),
			uintptr(unsafe.Pointer(&featureLevel)),
			uintptr(unsafe.Pointer(&ctx)),
		)
		if int32(hr) < 0 {
			return 0, 0, fmt.Errorf("D3D11CreateDevice failed for hardware and WARP: HRESULT 0x%08X", uint32(hr))
		}
		log.Debug("D3D11 device created on WARP")
	}
	return device, ctx, nil
}

func (s *DuplicationSession) duplicateOutput() *BackendError {
	dxgiDevice, err := comQuery(s.device, &iidIDXGIDevice)
	if err != nil {
		return backendErr(BackendDuplication, KindInit, "query IDXGIDevice: %v", err)
	}
	defer comRelease(dxgiDevice)

	var adapter uintptr
	if _, err := comCall(dxgiDevice, dxgiDeviceGetAdapter,
		uintptr(unsafe.Pointer(&adapter))); err != nil {
		return backendErr(BackendDuplication, KindInit, "GetAdapter: %v", err)
	}
	defer comRelease(adapter)

	var output uintptr
	if _, err := comCall(adapter, dxgiAdapterEnumOutputs,
		uintptr(s.monitor), uintptr(unsafe.Pointer(&output))); err != nil {
		if isHRESULT(err, dxgiErrNotFound) {
			return backendErr(BackendDuplication, KindInit,
				"output %d not found on adapter", s.monitor)
		}
		return backendErr(BackendDuplication, KindInit, "EnumOutputs(%d): %v", s.monitor, err)
	}
	defer comRelease(output)

	var outDesc dxgiOutputDesc
	if _, err := comCall(output, dxgiOutputGetDesc,
		uintptr(unsafe.Pointer(&outDesc))); err != nil {
		return backendErr(BackendDuplication, KindInit, "output GetDesc: %v", err)
	}
	s.desktop = image.Rect(
		int(outDesc.DesktopCoordinates.Left), int(outDesc.DesktopCoordinates.Top),
		int(outDesc.DesktopCoordinates.Right), int(outDesc.DesktopCoordinates.Bottom),
	)

	output1, err := comQuery(output, &iidIDXGIOutput1)
	if err != nil {
		return backendErr(BackendDuplication, KindUnsupported,
			"IDXGIOutput1 unavailable, duplication requires Windows 8+: %v", err)
	}
	defer comRelease(output1)

	if _, err := comCall(output1, dxgiOutput1DuplicateOutput,
		s.device, uintptr(unsafe.Pointer(&s.dupl))); err != nil {
		if isHRESULT(err, dxgiErrUnsupported) {
			return backendErr(BackendDuplication, KindUnsupported,
				"DuplicateOutput unsupported on this session: %v", err)
		}
		return backendErr(BackendDuplication, KindInit, "DuplicateOutput: %v", err)
	}

	var duplDesc dxgiOutDuplDesc
	if _, err := comCall(s.dupl, dxgiDuplGetDesc,
		uintptr(unsafe.Pointer(&duplDesc))); err != nil {
		return backendErr(BackendDuplication, KindInit, "duplication GetDesc: %v", err)
	}
	s.width = int(duplDesc.ModeDesc.Width)
	s.height = int(duplDesc.ModeDesc.Height)
	return nil
}

func (s *DuplicationSession) createStaging() *BackendError {
	desc := d3d11Texture2DDesc{
		Width:          uint32(s.width),
		Height:         uint32(s.height),
		MipLevels:      1,
		ArraySize:      1,
		Format:         dxgiFormatB8G8R8A8,
		SampleCount:    1,
		Usage:          d3d11UsageStaging,
		CPUAccessFlags: d3d11CPUAccessRead,
	}
	if _, err := comCall(s.device, d3d11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)), 0,
		uintptr(unsafe.Pointer(&s.staging))); err != nil {
		return backendErr(BackendDuplication, KindInit, "create staging texture: %v", err)
	}
	return nil
}

// AcquireFrame blocks up to timeout for the next desktop image, copies it
// through the staging texture, and returns it as a packed RGB buffer of the
// full output. The GPU frame is released before the call returns, on every
// path, success or not.
func (s *DuplicationSession) AcquireFrame(timeout time.Duration) ([]byte, *BackendError) {
	var frameInfo dxgiOutDuplFrameInfo
	var resource uintptr
	if _, err := comCall(s.dupl, dxgiDuplAcquireNextFrame,
		uintptr(timeout.Milliseconds()),
		uintptr(unsafe.Pointer(&frameInfo)),
		uintptr(unsafe.Pointer(&resource))); err != nil {
		switch {
		case isHRESULT(err, dxgiErrWaitTimeout):
			return nil, backendErr(BackendDuplication, KindTimeout,
				"no frame within %v", timeout)
		case isHRESULT(err, dxgiErrAccessLost):
			return nil, backendErr(BackendDuplication, KindDeviceLost,
				"duplication access lost (mode change or secure desktop)")
		case isHRESULT(err, dxgiErrDeviceRemoved), isHRESULT(err, dxgiErrDeviceReset):
			return nil, backendErr(BackendDuplication, KindDeviceLost,
				"D3D device removed: %v", err)
		default:
			return nil, backendErr(BackendDuplication, KindInit, "AcquireNextFrame: %v", err)
		}
	}

	if err := s.guard.begin(); err != nil {
		comRelease(resource)
		comCall(s.dupl, dxgiDuplReleaseFrame)
		return nil, backendErr(BackendDuplication, KindInit, "%v", err)
	}
	defer func() {
		comCall(s.dupl, dxgiDuplReleaseFrame)
		s.guard.end()
	}()
	defer comRelease(resource)

	if frameInfo.ProtectedContentMaskedOut != 0 {
		log.Warn("protected content masked out of desktop image",
			logging.KeyBackend, string(BackendDuplication))
	}

	// AccumulatedFrames can be zero right after DuplicateOutput; the
	// desktop image is still valid, so the copy proceeds regardless.
	tex, err := comQuery(resource, &iidID3D11Texture2D)
	if err != nil {
		return nil, backendErr(BackendDuplication, KindInit, "query ID3D11Texture2D: %v", err)
	}
	defer comRelease(tex)

	if _, err := comCall(s.ctx, d3d11CtxCopyResource, s.staging, tex); err != nil {
		return nil, backendErr(BackendDuplication, KindInit, "CopyResource: %v", err)
	}

	var mapped d3d11MappedSubresource
	if _, err := comCall(s.ctx, d3d11CtxMap, s.staging, 0, d3d11MapRead, 0,
		uintptr(unsafe.Pointer(&mapped))); err != nil {
		if isHRESULT(err, dxgiErrDeviceRemoved) || isHRESULT(err, dxgiErrDeviceReset) {
			return nil, backendErr(BackendDuplication, KindDeviceLost,
				"device removed during Map: %v", err)
		}
		return nil, backendErr(BackendDuplication, KindInit, "Map staging: %v", err)
	}
	defer comCall(s.ctx, d3d11CtxUnmap, s.staging, 0)

	src := unsafe.Slice((*byte)(unsafe.Pointer(mapped.PData)), int(mapped.RowPitch)*s.height)
	return bgraToRGB(src, s.width, s.height, int(mapped.RowPitch)), nil
}

// Close releases the session's COM chain in reverse creation order. Safe to
// call on a partially constructed session and more than once.
func (s *DuplicationSession) Close() {
	comRelease(s.staging)
	s.staging = 0
	comRelease(s.dupl)
	s.dupl = 0
	comRelease(s.ctx)
	s.ctx = 0
	comRelease(s.device)
	s.device = 0
}

// duplicationBackend holds one lazily created DuplicationSession per output.
// Device-lost errors discard the session; the next capture rebuilds it.
type duplicationBackend struct {
	mu       sync.Mutex
	timeout  time.Duration
	sessions map[int]*DuplicationSession
}

func newDuplicationBackend(timeout time.Duration) *duplicationBackend {
	return &duplicationBackend{
		timeout:  timeout,
		sessions: make(map[int]*DuplicationSession),
	}
}

func (b *duplicationBackend) ID() BackendID { return BackendDuplication }

func (b *duplicationBackend) Capture(res Resolved) (*Frame, *BackendError) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := res.Monitor.Index
	sess := b.sessions[idx]
	if sess == nil {
		var berr *BackendError
		sess, berr = newDuplicationSession(idx)
		if berr != nil {
			return nil, berr
		}
		b.sessions[idx] = sess
	}

	pix, berr := sess.AcquireFrame(b.timeout)
	if berr != nil {
		if berr.Kind == KindDeviceLost {
			sess.Close()
			delete(b.sessions, idx)
		}
		return nil, berr
	}

	// The duplicated image covers the whole output; translate the target
	// bounds into output-local coordinates before cropping.
	local := res.Bounds.Sub(sess.desktop.Min)
	local, err := clampToFrame(local, image.Rect(0, 0, sess.width, sess.height))
	if err != nil {
		return nil, backendErr(BackendDuplication, KindInit,
			"target outside duplicated output: %v", err)
	}

	w, h := local.Dx(), local.Dy()
	return &Frame{
		Pix:    cropRGB(pix, sess.width, local.Min.X, local.Min.Y, w, h),
		Width:  w,
		Height: h,
	}, nil
}

func (b *duplicationBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for idx, sess := range b.sessions {
		if !sess.guard.balanced() {
			log.Warn("closing duplication session with unbalanced frame guard",
				logging.KeyBackend, string(BackendDuplication), "monitor", idx)
		}
		sess.Close()
		delete(b.sessions, idx)
	}
	return nil
}
