//go:build windows

package capture

import (
	"fmt"
	"image"
	"sync"
	"time"
	"unsafe"

	"github.com/go-ole/go-ole"

	"github.com/uakbr/bypass-methods/internal/logging"
)

// WinRT Windows.Graphics.Capture bindings. go-ole handles runtime
// initialization and activation factory lookup; the projected interfaces
// themselves are called through raw vtables because go-ole has no
// Windows.Graphics.Capture projection.

const (
	captureItemClass = "Windows.Graphics.Capture.GraphicsCaptureItem"
	framePoolClass   = "Windows.Graphics.Capture.Direct3D11CaptureFramePool"
	sessionClass     = "Windows.Graphics.Capture.GraphicsCaptureSession"

	// DirectXPixelFormat.B8G8R8A8UIntNormalized
	directXPixelFormatBGRA8 = 87

	wgcPollInterval = 10 * time.Millisecond
)

var (
	iidGraphicsCaptureItemInterop = ole.NewGUID("{3628E81B-3CAC-4C60-B7F4-23CE0E0C3356}")
	iidGraphicsCaptureItem        = ole.NewGUID("{79C3F95B-31F7-4EC2-A464-632EF5D30760}")
	iidFramePoolStatics2          = ole.NewGUID("{589B103F-6BBC-5DF5-A991-02E28B3B66D5}")
	iidSessionStatics             = ole.NewGUID("{2224A540-5974-49AA-B232-0882536F4CB5}")
	iidDxgiInterfaceAccess        = ole.NewGUID("{A9B3D012-3DF2-4EE3-B8D1-8695F457D3C1}")
	iidClosable                   = ole.NewGUID("{30D5A829-7FA4-4026-83BB-D75BAE4EA99E}")
)

// Vtable slots past IInspectable (0-5) for the projected interfaces.
const (
	interopCreateForWindow = 3 // IGraphicsCaptureItemInterop extends IUnknown

	itemGetSize = 7

	framePoolStatics2CreateFreeThreaded = 6
	framePoolRecreate                   = 6
	framePoolTryGetNextFrame            = 7
	framePoolCreateCaptureSession       = 10

	sessionStartCapture       = 6
	sessionStaticsIsSupported = 6

	frameGetSurface = 6

	dxgiInterfaceAccessGetInterface = 3 // extends IUnknown

	closableClose = 6

	texture2DGetDesc = 10
)

var procCreateDirect3D11DeviceFromDXGIDevice = d3d11DLL.NewProc("CreateDirect3D11DeviceFromDXGIDevice")

type sizeInt32 struct {
	Width  int32
	Height int32
}

// packSizeInt32 packs a SizeInt32 for by-value passing in one register.
func packSizeInt32(s sizeInt32) uintptr {
	return uintptr(uint64(uint32(s.Width)) | uint64(uint32(s.Height))<<32)
}

func oleGUID(g *ole.GUID) *comGUID {
	return (*comGUID)(unsafe.Pointer(g))
}

// wgcClose invokes IClosable.Close on a WinRT object that implements it.
// Frame pools, sessions and frames all hold GPU resources that outlive
// Release without it.
func wgcClose(obj uintptr) {
	closable, err := comQuery(obj, oleGUID(iidClosable))
	if err != nil {
		return
	}
	comCall(closable, closableClose)
	comRelease(closable)
}

// compositionCaptureSupported asks the projection itself, which accounts for
// OS build, session type and policy in one call.
func compositionCaptureSupported() bool {
	statics, err := ole.RoGetActivationFactory(sessionClass, iidSessionStatics)
	if err != nil {
		return false
	}
	raw := uintptr(unsafe.Pointer(statics))
	defer comRelease(raw)

	var supported int32
	if _, err := comCall(raw, sessionStaticsIsSupported,
		uintptr(unsafe.Pointer(&supported))); err != nil {
		return false
	}
	return supported != 0
}

// compositionBackend captures one window through a transient
// Windows.Graphics.Capture session. The composition pipeline renders the
// window content itself, so the exclusion flag that blanks screen-reading
// strategies does not apply here.
//
// The D3D11 device and its WinRT wrapper persist across calls; the capture
// item, frame pool and session are per-call and fully disposed before the
// frame is returned.
type compositionBackend struct {
	mu      sync.Mutex
	timeout time.Duration

	device    uintptr // ID3D11Device
	ctx       uintptr // ID3D11DeviceContext
	d3dDevice uintptr // WinRT IDirect3DDevice wrapping device
}

func newCompositionBackend(timeout time.Duration) *compositionBackend {
	return &compositionBackend{timeout: timeout}
}

func (b *compositionBackend) ID() BackendID { return BackendComposition }

func (b *compositionBackend) ensureDevice() *BackendError {
	if b.d3dDevice != 0 {
		return nil
	}

	// RO_INIT_MULTITHREADED. A mode-changed error just means another
	// component initialized COM on this thread first; if the runtime is
	// genuinely unavailable the factory lookups below fail instead.
	if err := ole.RoInitialize(1); err != nil {
		log.Debug("RoInitialize", logging.KeyError, err)
	}

	device, ctx, err := newD3D11Device()
	if err != nil {
		return backendErr(BackendComposition, KindInit, "%v", err)
	}

	dxgiDevice, qerr := comQuery(device, &iidIDXGIDevice)
	if qerr != nil {
		comRelease(ctx)
		comRelease(device)
		return backendErr(BackendComposition, KindInit, "query IDXGIDevice: %v", qerr)
	}
	defer comRelease(dxgiDevice)

	var d3dDevice uintptr
	hr, _, _ := procCreateDirect3D11DeviceFromDXGIDevice.Call(
		dxgiDevice, uintptr(unsafe.Pointer(&d3dDevice)))
	if int32(hr) < 0 {
		comRelease(ctx)
		comRelease(device)
		return backendErr(BackendComposition, KindInit,
			"CreateDirect3D11DeviceFromDXGIDevice: HRESULT 0x%08X", uint32(hr))
	}

	b.device, b.ctx, b.d3dDevice = device, ctx, d3dDevice
	return nil
}

func (b *compositionBackend) Capture(res Resolved) (*Frame, *BackendError) {
	if !res.HasWindow {
		return nil, backendErr(BackendComposition, KindInit, "requires a window target")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if berr := b.ensureDevice(); berr != nil {
		return nil, berr
	}

	item, size, berr := b.createItem(res.Window)
	if berr != nil {
		return nil, berr
	}
	defer comRelease(item)

	framePool, berr := b.createFramePool(size)
	if berr != nil {
		return nil, b.classifyDeviceLoss(berr)
	}
	defer func() {
		wgcClose(framePool)
		comRelease(framePool)
	}()

	var session uintptr
	if _, err := comCall(framePool, framePoolCreateCaptureSession,
		item, uintptr(unsafe.Pointer(&session))); err != nil {
		return nil, b.classifyDeviceLoss(
			backendErr(BackendComposition, KindInit, "CreateCaptureSession: %w", err))
	}
	defer func() {
		wgcClose(session)
		comRelease(session)
	}()

	if _, err := comCall(session, sessionStartCapture); err != nil {
		return nil, b.classifyDeviceLoss(
			backendErr(BackendComposition, KindInit, "StartCapture: %w", err))
	}

	frame, berr := b.awaitFrame(framePool)
	if berr != nil {
		return nil, b.classifyDeviceLoss(berr)
	}
	defer func() {
		wgcClose(frame)
		comRelease(frame)
	}()

	pix, texW, texH, berr := b.readFrame(frame)
	if berr != nil {
		return nil, b.classifyDeviceLoss(berr)
	}

	// The pool buffer matches the window size at item creation; translate
	// the target bounds into window-local coordinates before cropping.
	local := res.Bounds.Sub(res.WindowRect.Min)
	local, err := clampToFrame(local, image.Rect(0, 0, texW, texH))
	if err != nil {
		return nil, backendErr(BackendComposition, KindInit,
			"target outside captured surface: %v", err)
	}

	w, h := local.Dx(), local.Dy()
	return &Frame{
		Pix:    cropRGB(pix, texW, local.Min.X, local.Min.Y, w, h),
		Width:  w,
		Height: h,
	}, nil
}

// createItem builds a GraphicsCaptureItem bound to the window via the
// interop factory, and reads its size.
func (b *compositionBackend) createItem(hwnd uintptr) (uintptr, sizeInt32, *BackendError) {
	factory, err := ole.RoGetActivationFactory(captureItemClass, iidGraphicsCaptureItemInterop)
	if err != nil {
		return 0, sizeInt32{}, backendErr(BackendComposition, KindUnsupported,
			"GraphicsCaptureItem factory unavailable: %v", err)
	}
	interop := uintptr(unsafe.Pointer(factory))
	defer comRelease(interop)

	var item uintptr
	if _, cerr := comCall(interop, interopCreateForWindow,
		hwnd,
		uintptr(unsafe.Pointer(iidGraphicsCaptureItem)),
		uintptr(unsafe.Pointer(&item))); cerr != nil {
		return 0, sizeInt32{}, backendErr(BackendComposition, KindInit,
			"CreateForWindow(0x%X): %v", hwnd, cerr)
	}

	var size sizeInt32
	if _, cerr := comCall(item, itemGetSize,
		uintptr(unsafe.Pointer(&size))); cerr != nil {
		comRelease(item)
		return 0, sizeInt32{}, backendErr(BackendComposition, KindInit, "get_Size: %v", cerr)
	}
	if size.Width <= 0 || size.Height <= 0 {
		comRelease(item)
		return 0, sizeInt32{}, backendErr(BackendComposition, KindInit,
			"capture item has empty size %dx%d", size.Width, size.Height)
	}
	return item, size, nil
}

func (b *compositionBackend) createFramePool(size sizeInt32) (uintptr, *BackendError) {
	statics, err := ole.RoGetActivationFactory(framePoolClass, iidFramePoolStatics2)
	if err != nil {
		return 0, backendErr(BackendComposition, KindUnsupported,
			"Direct3D11CaptureFramePool factory unavailable: %v", err)
	}
	raw := uintptr(unsafe.Pointer(statics))
	defer comRelease(raw)

	// CreateFreeThreaded avoids a DispatcherQueue requirement on this
	// (non-UI) thread.
	var framePool uintptr
	if _, cerr := comCall(raw, framePoolStatics2CreateFreeThreaded,
		b.d3dDevice,
		directXPixelFormatBGRA8,
		1, // single buffer, one-shot capture
		packSizeInt32(size),
		uintptr(unsafe.Pointer(&framePool))); cerr != nil {
		return 0, backendErr(BackendComposition, KindInit, "CreateFreeThreaded: %w", cerr)
	}
	return framePool, nil
}

// awaitFrame polls the pool until a frame arrives or the deadline passes.
// TryGetNextFrame returns S_OK with a null frame while the pool is empty.
func (b *compositionBackend) awaitFrame(framePool uintptr) (uintptr, *BackendError) {
	deadline := time.Now().Add(b.timeout)
	for {
		var frame uintptr
		if _, err := comCall(framePool, framePoolTryGetNextFrame,
			uintptr(unsafe.Pointer(&frame))); err != nil {
			return 0, backendErr(BackendComposition, KindInit, "TryGetNextFrame: %w", err)
		}
		if frame != 0 {
			return frame, nil
		}
		if time.Now().After(deadline) {
			return 0, backendErr(BackendComposition, KindTimeout,
				"no composed frame within %v", b.timeout)
		}
		time.Sleep(wgcPollInterval)
	}
}

// readFrame pulls the D3D11 texture out of the frame's Direct3D surface and
// copies it to CPU memory through a transient staging texture.
func (b *compositionBackend) readFrame(frame uintptr) ([]byte, int, int, *BackendError) {
	var surface uintptr
	if _, err := comCall(frame, frameGetSurface,
		uintptr(unsafe.Pointer(&surface))); err != nil {
		return nil, 0, 0, backendErr(BackendComposition, KindInit, "get_Surface: %w", err)
	}
	defer comRelease(surface)

	access, err := comQuery(surface, oleGUID(iidDxgiInterfaceAccess))
	if err != nil {
		return nil, 0, 0, backendErr(BackendComposition, KindInit,
			"query IDirect3DDxgiInterfaceAccess: %w", err)
	}
	defer comRelease(access)

	var tex uintptr
	if _, cerr := comCall(access, dxgiInterfaceAccessGetInterface,
		uintptr(unsafe.Pointer(&iidID3D11Texture2D)),
		uintptr(unsafe.Pointer(&tex))); cerr != nil {
		return nil, 0, 0, backendErr(BackendComposition, KindInit, "GetInterface: %w", cerr)
	}
	defer comRelease(tex)

	var desc d3d11Texture2DDesc
	if _, cerr := comCall(tex, texture2DGetDesc,
		uintptr(unsafe.Pointer(&desc))); cerr != nil {
		return nil, 0, 0, backendErr(BackendComposition, KindInit, "texture GetDesc: %w", cerr)
	}

	pix, rerr := readTextureRGB(b.device, b.ctx, tex, int(desc.Width), int(desc.Height))
	if rerr != nil {
		return nil, 0, 0, backendErr(BackendComposition, KindInit, "%w", rerr)
	}
	return pix, int(desc.Width), int(desc.Height), nil
}

// readTextureRGB copies a GPU texture to CPU memory via a transient staging
// texture and converts it to packed RGB.
func readTextureRGB(device, ctx, tex uintptr, width, height int) ([]byte, error) {
	desc := d3d11Texture2DDesc{
		Width:          uint32(width),
		Height:         uint32(height),
		MipLevels:      1,
		ArraySize:      1,
		Format:         dxgiFormatB8G8R8A8,
		SampleCount:    1,
		Usage:          d3d11UsageStaging,
		CPUAccessFlags: d3d11CPUAccessRead,
	}
	var staging uintptr
	if _, err := comCall(device, d3d11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)), 0,
		uintptr(unsafe.Pointer(&staging))); err != nil {
		return nil, fmt.Errorf("create staging texture: %w", err)
	}
	defer comRelease(staging)

	if _, err := comCall(ctx, d3d11CtxCopyResource, staging, tex); err != nil {
		return nil, fmt.Errorf("CopyResource: %w", err)
	}

	var mapped d3d11MappedSubresource
	if _, err := comCall(ctx, d3d11CtxMap, staging, 0, d3d11MapRead, 0,
		uintptr(unsafe.Pointer(&mapped))); err != nil {
		return nil, fmt.Errorf("Map staging: %w", err)
	}
	defer comCall(ctx, d3d11CtxUnmap, staging, 0)

	src := unsafe.Slice((*byte)(unsafe.Pointer(mapped.PData)), int(mapped.RowPitch)*height)
	return bgraToRGB(src, width, height, int(mapped.RowPitch)), nil
}

// classifyDeviceLoss rewrites failures caused by D3D device removal or reset
// into KindDeviceLost and drops the cached device, so the next capture
// rebuilds the whole device chain instead of failing forever on a dead one.
// Called with b.mu held.
func (b *compositionBackend) classifyDeviceLoss(berr *BackendError) *BackendError {
	if !isHRESULT(berr.Err, dxgiErrDeviceRemoved) && !isHRESULT(berr.Err, dxgiErrDeviceReset) {
		return berr
	}
	b.dropDevice()
	return &BackendError{Backend: berr.Backend, Kind: KindDeviceLost, Err: berr.Err}
}

// dropDevice releases the cached device chain. Called with b.mu held.
func (b *compositionBackend) dropDevice() {
	comRelease(b.d3dDevice)
	b.d3dDevice = 0
	comRelease(b.ctx)
	b.ctx = 0
	comRelease(b.device)
	b.device = 0
}

func (b *compositionBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropDevice()
	return nil
}
