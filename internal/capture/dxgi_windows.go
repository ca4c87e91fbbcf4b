//go:build windows

package capture

import (
	"errors"
	"syscall"
)

var (
	d3d11DLL              = syscall.NewLazyDLL("d3d11.dll")
	procD3D11CreateDevice = d3d11DLL.NewProc("D3D11CreateDevice")
)

const (
	d3dDriverTypeHardware = 1
	d3dDriverTypeWARP     = 5
	d3dFeatureLevel11_0   = 0xb000
	d3d11SDKVersion       = 7

	d3d11CreateDeviceBGRASupport = 0x20

	d3d11UsageStaging  = 3
	d3d11CPUAccessRead = 0x20000

	dxgiFormatB8G8R8A8 = 87
)

// DXGI/D3D11 HRESULTs the duplication path distinguishes.
const (
	dxgiErrWaitTimeout   = 0x887A0027
	dxgiErrAccessLost    = 0x887A0026
	dxgiErrDeviceRemoved = 0x887A0005
	dxgiErrDeviceReset   = 0x887A0007
	dxgiErrNotFound      = 0x887A0002
	dxgiErrUnsupported   = 0x887A0004
)

var (
	iidIDXGIDevice = comGUID{0x54ec77fa, 0x1377, 0x44e6,
		[8]byte{0x8c, 0x32, 0x88, 0xfd, 0x5f, 0x44, 0xc8, 0x4c}}
	iidIDXGIOutput1 = comGUID{0x00cddea8, 0x939b, 0x4b83,
		[8]byte{0xa3, 0x40, 0xa6, 0x85, 0x22, 0x66, 0x66, 0xcc}}
	iidID3D11Texture2D = comGUID{0x6f15aaf2, 0xd208, 0x4e89,
		[8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}
)

// Vtable slots past IUnknown for the interfaces the duplication path calls.
const (
	dxgiDeviceGetAdapter       = 7
	dxgiAdapterEnumOutputs     = 7
	dxgiOutputGetDesc          = 7
	dxgiOutput1DuplicateOutput = 22

	dxgiDuplGetDesc          = 7
	dxgiDuplAcquireNextFrame = 8
	dxgiDuplReleaseFrame     = 14

	d3d11DeviceCreateTexture2D = 5
	d3d11DeviceGetImmediateCtx = 40

	d3d11CtxMap          = 14
	d3d11CtxUnmap        = 15
	d3d11CtxCopyResource = 47
)

type dxgiModeDesc struct {
	Width            uint32
	Height           uint32
	RefreshRateNum   uint32
	RefreshRateDenom uint32
	Format           uint32
	ScanlineOrdering uint32
	Scaling          uint32
}

type dxgiOutDuplDesc struct {
	ModeDesc                   dxgiModeDesc
	Rotation                   uint32
	DesktopImageInSystemMemory int32
}

type dxgiOutDuplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerPosition           dxgiOutDuplPointerPosition
	TotalMetadataBufferSize   uint32
	PointerShapeBufferSize    uint32
}

type dxgiOutDuplPointerPosition struct {
	Position winPoint
	Visible  int32
}

type dxgiOutputDesc struct {
	DeviceName         [32]uint16
	DesktopCoordinates winRect
	AttachedToDesktop  int32
	Rotation           uint32
	Monitor            uintptr
}

type d3d11Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

type d3d11MappedSubresource struct {
	PData      uintptr
	RowPitch   uint32
	DepthPitch uint32
}

func isHRESULT(err error, code uint32) bool {
	var he *comError
	return errors.As(err, &he) && he.hr == code
}
