//go:build windows

package win32

import (
	"image"
	"unsafe"

	"github.com/pkg/errors"
)

// Capturer grabs the whole virtual screen (all monitors) with BitBlt.
type Capturer struct{}

func NewCapturer() *Capturer { return &Capturer{} }

func (c *Capturer) Name() string      { return "gdi" }
func (c *Capturer) IsAvailable() bool { return gdi32.Load() == nil }
func (c *Capturer) Close() error      { return nil }

func (c *Capturer) Capture() (image.Image, error) {
	x := systemMetric(smXVirtualScreen)
	y := systemMetric(smYVirtualScreen)
	width := systemMetric(smCXVirtualScreen)
	height := systemMetric(smCYVirtualScreen)
	if width <= 0 || height <= 0 {
		return nil, errors.New("virtual screen has no size")
	}

	screenDC, _, _ := procGetDC.Call(0)
	if screenDC == 0 {
		return nil, errors.New("GetDC failed")
	}
	defer procReleaseDC.Call(0, screenDC)

	memDC, _, _ := procCreateCompatibleDC.Call(screenDC)
	if memDC == 0 {
		return nil, errors.New("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(memDC)

	header := bitmapInfoHeader{
		biSize:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		biWidth:       int32(width),
		biHeight:      -int32(height), // top-down rows
		biPlanes:      1,
		biBitCount:    32,
		biCompression: biRGB,
	}

	var bits unsafe.Pointer
	bitmap, _, _ := procCreateDIBSection.Call(memDC, uintptr(unsafe.Pointer(&header)),
		dibRGBColors, uintptr(unsafe.Pointer(&bits)), 0, 0)
	if bitmap == 0 || bits == nil {
		return nil, errors.New("CreateDIBSection failed")
	}
	defer procDeleteObject.Call(bitmap)

	old, _, _ := procSelectObject.Call(memDC, bitmap)
	defer procSelectObject.Call(memDC, old)

	ok, _, err := procBitBlt.Call(memDC, 0, 0, uintptr(width), uintptr(height),
		screenDC, uintptr(x), uintptr(y), srcCopy|captureBlt)
	if ok == 0 {
		return nil, errors.Wrap(err, "BitBlt failed")
	}

	data := unsafe.Slice((*byte)(bits), width*height*4)
	return bgraToRGBA(data, width, height)
}
