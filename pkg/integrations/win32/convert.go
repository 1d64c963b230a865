package win32

import (
	"image"
	"time"

	"github.com/pkg/errors"
)

// idleSince returns the time between the last input tick and now. Both are
// GetTickCount values, which wrap every ~49.7 days; unsigned subtraction
// handles a single wrap.
func idleSince(nowTick, lastInputTick uint32) time.Duration {
	return time.Duration(nowTick-lastInputTick) * time.Millisecond
}

// bgraToRGBA converts a top-down 32-bit DIB section.
func bgraToRGBA(data []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid image size %dx%d", width, height)
	}
	if len(data) < width*height*4 {
		return nil, errors.Errorf("short bitmap: got %d bytes for %dx%d", len(data), width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		src := data[i*4 : i*4+4]
		dst := img.Pix[i*4 : i*4+4]
		dst[0] = src[2]
		dst[1] = src[1]
		dst[2] = src[0]
		dst[3] = 0xff
	}
	return img, nil
}
