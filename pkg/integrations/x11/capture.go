package x11

import (
	"image"
	"os"

	"github.com/pkg/errors"
)

// Capturer grabs the full X11 root window.
type Capturer struct {
	client *client
}

// NewCapturer connects to $DISPLAY. The returned capturer reports itself
// unavailable when the connection fails.
func NewCapturer() *Capturer {
	c := &Capturer{}
	if os.Getenv("DISPLAY") != "" {
		if cl, err := newClient(); err == nil {
			c.client = cl
		}
	}
	return c
}

func (c *Capturer) Name() string      { return "x11" }
func (c *Capturer) IsAvailable() bool { return c.client != nil }

func (c *Capturer) Capture() (image.Image, error) {
	if c.client == nil {
		return nil, errors.New("x11 display not available")
	}

	data, width, height, depth, err := c.client.rootImage()
	if err != nil {
		return nil, err
	}
	if depth != 24 && depth != 32 {
		return nil, errors.Errorf("unsupported X11 visual depth %d", depth)
	}
	return bgrxToRGBA(data, width, height)
}

func (c *Capturer) Close() error {
	if c.client != nil {
		c.client.close()
	}
	return nil
}

// bgrxToRGBA converts a 32 bits-per-pixel little-endian ZPixmap.
func bgrxToRGBA(data []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid image size %dx%d", width, height)
	}
	if len(data) < width*height*4 {
		return nil, errors.Errorf("short image data: got %d bytes for %dx%d", len(data), width, height)
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
