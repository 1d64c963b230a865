// Package screenshot defines the capture interface implemented by the
// platform integrations and the JPEG compression applied before upload.
package screenshot

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/pkg/errors"
)

// Capturer grabs the full desktop as an image.
type Capturer interface {
	// Capture returns the current contents of the desktop
	Capture() (image.Image, error)

	// IsAvailable checks if this capturer can run on the current system
	IsAvailable() bool

	// Name identifies the capture backend in logs
	Name() string

	// Close cleans up any resources used by the capturer
	Close() error
}

// ErrUnavailable is returned by capturers that have no backend on this system.
var ErrUnavailable = errors.New("no screenshot backend available")

// Encode compresses img as JPEG. Quality is clamped to 1..100.
func Encode(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("empty image")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return nil, errors.Wrap(err, "failed to encode jpeg")
	}
	return buf.Bytes(), nil
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

// Unavailable is a Capturer that always fails. It stands in when no
// platform backend could be initialized.
type Unavailable struct {
	Reason string
}

func (u *Unavailable) Capture() (image.Image, error) {
	if u.Reason != "" {
		return nil, errors.Wrap(ErrUnavailable, u.Reason)
	}
	return nil, ErrUnavailable
}

func (u *Unavailable) IsAvailable() bool { return false }

func (u *Unavailable) Name() string { return "none" }

func (u *Unavailable) Close() error { return nil }
