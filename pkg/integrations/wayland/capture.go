package wayland

import (
	"bytes"
	"image"
	"image/png"
	"os/exec"

	"github.com/pkg/errors"
)

// Capturer takes screenshots with grim, which works on wlroots
// compositors (sway, Hyprland).
type Capturer struct {
	hasGrim bool
}

func NewCapturer() *Capturer {
	return &Capturer{hasGrim: commandExists("grim")}
}

func (c *Capturer) Name() string      { return "grim" }
func (c *Capturer) IsAvailable() bool { return c.hasGrim }

func (c *Capturer) Capture() (image.Image, error) {
	if !c.hasGrim {
		return nil, errors.New("grim not installed")
	}

	var stderr bytes.Buffer
	cmd := exec.Command("grim", "-t", "png", "-")
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrapf(err, "grim failed: %s", bytes.TrimSpace(stderr.Bytes()))
	}
	return decodePNG(output)
}

func decodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode grim output")
	}
	return img, nil
}

func (c *Capturer) Close() error { return nil }
