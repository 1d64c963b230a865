//go:build !windows

package detector

import (
	"runtime"

	"workagent/pkg/input"
	"workagent/pkg/integrations/hybrid"
	"workagent/pkg/integrations/wayland"
	"workagent/pkg/integrations/x11"
	"workagent/pkg/screenshot"
	"workagent/pkg/window"
)

// New returns the window detectors usable in this session, Wayland first
// so XWayland-only answers are a fallback.
func New() (window.Detector, error) {
	var candidates []window.Detector
	if DetectDisplayServer() == "wayland" {
		candidates = append(candidates, wayland.NewDetector())
	}
	candidates = append(candidates, x11.NewDetector())

	det, err := hybrid.NewDetector(candidates...)
	if err != nil {
		return nil, err
	}
	return det, nil
}

// NewCapturer returns the first working screenshot backend, or
// screenshot.Unavailable.
func NewCapturer() screenshot.Capturer {
	if runtime.GOOS == "darwin" {
		return &screenshot.Unavailable{Reason: "screen capture not supported on macOS"}
	}

	if DetectDisplayServer() == "wayland" {
		if c := wayland.NewCapturer(); c.IsAvailable() {
			return c
		}
	}
	if c := x11.NewCapturer(); c.IsAvailable() {
		return c
	}
	return &screenshot.Unavailable{Reason: "no X11 display and grim not installed"}
}

// NewIdleProbe returns nil when no idle source exists.
func NewIdleProbe() input.IdleProbe {
	if p := x11.NewIdleProbe(); p != nil {
		return p
	}
	return nil
}
