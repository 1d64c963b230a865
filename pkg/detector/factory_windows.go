//go:build windows

package detector

import (
	"workagent/pkg/input"
	"workagent/pkg/integrations/win32"
	"workagent/pkg/screenshot"
	"workagent/pkg/window"
)

func New() (window.Detector, error) {
	return win32.NewDetector(), nil
}

func NewCapturer() screenshot.Capturer {
	return win32.NewCapturer()
}

func NewIdleProbe() input.IdleProbe {
	return win32.NewIdleProbe()
}
