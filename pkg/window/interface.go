package window

import "strings"

// UnknownTitle is reported when the foreground window cannot be resolved
const UnknownTitle = "Unknown"

// WindowInfo represents information about the currently focused window
type WindowInfo struct {
	AppName       string
	WindowTitle   string
	ProcessName   string
	DisplayServer string // "x11", "wayland" or "windows"
}

// Detector is the interface that all window detection implementations must satisfy
type Detector interface {
	// GetFocusedWindow returns information about the currently focused window
	GetFocusedWindow() (*WindowInfo, error)

	// IsAvailable checks if this detector can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type
	GetDisplayServer() string

	// Close cleans up any resources used by the detector
	Close() error
}

// ActiveTitle returns the focused window title, or UnknownTitle when the
// detector is missing, fails, or reports an empty title.
func ActiveTitle(d Detector) string {
	title, _ := ActiveTitleErr(d)
	return title
}

// ActiveTitleErr is ActiveTitle that also returns the lookup error, if any.
func ActiveTitleErr(d Detector) (string, error) {
	if d == nil {
		return UnknownTitle, nil
	}

	info, err := d.GetFocusedWindow()
	if err != nil {
		return UnknownTitle, err
	}
	if info == nil {
		return UnknownTitle, nil
	}

	title := strings.TrimSpace(info.WindowTitle)
	if title == "" {
		return UnknownTitle, nil
	}
	return title, nil
}
