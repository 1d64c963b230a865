//go:build windows

package win32

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"
	"golang.org/x/sys/windows"

	"workagent/pkg/window"
)

// Detector implements window.Detector with GetForegroundWindow.
type Detector struct{}

func NewDetector() *Detector { return &Detector{} }

func (d *Detector) IsAvailable() bool        { return user32.Load() == nil }
func (d *Detector) GetDisplayServer() string { return "windows" }
func (d *Detector) Close() error             { return nil }

func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return nil, errors.New("no foreground window")
	}

	title := windowText(hwnd)

	var pid uint32
	processName := ""
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err == nil && pid != 0 {
		if proc, err := process.NewProcess(int32(pid)); err == nil {
			if name, err := proc.Name(); err == nil {
				processName = name
			}
		}
	}

	appName := strings.TrimSuffix(processName, ".exe")
	if appName == "" {
		appName = window.UnknownTitle
	}

	return &window.WindowInfo{
		AppName:       appName,
		WindowTitle:   title,
		ProcessName:   processName,
		DisplayServer: "windows",
	}, nil
}
