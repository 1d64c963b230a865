package x11

import (
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"

	"workagent/pkg/window"
)

// Detector implements window.Detector for X11. It talks to the X server
// directly and falls back to xdotool/xprop when no connection can be made.
type Detector struct {
	client     *client
	hasXdotool bool
	hasXprop   bool
}

// NewDetector creates a new X11 detector
func NewDetector() *Detector {
	d := &Detector{
		hasXdotool: commandExists("xdotool"),
		hasXprop:   commandExists("xprop"),
	}
	if os.Getenv("DISPLAY") != "" {
		if c, err := newClient(); err == nil {
			d.client = c
		}
	}
	return d
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// IsAvailable checks if X11 detection is available
func (d *Detector) IsAvailable() bool {
	return d.client != nil || d.hasXdotool
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return "x11"
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	if d.client != nil {
		info, err := d.focusedWindowXGB()
		if err == nil || !d.hasXdotool {
			return info, err
		}
	}
	if d.hasXdotool {
		return d.focusedWindowXdotool()
	}
	return nil, errors.New("no X11 connection and xdotool not installed")
}

func (d *Detector) focusedWindowXGB() (*window.WindowInfo, error) {
	title, instance, class, pid, err := d.client.focused()
	if err != nil {
		return nil, err
	}

	processName := processNameByPID(int32(pid))

	return &window.WindowInfo{
		AppName:       appNameFrom(class, instance, processName),
		WindowTitle:   title,
		ProcessName:   processName,
		DisplayServer: "x11",
	}, nil
}

func (d *Detector) focusedWindowXdotool() (*window.WindowInfo, error) {
	idOutput, err := exec.Command("xdotool", "getactivewindow").Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get active x11 window ID")
	}
	windowID := strings.TrimSpace(string(idOutput))

	nameOutput, err := exec.Command("xdotool", "getwindowname", windowID).Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get window name")
	}
	title := strings.TrimSpace(string(nameOutput))

	class := ""
	if d.hasXprop {
		if out, err := exec.Command("xprop", "-id", windowID, "WM_CLASS").Output(); err == nil {
			class = parseWMClass(string(out))
		}
	}

	processName := ""
	if out, err := exec.Command("xdotool", "getwindowpid", windowID).Output(); err == nil {
		if pid, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 32); err == nil {
			processName = processNameByPID(int32(pid))
		}
	}

	return &window.WindowInfo{
		AppName:       appNameFrom(class, "", processName),
		WindowTitle:   title,
		ProcessName:   processName,
		DisplayServer: "x11",
	}, nil
}

// processNameByPID returns "" for unknown or sandboxed processes.
func processNameByPID(pid int32) string {
	if pid <= 0 {
		return ""
	}
	proc, err := process.NewProcess(pid)
	if err != nil {
		return ""
	}
	name, err := proc.Name()
	if err != nil {
		return ""
	}
	return name
}

// appNameFrom prefers WM_CLASS, which is set for Flatpak apps whose PID is
// not visible from the host.
func appNameFrom(class, instance, processName string) string {
	for _, name := range []string{class, instance, processName} {
		if name != "" {
			return name
		}
	}
	return window.UnknownTitle
}

// parseWMClass extracts the class name from xprop WM_CLASS output
func parseWMClass(output string) string {
	parts := strings.Split(output, "=")
	if len(parts) < 2 {
		return ""
	}

	classInfo := strings.TrimSpace(parts[1])
	classInfo = strings.Trim(classInfo, "\"")

	classes := strings.Split(classInfo, ",")
	className := strings.TrimSpace(classes[len(classes)-1])
	return strings.Trim(className, "\" ")
}

// Close releases the X connection.
func (d *Detector) Close() error {
	if d.client != nil {
		d.client.close()
	}
	return nil
}
