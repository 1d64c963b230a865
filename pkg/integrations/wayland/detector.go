package wayland

import (
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"

	"workagent/pkg/window"
)

// Detector implements window.Detector for Wayland compositors
type Detector struct {
	compositor string
	hasSwaymsg bool
	hasHyprctl bool
	hasGdbus   bool
	hasQdbus   bool
	hasXprop   bool
}

// compositorProcesses maps compositor process names to the probe used for them.
var compositorProcesses = map[string]string{
	"sway":         "sway",
	"Hyprland":     "hyprland",
	"gnome-shell":  "gnome",
	"kwin_wayland": "kde",
}

// NewDetector creates a new Wayland detector
func NewDetector() *Detector {
	d := &Detector{
		hasSwaymsg: commandExists("swaymsg"),
		hasHyprctl: commandExists("hyprctl"),
		hasGdbus:   commandExists("gdbus"),
		hasQdbus:   commandExists("qdbus"),
		hasXprop:   commandExists("xprop"),
	}
	d.compositor = detectCompositor(os.Getenv("XDG_CURRENT_DESKTOP"), runningProcessNames)
	return d
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// detectCompositor trusts XDG_CURRENT_DESKTOP first and falls back to
// scanning the process table.
func detectCompositor(desktop string, processNames func() []string) string {
	desktop = strings.ToLower(desktop)
	switch {
	case strings.Contains(desktop, "sway"):
		return "sway"
	case strings.Contains(desktop, "hyprland"):
		return "hyprland"
	case strings.Contains(desktop, "gnome"), strings.Contains(desktop, "ubuntu"):
		return "gnome"
	case strings.Contains(desktop, "kde"):
		return "kde"
	}

	for _, name := range processNames() {
		if compositor, ok := compositorProcesses[name]; ok {
			return compositor
		}
	}
	return "unknown"
}

func runningProcessNames() []string {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		if name, err := p.Name(); err == nil {
			names = append(names, name)
		}
	}
	return names
}

// IsAvailable checks if Wayland detection is available
func (d *Detector) IsAvailable() bool {
	switch d.compositor {
	case "sway":
		return d.hasSwaymsg
	case "hyprland":
		return d.hasHyprctl
	case "gnome":
		return d.hasGdbus || d.hasXprop
	case "kde":
		return d.hasQdbus
	default:
		return false
	}
}

// GetDisplayServer returns "wayland"
func (d *Detector) GetDisplayServer() string {
	return "wayland"
}

// Compositor returns the detected compositor name.
func (d *Detector) Compositor() string {
	return d.compositor
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	var (
		info *window.WindowInfo
		err  error
	)
	switch d.compositor {
	case "sway":
		info, err = d.focusedWindowSway()
	case "hyprland":
		info, err = d.focusedWindowHyprland()
	case "gnome":
		info, err = d.focusedWindowGnome()
	case "kde":
		info, err = d.focusedWindowKDE()
	default:
		return nil, errors.Errorf("unsupported wayland compositor: %s", d.compositor)
	}
	if err != nil {
		return nil, err
	}
	info.DisplayServer = "wayland"
	return info, nil
}

type swayNode struct {
	Focused       bool       `json:"focused"`
	Name          string     `json:"name"`
	AppID         string     `json:"app_id"`
	PID           int32      `json:"pid"`
	WindowProps   *swayProps `json:"window_properties"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

type swayProps struct {
	Class string `json:"class"`
}

func (d *Detector) focusedWindowSway() (*window.WindowInfo, error) {
	output, err := exec.Command("swaymsg", "-t", "get_tree").Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute swaymsg")
	}
	return parseSwayTree(output)
}

// parseSwayTree walks the sway layout tree and returns the focused leaf.
func parseSwayTree(data []byte) (*window.WindowInfo, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "failed to parse sway tree")
	}

	node := findFocused(&root)
	if node == nil {
		return nil, errors.New("no focused node in sway tree")
	}

	appName := node.AppID
	if appName == "" && node.WindowProps != nil {
		appName = node.WindowProps.Class
	}

	return newWindowInfo(appName, node.Name, node.PID), nil
}

func findFocused(n *swayNode) *swayNode {
	if n.Focused {
		return n
	}
	for i := range n.Nodes {
		if f := findFocused(&n.Nodes[i]); f != nil {
			return f
		}
	}
	for i := range n.FloatingNodes {
		if f := findFocused(&n.FloatingNodes[i]); f != nil {
			return f
		}
	}
	return nil
}

type hyprlandWindow struct {
	Class string `json:"class"`
	Title string `json:"title"`
	PID   int32  `json:"pid"`
}

func (d *Detector) focusedWindowHyprland() (*window.WindowInfo, error) {
	output, err := exec.Command("hyprctl", "activewindow", "-j").Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute hyprctl")
	}
	return parseHyprlandWindow(output)
}

func parseHyprlandWindow(data []byte) (*window.WindowInfo, error) {
	var w hyprlandWindow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "failed to parse hyprctl output")
	}
	return newWindowInfo(w.Class, w.Title, w.PID), nil
}

const gnomeFocusScript = `
try {
	let win = global.get_window_actors().find(w => w.meta_window && w.meta_window.has_focus());
	if (win && win.meta_window) {
		(win.meta_window.get_wm_class() || '') + '|||' + (win.meta_window.get_title() || '');
	} else {
		'|||';
	}
} catch(e) {
	'|||';
}
`

// focusedWindowGnome asks GNOME Shell over D-Bus. Newer shells block
// Shell.Eval, in which case XWayland windows are still visible via xprop.
func (d *Detector) focusedWindowGnome() (*window.WindowInfo, error) {
	if d.hasGdbus {
		output, err := exec.Command("gdbus", "call", "--session",
			"--dest", "org.gnome.Shell",
			"--object-path", "/org/gnome/Shell",
			"--method", "org.gnome.Shell.Eval",
			gnomeFocusScript).Output()
		if err == nil {
			if info, ok := parseGnomeEval(string(output)); ok {
				return info, nil
			}
		}
	}

	if d.hasXprop {
		info, err := focusedWindowXWayland()
		if err != nil {
			return nil, errors.Wrap(err, "GNOME window detection failed: Shell.Eval blocked")
		}
		return info, nil
	}

	return nil, errors.New("GNOME window detection failed: Shell.Eval blocked and xprop unavailable")
}

// parseGnomeEval parses "(true, 'class|||title')".
func parseGnomeEval(output string) (*window.WindowInfo, bool) {
	result := strings.TrimSpace(output)
	if !strings.HasPrefix(result, "(true,") {
		return nil, false
	}
	result = strings.TrimPrefix(result, "(true,")
	result = strings.TrimSuffix(result, ")")
	result = strings.Trim(strings.TrimSpace(result), "'\"")

	parts := strings.SplitN(result, "|||", 2)
	if len(parts) != 2 || parts[0] == "" {
		return nil, false
	}
	return newWindowInfo(parts[0], parts[1], 0), true
}

func focusedWindowXWayland() (*window.WindowInfo, error) {
	if os.Getenv("DISPLAY") == "" {
		return nil, errors.New("DISPLAY not set (XWayland not available)")
	}

	rootOutput, err := exec.Command("xprop", "-root", "_NET_ACTIVE_WINDOW").CombinedOutput()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read _NET_ACTIVE_WINDOW (output: %s)", rootOutput)
	}

	windowID := parseActiveWindowID(string(rootOutput))
	if windowID == "" {
		return nil, errors.New("no active window found (focused window may be native Wayland)")
	}

	nameOutput, _ := exec.Command("xprop", "-id", windowID, "_NET_WM_NAME").Output()
	title := parseXPropString(string(nameOutput))
	if title == "" {
		nameOutput, _ = exec.Command("xprop", "-id", windowID, "WM_NAME").Output()
		title = parseXPropString(string(nameOutput))
	}

	classOutput, _ := exec.Command("xprop", "-id", windowID, "WM_CLASS").Output()
	return newWindowInfo(parseWMClass(string(classOutput)), title, 0), nil
}

// parseActiveWindowID parses "_NET_ACTIVE_WINDOW(WINDOW): window id # 0x80032b".
func parseActiveWindowID(output string) string {
	idx := strings.Index(output, "# ")
	if idx == -1 {
		return ""
	}
	id := strings.TrimSpace(output[idx+2:])
	if fields := strings.Fields(id); len(fields) > 0 {
		id = strings.TrimSuffix(fields[0], ",")
	}
	if id == "" || id == "0x0" {
		return ""
	}
	return id
}

// parseXPropString parses xprop string output like: WM_NAME(STRING) = "title"
func parseXPropString(output string) string {
	parts := strings.SplitN(output, "=", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.Trim(strings.TrimSpace(parts[1]), "\"")
}

// parseWMClass extracts class from WM_CLASS output
func parseWMClass(output string) string {
	parts := strings.SplitN(output, "=", 2)
	if len(parts) != 2 {
		return ""
	}
	classes := strings.Split(strings.TrimSpace(parts[1]), ",")
	return strings.Trim(classes[len(classes)-1], "\" ")
}

const kdeFocusScript = `
var clients = workspace.clientList();
for (var i = 0; i < clients.length; i++) {
	if (clients[i].active) {
		print(clients[i].resourceClass + "|" + clients[i].caption);
	}
}
`

func (d *Detector) focusedWindowKDE() (*window.WindowInfo, error) {
	output, err := exec.Command("qdbus", "org.kde.KWin", "/Scripting",
		"org.kde.kwin.Scripting.loadScript", kdeFocusScript).Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query KWin")
	}

	parts := strings.SplitN(strings.TrimSpace(string(output)), "|", 2)
	appName, title := parts[0], ""
	if len(parts) == 2 {
		title = parts[1]
	}
	return newWindowInfo(appName, title, 0), nil
}

func newWindowInfo(appName, title string, pid int32) *window.WindowInfo {
	if appName == "" {
		appName = window.UnknownTitle
	}

	processName := appName
	if name := lookupProcessName(pid); name != "" {
		processName = name
	}

	return &window.WindowInfo{
		AppName:     appName,
		WindowTitle: title,
		ProcessName: processName,
	}
}

func lookupProcessName(pid int32) string {
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

// Close cleans up resources
func (d *Detector) Close() error {
	return nil
}
