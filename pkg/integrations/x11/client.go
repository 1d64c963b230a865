package x11

import (
	"encoding/binary"
	"strings"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

var errNoActiveWindow = errors.New("no active window found")

// client is a long-lived connection to the X server.
type client struct {
	mu          sync.Mutex
	conn        *xgb.Conn
	root        xproto.Window
	width       uint16
	height      uint16
	atoms       map[string]xproto.Atom
	screensaver bool
}

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

func newClient() (*client, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)

	c := &client{
		conn:   conn,
		root:   screen.Root,
		width:  screen.WidthInPixels,
		height: screen.HeightInPixels,
		atoms:  make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		c.atoms[name] = reply.Atom
	}

	c.screensaver = screensaver.Init(conn) == nil

	return c, nil
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *client) getProperty(win xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(c.conn, false, win, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (c *client) activeWindowFromProperty() xproto.Window {
	data, err := c.getProperty(c.root, c.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return xproto.Window(binary.LittleEndian.Uint32(data))
}

func (c *client) activeWindowFromInputFocus() xproto.Window {
	reply, err := xproto.GetInputFocus(c.conn).Reply()
	if err != nil {
		return 0
	}
	return reply.Focus
}

func (c *client) topLevelParent(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(c.conn, win).Reply()
		if err != nil || reply.Parent == c.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

func (c *client) hasName(win xproto.Window) bool {
	data, _ := c.getProperty(win, c.atoms["_NET_WM_NAME"], c.atoms["UTF8_STRING"], 1)
	if len(data) > 0 {
		return true
	}
	data, _ = c.getProperty(win, c.atoms["WM_NAME"], xproto.AtomString, 1)
	return len(data) > 0
}

// activeWindow retries briefly because window managers update
// _NET_ACTIVE_WINDOW asynchronously during focus changes.
func (c *client) activeWindow() (xproto.Window, error) {
	for i := 0; i < 5; i++ {
		win := c.activeWindowFromProperty()
		if win != 0 && c.hasName(win) {
			return win, nil
		}

		win = c.activeWindowFromInputFocus()
		if win != 0 && win != c.root {
			top := c.topLevelParent(win)
			if top != 0 && c.hasName(top) {
				return top, nil
			}
		}

		time.Sleep(20 * time.Millisecond)
	}

	return 0, errNoActiveWindow
}

func (c *client) windowName(win xproto.Window) string {
	data, err := c.getProperty(win, c.atoms["_NET_WM_NAME"], c.atoms["UTF8_STRING"], 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	data, err = c.getProperty(win, c.atoms["WM_NAME"], xproto.AtomString, 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	return ""
}

func (c *client) windowClass(win xproto.Window) (instance, class string) {
	data, err := c.getProperty(win, c.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil || len(data) == 0 {
		return "", ""
	}
	return splitWMClass(data)
}

func (c *client) windowPID(win xproto.Window) uint32 {
	data, err := c.getProperty(win, c.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(data)
}

// focused resolves the focused top-level window.
func (c *client) focused() (title, instance, class string, pid uint32, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return "", "", "", 0, errors.New("x11 connection closed")
	}

	win, err := c.activeWindow()
	if err != nil {
		return "", "", "", 0, err
	}

	instance, class = c.windowClass(win)
	return c.windowName(win), instance, class, c.windowPID(win), nil
}

// idleTime asks the MIT-SCREEN-SAVER extension for time since last input.
func (c *client) idleTime() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return 0, errors.New("x11 connection closed")
	}
	if !c.screensaver {
		return 0, errors.New("MIT-SCREEN-SAVER extension not available")
	}

	reply, err := screensaver.QueryInfo(c.conn, xproto.Drawable(c.root)).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "screensaver query failed")
	}
	return time.Duration(reply.MsSinceUserInput) * time.Millisecond, nil
}

// rootImage grabs the whole root window in ZPixmap format.
func (c *client) rootImage() (data []byte, width, height int, depth byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, 0, 0, 0, errors.New("x11 connection closed")
	}

	reply, err := xproto.GetImage(c.conn, xproto.ImageFormatZPixmap, xproto.Drawable(c.root),
		0, 0, c.width, c.height, 0xffffffff).Reply()
	if err != nil {
		return nil, 0, 0, 0, errors.Wrap(err, "GetImage failed")
	}
	return reply.Data, int(c.width), int(c.height), reply.Depth, nil
}

// splitWMClass splits the raw WM_CLASS property (two NUL-terminated
// strings) into instance and class.
func splitWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}
