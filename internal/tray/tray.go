// Package tray shows the agent in the system notification area with a
// pause toggle and an exit item.
package tray

import (
	"github.com/getlantern/systray"
	log "github.com/sirupsen/logrus"

	"workagent/internal/tracker"
)

const appName = "Work Agent"

// Controller maps the tray menu onto the shared run/pause state.
type Controller struct {
	state *tracker.State
}

func NewController(state *tracker.State) *Controller {
	return &Controller{state: state}
}

// Toggle flips the pause flag and returns the new value.
func (c *Controller) Toggle() bool {
	paused := c.state.TogglePause()
	if paused {
		log.Info("Tracking paused")
	} else {
		log.Info("Tracking resumed")
	}
	return paused
}

// Exit stops both cadence loops.
func (c *Controller) Exit() {
	log.Info("Exit requested from tray")
	c.state.Stop()
}

func (c *Controller) Title() string {
	if c.state.IsPaused() {
		return appName + " (Paused)"
	}
	return appName + " (Active)"
}

func (c *Controller) ToggleLabel() string {
	if c.state.IsPaused() {
		return "Resume"
	}
	return "Pause"
}

func (c *Controller) Icon() []byte {
	return iconBytes(c.state.IsPaused())
}

// Run blocks on the tray event loop until Exit is clicked or the state is
// stopped elsewhere. It must be called from the main goroutine.
func (c *Controller) Run() {
	systray.Run(c.onReady, func() {
		log.Debug("Tray event loop finished")
	})
}

func (c *Controller) onReady() {
	status := systray.AddMenuItem(c.Title(), "")
	status.Disable()
	systray.AddSeparator()
	mToggle := systray.AddMenuItem(c.ToggleLabel(), "Pause or resume tracking")
	mExit := systray.AddMenuItem("Exit", "Stop the agent")

	refresh := func() {
		systray.SetIcon(c.Icon())
		systray.SetTitle(c.Title())
		systray.SetTooltip(c.Title())
		status.SetTitle(c.Title())
		mToggle.SetTitle(c.ToggleLabel())
	}
	refresh()

	go c.watch(mToggle.ClickedCh, mExit.ClickedCh, refresh, systray.Quit)
}

// watch serves menu clicks and redraws the tray whenever the pause flag
// changes, including changes made through the status API. It returns after
// calling quit once the state is stopped.
func (c *Controller) watch(toggle, exit <-chan struct{}, refresh, quit func()) {
	for {
		select {
		case <-toggle:
			c.Toggle()
		case <-exit:
			c.Exit()
		case <-c.state.PauseChanged():
			refresh()
		case <-c.state.Done():
			quit()
			return
		}
	}
}
