package x11

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// IdleProbe reads the time since the last keyboard or mouse event.
type IdleProbe struct {
	client        *client
	hasXprintidle bool
}

// NewIdleProbe returns nil when neither the screensaver extension nor
// xprintidle can be used.
func NewIdleProbe() *IdleProbe {
	p := &IdleProbe{hasXprintidle: commandExists("xprintidle")}
	if os.Getenv("DISPLAY") != "" {
		if c, err := newClient(); err == nil && c.screensaver {
			p.client = c
		} else if err == nil {
			c.close()
		}
	}
	if p.client == nil && !p.hasXprintidle {
		return nil
	}
	return p
}

func (p *IdleProbe) IdleTime() (time.Duration, error) {
	if p.client != nil {
		d, err := p.client.idleTime()
		if err == nil || !p.hasXprintidle {
			return d, err
		}
	}

	output, err := exec.Command("xprintidle").Output()
	if err != nil {
		return 0, errors.Wrap(err, "xprintidle failed")
	}
	return parseXprintidle(string(output))
}

// parseXprintidle parses the millisecond count printed by xprintidle.
func parseXprintidle(output string) (time.Duration, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(output), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "unexpected xprintidle output %q", output)
	}
	if ms < 0 {
		return 0, errors.Errorf("negative idle time %d", ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (p *IdleProbe) Close() error {
	if p.client != nil {
		p.client.close()
	}
	return nil
}
