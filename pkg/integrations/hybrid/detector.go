package hybrid

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"workagent/pkg/window"
)

// Detector chains several window detectors and returns the first usable
// answer. The detector that last succeeded is tried first on the next call.
type Detector struct {
	mu        sync.Mutex
	detectors []window.Detector
	preferred int
	lastUsed  string
}

// NewDetector keeps only the available detectors, in the given order.
func NewDetector(candidates ...window.Detector) (*Detector, error) {
	d := &Detector{preferred: -1}
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if !c.IsAvailable() {
			log.WithField("display_server", c.GetDisplayServer()).Debug("Window detector unavailable")
			_ = c.Close()
			continue
		}
		d.detectors = append(d.detectors, c)
	}

	if len(d.detectors) == 0 {
		return nil, errors.New("no window detector available")
	}

	log.WithField("detectors", d.names()).Debug("Window detectors initialized")
	return d, nil
}

func (d *Detector) names() []string {
	names := make([]string, len(d.detectors))
	for i, det := range d.detectors {
		names[i] = det.GetDisplayServer()
	}
	return names
}

func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []string
	for _, i := range d.order() {
		det := d.detectors[i]
		info, err := det.GetFocusedWindow()
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", det.GetDisplayServer(), err))
			continue
		}
		if info == nil {
			errs = append(errs, fmt.Sprintf("%s: no window", det.GetDisplayServer()))
			continue
		}
		d.preferred = i
		d.lastUsed = det.GetDisplayServer()
		return info, nil
	}

	return nil, errors.Errorf("all window detectors failed (%s)", strings.Join(errs, "; "))
}

func (d *Detector) order() []int {
	order := make([]int, 0, len(d.detectors))
	if d.preferred >= 0 {
		order = append(order, d.preferred)
	}
	for i := range d.detectors {
		if i != d.preferred {
			order = append(order, i)
		}
	}
	return order
}

func (d *Detector) IsAvailable() bool {
	return len(d.detectors) > 0
}

// GetDisplayServer reports the detector that last succeeded, or the first
// one before any lookup.
func (d *Detector) GetDisplayServer() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastUsed != "" {
		return d.lastUsed
	}
	return d.detectors[0].GetDisplayServer()
}

// GetStatus describes the chain for the status command.
func (d *Detector) GetStatus() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var b strings.Builder
	b.WriteString("Window detectors:\n")
	for i, det := range d.detectors {
		marker := " "
		if i == d.preferred {
			marker = "*"
		}
		fmt.Fprintf(&b, "  %s %s\n", marker, det.GetDisplayServer())
	}
	return b.String()
}

func (d *Detector) Close() error {
	for _, det := range d.detectors {
		if err := det.Close(); err != nil {
			log.WithError(err).WithField("display_server", det.GetDisplayServer()).Warn("Error closing window detector")
		}
	}
	return nil
}
