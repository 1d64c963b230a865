package hybrid

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workagent/pkg/window"
)

type stubDetector struct {
	name      string
	available bool
	info      *window.WindowInfo
	err       error
	calls     int
	closed    bool
}

func (s *stubDetector) GetFocusedWindow() (*window.WindowInfo, error) {
	s.calls++
	return s.info, s.err
}
func (s *stubDetector) IsAvailable() bool        { return s.available }
func (s *stubDetector) GetDisplayServer() string { return s.name }
func (s *stubDetector) Close() error             { s.closed = true; return nil }

func TestNewDetectorFiltersUnavailable(t *testing.T) {
	off := &stubDetector{name: "wayland"}
	on := &stubDetector{name: "x11", available: true}

	d, err := NewDetector(off, nil, on)
	require.NoError(t, err)

	assert.True(t, off.closed)
	assert.Equal(t, []string{"x11"}, d.names())
	assert.Equal(t, "x11", d.GetDisplayServer())
	assert.True(t, d.IsAvailable())
}

func TestNewDetectorNoneAvailable(t *testing.T) {
	_, err := NewDetector(&stubDetector{name: "wayland"})
	assert.Error(t, err)
}

func TestGetFocusedWindowFallsThrough(t *testing.T) {
	wl := &stubDetector{name: "wayland", available: true, err: errors.New("Shell.Eval blocked")}
	x := &stubDetector{name: "x11", available: true, info: &window.WindowInfo{WindowTitle: "Terminal"}}

	d, err := NewDetector(wl, x)
	require.NoError(t, err)

	info, err := d.GetFocusedWindow()
	require.NoError(t, err)
	assert.Equal(t, "Terminal", info.WindowTitle)
	assert.Equal(t, "x11", d.GetDisplayServer())

	// the successful detector is tried first afterwards
	_, err = d.GetFocusedWindow()
	require.NoError(t, err)
	assert.Equal(t, 1, wl.calls)
	assert.Equal(t, 2, x.calls)
	assert.Contains(t, d.GetStatus(), "* x11")
}

func TestGetFocusedWindowAllFail(t *testing.T) {
	a := &stubDetector{name: "wayland", available: true, err: errors.New("boom")}
	b := &stubDetector{name: "x11", available: true}

	d, err := NewDetector(a, b)
	require.NoError(t, err)

	_, err = d.GetFocusedWindow()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wayland: boom")
	assert.Contains(t, err.Error(), "x11: no window")
}

func TestClose(t *testing.T) {
	a := &stubDetector{name: "x11", available: true}
	d, err := NewDetector(a)
	require.NoError(t, err)

	assert.NoError(t, d.Close())
	assert.True(t, a.closed)
}
