//go:build windows

package win32

import (
	"time"
	"unsafe"

	"github.com/pkg/errors"
)

// IdleProbe reads GetLastInputInfo.
type IdleProbe struct{}

func NewIdleProbe() *IdleProbe { return &IdleProbe{} }

func (p *IdleProbe) IdleTime() (time.Duration, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ok, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ok == 0 {
		return 0, errors.Wrap(err, "GetLastInputInfo failed")
	}

	now, _, _ := procGetTickCount.Call()
	return idleSince(uint32(now), info.dwTime), nil
}
