//go:build windows

package activity

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procGetTickCount     = kernel32.NewProc("GetTickCount")
)

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

// inputInfoSource reads the session's last input tick via GetLastInputInfo.
type inputInfoSource struct{}

func (inputInfoSource) IdleTime() (time.Duration, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	r, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if r == 0 {
		return 0, fmt.Errorf("GetLastInputInfo failed: %w", err)
	}

	tick, _, _ := procGetTickCount.Call()
	// Both counters wrap every ~49.7 days; uint32 subtraction handles it.
	idleMs := uint32(tick) - info.dwTime
	return time.Duration(idleMs) * time.Millisecond, nil
}

func platformSource() IdleSource {
	return inputInfoSource{}
}
