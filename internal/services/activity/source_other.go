//go:build !windows

package activity

func platformSource() IdleSource {
	return NewXPrintIdleSource(&DefaultExecutor{})
}
