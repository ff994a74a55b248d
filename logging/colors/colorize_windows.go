//go:build windows
// +build windows

package colors

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32           = syscall.NewLazyDLL("kernel32.dll")
	procGetConsoleMode = kernel32.NewProc("GetConsoleMode")
)

var enabled bool

// EnableColor makes a kernel call to determine whether the stdout console supports ANSI escape codes on this
// Windows system.
func EnableColor() {
	var mode uint32
	if r, _, _ := procGetConsoleMode.Call(os.Stdout.Fd(), uintptr(unsafe.Pointer(&mode))); r != 0 && mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0 {
		enabled = false
	} else {
		enabled = true
	}
}

// DisableColor turns all coloring functions into pass-throughs, e.g. when the user asked for uncolored output.
func DisableColor() {
	enabled = false
}

// Colorize returns the string representation of s wrapped in the ANSI code c, if ANSI is supported on this Windows
// version. Otherwise, the uncolored string is returned.
func Colorize(s any, c Color) string {
	if !enabled {
		return fmt.Sprintf("%s", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}
