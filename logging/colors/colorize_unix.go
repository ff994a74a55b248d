//go:build !windows
// +build !windows

package colors

import "fmt"

var disabled bool

// EnableColor is a no-op on non-Windows systems since their terminals support ANSI escape codes already.
func EnableColor() {}

// DisableColor turns all coloring functions into pass-throughs, e.g. when the user asked for uncolored output.
func DisableColor() {
	disabled = true
}

// Colorize returns the string representation of s wrapped in the ANSI code c.
// Source: https://github.com/rs/zerolog/blob/4fff5db29c3403bc26dee9895e12a108aacc0203/console.go
func Colorize(s any, c Color) string {
	if disabled {
		return fmt.Sprintf("%v", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}
