//go:build !linux

package term

import "os"

// IsTerminal reports whether f is a character device. Without termios this
// is the best approximation available.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
