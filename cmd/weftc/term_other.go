//go:build !linux && !windows

package main

import (
	"syscall"

	"github.com/pkg/term/termios"
)

// setRawIO is the generic-unix counterpart of term_linux.go's raw-mode
// switch, for platforms (darwin, the BSDs) whose termios layout pkg/term
// covers but that aren't Linux specifically.
func setRawIO() (func(), error) {
	var tios syscall.Termios
	if err := termios.Tcgetattr(0, &tios); err != nil {
		return nil, err
	}
	a := tios
	a.Iflag &^= syscall.BRKINT | syscall.ISTRIP | syscall.IXON | syscall.IXOFF
	a.Iflag |= syscall.IGNBRK | syscall.IGNPAR
	a.Lflag &^= syscall.ICANON | syscall.ISIG | syscall.IEXTEN | syscall.ECHO
	a.Cc[syscall.VMIN] = 1
	a.Cc[syscall.VTIME] = 0
	if err := termios.Tcsetattr(0, termios.TCSANOW, &a); err != nil {
		termios.Tcsetattr(0, termios.TCSANOW, &tios)
		return nil, err
	}
	return func() {
		termios.Tcsetattr(0, termios.TCSANOW, &tios)
	}, nil
}
