// Package console bridges the host terminal to devices.Keyboard, the way
// the host GUI/keyboard peripheral spec.md §1 places outside the CORE
// would in a real front end. It generalizes davecheney-pdp11/term.go's
// raw-mode ioctl helpers from a teletype-style KL11 console into a
// scancode feed for the BK-0010 keyboard register pair.
package console

import (
	"os"

	"golang.org/x/sys/unix"

	"pdp11emu/internal/devices"
	"pdp11emu/internal/logging"
)

// getTermios/setTermios match davecheney-pdp11/term.go's tcget/tcset pair, kept
// under the same GETA/SETA ioctl names.
const (
	getTermios = unix.TIOCGETA
	setTermios = unix.TIOCSETA
)

func tcget(fd uintptr) (*unix.Termios, error) {
	return unix.IoctlGetTermios(int(fd), getTermios)
}

func tcset(fd uintptr, p *unix.Termios) error {
	return unix.IoctlSetTermios(int(fd), setTermios, p)
}

// Console reads raw keystrokes from stdin and forwards them to a
// devices.Keyboard, restoring the terminal's original mode on Close.
type Console struct {
	fd       uintptr
	saved    *unix.Termios
	keyboard *devices.Keyboard
	log      *logging.Logger
	done     chan struct{}
}

// Open puts stdin into raw mode (no line buffering, no local echo) and
// starts a goroutine feeding scancodes to keyboard. If stdin is not a
// terminal (e.g. under `go test`, or piped input), Open still returns a
// usable Console that simply never raises TIOCGETA/TIOCSETA.
func Open(keyboard *devices.Keyboard, log *logging.Logger) (*Console, error) {
	c := &Console{fd: os.Stdin.Fd(), keyboard: keyboard, log: log, done: make(chan struct{})}

	saved, err := tcget(c.fd)
	if err != nil {
		// Not a terminal (redirected/piped stdin); run without raw mode.
		go c.pump()
		return c, nil
	}
	c.saved = saved

	raw := *saved
	raw.Lflag &^= unix.ICANON | unix.ECHO | unix.ISIG
	raw.Iflag &^= unix.IXON | unix.ICRNL
	if err := tcset(c.fd, &raw); err != nil {
		return nil, err
	}

	go c.pump()
	return c, nil
}

func (c *Console) pump() {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			c.keyboard.PushKey(uint16(buf[0]))
		}
		if err != nil {
			close(c.done)
			return
		}
	}
}

// Close restores the terminal's original mode, if it was changed.
func (c *Console) Close() error {
	if c.saved == nil {
		return nil
	}
	return tcset(c.fd, c.saved)
}
