package machine

import (
	"fmt"

	tarm "github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// DefaultBaud is the baud rate used by the arm firmware.
const DefaultBaud = 115200

// Serial drivers understood by Open.
const (
	DriverTarm  = "tarm"
	DriverBugst = "bugst"
)

// Config describes a serial port to open.
type Config struct {
	// Name is the device path, e.g. /dev/ttyACM0 or COM3.
	Name string

	// Baud defaults to DefaultBaud.
	Baud int

	// Driver selects the serial library; defaults to DriverTarm.
	Driver string
}

// Open will open the serial port described by cfg.
//
// Reads on the returned Port block until data arrives.
func Open(cfg Config) (Port, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("no serial port specified")
	}
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	switch cfg.Driver {
	case "", DriverTarm:
		p, err := tarm.OpenPort(&tarm.Config{Name: cfg.Name, Baud: cfg.Baud})
		if err != nil {
			return nil, err
		}
		return tarmPort{p}, nil
	case DriverBugst:
		// bugst ports already provide ResetInputBuffer
		return bugst.Open(cfg.Name, &bugst.Mode{BaudRate: cfg.Baud})
	}
	return nil, fmt.Errorf("unknown serial driver %q", cfg.Driver)
}

type tarmPort struct{ *tarm.Port }

// ResetInputBuffer discards unread input using the driver's flush.
func (p tarmPort) ResetInputBuffer() error { return p.Flush() }
