package machine

import "io"

// A Port represents the byte link to a device.
//
// It is implemented by native serial ports, the SPJS bridge
// and the simulator.
type Port interface {
	io.ReadWriteCloser

	// ResetInputBuffer drops any received bytes that have not been read.
	ResetInputBuffer() error
}
