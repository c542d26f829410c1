package dexarm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by every operation after Close.
	ErrNotConnected = errors.New("dexarm: not connected")

	// ErrDeviceTimeout is returned when the arm does not complete a
	// command within the configured timeout.
	ErrDeviceTimeout = errors.New("dexarm: device timeout")
)

// ConnectionError is returned when the port cannot be opened.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("dexarm: open %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError is returned when a response line carries a state
// marker but not enough values for it.
type ProtocolError struct {
	Line   string
	Marker string
	Want   int
	Got    int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("dexarm: malformed %q response: want %d values, got %d: %q", e.Marker, e.Want, e.Got, e.Line)
}

// DecodeError is returned when received bytes are not valid text.
// The offending line is dropped.
type DecodeError struct {
	Data []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("dexarm: invalid utf-8 in response: %q", e.Data)
}
