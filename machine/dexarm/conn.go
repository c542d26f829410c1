package dexarm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/golang/glog"

	"github.com/mastercactapus/dexarm/machine"
)

// MaxLineLength bounds a received line. Longer input without a line
// terminator is dropped.
const MaxLineLength = 4096

// Conn is a line-oriented connection to the arm.
//
// It does not interpret the lines it carries.
type Conn struct {
	port machine.Port

	mx      sync.Mutex
	pending []byte
	readErr error

	// ready is signaled when pending grows
	ready chan struct{}
	done  chan struct{}

	closeOnce sync.Once
	closeCh   chan struct{}
}

// Open will open the serial port described by cfg.
func Open(cfg machine.Config) (*Conn, error) {
	p, err := machine.Open(cfg)
	if err != nil {
		return nil, &ConnectionError{Port: cfg.Name, Err: err}
	}
	return NewConn(p), nil
}

// NewConn creates a new Conn using the provided port for data.
func NewConn(p machine.Port) *Conn {
	c := &Conn{
		port:    p,
		ready:   make(chan struct{}, 1),
		done:    make(chan struct{}),
		closeCh: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.done)
	buf := make([]byte, 1024)
	for {
		n, err := c.port.Read(buf)
		c.mx.Lock()
		c.pending = append(c.pending, buf[:n]...)
		if len(c.pending) > MaxLineLength && bytes.IndexAny(c.pending, "\r\n") == -1 {
			glog.V(2).Infof("drop: %d bytes without line end", len(c.pending))
			c.pending = c.pending[:0]
		}
		if err != nil {
			c.readErr = err
		}
		c.mx.Unlock()

		select {
		case c.ready <- struct{}{}:
		default:
		}
		if err != nil {
			return
		}
	}
}

// nextLine removes and returns the first complete line in pending,
// skipping empty lines. It must be called with c.mx held.
func (c *Conn) nextLine(eof bool) ([]byte, bool) {
	for {
		i := bytes.IndexAny(c.pending, "\r\n")
		if i == -1 {
			if eof && len(c.pending) > 0 {
				line := c.pending
				c.pending = nil
				return line, true
			}
			return nil, false
		}
		line := append([]byte(nil), c.pending[:i]...)
		c.pending = c.pending[i+1:]
		if len(line) > 0 {
			return line, true
		}
	}
}

// buffered returns the number of received bytes not yet read.
func (c *Conn) buffered() int {
	c.mx.Lock()
	defer c.mx.Unlock()
	return len(c.pending)
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

// Send writes cmd followed by the line terminator.
func (c *Conn) Send(cmd string) error {
	if c.Closed() {
		return ErrNotConnected
	}
	glog.V(2).Infof("send: %s", cmd)
	_, err := io.WriteString(c.port, cmd+"\r")
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func decodeLine(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &DecodeError{Data: data}
	}
	return string(data), nil
}

// ReadLine will block until the next line is received. Lines end
// with `\n` or `\r`; empty lines are skipped.
//
// It returns ErrDeviceTimeout if ctx passes its deadline and
// ErrNotConnected if the Conn is closed while waiting.
func (c *Conn) ReadLine(ctx context.Context) (string, error) {
	for {
		if c.Closed() {
			return "", ErrNotConnected
		}

		var eof bool
		select {
		case <-c.done:
			eof = true
		default:
		}

		c.mx.Lock()
		line, ok := c.nextLine(eof)
		readErr := c.readErr
		c.mx.Unlock()
		if ok {
			return decodeLine(line)
		}
		if eof {
			return "", fmt.Errorf("read: %w", readErr)
		}

		select {
		case <-c.ready:
		case <-c.done:
		case <-c.closeCh:
			return "", ErrNotConnected
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", ErrDeviceTimeout
			}
			return "", ctx.Err()
		}
	}
}

// DiscardPendingInput drops everything received but not yet read,
// including any partial line.
func (c *Conn) DiscardPendingInput() error {
	if c.Closed() {
		return ErrNotConnected
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	err := c.port.ResetInputBuffer()
	if len(c.pending) > 0 {
		glog.V(2).Infof("discard: %q", c.pending)
	}
	c.pending = c.pending[:0]
	if err != nil {
		return fmt.Errorf("reset input: %w", err)
	}
	return nil
}

// Close will close the underlying port. A pending ReadLine
// returns ErrNotConnected.
//
// Only the first call closes the port; later calls return nil.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.port.Close()
	})
	return err
}
