// Package dexarm implements host-side control of a DexArm over its
// line-oriented gcode protocol.
//
// An Arm sends one command at a time, waits for the `ok` that completes it,
// and keeps a cache of the arm's position, orientation and module built from
// the responses it reads and the commands it sends.
package dexarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/mastercactapus/dexarm/coord"
	"github.com/mastercactapus/dexarm/machine"
)

// DefaultTimeout bounds every wait for a command to complete.
const DefaultTimeout = 30 * time.Second

// Options configure an Arm.
type Options struct {
	// Timeout bounds each wait for a command to complete. Zero selects
	// DefaultTimeout; a negative value waits forever.
	Timeout time.Duration
}

// Config describes how to reach an arm over serial.
type Config struct {
	machine.Config
	Options
}

// State is a snapshot of the cached arm state.
//
// Position and Module are last-commanded values: they are updated when a
// command is written, before the arm confirms it. Confirmed holds only what
// the arm itself has reported.
type State struct {
	Position    coord.Position    `json:"position"`
	Orientation coord.Orientation `json:"orientation"`
	Module      Module            `json:"module"`

	Confirmed Confirmed `json:"confirmed"`
}

// Confirmed is arm state taken from device responses only.
type Confirmed struct {
	Position coord.Position `json:"position"`

	// Module is valid only when HasModule is set.
	Module    Module `json:"module"`
	HasModule bool   `json:"hasModule"`
}

// Arm controls a single arm over a Conn.
type Arm struct {
	conn    *Conn
	timeout time.Duration

	// wire is held for the duration of each command exchange
	wire   sync.Mutex
	resync bool

	mx      sync.Mutex
	state   State
	stateCh chan State
}

// Dial opens the serial port in cfg and connects to the arm on it.
func Dial(ctx context.Context, cfg Config) (*Arm, error) {
	conn, err := Open(cfg.Config)
	if err != nil {
		return nil, err
	}
	return NewWithConn(ctx, conn, cfg.Options)
}

// New connects to an arm over p.
func New(ctx context.Context, p machine.Port, opt Options) (*Arm, error) {
	return NewWithConn(ctx, NewConn(p), opt)
}

// NewWithConn connects to an arm over conn. It reads the current
// position before returning; on failure conn is closed.
func NewWithConn(ctx context.Context, conn *Conn, opt Options) (*Arm, error) {
	if opt.Timeout == 0 {
		opt.Timeout = DefaultTimeout
	}
	a := &Arm{
		conn:    conn,
		timeout: opt.Timeout,
		stateCh: make(chan State, 1),
		state:   State{Module: Pen},
	}

	if _, _, err := a.QueryPosition(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read initial position: %w", err)
	}

	return a, nil
}

// Close releases the connection. Any command waiting on the arm fails,
// as does every later call. Close may be called more than once.
func (a *Arm) Close() error {
	return a.conn.Close()
}

// Closed reports whether Close has been called.
func (a *Arm) Closed() bool { return a.conn.Closed() }

// States returns a channel that receives the latest State after every
// change to the cache. Stale snapshots are dropped when nobody reads.
func (a *Arm) States() <-chan State { return a.stateCh }

// State returns the cached state.
func (a *Arm) State() State {
	a.mx.Lock()
	defer a.mx.Unlock()
	return a.state
}

// Position returns the cached position.
func (a *Arm) Position() coord.Position { return a.State().Position }

// Orientation returns the cached orientation.
func (a *Arm) Orientation() coord.Orientation { return a.State().Orientation }

// Module returns the cached module.
func (a *Arm) Module() Module { return a.State().Module }

func (a *Arm) update(fn func(*State)) {
	a.mx.Lock()
	fn(&a.state)
	s := a.state
	a.mx.Unlock()

	select {
	case a.stateCh <- s:
		return
	default:
	}
	select {
	case <-a.stateCh:
	default:
	}
	select {
	case a.stateCh <- s:
	default:
	}
}

// command is a single exchange with the arm.
type command struct {
	line string
	wait bool

	// query commands drop stale input before sending
	query bool

	// sent is applied to the cache once the line is written
	sent func(*State)

	// recv is given each response line read before completion
	recv func(*State, Response)
}

func (a *Arm) run(ctx context.Context, cmds ...command) error {
	a.wire.Lock()
	defer a.wire.Unlock()
	for _, c := range cmds {
		if err := a.exec(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// exec must be called with a.wire held.
func (a *Arm) exec(ctx context.Context, c command) error {
	if a.conn.Closed() {
		return ErrNotConnected
	}
	if c.query || a.resync {
		if err := a.conn.DiscardPendingInput(); err != nil {
			return fmt.Errorf("%s: %w", c.line, err)
		}
		a.resync = false
	}
	if err := a.conn.Send(c.line); err != nil {
		return fmt.Errorf("%s: %w", c.line, err)
	}
	if c.sent != nil {
		a.update(c.sent)
	}
	if !c.wait {
		// its completion may arrive after this discard
		a.resync = true
		if err := a.conn.DiscardPendingInput(); err != nil {
			return fmt.Errorf("%s: %w", c.line, err)
		}
		return nil
	}
	if err := a.await(ctx, c.recv); err != nil {
		// the completion for this command may still arrive
		a.resync = true
		return fmt.Errorf("%s: %w", c.line, err)
	}
	return nil
}

// await reads lines until one completes the pending command.
func (a *Arm) await(ctx context.Context, recv func(*State, Response)) error {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	for {
		line, err := a.conn.ReadLine(ctx)
		if err != nil {
			return err
		}
		if recv == nil {
			if IsCompletion(line) {
				return nil
			}
			glog.V(2).Infof("read: %s", line)
			continue
		}

		r, err := ParseResponse(line)
		if err != nil {
			return err
		}
		if r.Noise() {
			glog.V(2).Infof("read: %s", line)
		} else if r.Position != nil || r.Orientation != nil || r.Module != nil {
			a.update(func(s *State) { recv(s, r) })
		}
		if r.Completion {
			return nil
		}
	}
}
