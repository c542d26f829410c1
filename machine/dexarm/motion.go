package dexarm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mastercactapus/dexarm/coord"
	"github.com/mastercactapus/dexarm/gcode"
)

// GoHome moves the arm to its home position.
func (a *Arm) GoHome(ctx context.Context) error {
	return a.run(ctx, command{line: cmdHome, wait: true})
}

// SetWorkOrigin makes the current position the work origin.
//
// The cached position is zeroed on every axis once the command is sent.
func (a *Arm) SetWorkOrigin(ctx context.Context) error {
	return a.run(ctx, command{
		line: encodeSetOrigin(),
		wait: true,
		sent: func(s *State) {
			zero := coord.Some(0)
			s.Position = coord.Position{X: zero, Y: zero, Z: zero, E: zero}
		},
	})
}

// SetAcceleration sets the printing, travel and retract accelerations.
func (a *Arm) SetAcceleration(ctx context.Context, accel, travel, retract float64) error {
	return a.run(ctx, command{line: encodeAcceleration(accel, travel, retract), wait: true})
}

// SetModule tells the arm which module is attached.
func (a *Arm) SetModule(ctx context.Context, m Module) error {
	if !m.Valid() {
		return fmt.Errorf("invalid module %d", int(m))
	}
	return a.run(ctx, a.setModule(m))
}

func (a *Arm) setModule(m Module) command {
	return command{
		line: encodeSetModule(m),
		wait: true,
		sent: func(s *State) { s.Module = m },
	}
}

// QueryModule asks the arm which module it has attached.
//
// The cached module is updated when the arm names one. If it names none
// the cache is left alone and the cached module is returned.
func (a *Arm) QueryModule(ctx context.Context) (Module, error) {
	err := a.run(ctx, command{
		line:  cmdQueryModule,
		wait:  true,
		query: true,
		recv: func(s *State, r Response) {
			if r.Module == nil {
				return
			}
			s.Module = *r.Module
			s.Confirmed.Module = *r.Module
			s.Confirmed.HasModule = true
		},
	})
	if err != nil {
		return Pen, err
	}
	return a.Module(), nil
}

// MoveTo moves to the position described by mv.
//
// Coordinates are rounded to the nearest whole millimeter, ties to even.
// The cached position takes the commanded values as soon as the command
// is sent, and axes left unset in mv keep their cached value.
func (a *Arm) MoveTo(ctx context.Context, mv Move) error {
	a.wire.Lock()
	defer a.wire.Unlock()

	line, _, err := mv.encode(coord.Position{})
	if err != nil {
		return err
	}
	return a.exec(ctx, command{
		line: line,
		wait: !mv.NoWait,
		sent: func(s *State) {
			_, s.Position, _ = mv.encode(s.Position)
		},
	})
}

// FastMoveTo is MoveTo using rapid motion.
func (a *Arm) FastMoveTo(ctx context.Context, mv Move) error {
	mv.Mode = Rapid
	return a.MoveTo(ctx, mv)
}

// QueryPosition reads the current position and orientation from the arm
// and updates the cache with them.
func (a *Arm) QueryPosition(ctx context.Context) (coord.Position, coord.Orientation, error) {
	err := a.run(ctx, command{
		line:  cmdQueryPosition,
		wait:  true,
		query: true,
		recv: func(s *State, r Response) {
			if r.Position != nil {
				s.Position = *r.Position
				s.Confirmed.Position = *r.Position
			}
			if r.Orientation != nil {
				s.Orientation = *r.Orientation
			}
		},
	})
	if err != nil {
		return coord.Position{}, coord.Orientation{}, err
	}
	st := a.State()
	return st.Position, st.Orientation, nil
}

// Delay pauses the arm for d before it runs the next command.
func (a *Arm) Delay(ctx context.Context, d time.Duration) error {
	line, err := encodeDelay(d)
	if err != nil {
		return err
	}
	return a.run(ctx, command{line: line, wait: true})
}

// Exec sends a raw command line. When wait is set it blocks until the arm
// completes it. The cache is not touched.
func (a *Arm) Exec(ctx context.Context, line string, wait bool) error {
	return a.run(ctx, command{line: line, wait: wait})
}

// Run sends every block from r in order, waiting for each to complete.
func (a *Arm) Run(ctx context.Context, r gcode.Reader) error {
	for {
		b, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := a.Exec(ctx, b.Format(" "), true); err != nil {
			return err
		}
	}
}
