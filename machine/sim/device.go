// Package sim provides an in-memory DexArm for tests and dry runs.
package sim

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/mastercactapus/dexarm/gcode"
	"github.com/mastercactapus/dexarm/machine"
	"github.com/mastercactapus/dexarm/machine/dexarm"
)

// Home is the position the arm reports after homing.
var Home = gcode.Axes{0, 300, 0, 0}

// Pump states, as set by M1000 to M1003.
const (
	PumpOff     = "off"
	PumpIn      = "in"
	PumpOut     = "out"
	PumpRelease = "release"
)

// State is the simulated hardware state.
type State struct {
	WPos     gcode.Axes
	Module   dexarm.Module
	Pump     string
	Laser    int
	Conveyor int
	Accel    [3]float64
}

// Device is a simulated arm. It implements machine.Port.
//
// Each line written is handled immediately and its response queued
// for reading.
type Device struct {
	mx   sync.Mutex
	cond *sync.Cond

	in     bytes.Buffer
	out    bytes.Buffer
	closed bool

	vm       *gcode.VM
	state    State
	commands []string
}

var _ machine.Port = &Device{}

// NewDevice returns a Device at the home position with a pen attached.
func NewDevice() *Device {
	d := &Device{vm: gcode.NewVM()}
	d.cond = sync.NewCond(&d.mx)
	d.vm.SetMPos(Home)
	d.state.Pump = PumpOff
	return d
}

// Commands returns every line received so far.
func (d *Device) Commands() []string {
	d.mx.Lock()
	defer d.mx.Unlock()
	return append([]string(nil), d.commands...)
}

// State returns the current simulated state.
func (d *Device) State() State {
	d.mx.Lock()
	defer d.mx.Unlock()
	s := d.state
	s.WPos = d.vm.WPos()
	return s
}

func (d *Device) Read(p []byte) (int, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	for d.out.Len() == 0 && !d.closed {
		d.cond.Wait()
	}
	if d.closed {
		return 0, io.EOF
	}
	return d.out.Read(p)
}

func (d *Device) Write(p []byte) (int, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.closed {
		return 0, io.ErrClosedPipe
	}
	d.in.Write(p)
	for {
		data := d.in.Bytes()
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		line := string(data[:i])
		d.in.Next(i + 1)
		if strings.TrimSpace(line) == "" {
			continue
		}
		d.commands = append(d.commands, line)
		d.handle(line)
	}
	d.cond.Broadcast()
	return len(p), nil
}

// ResetInputBuffer drops unread responses.
func (d *Device) ResetInputBuffer() error {
	d.mx.Lock()
	d.out.Reset()
	d.mx.Unlock()
	return nil
}

func (d *Device) Close() error {
	d.mx.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mx.Unlock()
	return nil
}

func (d *Device) reply(format string, args ...interface{}) {
	fmt.Fprintf(&d.out, format+"\n", args...)
}

func (d *Device) handle(line string) {
	glog.V(3).Infof("sim: %s", line)
	defer d.reply("ok")

	b, err := gcode.ParseLine(line)
	if err != nil || b == nil {
		d.reply("echo:Unknown command: %q", line)
		return
	}
	code, _ := b.Code()
	if code.W == 'G' {
		if err := d.vm.Run(b); err != nil {
			d.reply("echo:%s", err)
		}
		return
	}
	if code.W != 'M' {
		d.reply("echo:Unknown command: %q", line)
		return
	}

	arg := func(w byte) float64 {
		_, v := b.Arg(w)
		return v
	}

	switch code.Arg {
	case 114:
		p := d.vm.WPos()
		d.reply("X:%.2f Y:%.2f Z:%.2f E:%.2f", p[0], p[1], p[2], p[3])
		d.reply("DEXARM Theta A:%.2f  Theta B:%.2f  Theta C:%.2f", baseAngle(p), 0.0, 0.0)
	case 888:
		if ok, v := b.Arg('P'); ok {
			m := dexarm.Module(v)
			if !m.Valid() {
				d.reply("echo:invalid module %g", v)
				return
			}
			d.state.Module = m
			return
		}
		d.reply("The current module is %s", d.state.Module)
	case 1112:
		d.vm.SetWCO(gcode.Axes{})
		d.vm.SetMPos(Home)
	case 204:
		d.state.Accel[0] = arg('P')
		// travel and retract are both given as T, in that order
		n := 1
		for _, w := range b {
			if w.W == 'T' && n < len(d.state.Accel) {
				d.state.Accel[n] = w.Arg
				n++
			}
		}
	case 1000:
		// air picker pick, soft gripper place
		d.state.Pump = PumpIn
	case 1001:
		// soft gripper pick
		d.state.Pump = PumpOut
	case 1002:
		d.state.Pump = PumpRelease
	case 1003:
		d.state.Pump = PumpOff
	case 3:
		d.state.Laser = int(arg('S'))
	case 5:
		d.state.Laser = 0
	case 2012:
		d.state.Conveyor = int(arg('F'))
		if arg('D') == 1 {
			d.state.Conveyor = -d.state.Conveyor
		}
	case 2013:
		d.state.Conveyor = 0
	case 2005:
	default:
		d.reply("echo:Unknown command: %q", line)
	}
}

// baseAngle is the rotation of the base toward p, in degrees.
func baseAngle(p gcode.Axes) float64 {
	return math.Atan2(p[0], p[1]) * 180 / math.Pi
}
