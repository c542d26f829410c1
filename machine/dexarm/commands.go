package dexarm

import (
	"fmt"
	"math"
	"time"

	"github.com/mastercactapus/dexarm/coord"
	"github.com/mastercactapus/dexarm/gcode"
)

// Mode selects the motion command used by MoveTo.
type Mode string

const (
	// Linear moves with G1. It is the default.
	Linear Mode = "G1"
	// Rapid moves with G0.
	Rapid Mode = "G0"
)

const (
	DefaultFeedrate            = 2000
	DefaultRetractAcceleration = 60
)

const (
	cmdHome          = "M1112"
	cmdQueryPosition = "M114"
	cmdQueryModule   = "M888"
	cmdLaserOff      = "M5"
	cmdConveyorStop  = "M2013"
	cmdRailInit      = "M2005"

	cmdPumpIn      = "M1000"
	cmdPumpOut     = "M1001"
	cmdPumpRelease = "M1002"
	cmdPumpStop    = "M1003"
)

func mcode(code float64) gcode.Word { return gcode.Word{W: 'M', Arg: code} }

func encodeSetOrigin() string {
	return gcode.Block{{W: 'G', Arg: 92}, {W: 'X'}, {W: 'Y'}, {W: 'Z'}, {W: 'E'}}.Format(" ")
}

func encodeAcceleration(accel, travel, retract float64) string {
	return gcode.Block{mcode(204), {W: 'P', Arg: accel}, {W: 'T', Arg: travel}, {W: 'T', Arg: retract}}.String()
}

func encodeSetModule(mod Module) string {
	return gcode.Block{mcode(888), {W: 'P', Arg: float64(mod)}}.Format(" ")
}

func encodeLaserOn(power int) string {
	return gcode.Block{mcode(3), {W: 'S', Arg: float64(power)}}.Format(" ")
}

func encodeConveyor(speed int, backward bool) string {
	dir := 0.0
	if backward {
		dir = 1
	}
	return mcode(2012).String() + " " + gcode.Block{{W: 'F', Arg: float64(speed)}, {W: 'D', Arg: dir}}.String()
}

// encodeDelay uses seconds when d is a whole number of them.
func encodeDelay(d time.Duration) (string, error) {
	if d < 0 {
		return "", fmt.Errorf("negative delay %s", d)
	}
	if d%time.Second == 0 {
		return gcode.Block{{W: 'G', Arg: 4}, {W: 'S', Arg: float64(d / time.Second)}}.Format(" "), nil
	}
	ms := math.Round(float64(d) / float64(time.Millisecond))
	return gcode.Block{{W: 'G', Arg: 4}, {W: 'P', Arg: ms}}.Format(" "), nil
}

// Move describes a MoveTo call. Unset axes are left out of the command
// and keep their cached value.
type Move struct {
	X coord.Value `json:"x"`
	Y coord.Value `json:"y"`
	Z coord.Value `json:"z"`
	E coord.Value `json:"e"`

	// Feedrate defaults to DefaultFeedrate.
	Feedrate int  `json:"feedrate,omitempty"`
	Mode     Mode `json:"mode,omitempty"`

	// NoWait sends the move without waiting for the arm to acknowledge it.
	// The arm may drop the command if its buffer is full.
	NoWait bool `json:"noWait,omitempty"`
}

// round is the rounding applied to commanded coordinates.
func round(f float64) float64 { return math.RoundToEven(f) }

// encode returns the command for mv and the position it commands,
// merged over cur.
func (mv Move) encode(cur coord.Position) (string, coord.Position, error) {
	mode := mv.Mode
	switch mode {
	case "":
		mode = Linear
	case Linear, Rapid:
	default:
		return "", cur, fmt.Errorf("unknown move mode %q", mode)
	}
	feed := mv.Feedrate
	if feed < 0 {
		return "", cur, fmt.Errorf("invalid feedrate %d", feed)
	}
	for _, v := range []coord.Value{mv.X, mv.Y, mv.Z, mv.E} {
		if f, ok := v.Get(); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return "", cur, fmt.Errorf("invalid coordinate %v", f)
		}
	}
	if feed == 0 {
		feed = DefaultFeedrate
	}

	b, err := gcode.ParseLine(string(mode))
	if err != nil {
		return "", cur, err
	}
	b = append(b, gcode.Word{W: 'F', Arg: float64(feed)})

	axis := func(w byte, v coord.Value, dst *coord.Value) {
		f, ok := v.Get()
		if !ok {
			return
		}
		f = round(f)
		b = append(b, gcode.Word{W: w, Arg: f})
		*dst = coord.Some(f)
	}
	axis('X', mv.X, &cur.X)
	axis('Y', mv.Y, &cur.Y)
	axis('Z', mv.Z, &cur.Z)
	axis('E', mv.E, &cur.E)

	return b.String(), cur, nil
}
