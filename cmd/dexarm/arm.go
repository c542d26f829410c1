package main

import (
	"context"
	"time"

	"github.com/mastercactapus/dexarm/coord"
	"github.com/mastercactapus/dexarm/gcode"
	"github.com/mastercactapus/dexarm/machine/dexarm"
)

// Arm is the part of *dexarm.Arm the front-ends drive.
type Arm interface {
	Run(context.Context, gcode.Reader) error
	Exec(ctx context.Context, line string, wait bool) error

	GoHome(context.Context) error
	SetWorkOrigin(context.Context) error
	MoveTo(context.Context, dexarm.Move) error
	Delay(context.Context, time.Duration) error
	SetAcceleration(ctx context.Context, accel, travel, retract float64) error
	QueryPosition(context.Context) (coord.Position, coord.Orientation, error)

	SetModule(context.Context, dexarm.Module) error
	QueryModule(context.Context) (dexarm.Module, error)

	SoftGripperPick(context.Context) error
	SoftGripperPlace(context.Context) error
	SoftGripperNeutral(context.Context) error
	SoftGripperStop(context.Context) error
	AirPickerPick(context.Context) error
	AirPickerPlace(context.Context) error
	AirPickerNeutral(context.Context) error
	AirPickerStop(context.Context) error
	LaserOn(ctx context.Context, power int) error
	LaserOff(context.Context) error
	ConveyorForward(ctx context.Context, speed int) error
	ConveyorBackward(ctx context.Context, speed int) error
	ConveyorStop(context.Context) error
	SlidingRailInit(context.Context) error

	State() dexarm.State
	States() <-chan dexarm.State
}

var _ Arm = &dexarm.Arm{}

// toolAction runs one tool action. n is the power or speed argument,
// where the action takes one.
type toolAction func(a Arm, ctx context.Context, n int) error

func noArg(fn func(Arm, context.Context) error) toolAction {
	return func(a Arm, ctx context.Context, _ int) error { return fn(a, ctx) }
}

// toolParams names the request parameter carrying n for tools that take one.
var toolParams = map[string]string{
	"laser":    "power",
	"conveyor": "speed",
}

// toolActions maps tool and action names to arm operations.
var toolActions = map[string]map[string]toolAction{
	"gripper": {
		"pick":    noArg(Arm.SoftGripperPick),
		"place":   noArg(Arm.SoftGripperPlace),
		"neutral": noArg(Arm.SoftGripperNeutral),
		"stop":    noArg(Arm.SoftGripperStop),
	},
	"picker": {
		"pick":    noArg(Arm.AirPickerPick),
		"place":   noArg(Arm.AirPickerPlace),
		"neutral": noArg(Arm.AirPickerNeutral),
		"stop":    noArg(Arm.AirPickerStop),
	},
	"laser": {
		"on":  Arm.LaserOn,
		"off": noArg(Arm.LaserOff),
	},
	"conveyor": {
		"forward":  Arm.ConveyorForward,
		"backward": Arm.ConveyorBackward,
		"stop":     noArg(Arm.ConveyorStop),
	},
	"rail": {
		"init": noArg(Arm.SlidingRailInit),
	},
}
