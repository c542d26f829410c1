package dexarm

import "context"

// tool sends line after switching to the need module, if it is not
// already the cached module.
func (a *Arm) tool(ctx context.Context, need Module, line string) error {
	a.wire.Lock()
	defer a.wire.Unlock()

	if a.Module() != need {
		if err := a.exec(ctx, a.setModule(need)); err != nil {
			return err
		}
	}
	return a.exec(ctx, command{line: line, wait: true})
}

// SoftGripperPick closes the soft gripper.
func (a *Arm) SoftGripperPick(ctx context.Context) error {
	return a.tool(ctx, Pump, cmdPumpOut)
}

// SoftGripperPlace opens the soft gripper.
func (a *Arm) SoftGripperPlace(ctx context.Context) error {
	return a.tool(ctx, Pump, cmdPumpIn)
}

// SoftGripperNeutral releases the soft gripper to its resting state.
func (a *Arm) SoftGripperNeutral(ctx context.Context) error {
	return a.tool(ctx, Pump, cmdPumpRelease)
}

// SoftGripperStop stops the pump driving the soft gripper.
func (a *Arm) SoftGripperStop(ctx context.Context) error {
	return a.tool(ctx, Pump, cmdPumpStop)
}

// AirPickerPick starts suction.
func (a *Arm) AirPickerPick(ctx context.Context) error {
	return a.tool(ctx, Pump, cmdPumpIn)
}

// AirPickerPlace releases suction.
func (a *Arm) AirPickerPlace(ctx context.Context) error {
	return a.tool(ctx, Pump, cmdPumpRelease)
}

func (a *Arm) AirPickerNeutral(ctx context.Context) error {
	return a.tool(ctx, Pump, cmdPumpRelease)
}

func (a *Arm) AirPickerStop(ctx context.Context) error {
	return a.tool(ctx, Pump, cmdPumpStop)
}

// LaserOn turns the laser on at power, 0 to 255.
func (a *Arm) LaserOn(ctx context.Context, power int) error {
	return a.tool(ctx, Laser, encodeLaserOn(power))
}

func (a *Arm) LaserOff(ctx context.Context) error {
	return a.tool(ctx, Laser, cmdLaserOff)
}

// ConveyorForward runs the conveyor belt forward at speed.
func (a *Arm) ConveyorForward(ctx context.Context, speed int) error {
	return a.run(ctx, command{line: encodeConveyor(speed, false), wait: true})
}

// ConveyorBackward runs the conveyor belt backward at speed.
func (a *Arm) ConveyorBackward(ctx context.Context, speed int) error {
	return a.run(ctx, command{line: encodeConveyor(speed, true), wait: true})
}

func (a *Arm) ConveyorStop(ctx context.Context) error {
	return a.run(ctx, command{line: cmdConveyorStop, wait: true})
}

// SlidingRailInit homes the sliding rail.
func (a *Arm) SlidingRailInit(ctx context.Context) error {
	return a.run(ctx, command{line: cmdRailInit, wait: true})
}
