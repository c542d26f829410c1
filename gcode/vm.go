package gcode

import (
	"errors"
)

// Axes holds values for the X, Y, Z and E axes, in that order.
type Axes [4]float64

func (a Axes) Add(b Axes) Axes {
	for i := range a {
		a[i] += b[i]
	}
	return a
}

func (a Axes) Sub(b Axes) Axes {
	for i := range a {
		a[i] -= b[i]
	}
	return a
}

func axisIndex(w byte) int {
	switch w {
	case 'X':
		return 0
	case 'Y':
		return 1
	case 'Z':
		return 2
	case 'E':
		return 3
	}
	return -1
}

// VM will track state and interpret motion gcode.
type VM struct {
	pos Axes
	wco Axes

	modal [256]float64

	feed float64
}

// NewVM constructs a new VM with default state.
func NewVM() *VM {
	vm := &VM{}

	// marlin defaults
	vm.modal[ModalGroupMotion] = 0
	vm.modal[ModalGroupDistanceMode] = 90
	vm.modal[ModalGroupUnits] = 21

	return vm
}

func (vm VM) Inches() bool         { return vm.modal[ModalGroupUnits] == 20 }
func (vm VM) RelativeMotion() bool { return vm.modal[ModalGroupDistanceMode] == 91 }
func (vm VM) Feed() float64        { return vm.feed }

// WPos returns the position relative to the work origin.
func (vm VM) WPos() Axes {
	return vm.pos.Sub(vm.wco)
}
func (vm VM) MPos() Axes {
	return vm.pos
}
func (vm *VM) SetMPos(p Axes) {
	vm.pos = p
}
func (vm *VM) SetWCO(p Axes) {
	vm.wco = p
}
func (vm VM) WCO() Axes {
	return vm.wco
}

func isSupported(g Word) bool {
	if g.IsAxis() {
		return true
	}

	switch g.W {
	case 'G':
		switch g.Arg {
		case 0, 1, 4, 20, 21, 90, 91, 92:
			return true
		}
	case 'F', 'P', 'S':
		return true
	}

	return false
}

func applyBlock(p Axes, b Block, mul float64) Axes {
	for _, g := range b {
		if i := axisIndex(g.W); i >= 0 {
			p[i] = g.Arg * mul
		}
	}

	return p
}

// Run will interpret a single block, updating the tracked position.
func (vm *VM) Run(b Block) error {
	err := b.Validate()
	if err != nil {
		return err
	}
	var setOrigin bool
	for _, g := range b {
		if !isSupported(g) {
			return errors.New("unsupported code: " + g.String())
		}
		mg := g.ModalGroup()
		if mg != ModalGroupNone && mg != ModalGroupNonModal {
			vm.modal[mg] = g.Arg
		}
		if g == (Word{W: 'G', Arg: 92}) {
			setOrigin = true
		}
		if g.W == 'F' {
			vm.feed = g.Arg
		}
	}

	args := b.Args()
	var axes Block
	for _, g := range args {
		if g.IsAxis() {
			axes = append(axes, g)
		}
	}
	if len(axes) == 0 {
		return nil
	}

	mul := 1.0
	if vm.Inches() {
		mul = 25.4
	}

	if setOrigin {
		// G92: the current position becomes the given work position
		want := applyBlock(vm.WPos(), axes, mul)
		vm.wco = vm.pos.Sub(want)
		return nil
	}

	// apply motion
	if vm.RelativeMotion() {
		vm.pos = vm.pos.Add(applyBlock(Axes{}, axes, mul))
	} else {
		vm.pos = applyBlock(vm.WPos(), axes, mul).Add(vm.wco)
	}

	return nil
}
