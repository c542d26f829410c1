package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func runAll(t *testing.T, vm *VM, data string) {
	for _, b := range MustParse(data) {
		assert.NoError(t, vm.Run(b), b.String())
	}
}

func TestVM_Absolute(t *testing.T) {
	vm := NewVM()
	vm.SetMPos(Axes{0, 300, 0, 0})

	runAll(t, vm, "G1F2000X10Y200\nG0Z-5")
	assert.Equal(t, Axes{10, 200, -5, 0}, vm.WPos())
	assert.Equal(t, 2000.0, vm.Feed())
}

func TestVM_Relative(t *testing.T) {
	vm := NewVM()
	runAll(t, vm, "G91\nG1X1\nG1X1Y-2")
	assert.True(t, vm.RelativeMotion())
	assert.Equal(t, Axes{2, -2, 0, 0}, vm.WPos())
}

func TestVM_SetOrigin(t *testing.T) {
	vm := NewVM()
	vm.SetMPos(Axes{0, 300, 0, 0})

	runAll(t, vm, "G92 X0 Y0 Z0 E0")
	assert.Equal(t, Axes{}, vm.WPos())
	assert.Equal(t, Axes{0, 300, 0, 0}, vm.MPos())

	runAll(t, vm, "G1X10")
	assert.Equal(t, Axes{10, 300, 0, 0}, vm.MPos())
}

func TestVM_Unsupported(t *testing.T) {
	vm := NewVM()
	assert.Error(t, vm.Run(Block{{W: 'M', Arg: 3}}))
}
