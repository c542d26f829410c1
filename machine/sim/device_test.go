package sim

import (
	"bufio"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/dexarm/gcode"
	"github.com/mastercactapus/dexarm/machine/dexarm"
)

func send(t *testing.T, d *Device, r *bufio.Reader, cmd string) []string {
	t.Helper()
	_, err := d.Write([]byte(cmd + "\r"))
	require.NoError(t, err)

	var lines []string
	for {
		s, err := r.ReadString('\n')
		require.NoError(t, err)
		s = s[:len(s)-1]
		lines = append(lines, s)
		if s == "ok" {
			return lines
		}
	}
}

func TestDevice(t *testing.T) {
	d := NewDevice()
	defer d.Close()
	r := bufio.NewReader(d)

	assert.Equal(t, []string{
		"X:0.00 Y:300.00 Z:0.00 E:0.00",
		"DEXARM Theta A:0.00  Theta B:0.00  Theta C:0.00",
		"ok",
	}, send(t, d, r, "M114"))

	send(t, d, r, "G1F2000X10Y200")
	assert.Equal(t, gcode.Axes{10, 200, 0, 0}, d.State().WPos)

	send(t, d, r, "G92 X0 Y0 Z0 E0")
	assert.Equal(t, gcode.Axes{}, d.State().WPos)
	send(t, d, r, "G0F2000Z-5")
	assert.Equal(t, gcode.Axes{0, 0, -5, 0}, d.State().WPos)

	send(t, d, r, "M1112")
	assert.Equal(t, Home, d.State().WPos)

	assert.Equal(t, []string{"The current module is PEN", "ok"}, send(t, d, r, "M888"))
	send(t, d, r, "M888 P1")
	assert.Equal(t, dexarm.Laser, d.State().Module)

	send(t, d, r, "M3 S120")
	assert.Equal(t, 120, d.State().Laser)
	send(t, d, r, "M2012 F80D1")
	assert.Equal(t, -80, d.State().Conveyor)
	send(t, d, r, "M204P200T300T60")
	assert.Equal(t, [3]float64{200, 300, 60}, d.State().Accel)

	assert.Equal(t, []string{`echo:Unknown command: "hello"`, "ok"}, send(t, d, r, "hello"))

	assert.Len(t, d.Commands(), 11)
}

func TestDevice_Close(t *testing.T) {
	d := NewDevice()
	require.NoError(t, d.Close())

	_, err := d.Write([]byte("M114\r"))
	assert.Error(t, err)
	_, err = d.Read(make([]byte, 8))
	assert.Error(t, err)
}
