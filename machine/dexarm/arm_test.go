package dexarm

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/dexarm/coord"
	"github.com/mastercactapus/dexarm/gcode"
)

func newTestArm(t *testing.T, opt Options) (*Arm, *fakePort) {
	t.Helper()
	p := newFakePort()
	a, err := New(context.Background(), p, opt)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, p
}

func pos(x, y, z, e float64) coord.Position {
	return coord.Position{X: coord.Some(x), Y: coord.Some(y), Z: coord.Some(z), E: coord.Some(e)}
}

func TestNew(t *testing.T) {
	a, p := newTestArm(t, Options{})

	assert.Equal(t, []string{"M114"}, p.Written())
	assert.Equal(t, pos(0, 300, 0, 0), a.Position())
	assert.Equal(t, coord.Orientation{A: coord.Some(0), B: coord.Some(0), C: coord.Some(0)}, a.Orientation())
	assert.Equal(t, Pen, a.Module())
	assert.Equal(t, pos(0, 300, 0, 0), a.State().Confirmed.Position)
	assert.False(t, a.State().Confirmed.HasModule)
	assert.Equal(t, DefaultTimeout, a.timeout)
}

func TestNew_Fail(t *testing.T) {
	p := newFakePort()
	p.setReply("M114", "")
	_, err := New(context.Background(), p, Options{Timeout: 20 * time.Millisecond})
	assert.True(t, errors.Is(err, ErrDeviceTimeout))

	_, err = p.Write([]byte("M114\r"))
	assert.Error(t, err, "port should be closed")
}

func TestArm_QueryPosition(t *testing.T) {
	a, p := newTestArm(t, Options{})
	p.setReply("M114", "echo:busy\nX:10.0 Y:20.5 Z:5.0 E:0.0\nDEXARM Theta A:1.5 Theta B:-2 Theta C:3\nok\n")

	resets := p.Resets()
	gotPos, gotOrient, err := a.QueryPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pos(10, 20.5, 5, 0), gotPos)
	assert.Equal(t, coord.Orientation{A: coord.Some(1.5), B: coord.Some(-2), C: coord.Some(3)}, gotOrient)
	assert.Equal(t, pos(10, 20.5, 5, 0), a.Position())
	assert.Equal(t, resets+1, p.Resets(), "query should discard pending input")
}

func TestArm_QueryPosition_Short(t *testing.T) {
	a, p := newTestArm(t, Options{})
	p.setReply("M114", "X:10.0 Y:20.5\nok\n")

	_, _, err := a.QueryPosition(context.Background())
	var pe *ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Got)
	assert.Equal(t, pos(0, 300, 0, 0), a.Position(), "cache must keep last known value")

	// the stale ok must not complete the next command
	assert.Eventually(t, func() bool { return a.conn.buffered() > 0 }, time.Second, time.Millisecond)
	p.setReply("M1112", "")
	resets := p.Resets()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = a.GoHome(ctx)
	assert.True(t, errors.Is(err, ErrDeviceTimeout))
	assert.Equal(t, resets+1, p.Resets())
}

func TestArm_MoveTo_Invalid(t *testing.T) {
	a, p := newTestArm(t, Options{})

	err := a.MoveTo(context.Background(), Move{X: coord.Some(math.NaN())})
	assert.Error(t, err)
	assert.Equal(t, []string{"M114"}, p.Written())
	assert.Equal(t, pos(0, 300, 0, 0), a.Position())
}

func TestArm_QueryPosition_StalePartialLine(t *testing.T) {
	a, p := newTestArm(t, Options{})

	p.push("12")
	assert.Eventually(t, func() bool { return a.conn.buffered() == 2 }, time.Second, time.Millisecond)

	gotPos, _, err := a.QueryPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pos(0, 300, 0, 0), gotPos)
	assert.Equal(t, pos(0, 300, 0, 0), a.State().Confirmed.Position)
}

func TestArm_MoveTo(t *testing.T) {
	a, p := newTestArm(t, Options{})
	ctx := context.Background()

	require.NoError(t, a.MoveTo(ctx, Move{X: coord.Some(10.4)}))
	assert.Equal(t, "G1F2000X10", p.Written()[1])
	assert.Equal(t, pos(10, 300, 0, 0), a.Position())

	require.NoError(t, a.MoveTo(ctx, Move{Z: coord.Some(2.5), Feedrate: 3000}))
	assert.Equal(t, "G1F3000Z2", p.Written()[2])
	assert.Equal(t, pos(10, 300, 2, 0), a.Position())

	require.NoError(t, a.FastMoveTo(ctx, Move{Y: coord.Some(250), E: coord.Some(-1)}))
	assert.Equal(t, "G0F2000Y250E-1", p.Written()[3])
	assert.Equal(t, pos(10, 250, 2, -1), a.Position())

	assert.Equal(t, pos(0, 300, 0, 0), a.State().Confirmed.Position)

	err := a.MoveTo(ctx, Move{Mode: "G3"})
	assert.Error(t, err)
	assert.Len(t, p.Written(), 4)
}

func TestArm_MoveTo_NoWait(t *testing.T) {
	a, p := newTestArm(t, Options{Timeout: 50 * time.Millisecond})
	p.setReply("G1F2000X5", "")

	resets := p.Resets()
	require.NoError(t, a.MoveTo(context.Background(), Move{X: coord.Some(5), NoWait: true}))
	assert.Equal(t, resets+1, p.Resets())
	assert.Equal(t, coord.Some(5), a.Position().X)

	require.NoError(t, a.GoHome(context.Background()))
	assert.Equal(t, resets+2, p.Resets())
}

func TestArm_SetWorkOrigin(t *testing.T) {
	a, p := newTestArm(t, Options{})

	require.NoError(t, a.SetWorkOrigin(context.Background()))
	assert.Equal(t, "G92 X0 Y0 Z0 E0", p.Written()[1])
	assert.Equal(t, pos(0, 0, 0, 0), a.Position())
}

func TestArm_Module(t *testing.T) {
	a, p := newTestArm(t, Options{})
	ctx := context.Background()

	require.NoError(t, a.SetModule(ctx, Laser))
	assert.Equal(t, "M888 P1", p.Written()[1])
	assert.Equal(t, Laser, a.Module())
	assert.False(t, a.State().Confirmed.HasModule)

	assert.Error(t, a.SetModule(ctx, Module(9)))

	p.setReply("M888", "PEN\nPUMP\nok\n")
	m, err := a.QueryModule(ctx)
	require.NoError(t, err)
	assert.Equal(t, Pump, m)
	assert.Equal(t, Pump, a.Module())
	assert.True(t, a.State().Confirmed.HasModule)

	p.setReply("M888", "ok\n")
	m, err = a.QueryModule(ctx)
	require.NoError(t, err)
	assert.Equal(t, Pump, m)
}

func TestArm_Misc(t *testing.T) {
	a, p := newTestArm(t, Options{})
	ctx := context.Background()

	require.NoError(t, a.GoHome(ctx))
	require.NoError(t, a.SetAcceleration(ctx, 200, 300, DefaultRetractAcceleration))
	require.NoError(t, a.Delay(ctx, 250*time.Millisecond))
	require.NoError(t, a.Exec(ctx, "M2005", true))
	assert.Error(t, a.Delay(ctx, -time.Second))

	assert.Equal(t, []string{"M114", "M1112", "M204P200T300T60", "G4 P250", "M2005"}, p.Written())
}

func TestArm_Run(t *testing.T) {
	a, p := newTestArm(t, Options{})

	b, err := gcode.Parse("G1 F2000 X10\nM1112\n")
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background(), &gcode.BlocksReader{Blocks: b}))
	assert.Equal(t, []string{"M114", "G1 F2000 X10", "M1112"}, p.Written())
	assert.Equal(t, pos(0, 300, 0, 0), a.Position(), "raw commands leave the cache alone")
}

func TestArm_Timeout(t *testing.T) {
	a, p := newTestArm(t, Options{Timeout: 20 * time.Millisecond})
	p.setReply("M1112", "")

	err := a.GoHome(context.Background())
	assert.True(t, errors.Is(err, ErrDeviceTimeout))
	assert.True(t, strings.HasPrefix(err.Error(), "M1112: "))
	assert.Equal(t, pos(0, 300, 0, 0), a.Position())
}

func TestArm_Close(t *testing.T) {
	a, p := newTestArm(t, Options{Timeout: -1})
	p.setReply("M1112", "")

	errCh := make(chan error, 1)
	go func() { errCh <- a.GoHome(context.Background()) }()

	assert.Eventually(t, func() bool { return len(p.Written()) == 2 }, time.Second, time.Millisecond)
	require.NoError(t, a.Close())
	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, ErrNotConnected))
	case <-time.After(time.Second):
		t.Fatal("GoHome was not released by Close")
	}

	n := len(p.Written())
	ctx := context.Background()
	assert.Equal(t, ErrNotConnected, a.GoHome(ctx))
	assert.Equal(t, ErrNotConnected, a.MoveTo(ctx, Move{X: coord.Some(1)}))
	_, _, err := a.QueryPosition(ctx)
	assert.Equal(t, ErrNotConnected, err)
	assert.Equal(t, ErrNotConnected, a.AirPickerPick(ctx))
	assert.Len(t, p.Written(), n)
	assert.NoError(t, a.Close())
}

func TestArm_States(t *testing.T) {
	a, _ := newTestArm(t, Options{})

	require.NoError(t, a.MoveTo(context.Background(), Move{X: coord.Some(1)}))
	require.NoError(t, a.MoveTo(context.Background(), Move{X: coord.Some(2)}))

	select {
	case s := <-a.States():
		assert.Equal(t, coord.Some(2), s.Position.X)
	default:
		t.Fatal("no state delivered")
	}
}
