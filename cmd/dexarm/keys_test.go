package main

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/dexarm/machine/dexarm"
	"github.com/mastercactapus/dexarm/machine/sim"
)

func press(t *testing.T, m keysModel, key tea.KeyMsg) keysModel {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(keysModel)
	require.NotNil(t, cmd, key.String())
	assert.True(t, m.busy)

	next, _ = m.Update(cmd())
	m = next.(keysModel)
	assert.False(t, m.busy)
	return m
}

func TestKeysModel(t *testing.T) {
	d := sim.NewDevice()
	a, err := dexarm.New(context.Background(), d, dexarm.Options{Timeout: time.Second})
	require.NoError(t, err)
	defer a.Close()

	m := newKeysModel(a, 10)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "G1F2000X-10Y300Z0", d.Commands()[1])

	next, _ := m.Update(stateMsg(a.State()))
	m = next.(keysModel)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, "G1F2000X-10Y300Z10", d.Commands()[2])

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	assert.Equal(t, sim.PumpIn, d.State().Pump)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'o'}})
	assert.Len(t, m.logs, 4)
	next, _ = m.Update(stateMsg(a.State()))
	m = next.(keysModel)
	assert.Contains(t, m.View(), "PUMP")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.Nil(t, cmd)
	m = next.(keysModel)
	assert.False(t, m.busy)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
