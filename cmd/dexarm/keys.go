package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mastercactapus/dexarm/coord"
	"github.com/mastercactapus/dexarm/machine/dexarm"
)

type KeysCommand struct {
	Step float64 `long:"step" default:"10" description:"Distance in mm to move per key press"`
}

const maxLogs = 5

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const keyHelp = "arrows x/y · pgup/pgdn z · home · +/- pick/place · o origin · p position · q quit"

// Messages from the arm
type stateMsg dexarm.State
type doneMsg struct {
	op  string
	err error
}

func waitForState(a Arm) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-a.States())
	}
}

type keysModel struct {
	a    Arm
	step float64

	state    dexarm.State
	busy     bool
	logs     []string
	quitting bool
}

func newKeysModel(a Arm, step float64) keysModel {
	return keysModel{a: a, step: step, state: a.State()}
}

func (m *keysModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// do runs fn in the background, reporting the result as a doneMsg.
func (m keysModel) do(op string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{op: op, err: fn(context.Background())}
	}
}

func (m keysModel) jog(dx, dy, dz float64) tea.Cmd {
	p := m.state.Position.Offset(dx, dy, dz)
	mv := dexarm.Move{X: p.X, Y: p.Y, Z: p.Z}
	return m.do("move "+p.String(), func(ctx context.Context) error {
		return m.a.MoveTo(ctx, mv)
	})
}

func (m keysModel) Init() tea.Cmd {
	return waitForState(m.a)
}

func (m keysModel) command(key string) tea.Cmd {
	switch key {
	case "left":
		return m.jog(-m.step, 0, 0)
	case "right":
		return m.jog(m.step, 0, 0)
	case "up":
		return m.jog(0, m.step, 0)
	case "down":
		return m.jog(0, -m.step, 0)
	case "pgup":
		return m.jog(0, 0, m.step)
	case "pgdown":
		return m.jog(0, 0, -m.step)
	case "home":
		return m.do("home", m.a.GoHome)
	case "+":
		return m.do("pick", m.a.AirPickerPick)
	case "-":
		return m.do("place", m.a.AirPickerPlace)
	case "o":
		return m.do("origin", m.a.SetWorkOrigin)
	case "p":
		return m.do("position", func(ctx context.Context) error {
			_, _, err := m.a.QueryPosition(ctx)
			return err
		})
	}
	return nil
}

func (m keysModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		cmd := m.command(msg.String())
		if cmd != nil {
			m.busy = true
		}
		return m, cmd

	case stateMsg:
		m.state = dexarm.State(msg)
		return m, waitForState(m.a)

	case doneMsg:
		m.busy = false
		if msg.err != nil {
			m.addLog(errStyle.Render(fmt.Sprintf("%s: %v", msg.op, msg.err)))
		} else {
			m.addLog(msg.op)
		}
	}

	return m, nil
}

func axisLine(name string, v coord.Value) string {
	return fmt.Sprintf("%s %s", name, valueStyle.Render(v.String()))
}

func (m keysModel) View() string {
	if m.quitting {
		return "Bye.\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("DexArm"))
	sb.WriteString(" - " + m.state.Module.String())
	if m.busy {
		sb.WriteString(statusStyle.Render("  [busy]"))
	}
	sb.WriteString("\n\n")

	p := m.state.Position
	sb.WriteString(strings.Join([]string{
		axisLine("X", p.X), axisLine("Y", p.Y), axisLine("Z", p.Z), axisLine("E", p.E),
	}, "  "))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render("confirmed " + m.state.Confirmed.Position.String()))
	sb.WriteString("\n\n")

	for _, l := range m.logs {
		sb.WriteString(l + "\n")
	}
	sb.WriteString(statusStyle.Render(keyHelp))
	sb.WriteString("\n")
	return sb.String()
}

func (c *KeysCommand) Execute(args []string) error {
	a, closeArm, err := connect(context.Background())
	if err != nil {
		return err
	}
	defer closeArm()

	p := tea.NewProgram(newKeysModel(a, c.Step))
	_, err = p.Run()
	return err
}
