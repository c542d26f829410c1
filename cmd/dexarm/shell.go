package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/mastercactapus/dexarm/coord"
	"github.com/mastercactapus/dexarm/gcode"
	"github.com/mastercactapus/dexarm/machine/dexarm"
)

type ShellCommand struct{}

const armKey = "$arm"

func (c *ShellCommand) Execute(args []string) error {
	a, closeArm, err := connect(context.Background())
	if err != nil {
		return err
	}
	defer closeArm()

	sh := newShell(a)
	if len(args) > 0 {
		return sh.Process(args...)
	}
	sh.Run()
	return nil
}

func newShell(a Arm) *ishell.Shell {
	sh := ishell.New()
	sh.Set(armKey, a)
	sh.SetPrompt("dexarm> ")
	for _, cmd := range shellCommands {
		sh.AddCmd(cmd)
	}
	return sh
}

func armFrom(c *ishell.Context) Arm {
	return c.Get(armKey).(Arm)
}

// armCmd wraps fn to run against the shell's arm, printing any error.
func armCmd(fn func(c *ishell.Context, a Arm) error) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if err := fn(c, armFrom(c)); err != nil {
			c.Err(err)
		}
	}
}

// parseMove reads a move from words such as `X10 Y-5 F3000`.
func parseMove(args []string) (dexarm.Move, error) {
	var mv dexarm.Move
	b, err := gcode.ParseLine(strings.Join(args, " "))
	if err != nil {
		return mv, err
	}
	for _, w := range b {
		switch w.W {
		case 'X':
			mv.X = coord.Some(w.Arg)
		case 'Y':
			mv.Y = coord.Some(w.Arg)
		case 'Z':
			mv.Z = coord.Some(w.Arg)
		case 'E':
			mv.E = coord.Some(w.Arg)
		case 'F':
			mv.Feedrate = int(w.Arg)
		default:
			return mv, fmt.Errorf("unexpected word %s", w)
		}
	}
	return mv, nil
}

func intArg(args []string, i int, name string) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", name)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}

func floatArg(args []string, i int, name string, def float64) (float64, error) {
	if len(args) <= i {
		return def, nil
	}
	f, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return f, nil
}

// toolCmd drives one of toolActions. Actions taking a power or
// speed read it from the second argument.
func toolCmd(tool string) *ishell.Cmd {
	var names []string
	for action := range toolActions[tool] {
		names = append(names, action)
	}
	sort.Strings(names)

	return &ishell.Cmd{
		Name: tool,
		Help: tool + " " + strings.Join(names, "|"),
		Func: armCmd(func(c *ishell.Context, a Arm) error {
			if len(c.Args) == 0 {
				return errors.New("usage: " + tool + " " + strings.Join(names, "|"))
			}
			fn := toolActions[tool][c.Args[0]]
			if fn == nil {
				return fmt.Errorf("unknown %s action %q", tool, c.Args[0])
			}
			var n int
			if len(c.Args) > 1 {
				var err error
				n, err = intArg(c.Args, 1, "value")
				if err != nil {
					return err
				}
			}
			return fn(a, context.Background(), n)
		}),
	}
}

var shellCommands = []*ishell.Cmd{
	{
		Name: "home",
		Help: "move to the home position",
		Func: armCmd(func(c *ishell.Context, a Arm) error {
			return a.GoHome(context.Background())
		}),
	},
	{
		Name: "origin",
		Help: "make the current position the work origin",
		Func: armCmd(func(c *ishell.Context, a Arm) error {
			return a.SetWorkOrigin(context.Background())
		}),
	},
	{
		Name:    "move",
		Aliases: []string{"g1"},
		Help:    "move X<n> Y<n> Z<n> E<n> F<feed>",
		Func: armCmd(func(c *ishell.Context, a Arm) error {
			mv, err := parseMove(c.Args)
			if err != nil {
				return err
			}
			return a.MoveTo(context.Background(), mv)
		}),
	},
	{
		Name:    "fast",
		Aliases: []string{"g0"},
		Help:    "rapid move X<n> Y<n> Z<n> E<n> F<feed>",
		Func: armCmd(func(c *ishell.Context, a Arm) error {
			mv, err := parseMove(c.Args)
			if err != nil {
				return err
			}
			mv.Mode = dexarm.Rapid
			return a.MoveTo(context.Background(), mv)
		}),
	},
	{
		Name:    "pos",
		Aliases: []string{"m114"},
		Help:    "read the position from the arm",
		Func: armCmd(func(c *ishell.Context, a Arm) error {
			p, o, err := a.QueryPosition(context.Background())
			if err != nil {
				return err
			}
			c.Println(p)
			c.Println(o)
			return nil
		}),
	},
	{
		Name: "state",
		Help: "print the cached state",
		Func: armCmd(func(c *ishell.Context, a Arm) error {
			s := a.State()
			c.Printf("%s %s %s\n", s.Position, s.Orientation, s.Module)
			return nil
		}),
	},
	{
		Name: "module",
		Help: "module [PEN|LASER|PUMP|3D]: set or read the module",
		Func: armCmd(func(c *ishell.Context, a Arm) error {
			if len(c.Args) == 0 {
				m, err := a.QueryModule(context.Background())
				if err != nil {
					return err
				}
				c.Println(m)
				return nil
			}
			m, err := dexarm.ParseModule(c.Args[0])
			if err != nil {
				return err
			}
			return a.SetModule(context.Background(), m)
		}),
	},
	{
		Name: "delay",
		Help: "delay <duration>: pause the arm, e.g. delay 500ms",
		Func: armCmd(func(c *ishell.Context, a Arm) error {
			if len(c.Args) == 0 {
				return errors.New("missing duration")
			}
			d, err := time.ParseDuration(c.Args[0])
			if err != nil {
				return err
			}
			return a.Delay(context.Background(), d)
		}),
	},
	{
		Name: "accel",
		Help: "accel <accel> <travel> [retract]: set accelerations",
		Func: armCmd(func(c *ishell.Context, a Arm) error {
			if len(c.Args) < 2 {
				return errors.New("usage: accel <accel> <travel> [retract]")
			}
			accel, err := floatArg(c.Args, 0, "accel", 0)
			if err != nil {
				return err
			}
			travel, err := floatArg(c.Args, 1, "travel", 0)
			if err != nil {
				return err
			}
			retract, err := floatArg(c.Args, 2, "retract", dexarm.DefaultRetractAcceleration)
			if err != nil {
				return err
			}
			return a.SetAcceleration(context.Background(), accel, travel, retract)
		}),
	},
	{
		Name: "send",
		Help: "send a raw command and wait for it",
		Func: armCmd(func(c *ishell.Context, a Arm) error {
			if len(c.Args) == 0 {
				return errors.New("missing command")
			}
			return a.Exec(context.Background(), strings.Join(c.Args, " "), true)
		}),
	},
	toolCmd("gripper"),
	toolCmd("picker"),
	toolCmd("laser"),
	toolCmd("conveyor"),
	toolCmd("rail"),
}
