package dexarm

import (
	"fmt"
	"strings"
)

// Module is the end-effector mounted on the arm.
type Module int

const (
	Pen Module = iota
	Laser
	Pump
	Printer3D
)

var moduleNames = [...]string{
	Pen:       "PEN",
	Laser:     "LASER",
	Pump:      "PUMP",
	Printer3D: "3D",
}

// Modules lists every module in index order.
func Modules() []Module { return []Module{Pen, Laser, Pump, Printer3D} }

func (m Module) Valid() bool { return m >= Pen && m <= Printer3D }

// String returns the name the firmware uses for m.
func (m Module) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Module(%d)", int(m))
	}
	return moduleNames[m]
}

// ParseModule accepts a firmware module name (case-insensitive),
// `printer3d`, or a module index.
func ParseModule(s string) (Module, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, m := range Modules() {
		if s == moduleNames[m] || s == fmt.Sprint(int(m)) {
			return m, nil
		}
	}
	if s == "PRINTER3D" {
		return Printer3D, nil
	}
	return Pen, fmt.Errorf("unknown module %q", s)
}

func (m Module) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid module %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Module) UnmarshalText(text []byte) error {
	v, err := ParseModule(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
