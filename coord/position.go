package coord

import "fmt"

// Position is a cartesian arm position in millimeters.
type Position struct {
	X Value `json:"x"`
	Y Value `json:"y"`
	Z Value `json:"z"`
	E Value `json:"e"`
}

func (p Position) Equal(b Position) bool {
	return p == b
}

// Complete reports whether every axis is set.
func (p Position) Complete() bool {
	return p.X.ok && p.Y.ok && p.Z.ok && p.E.ok
}

// Offset will add the given deltas to the set axes of p.
//
// Unset axes are left unset.
func (p Position) Offset(dx, dy, dz float64) Position {
	p.X = p.X.Add(dx)
	p.Y = p.Y.Add(dy)
	p.Z = p.Z.Add(dz)
	return p
}

func (p Position) String() string {
	return fmt.Sprintf("X:%s Y:%s Z:%s E:%s", p.X, p.Y, p.Z, p.E)
}

// Orientation holds the rotational axis angles reported by the arm, in degrees.
type Orientation struct {
	A Value `json:"a"`
	B Value `json:"b"`
	C Value `json:"c"`
}

func (o Orientation) String() string {
	return fmt.Sprintf("A:%s B:%s C:%s", o.A, o.B, o.C)
}
