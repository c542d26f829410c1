package dexarm

import (
	"strconv"
	"strings"

	"github.com/mastercactapus/dexarm/coord"
)

const (
	completionToken   = "ok"
	cartesianMarker   = "X:"
	orientationMarker = "DEXARM Theta"
)

// Response is the data carried by a single response line.
//
// A line may carry any combination of fields, including none.
type Response struct {
	Line string

	// Completion is set when the line acknowledges the pending command.
	Completion bool

	Position    *coord.Position
	Orientation *coord.Orientation

	// Module is the last module name found on the line.
	Module *Module
}

// Noise reports whether the line carried nothing of interest.
func (r Response) Noise() bool {
	return !r.Completion && r.Position == nil && r.Orientation == nil && r.Module == nil
}

// IsCompletion reports whether line acknowledges a command.
func IsCompletion(line string) bool {
	return strings.Contains(line, completionToken)
}

// ParseResponse classifies line and extracts any state it carries.
//
// Every condition is checked; a line can be both a state line and
// the completion line. A state line without enough values returns
// a *ProtocolError and no partial state.
func ParseResponse(line string) (Response, error) {
	r := Response{
		Line:       line,
		Completion: IsCompletion(line),
	}

	if strings.Contains(line, cartesianMarker) {
		v, err := values(line, cartesianMarker, 4)
		if err != nil {
			return Response{Line: line}, err
		}
		r.Position = &coord.Position{
			X: coord.Some(v[0]),
			Y: coord.Some(v[1]),
			Z: coord.Some(v[2]),
			E: coord.Some(v[3]),
		}
	}

	if strings.Contains(line, orientationMarker) {
		v, err := values(line, orientationMarker, 3)
		if err != nil {
			return Response{Line: line}, err
		}
		r.Orientation = &coord.Orientation{
			A: coord.Some(v[0]),
			B: coord.Some(v[1]),
			C: coord.Some(v[2]),
		}
	}

	if m, ok := scanModule(line); ok {
		r.Module = &m
	}

	return r, nil
}

// scanModule finds module names in line; later names in
// Modules order take precedence.
func scanModule(line string) (m Module, found bool) {
	for _, mod := range Modules() {
		if strings.Contains(line, moduleNames[mod]) {
			m, found = mod, true
		}
	}
	return m, found
}

// values returns the first n numbers on line.
func values(line, marker string, n int) ([]float64, error) {
	toks := Tokenize(line)
	if len(toks) < n {
		return nil, &ProtocolError{Line: line, Marker: marker, Want: n, Got: len(toks)}
	}
	res := make([]float64, n)
	for i := range res {
		f, err := strconv.ParseFloat(toks[i], 64)
		if err != nil {
			return nil, &ProtocolError{Line: line, Marker: marker, Want: n, Got: i}
		}
		res[i] = f
	}
	return res, nil
}

// Tokenize returns, in order, every number in line.
//
// A number is an optional sign followed by digits, an optional
// fractional part, or both (`-1`, `2.50`, `.5`).
func Tokenize(line string) []string {
	var toks []string
	for i := 0; i < len(line); {
		n := numberAt(line, i)
		if n == 0 {
			i++
			continue
		}
		toks = append(toks, line[i:i+n])
		i += n
	}
	return toks
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// numberAt returns the length of the number starting at s[i], or 0.
func numberAt(s string, i int) int {
	j := i
	if j < len(s) && (s[j] == '-' || s[j] == '+') {
		j++
	}
	start := j
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	intDigits := j - start
	if j+1 < len(s) && s[j] == '.' && isDigit(s[j+1]) {
		j++
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		return j - i
	}
	if intDigits == 0 {
		return 0
	}
	return j - i
}
