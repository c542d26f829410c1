package coord

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Value is a single axis reading that may be unset.
//
// The zero Value is unset. An unset Value is never treated as zero.
type Value struct {
	v  float64
	ok bool
}

// None is the unset Value.
var None Value

// Some returns a Value holding v.
func Some(v float64) Value { return Value{v: v, ok: true} }

// Get returns the held value and whether it is set.
func (v Value) Get() (float64, bool) { return v.v, v.ok }

func (v Value) IsSet() bool { return v.ok }

// Or returns the held value, or def if unset.
func (v Value) Or(def float64) float64 {
	if !v.ok {
		return def
	}
	return v.v
}

// Add returns v offset by d. An unset Value stays unset.
func (v Value) Add(d float64) Value {
	if !v.ok {
		return v
	}
	v.v += d
	return v
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func (v Value) String() string {
	if !v.ok {
		return "-"
	}
	return formatFloat(v.v)
}

// MarshalJSON encodes an unset Value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON decodes null as an unset Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = None
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}
