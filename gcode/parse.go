package gcode

import (
	"io"
	"strings"
)

// Parse parses every block in data. Lines may end in `\n`, `\r` or both.
func Parse(data string) ([]Block, error) {
	r := NewParser(strings.NewReader(strings.Replace(data, "\r", "\n", -1)))
	var b []Block
	for {
		bl, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		b = append(b, bl)
	}
	return b, nil
}

func MustParse(data string) []Block {
	b, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return b
}
