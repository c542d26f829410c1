package gcode

import "io"

// Reader is a source of Blocks, such as a Parser.
type Reader interface {
	Read() (Block, error)
}

var _ Reader = &Parser{}

type BlocksReader struct {
	Blocks []Block
	n      int
}

func (b *BlocksReader) Read() (Block, error) {
	if b.n == len(b.Blocks) {
		return nil, io.EOF
	}

	b.n++
	return b.Blocks[b.n-1], nil
}
