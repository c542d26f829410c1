package spjs

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
)

var lastID int64

func nextID() string {
	id := atomic.AddInt64(&lastID, 1)
	return "cmd_" + strconv.FormatInt(id, 36)
}

// Port is a serial port opened through the server.
type Port struct {
	sp   *SPJS
	name string
	baud int

	mx     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
}

// Open opens the named serial port on the server and returns it as
// a byte stream.
func (sp *SPJS) Open(name string, baud int) (*Port, error) {
	p := &Port{sp: sp, name: name, baud: baud}
	p.cond = sync.NewCond(&p.mx)

	sp.mx.Lock()
	if sp.ports[name] != nil {
		sp.mx.Unlock()
		return nil, fmt.Errorf("spjs: %s already open", name)
	}
	sp.ports[name] = p
	sp.mx.Unlock()

	if err := sp.WriteString(p.openCmd()); err != nil {
		sp.release(p)
		return nil, err
	}
	return p, nil
}

func (sp *SPJS) release(p *Port) {
	sp.mx.Lock()
	if sp.ports[p.name] == p {
		delete(sp.ports, p.name)
	}
	sp.mx.Unlock()
}

func (p *Port) openCmd() string {
	return fmt.Sprintf("open %s %d default", p.name, p.baud)
}

func (p *Port) receive(data string) {
	p.mx.Lock()
	p.buf.WriteString(data)
	p.cond.Broadcast()
	p.mx.Unlock()
}

func (p *Port) Read(b []byte) (int, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	for p.buf.Len() == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return 0, io.EOF
	}
	return p.buf.Read(b)
}

// Write sends b to the port and returns once the server has it.
func (p *Port) Write(b []byte) (int, error) {
	p.mx.Lock()
	closed := p.closed
	p.mx.Unlock()
	if closed {
		return 0, ErrClosed
	}

	err := p.sp.SendJSON(JSON{Port: p.name, Data: []Data{{Data: string(b), ID: nextID()}}})
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// ResetInputBuffer drops data received but not yet read.
func (p *Port) ResetInputBuffer() error {
	p.mx.Lock()
	p.buf.Reset()
	p.mx.Unlock()
	return nil
}

// Close closes the port on the server. Pending reads return io.EOF.
func (p *Port) Close() error {
	p.mx.Lock()
	if p.closed {
		p.mx.Unlock()
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	p.mx.Unlock()

	p.sp.release(p)
	err := p.sp.WriteString("close " + p.name)
	if err == ErrClosed {
		return nil
	}
	return err
}
