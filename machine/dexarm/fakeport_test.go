package dexarm

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

const (
	homeReport = "X:0.00 Y:300.00 Z:0.00 E:0.00\nDEXARM Theta A:0.00 Theta B:0.00 Theta C:0.00\nok\n"
)

// fakePort answers each written command from a table of replies.
// Commands without an entry are answered with "ok".
type fakePort struct {
	mx   sync.Mutex
	cond *sync.Cond

	buf     bytes.Buffer
	closed  bool
	resets  int
	written []string
	replies map[string]string
}

func newFakePort() *fakePort {
	p := &fakePort{replies: map[string]string{
		"M114": homeReport,
	}}
	p.cond = sync.NewCond(&p.mx)
	return p
}

func (p *fakePort) setReply(cmd, reply string) {
	p.mx.Lock()
	p.replies[cmd] = reply
	p.mx.Unlock()
}

// push queues data as if the device sent it unprompted.
func (p *fakePort) push(data string) {
	p.mx.Lock()
	p.buf.WriteString(data)
	p.cond.Broadcast()
	p.mx.Unlock()
}

func (p *fakePort) Written() []string {
	p.mx.Lock()
	defer p.mx.Unlock()
	return append([]string(nil), p.written...)
}

// Unread returns the number of bytes the Conn has not yet read.
func (p *fakePort) Unread() int {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.buf.Len()
}

func (p *fakePort) Resets() int {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.resets
}

func (p *fakePort) Read(b []byte) (int, error) {
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

func (p *fakePort) Write(b []byte) (int, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	cmd := strings.TrimSuffix(string(b), "\r")
	p.written = append(p.written, cmd)
	reply, ok := p.replies[cmd]
	if !ok {
		reply = "ok\n"
	}
	p.buf.WriteString(reply)
	p.cond.Broadcast()
	return len(b), nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.resets++
	p.buf.Reset()
	return nil
}

func (p *fakePort) Close() error {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return nil
}
