// Package spjs is a client for Serial Port JSON Server, a websocket
// bridge to serial ports on another host.
package spjs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// ErrClosed is returned after the client or port is closed.
var ErrClosed = errors.New("spjs: closed")

// ReconnectDelay is how long to wait between connection attempts.
var ReconnectDelay = 3 * time.Second

type SPJS struct {
	url string

	mx          sync.RWMutex
	serialPorts []SerialPort
	ports       map[string]*Port

	outgoing chan message

	closeOnce sync.Once
	done      chan struct{}
}

type message struct {
	done    chan struct{}
	payload []byte
}

type DataFrame struct {
	Port string `json:"P"`
	Data string `json:"D"`
}
type CmdStatus struct {
	Cmd        string
	QueueCount int `json:"QCnt"`
	Type       []string
	Data       []string `json:"D"`
	ID         string   `json:"Id"`
}

type ErrorMessage struct {
	Error string
}
type SerialPortList struct {
	SerialPorts []SerialPort
}
type SerialPort struct {
	Name                      string
	Friendly                  string
	SerialNumber              string
	DeviceClass               string
	IsOpen                    bool
	IsPrimary                 bool
	RelatedNames              []string
	Baud                      int
	BufferAlgorithm           string
	AvailableBufferAlgorithms []string
	Ver                       float64
	USBVID                    string
	USBPID                    string
	FeedRateOverride          float64
}

// NewSPJS starts a client for the server at url, e.g. ws://host:8989/ws.
//
// The connection is made in the background and re-made whenever it drops.
func NewSPJS(url string) *SPJS {
	sp := &SPJS{
		url:      url,
		ports:    make(map[string]*Port),
		outgoing: make(chan message, 1000),
		done:     make(chan struct{}),
	}

	go sp.loop()

	return sp
}

// SerialPorts returns the port list last reported by the server.
func (sp *SPJS) SerialPorts() []SerialPort {
	sp.mx.RLock()
	defer sp.mx.RUnlock()
	return append([]SerialPort(nil), sp.serialPorts...)
}

// Close stops the client. Open ports stop receiving data.
func (sp *SPJS) Close() error {
	sp.closeOnce.Do(func() { close(sp.done) })
	return nil
}

func parseSPJSMessage(data []byte, msg map[string]json.RawMessage) (val interface{}, err error) {
	check := func(fieldName string, v interface{}) bool {
		if msg[fieldName] == nil {
			return false
		}
		val = v
		err = json.Unmarshal(data, val)
		return true
	}
	if check("Error", &ErrorMessage{}) {
		return
	}
	if check("SerialPorts", &SerialPortList{}) {
		return
	}
	if check("Type", &CmdStatus{}) {
		return
	}
	if check("D", &DataFrame{}) {
		return
	}

	return nil, errors.New("unknown message: " + string(data))
}

func (sp *SPJS) handle(val interface{}) {
	switch msg := val.(type) {
	case *DataFrame:
		sp.mx.RLock()
		p := sp.ports[msg.Port]
		sp.mx.RUnlock()
		if p == nil {
			glog.V(2).Infof("spjs: data for unopened port %s: %q", msg.Port, msg.Data)
			return
		}
		p.receive(msg.Data)
	case *SerialPortList:
		sp.mx.Lock()
		sp.serialPorts = msg.SerialPorts
		var reopen []*Port
		for _, port := range msg.SerialPorts {
			if p := sp.ports[port.Name]; p != nil && !port.IsOpen {
				reopen = append(reopen, p)
			}
		}
		sp.mx.Unlock()
		for _, p := range reopen {
			go sp.WriteString(p.openCmd())
		}
	case *ErrorMessage:
		glog.Warningf("spjs: %s", msg.Error)
	case *CmdStatus:
		glog.V(2).Infof("spjs: %s %s", msg.Cmd, msg.ID)
	}
}

func (sp *SPJS) readLoop(ws *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			glog.Errorf("spjs: read: %v", err)
			return
		}
		if !bytes.HasPrefix(data, []byte("{")) {
			// ignore echo messages
			continue
		}
		var msg map[string]json.RawMessage
		err = json.Unmarshal(data, &msg)
		if err != nil {
			glog.Errorf("spjs: read: %v", err)
			continue
		}
		val, err := parseSPJSMessage(data, msg)
		if err != nil {
			glog.Errorf("spjs: parse: %v", err)
			continue
		}
		sp.handle(val)
	}
}

func (sp *SPJS) loop() {
	var nextUp message

reconnect:
	for {
		select {
		case <-sp.done:
			return
		default:
		}

		glog.Infof("spjs: connecting to %s", sp.url)
		ws, _, err := websocket.DefaultDialer.Dial(sp.url, nil)
		if err != nil {
			glog.Errorf("spjs: connect: %v", err)
			select {
			case <-sp.done:
				return
			case <-time.After(ReconnectDelay):
			}
			continue
		}
		glog.Info("spjs: connected")
		ch := make(chan struct{})
		go sp.readLoop(ws, ch)
		go sp.WriteString("list") // refresh list on reconnect

		for {
			if nextUp.done != nil {
				err = ws.WriteMessage(websocket.TextMessage, nextUp.payload)
				if err != nil {
					glog.Errorf("spjs: send: %v", err)
					ws.Close()
					continue reconnect
				}
				close(nextUp.done)
				nextUp.done = nil
			}

			select {
			case <-sp.done:
				ws.Close()
				return
			case <-ch:
				ws.Close()
				continue reconnect
			case nextUp = <-sp.outgoing:
			}
		}
	}
}

type JSON struct {
	Port string `json:"P"`
	Data []Data
}
type Data struct {
	Data string `json:"D"`
	ID   string `json:"Id"`
}

func (sp *SPJS) send(payload []byte) error {
	ch := make(chan struct{})
	select {
	case sp.outgoing <- message{done: ch, payload: payload}:
	case <-sp.done:
		return ErrClosed
	}
	select {
	case <-ch:
		return nil
	case <-sp.done:
		return ErrClosed
	}
}

// SendJSON queues data for a port and blocks until it is sent.
func (sp *SPJS) SendJSON(v JSON) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sendjson: %w", err)
	}
	return sp.send(append([]byte("sendjson "), data...))
}

// WriteString sends a raw server command.
func (sp *SPJS) WriteString(data string) error {
	return sp.send([]byte(data))
}
