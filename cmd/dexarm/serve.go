package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/golang/glog"
	"github.com/gorilla/mux"

	"github.com/mastercactapus/dexarm/coord"
	"github.com/mastercactapus/dexarm/gcode"
	"github.com/mastercactapus/dexarm/machine/dexarm"
)

type ServeCommand struct {
	Addr string `long:"addr" default:":9092" description:"Address to bind the HTTP server to"`
}

func (c *ServeCommand) Execute(args []string) error {
	a, closeArm, err := connect(context.Background())
	if err != nil {
		return err
	}
	defer closeArm()

	api := newAPI(a)
	defer api.Shutdown()

	glog.Infof("listening on %s", c.Addr)
	return http.ListenAndServe(c.Addr, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		glog.V(1).Infof("%s %s - %s", req.Method, req.URL.Path, req.RemoteAddr)
		api.ServeHTTP(w, req)
	}))
}

type api struct {
	http.Handler
	a   Arm
	sse *sse.Server

	done     chan struct{}
	stopOnce sync.Once

	// forwarded is closed once state events stop
	forwarded chan struct{}
}

type positionResponse struct {
	Position    coord.Position    `json:"position"`
	Orientation coord.Orientation `json:"orientation"`
}

type moduleResponse struct {
	Module dexarm.Module `json:"module"`
}

func newAPI(a Arm) *api {
	r := mux.NewRouter()

	s := &api{
		Handler: r,
		a:       a,
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(io.Discard, "", 0),
		}),
		done:      make(chan struct{}),
		forwarded: make(chan struct{}),
	}

	r.HandleFunc("/api/run", s.run).Methods("POST")
	r.HandleFunc("/api/home", s.simple(Arm.GoHome)).Methods("POST")
	r.HandleFunc("/api/origin", s.simple(Arm.SetWorkOrigin)).Methods("POST")
	r.HandleFunc("/api/move", s.move).Methods("POST")
	r.HandleFunc("/api/delay", s.delay).Methods("POST")
	r.HandleFunc("/api/position", s.position).Methods("GET")
	r.HandleFunc("/api/state", s.state).Methods("GET")
	r.HandleFunc("/api/module", s.getModule).Methods("GET")
	r.HandleFunc("/api/module", s.putModule).Methods("PUT")
	r.HandleFunc("/api/tool/{tool}/{action}", s.tool).Methods("POST")

	r.PathPrefix("/events/").Handler(s.sse)
	go s.forwardStates()

	return s
}

func (s *api) forwardStates() {
	defer close(s.forwarded)
	for {
		var state dexarm.State
		select {
		case <-s.done:
			return
		case state = <-s.a.States():
		}
		data, err := json.Marshal(state)
		if err != nil {
			glog.Errorf("marshal state: %v", err)
			continue
		}
		s.sse.SendMessage("/events/state", sse.SimpleMessage(string(data)))
	}
}

// Shutdown stops state events and closes all event streams.
func (s *api) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.sse.Shutdown()
	})
}

func (s *api) fail(w http.ResponseWriter, op string, err error) {
	glog.Errorf("%s: %v", op, err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		glog.Errorf("encode: %v", err)
	}
}

func (s *api) simple(fn func(Arm, context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := fn(s.a, req.Context()); err != nil {
			s.fail(w, req.URL.Path, err)
		}
	}
}

func (s *api) run(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	blocks, err := gcode.Parse(string(data))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.a.Run(req.Context(), &gcode.BlocksReader{Blocks: blocks})
	if err != nil {
		s.fail(w, "run", err)
	}
}

func (s *api) move(w http.ResponseWriter, req *http.Request) {
	var mv dexarm.Move
	if err := json.NewDecoder(req.Body).Decode(&mv); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.a.MoveTo(req.Context(), mv); err != nil {
		s.fail(w, "move", err)
		return
	}
	writeJSON(w, s.a.State().Position)
}

func (s *api) delay(w http.ResponseWriter, req *http.Request) {
	ms, err := strconv.Atoi(req.FormValue("ms"))
	if err != nil {
		http.Error(w, "invalid ms: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.a.Delay(req.Context(), time.Duration(ms)*time.Millisecond); err != nil {
		s.fail(w, "delay", err)
	}
}

func (s *api) position(w http.ResponseWriter, req *http.Request) {
	p, o, err := s.a.QueryPosition(req.Context())
	if err != nil {
		s.fail(w, "position", err)
		return
	}
	writeJSON(w, positionResponse{Position: p, Orientation: o})
}

func (s *api) state(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, s.a.State())
}

func (s *api) getModule(w http.ResponseWriter, req *http.Request) {
	m, err := s.a.QueryModule(req.Context())
	if err != nil {
		s.fail(w, "module", err)
		return
	}
	writeJSON(w, moduleResponse{Module: m})
}

func (s *api) putModule(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m, err := dexarm.ParseModule(strings.TrimSpace(string(data)))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.a.SetModule(req.Context(), m); err != nil {
		s.fail(w, "module", err)
		return
	}
	writeJSON(w, moduleResponse{Module: m})
}

func (s *api) tool(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	fn := toolActions[vars["tool"]][vars["action"]]
	if fn == nil {
		http.NotFound(w, req)
		return
	}

	var n int
	if param := toolParams[vars["tool"]]; param != "" && req.FormValue(param) != "" {
		v := req.FormValue(param)
		var err error
		n, err = strconv.Atoi(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := fn(s.a, req.Context(), n); err != nil {
		s.fail(w, vars["tool"]+" "+vars["action"], err)
	}
}
