//go:build !rp2040 && !rp2350

// Package web is the background control surface. HTTP handlers never touch
// loop state: reads come from retained bus messages, and commands travel as
// bus requests that Process applies on the loop goroutine.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"ringlight-go/bus"
	"ringlight-go/errcode"
	"ringlight-go/keys"
	"ringlight-go/services/dispatch"
	"ringlight-go/services/ring"
	"ringlight-go/types"
)

const (
	topicWeb    = "web"
	topicState  = "state"
	topicConfig = "config"
)

type Config struct {
	Bind           string
	RequestTimeout time.Duration
	// MaxPerProcess bounds the requests applied by one Process call.
	MaxPerProcess int
}

// KeyTaker receives key events posted over HTTP; the dispatcher satisfies it.
type KeyTaker interface {
	Take(ev keys.Event) bool
}

type Ring interface {
	dispatch.Ring
	Off()
}

// Event is one WebSocket frame.
type Event struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

type Service struct {
	cfg  Config
	bus  *bus.Bus
	conn *bus.Connection // HTTP side
	loop *bus.Connection // loop side
	reqs *bus.Subscription

	keys KeyTaker
	ring Ring

	hub    *Hub
	router *mux.Router
	srv    *http.Server
	ln     net.Listener
	cancel context.CancelFunc
}

func New(cfg Config, b *bus.Bus, k KeyTaker, r Ring) *Service {
	if cfg.Bind == "" {
		cfg.Bind = ":8080"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Second
	}
	if cfg.MaxPerProcess <= 0 {
		cfg.MaxPerProcess = 4
	}
	s := &Service{
		cfg:  cfg,
		bus:  b,
		conn: b.NewConnection("web-http"),
		loop: b.NewConnection("web-loop"),
		keys: k,
		ring: r,
	}
	s.reqs = s.loop.Subscribe(bus.T(topicWeb, "#"))
	s.hub = NewHub(s.snapshotFrames)

	rt := mux.NewRouter()
	rt.HandleFunc("/api/state", s.handleState).Methods("GET")
	rt.HandleFunc("/api/config", s.handleConfig).Methods("GET")
	rt.HandleFunc("/api/key", s.handleKey).Methods("POST")
	rt.HandleFunc("/api/ring/{verb}", s.handleRing).Methods("POST")
	rt.Handle("/ws", s.hub.Handler()).Methods("GET")
	s.router = rt
	return s
}

func (s *Service) Handler() http.Handler { return s.router }

// Addr is the listening address after Setup.
func (s *Service) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Setup starts listening and the goroutines behind the HTTP side.
func (s *Service) Setup() error {
	ln, err := net.Listen("tcp", s.cfg.Bind)
	if err != nil {
		return errcode.Wrap(errcode.Unsupported, "web.setup", err)
	}
	s.ln = ln
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.srv = &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			println("[web] serve:", err.Error())
		}
	}()
	go s.hub.Run(ctx)

	states := s.conn.Subscribe(bus.T(topicState, "#"))
	go func() {
		for m := range states.Channel() {
			s.hub.BroadcastJSON(Event{Topic: m.Topic.String(), Payload: m.Payload})
		}
	}()
	go func() {
		<-ctx.Done()
		s.conn.Unsubscribe(states)
	}()

	println("[web] listening on", ln.Addr().String())
	return nil
}

func (s *Service) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.loop.Disconnect()
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// Process applies pending web requests and reports whether any of them was
// consumed as user activity. It never blocks.
func (s *Service) Process() bool {
	consumed := false
	for i := 0; i < s.cfg.MaxPerProcess; i++ {
		select {
		case m, ok := <-s.reqs.Channel():
			if !ok {
				return consumed
			}
			if s.apply(m) {
				consumed = true
			}
		default:
			return consumed
		}
	}
	return consumed
}

func (s *Service) apply(m *bus.Message) bool {
	var rep types.CommandReply
	var err error
	switch m.Topic.At(1) {
	case "key":
		rep.Consumed, err = s.applyKey(m.Payload)
	case "ring":
		verb, _ := m.Topic.At(2).(string)
		rep.Consumed, err = s.applyRing(verb, m.Payload)
	default:
		err = errcode.InvalidTopic
	}
	if err != nil {
		rep.Error = string(errcode.Of(err))
	} else {
		rep.OK = true
	}
	s.loop.Reply(m, rep, false)
	return rep.Consumed
}

func (s *Service) applyKey(p any) (bool, error) {
	req, ok := p.(types.KeyRequest)
	if !ok {
		return false, errcode.InvalidPayload
	}
	k := keys.FromIndex(req.Key)
	if !k.Valid() {
		return false, &errcode.E{C: errcode.InvalidParams, Op: "web.key", Msg: "key must be 0..11"}
	}
	typ, ok := keys.ParseType(req.Type)
	if !ok {
		return false, &errcode.E{C: errcode.InvalidParams, Op: "web.key", Msg: "unknown type " + req.Type}
	}
	return s.keys.Take(keys.Event{Key: k, Type: typ, Repeated: req.Repeated}), nil
}

func (s *Service) applyRing(verb string, p any) (bool, error) {
	cmd, ok := p.(types.RingCommand)
	if !ok {
		return false, errcode.InvalidPayload
	}
	switch verb {
	case "on":
		s.ring.On()
	case "off":
		s.ring.Off()
	case "toggle":
		s.ring.ToggleOnOff()
	case "next":
		s.ring.NextScene()
	case "max":
		s.ring.MaxBrightness()
	case "fullwidth":
		s.ring.FullWidth()
	case "brightness":
		s.ring.IncrementBrightness(cmd.Arg)
	case "width":
		s.ring.IncrementWidth(cmd.Arg)
	case "shift":
		s.ring.Shift(cmd.Arg)
	case "scene":
		sc, ok := ring.ParseScene(cmd.Scene)
		if !ok {
			return false, &errcode.E{C: errcode.InvalidParams, Op: "web.ring", Msg: "unknown scene " + cmd.Scene}
		}
		s.ring.SetScene(sc)
	default:
		return false, &errcode.E{C: errcode.Unsupported, Op: "web.ring", Msg: "unknown verb " + verb}
	}
	return true, nil
}

// -----------------------------------------------------------------------------
// HTTP handlers
// -----------------------------------------------------------------------------

func (s *Service) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.retained(topicState))
}

func (s *Service) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.retained(topicConfig))
}

func (s *Service) handleKey(w http.ResponseWriter, r *http.Request) {
	var req types.KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errcode.InvalidPayload)
		return
	}
	s.request(w, r, bus.T(topicWeb, "key"), req)
}

func (s *Service) handleRing(w http.ResponseWriter, r *http.Request) {
	var cmd types.RingCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, errcode.InvalidPayload)
		return
	}
	s.request(w, r, bus.T(topicWeb, "ring", mux.Vars(r)["verb"]), cmd)
}

func (s *Service) request(w http.ResponseWriter, r *http.Request, topic bus.Topic, payload any) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	m, err := s.conn.RequestWait(ctx, s.conn.NewMessage(topic, payload, false))
	if err != nil {
		writeError(w, err)
		return
	}
	rep, ok := m.Payload.(types.CommandReply)
	if !ok {
		writeError(w, errcode.InvalidPayload)
		return
	}
	if !rep.OK {
		writeJSON(w, statusFor(errcode.Code(rep.Error)), rep)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// retained maps the retained messages under prefix by their remaining path.
func (s *Service) retained(prefix string) map[string]any {
	out := map[string]any{}
	for _, m := range s.bus.Retained(bus.T(prefix, "#")) {
		key := strings.TrimPrefix(m.Topic.String(), prefix+"/")
		out[key] = m.Payload
	}
	return out
}

func (s *Service) snapshotFrames() [][]byte {
	var frames [][]byte
	for _, m := range s.bus.Retained(bus.T(topicState, "#")) {
		b, err := json.Marshal(Event{Topic: m.Topic.String(), Payload: m.Payload})
		if err == nil {
			frames = append(frames, b)
		}
	}
	return frames
}

func statusFor(c errcode.Code) int {
	switch c {
	case errcode.InvalidParams, errcode.InvalidPayload:
		return http.StatusBadRequest
	case errcode.Unsupported, errcode.InvalidTopic:
		return http.StatusNotFound
	case errcode.Timeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	c := errcode.Of(err)
	writeJSON(w, statusFor(c), types.ErrorReply{OK: false, Error: string(c)})
}
