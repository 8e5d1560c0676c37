package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Op names a control command
type Op string

const (
	// OpSet selects the element given as value
	OpSet Op = "set"
	// OpNext selects the following element
	OpNext Op = "next"
	// OpPrev selects the preceding element
	OpPrev Op = "prev"
	// OpBlend sets blending to the boolean value, or toggles it when no
	// value is given
	OpBlend Op = "blend"
	// OpGoogly sets googly eyes like OpBlend
	OpGoogly Op = "googly"
	// OpState only reports the current state
	OpState Op = "state"
)

// ErrUnknownOp is returned for commands with an unsupported op
var ErrUnknownOp = errors.New("unknown control op")

// Command is a control message sent by a client
type Command struct {
	Op    Op              `json:"op"`
	Value json.RawMessage `json:"value,omitempty"`
}

// writeTimeout bounds writes to slow clients
const writeTimeout = 5 * time.Second

// Server is a websocket endpoint applying Commands to a renderer and
// replying with the resulting State.  State changes are broadcast to every
// connected client.
type Server struct {
	renderer Renderer
	upgrader websocket.Upgrader
	logger   logger

	mu    sync.Mutex
	conns map[*websocket.Conn]*sync.Mutex
}

// NewServer returns a control server for the renderer
func NewServer(r Renderer) *Server {
	return &Server{
		renderer: r,
		upgrader: websocket.Upgrader{
			// control clients are local tools, not browsers on other origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// SetLogger sets the logger used by the server
func (s *Server) SetLogger(l *slog.Logger) {
	s.logger.set(l)
}

// Apply executes the command and returns the new state
func (s *Server) Apply(cmd Command) (State, error) {

	sel := s.renderer.Selector()

	switch cmd.Op {
	case OpSet:
		var element int

		if err := json.Unmarshal(cmd.Value, &element); err != nil {
			return CurrentState(s.renderer), fmt.Errorf("invalid element for set: %w", err)
		}

		sel.Set(element)

	case OpNext:
		sel.Increase()

	case OpPrev:
		sel.Decrease()

	case OpBlend:
		v, err := toggleValue(cmd.Value, s.renderer.BlendOriginalFrame())

		if err != nil {
			return CurrentState(s.renderer), err
		}

		s.renderer.SetBlendOriginalFrame(v)

	case OpGoogly:
		v, err := toggleValue(cmd.Value, s.renderer.ShowGooglyEyes())

		if err != nil {
			return CurrentState(s.renderer), err
		}

		s.renderer.SetShowGooglyEyes(v)

	case OpState:

	default:
		return CurrentState(s.renderer), fmt.Errorf("%w: %q", ErrUnknownOp, cmd.Op)
	}

	return CurrentState(s.renderer), nil
}

// toggleValue decodes a boolean value, an empty value toggles current
func toggleValue(raw json.RawMessage, current bool) (bool, error) {

	if len(raw) == 0 || string(raw) == "null" {
		return !current, nil
	}

	var v bool

	if err := json.Unmarshal(raw, &v); err != nil {
		return current, fmt.Errorf("invalid boolean value: %w", err)
	}

	return v, nil
}

// ServeHTTP upgrades the request to a websocket and processes commands until
// the client disconnects
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	conn, err := s.upgrader.Upgrade(w, r, nil)

	if err != nil {
		s.logger.get().Warn("Control upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.add(conn)
	defer s.remove(conn)

	s.logger.get().Debug("Control client connected", "remote", r.RemoteAddr)

	// greet with the current state
	if err := s.send(conn, CurrentState(s.renderer)); err != nil {
		return
	}

	for {
		var cmd Command

		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.get().Debug("Control client read failed", "remote", r.RemoteAddr, "error", err)
			}
			return
		}

		st, err := s.Apply(cmd)

		if err != nil {
			st.Error = err.Error()

			if err := s.send(conn, st); err != nil {
				return
			}

			continue
		}

		s.logger.get().Info("Control command applied", "op", cmd.Op, "element", st.Element,
			"label", st.Label)

		s.Broadcast(st)
	}
}

// Broadcast sends the state to every connected client
func (s *Server) Broadcast(st State) {

	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if err := s.send(c, st); err != nil {
			s.logger.get().Debug("Control broadcast failed", "error", err)
		}
	}
}

// send writes the state to a single client, writes to a connection are
// serialized
func (s *Server) send(conn *websocket.Conn, st State) error {

	s.mu.Lock()
	wmu, ok := s.conns[conn]
	s.mu.Unlock()

	if !ok {
		return net.ErrClosed
	}

	wmu.Lock()
	defer wmu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	return conn.WriteJSON(st)
}

// add registers a connected client
func (s *Server) add(conn *websocket.Conn) {
	s.mu.Lock()
	s.conns[conn] = &sync.Mutex{}
	s.mu.Unlock()
}

// remove unregisters and closes a client
func (s *Server) remove(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()

	conn.Close()
}

// ListenAndServe serves the control endpoint at path /ws on addr until ctx
// is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {

	mux := http.NewServeMux()
	mux.Handle("/ws", s)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.get().Info("Control endpoint listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("error serving control endpoint: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down control endpoint: %w", err)
		}

		return nil
	}
}
