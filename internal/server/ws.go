package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/verte-zerg/typetest/internal/generator"
	"github.com/verte-zerg/typetest/internal/session"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	maxMessage    = 4096
)

// Message types exchanged over the socket.
const (
	TypeHello     = "hello"
	TypeRender    = "render"
	TypeError     = "error"
	TypeKey       = "key"
	TypeBackspace = "backspace"
	TypeEnd       = "end"
	TypeReset     = "reset"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// ClientMessage is one input event from a remote sink. Key may hold several
// characters when the client batches or pastes input.
type ClientMessage struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
}

// ServerMessage is one frame sent to a remote sink.
type ServerMessage struct {
	Type         string                `json:"type"`
	ConnectionID string                `json:"connectionId,omitempty"`
	Mode         string                `json:"mode,omitempty"`
	Instructions []session.Instruction `json:"instructions,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// wsSink serializes writes from the runner and the read loop.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) send(msg ServerMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	return s.conn.WriteJSON(msg)
}

func (s *wsSink) Render(instrs []session.Instruction) error {
	return s.send(ServerMessage{Type: TypeRender, Instructions: instrs})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := modeFromQuery(q.Get, s.cfg.Practice.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := decorationFromQuery(q.Get, s.cfg.Practice)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	connID := uuid.NewString()
	logger := s.logger.With("conn", connID)
	s.conns.Add(1)
	defer s.conns.Add(-1)
	logger.Info("client connected", "mode", mode.String(), "remote", r.RemoteAddr)
	defer logger.Info("client disconnected")

	sink := &wsSink{conn: conn}
	if err := sink.send(ServerMessage{Type: TypeHello, ConnectionID: connID, Mode: mode.String()}); err != nil {
		logger.Warn("hello failed", "err", err)
		return
	}

	ctrl := session.NewController(session.Config{
		Mode:     mode,
		Options:  opts,
		PoolSize: s.cfg.Practice.PoolSize,
	}, generator.NewSeeded(s.Vocabulary()))
	runner := session.NewRunner(ctrl, sink, s.cfg.Reporter,
		session.WithTickInterval(s.cfg.TickInterval),
		session.WithLogger(logger),
	)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("runner stopped", "err", err)
		}
	}()
	go func() {
		defer wg.Done()
		pingLoop(ctx, conn)
	}()

	s.readLoop(ctx, conn, sink, runner, logger)
	cancel()
	wg.Wait()
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sink *wsSink, runner *session.Runner, logger *slog.Logger) {
	conn.SetReadLimit(maxMessage)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "err", err)
			}
			return
		}
		events, ok := eventsFor(msg, time.Now())
		if !ok {
			if err := sink.send(ServerMessage{Type: TypeError, Error: "unknown message type " + msg.Type}); err != nil {
				return
			}
			continue
		}
		for _, ev := range events {
			if err := runner.Send(ctx, ev); err != nil {
				return
			}
		}
	}
}

// eventsFor maps a client message onto session events stamped with at.
func eventsFor(msg ClientMessage, at time.Time) ([]session.Event, bool) {
	switch msg.Type {
	case TypeKey:
		var events []session.Event
		for _, r := range msg.Key {
			events = append(events, session.Rune(r, at))
		}
		return events, true
	case TypeBackspace:
		return []session.Event{session.Backspace(at)}, true
	case TypeEnd:
		return []session.Event{session.End(at)}, true
	case TypeReset:
		return []session.Event{session.Reset(at)}, true
	default:
		return nil, false
	}
}

func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}
