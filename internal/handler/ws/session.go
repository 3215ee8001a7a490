package ws

import (
	"context"
	"fmt"
	"time"

	domrepo "ChartSense/internal/domain/repository"
	transport "ChartSense/internal/service/metrics"
	applogger "ChartSense/pkg/logger"

	"github.com/gorilla/websocket"
)

// State is the lifecycle of one streaming connection.
type State int

const (
	StateOpen State = iota
	StateReceiving
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateReceiving:
		return "receiving"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MessageHandler produces the ordered replies for one inbound message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, connID string, raw []byte) []interface{}
}

// SessionConfig holds per-connection transport limits.
type SessionConfig struct {
	ReadLimit    int64
	WriteTimeout time.Duration
	PongWait     time.Duration
	PingInterval time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.ReadLimit <= 0 {
		c.ReadLimit = 16 << 20
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	return c
}

// Session drives one connection. Messages are read and handled strictly in
// order on the calling goroutine; only control frames are written from the
// keepalive goroutine.
type Session struct {
	id      string
	conn    *websocket.Conn
	handler MessageHandler
	cfg     SessionConfig
	metrics domrepo.Metrics
	l       *applogger.Logger
	state   State
}

func NewSession(id string, conn *websocket.Conn, handler MessageHandler, cfg SessionConfig, metrics domrepo.Metrics, l *applogger.Logger) *Session {
	if l == nil {
		l = applogger.Nop()
	}
	return &Session{
		id:      id,
		conn:    conn,
		handler: handler,
		cfg:     cfg.withDefaults(),
		metrics: metrics,
		l:       l.With(applogger.String("conn_id", id)),
		state:   StateOpen,
	}
}

// ID returns the connection id.
func (s *Session) ID() string { return s.id }

// Run serves the connection until the client leaves, a transport error
// occurs, ctx ends, or handling panics. It returns the final state.
func (s *Session) Run(ctx context.Context) (final State) {
	done := make(chan struct{})
	s.metrics.SessionOpened()
	s.l.Info("session opened")

	defer func() {
		if r := recover(); r != nil {
			s.state = StateErrored
			s.l.Error("session panic", applogger.Error(fmt.Errorf("%v", r)))
			s.metrics.RecordError("session_panic")
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "internal error"),
				time.Now().Add(time.Second))
		}
		close(done)
		_ = s.conn.Close()
		s.metrics.SessionClosed()
		transport.Disconnects.WithLabelValues(s.state.String()).Inc()
		s.l.Info("session closed", applogger.String("state", s.state.String()))
		final = s.state
	}()

	s.conn.SetReadLimit(s.cfg.ReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	go s.keepalive(ctx, done)

	s.state = StateReceiving
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) && ctx.Err() == nil {
				s.l.Debug("read failed", applogger.Error(err))
			}
			s.state = StateClosed
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		transport.FrameBytes.Observe(float64(len(raw)))

		for _, out := range s.handler.HandleMessage(ctx, s.id, raw) {
			if err := s.write(out); err != nil {
				s.l.Debug("write failed", applogger.Error(err))
				s.state = StateClosed
				return
			}
		}
	}
}

func (s *Session) write(v interface{}) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

// keepalive pings the client until the session ends. When ctx ends first
// the client is told the server is going away.
func (s *Session) keepalive(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			_ = s.conn.Close()
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				return
			}
		}
	}
}
