// Package wsconn provides server-side WebSocket sessions with a bounded write
// queue and keepalive pings.
package wsconn

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// State represents the session state.
type State string

const (
	StateConnected State = "connected"
	StateClosed    State = "closed"
)

// Config holds WebSocket session configuration.
type Config struct {
	QueueSize      int
	PingInterval   time.Duration // 0 disables pings
	WriteTimeout   time.Duration
	OriginPatterns []string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:    64,
		PingInterval: 30 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Session is one accepted WebSocket connection. Send never blocks: when
// the queue is full the message is dropped and counted.
type Session struct {
	conn    *websocket.Conn
	config  Config
	queue   chan []byte
	dropped atomic.Uint64
	closed  atomic.Bool
	once    sync.Once
}

// Accept upgrades the request into a Session.
func Accept(w http.ResponseWriter, r *http.Request, config Config) (*Session, error) {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: config.OriginPatterns,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		conn:   conn,
		config: config,
		queue:  make(chan []byte, config.QueueSize),
	}, nil
}

// Send queues a text message. It reports false when the message was dropped.
func (s *Session) Send(msg []byte) bool {
	if s.closed.Load() {
		return false
	}
	select {
	case s.queue <- msg:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// SendJSON encodes v and queues it.
func (s *Session) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.Send(data)
	return nil
}

// Run writes queued messages and pings until ctx is done or the peer goes
// away. Inbound data messages are not expected and close the session.
func (s *Session) Run(ctx context.Context) error {
	ctx = s.conn.CloseRead(ctx)
	defer s.Close("")

	var ping <-chan time.Time
	if s.config.PingInterval > 0 {
		ticker := time.NewTicker(s.config.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-s.queue:
			if err := s.write(ctx, msg); err != nil {
				return normalize(err)
			}
		case <-ping:
			pingCtx, cancel := context.WithTimeout(ctx, s.config.WriteTimeout)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return normalize(err)
			}
		}
	}
}

func (s *Session) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.WriteTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, msg)
}

// Close closes the connection with a normal closure status.
func (s *Session) Close(reason string) error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		err = s.conn.Close(websocket.StatusNormalClosure, reason)
	})
	return err
}

// State returns the current session state.
func (s *Session) State() State {
	if s.closed.Load() {
		return StateClosed
	}
	return StateConnected
}

// Dropped returns how many messages were discarded because the queue was full.
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}

// normalize hides the errors a peer going away produces.
func normalize(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.EOF):
		return nil
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
		return nil
	}
	return err
}
