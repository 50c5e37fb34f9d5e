package gateway

import (
	"chatapp-client/internal/cache"
	"chatapp-client/internal/hub"
	"chatapp-client/internal/metrics"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const DefaultHeartbeatInterval = 41250 * time.Millisecond

var (
	ErrAlreadyOpen  = errors.New("session was already opened")
	ErrNotConnected = errors.New("session is not connected")
)

// Conn is the part of *websocket.Conn the session uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Dialer func(ctx context.Context, url string) (Conn, error)

func DialWebsocket(ctx context.Context, url string) (Conn, error) {
	var dialer = websocket.Dialer{
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type Dispatcher interface {
	Dispatch(tag string, data json.RawMessage, frame []byte)
}

// Session owns one gateway connection. It is used once: after it reaches
// Disconnected a new Session is needed.
type Session struct {
	ID uuid.UUID

	mutex   sync.Mutex
	state   State
	conn    Conn
	readyAt time.Time

	writeMutex sync.Mutex

	dial       Dialer
	dispatcher Dispatcher
	hub        *hub.Hub
	cache      *cache.Cache
	metrics    *metrics.Metrics
	sugar      *zap.SugaredLogger

	done      chan struct{}
	closeOnce sync.Once
	now       func() time.Time
}

func New(dial Dialer, dispatcher Dispatcher, h *hub.Hub, c *cache.Cache, m *metrics.Metrics, sugar *zap.SugaredLogger) *Session {
	if dial == nil {
		dial = DialWebsocket
	}
	id := uuid.New()
	return &Session{
		ID:         id,
		dial:       dial,
		dispatcher: dispatcher,
		hub:        h,
		cache:      c,
		metrics:    m,
		sugar:      sugar.With("session", id.String()),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Open connects, sends the identify frame and starts the read loop. It
// returns once identify is written; Ready follows asynchronously.
func (s *Session) Open(ctx context.Context, url string, token string, compress bool) error {
	s.mutex.Lock()
	if s.state != Idle {
		s.mutex.Unlock()
		return ErrAlreadyOpen
	}
	s.state = Connecting
	s.mutex.Unlock()

	s.sugar.Debugf("Connecting to gateway %s", url)
	conn, err := s.dial(ctx, url)
	if err != nil {
		err = fmt.Errorf("couldn't connect to gateway: %w", err)
		s.close(err)
		return err
	}

	s.mutex.Lock()
	s.conn = conn
	s.mutex.Unlock()

	err = s.send(opIdentify, identifyData{
		Token:      token,
		Version:    protocolVersion,
		Properties: identifyProperties(),
		Compress:   compress,
	})
	if err != nil {
		err = fmt.Errorf("couldn't identify: %w", err)
		s.close(err)
		return err
	}

	s.mutex.Lock()
	if s.state == Connecting {
		s.state = AwaitingHandshake
	}
	s.mutex.Unlock()

	go s.readLoop(conn)
	return nil
}

func (s *Session) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.state
}

// Uptime is the time since Ready, zero when the session is not ready.
func (s *Session) Uptime() time.Duration {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != Ready {
		return 0
	}
	return s.now().Sub(s.readyAt)
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SendStatus announces idleness and the current game. Nil clears either.
func (s *Session) SendStatus(idleSince *int64, gameID *int64) error {
	return s.send(opStatus, statusData{IdleSince: idleSince, GameID: gameID})
}

func (s *Session) Close() error {
	s.close(nil)
	return nil
}

func (s *Session) close(reason error) {
	s.closeOnce.Do(func() {
		s.mutex.Lock()
		s.state = Disconnected
		conn := s.conn
		s.mutex.Unlock()

		close(s.done)
		if conn != nil {
			if err := conn.Close(); err != nil {
				s.sugar.Debug(err)
			}
		}

		if reason != nil {
			s.sugar.Warnf("Gateway disconnected: %v", reason)
		} else {
			s.sugar.Info("Gateway closed")
		}
		s.metrics.Disconnect()
		s.hub.Emit(hub.Disconnected, hub.DisconnectedPayload{Err: reason})
	})
}

func (s *Session) send(op int, data any) error {
	payload, err := json.Marshal(outgoing{Op: op, Data: data})
	if err != nil {
		return err
	}

	s.mutex.Lock()
	conn, state := s.conn, s.state
	s.mutex.Unlock()
	if conn == nil || state == Disconnected {
		return ErrNotConnected
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Session) readLoop(conn Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			s.close(err)
			return
		}
		s.handleFrame(messageType, data)
	}
}

func (s *Session) handleFrame(messageType int, data []byte) {
	text, err := DecodeFrame(messageType, data)
	if err != nil {
		s.parseError(err, data)
		return
	}

	var f frame
	if err := json.Unmarshal(text, &f); err != nil {
		s.parseError(err, text)
		return
	}

	s.hub.Emit(hub.Raw, hub.RawPayload{Tag: f.Tag, Frame: text})

	if f.Op != opDispatch {
		s.sugar.Debugf("Ignoring frame with op %d", f.Op)
		return
	}

	s.dispatcher.Dispatch(f.Tag, f.Data, text)
	if f.Tag == "READY" {
		s.ready(f.Data, text)
	}
}

func (s *Session) ready(data json.RawMessage, text []byte) {
	var p readyData
	if err := json.Unmarshal(data, &p); err != nil {
		s.parseError(err, text)
		return
	}

	interval := time.Duration(p.HeartbeatInterval) * time.Millisecond
	if interval <= 0 {
		s.sugar.Warnf("Invalid heartbeat interval %d, using %s", p.HeartbeatInterval, DefaultHeartbeatInterval)
		interval = DefaultHeartbeatInterval
	}

	s.mutex.Lock()
	if state := s.state; state != AwaitingHandshake {
		s.mutex.Unlock()
		s.sugar.Debugf("Ignoring READY in state %s", state)
		return
	}
	s.state = Ready
	s.readyAt = s.now()
	readyAt := s.readyAt
	s.mutex.Unlock()

	go s.heartbeat(interval)

	s.sugar.Infof("Gateway ready, heartbeat every %s", interval)
	s.hub.Emit(hub.Ready, hub.ReadyPayload{User: s.cache.Self(), ReadyAt: readyAt})
}

func (s *Session) heartbeat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			// a dead transport is reported by the read loop
			if err := s.send(opHeartbeat, s.now().UnixMilli()); err != nil {
				s.sugar.Warnf("Couldn't send heartbeat: %v", err)
				continue
			}
			s.metrics.Heartbeat()
		}
	}
}

func (s *Session) parseError(err error, data []byte) {
	s.sugar.Warnf("Couldn't parse frame: %v", err)
	s.metrics.ParseError()
	s.hub.Emit(hub.ParseError, hub.ParseErrorPayload{Err: err, Frame: data})
}
