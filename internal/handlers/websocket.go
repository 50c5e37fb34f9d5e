package handlers

import (
	"chatapp-client/internal/hub"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// streams fans hub notifications out to websocket subscribers. A subscriber
// that falls behind loses notifications instead of blocking the hub.
type streams struct {
	mutex   sync.RWMutex
	clients map[uuid.UUID]chan []byte
	hub     *hub.Hub
	sugar   *zap.SugaredLogger
}

func newStreams(h *hub.Hub, sugar *zap.SugaredLogger) *streams {
	return &streams{
		clients: make(map[uuid.UUID]chan []byte),
		hub:     h,
		sugar:   sugar,
	}
}

func (s *streams) add() (uuid.UUID, <-chan []byte) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := uuid.New()
	ch := make(chan []byte, 64)
	s.clients[id] = ch
	return id, ch
}

func (s *streams) remove(id uuid.UUID) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.clients, id)
}

func (s *streams) count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.clients)
}

func (s *streams) broadcast(msgType string, payload any) {
	if msgType == hub.Raw || s.count() == 0 {
		return
	}

	message, err := s.hub.Prepare(msgType, payload)
	if err != nil {
		s.sugar.Errorf("Couldn't encode %s for streams: %v", msgType, err)
		return
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for id, ch := range s.clients {
		select {
		case ch <- message:
		default:
			s.sugar.Warnf("Stream [%s] is full, dropping %s", id, msgType)
		}
	}
}

// HandleWebSocket streams every notification as its type, a newline, then
// JSON. Anything the peer sends is discarded.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.sugar.Debug(err)
		return
	}
	defer conn.Close()

	id, messages := h.streams.add()
	defer h.streams.remove(id)
	h.sugar.Debugf("Stream [%s] connected", id)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			h.sugar.Debugf("Stream [%s] disconnected", id)
			return
		case message := <-messages:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.sugar.Debugf("Stream [%s] write failed: %v", id, err)
				return
			}
		}
	}
}
