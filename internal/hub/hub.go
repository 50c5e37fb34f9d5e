package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Hub delivers notifications to local listeners in emit order, and mirrors
// them onto redis channels when a redis client is set.
type Hub struct {
	local       LocalPubSub
	sugar       *zap.SugaredLogger
	redisClient *redis.Client
	redisPrefix string

	// held while payloads are encoded, since they point into shared state
	guard sync.Locker
}

func New(sugar *zap.SugaredLogger, redisClient *redis.Client, redisPrefix string) *Hub {
	h := &Hub{
		sugar:       sugar,
		redisClient: redisClient,
		redisPrefix: redisPrefix,
	}
	h.local.Setup()
	return h
}

// Guard sets the lock taken around every payload encoding done by Prepare.
func (h *Hub) Guard(locker sync.Locker) {
	h.guard = locker
}

func (h *Hub) Subscribe(msgType string, listener Listener) {
	h.local.Subscribe(msgType, listener)
}

// SubscribeAll registers a listener for every notification type.
func (h *Hub) SubscribeAll(listener Listener) {
	h.local.Subscribe(allTypes, listener)
}

func (h *Hub) Emit(msgType string, payload any) {
	for _, listener := range h.local.Listeners(msgType) {
		h.deliver(listener, msgType, payload)
	}

	if h.redisClient == nil || msgType == Raw {
		return
	}
	if err := h.publishRedis(msgType, payload); err != nil {
		h.sugar.Errorf("Couldn't publish %s to redis: %v", msgType, err)
	}
}

func (h *Hub) deliver(listener Listener, msgType string, payload any) {
	defer func() {
		if recovered := recover(); recovered != nil {
			h.sugar.Errorf("Listener for %s panicked: %v", msgType, recovered)
		}
	}()

	listener(msgType, payload)
}

// PrepareMessage frames a notification as its type, a newline, then JSON.
func PrepareMessage(msgType string, payload any) ([]byte, error) {
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(msgType) + 1 + len(jsonBytes))
	buf.WriteString(msgType)
	buf.WriteByte('\n')
	buf.Write(jsonBytes)
	return buf.Bytes(), nil
}

// Prepare is PrepareMessage under the hub's guard.
func (h *Hub) Prepare(msgType string, payload any) ([]byte, error) {
	if h.guard != nil {
		h.guard.Lock()
		defer h.guard.Unlock()
	}
	return PrepareMessage(msgType, payload)
}

func (h *Hub) publishRedis(msgType string, payload any) error {
	message, err := h.Prepare(msgType, payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channel := fmt.Sprintf("%s:%s", h.redisPrefix, msgType)
	return h.redisClient.Publish(ctx, channel, message).Err()
}
