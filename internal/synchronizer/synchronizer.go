package synchronizer

import (
	"chatapp-client/internal/cache"
	"chatapp-client/internal/correlation"
	"chatapp-client/internal/hub"
	"chatapp-client/internal/metrics"
	"chatapp-client/internal/typing"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Synchronizer applies dispatch events to the cache and emits the resulting
// notifications through the hub.
type Synchronizer struct {
	cache        *cache.Cache
	hub          *hub.Hub
	correlations *correlation.Correlations
	typing       *typing.Tracker
	metrics      *metrics.Metrics
	sugar        *zap.SugaredLogger
}

type Option func(*options)

type options struct {
	typingWindow time.Duration
}

func WithTypingWindow(window time.Duration) Option {
	return func(o *options) {
		o.typingWindow = window
	}
}

func New(c *cache.Cache, h *hub.Hub, correlations *correlation.Correlations, m *metrics.Metrics, sugar *zap.SugaredLogger, opts ...Option) *Synchronizer {
	o := options{typingWindow: typing.Window}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Synchronizer{
		cache:        c,
		hub:          h,
		correlations: correlations,
		metrics:      m,
		sugar:        sugar,
	}
	s.typing = typing.New(o.typingWindow, s.typingStarted, s.typingStopped)
	return s
}

func (s *Synchronizer) Typing() *typing.Tracker {
	return s.typing
}

// Dispatch decodes and applies one dispatch event. A payload that fails to
// decode produces a parse error notification and leaves the cache untouched.
func (s *Synchronizer) Dispatch(tag string, data json.RawMessage, frame []byte) {
	event := NewEvent(tag, data, frame)
	s.metrics.Event(tag)

	if err := s.apply(event); err != nil {
		s.sugar.Warnf("Couldn't apply %s event: %v", tag, err)
		s.metrics.ParseError()
		s.hub.Emit(hub.ParseError, hub.ParseErrorPayload{
			Err:   err,
			Frame: frame,
		})
	}
}

func (s *Synchronizer) apply(event Event) error {
	switch event.Kind {
	case KindReady:
		return s.handleReady(event.Data)
	case KindMessageCreate:
		return s.handleMessageCreate(event.Data)
	case KindMessageDelete:
		return s.handleMessageDelete(event.Data)
	case KindMessageUpdate:
		return s.handleMessageUpdate(event.Data)
	case KindServerCreate:
		return s.handleServerCreate(event.Data)
	case KindServerUpdate:
		return s.handleServerUpdate(event.Data)
	case KindServerDelete:
		return s.handleServerDelete(event.Data)
	case KindBanAdd:
		return s.handleBan(event.Data, hub.UserBanned)
	case KindBanRemove:
		return s.handleBan(event.Data, hub.UserUnbanned)
	case KindChannelCreate:
		return s.handleChannelCreate(event.Data)
	case KindChannelUpdate:
		return s.handleChannelUpdate(event.Data)
	case KindChannelDelete:
		return s.handleChannelDelete(event.Data)
	case KindMemberAdd:
		return s.handleMemberAdd(event.Data)
	case KindMemberRemove:
		return s.handleMemberRemove(event.Data)
	case KindMemberUpdate:
		return s.handleMemberUpdate(event.Data)
	case KindUserUpdate:
		return s.handleUserUpdate(event.Data)
	case KindPresenceUpdate:
		return s.handlePresenceUpdate(event.Data)
	case KindTypingStart:
		return s.handleTypingStart(event.Data)
	case KindRoleCreate:
		return s.handleRoleCreate(event.Data)
	case KindRoleDelete:
		return s.handleRoleDelete(event.Data)
	case KindRoleUpdate:
		return s.handleRoleUpdate(event.Data)
	case KindUnknown:
		s.hub.Emit(hub.Unknown, hub.RawPayload{
			Tag:   event.Tag,
			Frame: json.RawMessage(event.Frame),
		})
		return nil
	default:
		return fmt.Errorf("unhandled event kind %d", event.Kind)
	}
}

func decode(data json.RawMessage, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
