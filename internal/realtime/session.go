package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

const tracerName = "github.com/danroth-nyt/star-dashborg-sub001/internal/realtime"

// NewClientID returns a random client id for one session.
func NewClientID() string { return uuid.NewString() }

// Guard accepts strictly increasing timestamps.
type Guard struct {
	mu   sync.Mutex
	last int64
	seen bool
}

// Accept reports whether ts is newer than the last accepted timestamp and
// records it if so.
func (g *Guard) Accept(ts int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen && ts <= g.last {
		return false
	}
	g.last, g.seen = ts, true
	return true
}

// Last returns the last accepted timestamp.
func (g *Guard) Last() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Session is one client's view of a room channel.
type Session struct {
	clientID string
	room     string
	channel  string
	ch       Channel
	guard    Guard
	now      func() time.Time
	logger   *zap.SugaredLogger
	tracer   trace.Tracer

	mu       sync.Mutex
	lastSent int64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger.
func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l.Sugar()
		}
	}
}

// WithSessionClock replaces time.Now for message timestamps.
func WithSessionClock(fn func() time.Time) SessionOption {
	return func(s *Session) { s.now = fn }
}

// NewSession joins room on ch as clientID.
func NewSession(clientID, room string, ch Channel, opts ...SessionOption) *Session {
	s := &Session{
		clientID: clientID,
		room:     room,
		channel:  ChannelName(room),
		ch:       ch,
		now:      time.Now,
		logger:   zap.NewNop().Sugar(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClientID returns the id stamped on outgoing messages.
func (s *Session) ClientID() string { return s.clientID }

// timestamp returns the current time in Unix milliseconds, bumped past the
// previous message so two sends in the same millisecond stay ordered.
func (s *Session) timestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().UnixMilli()
	if ts <= s.lastSent {
		ts = s.lastSent + 1
	}
	s.lastSent = ts
	return ts
}

// Publish broadcasts data as a message of type t.
func (s *Session) Publish(ctx context.Context, t models.MessageType, data any) error {
	ctx, span := s.tracer.Start(ctx, "realtime.Publish", trace.WithAttributes(
		attribute.String("room", s.room),
		attribute.String("message.type", string(t)),
	))
	defer span.End()

	raw, err := json.Marshal(data)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, fmt.Sprintf("encode %s", t), err)
	}
	payload, err := json.Marshal(models.Message{
		SenderID:  s.clientID,
		Timestamp: s.timestamp(),
		Type:      t,
		Data:      raw,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, fmt.Sprintf("encode %s", t), err)
	}
	if err := s.ch.Publish(ctx, s.channel, Event, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return apperrors.Wrap(apperrors.CodeChannelUnavailable, fmt.Sprintf("publish %s to %s", t, s.channel), err)
	}
	return nil
}

// Start delivers messages from other clients to handler in order, once
// each. Messages sent by this client and messages not newer than the last
// accepted one are dropped.
func (s *Session) Start(handler func(models.Message) error) (func(), error) {
	unsub, err := s.ch.Subscribe(s.channel, Event, func(payload []byte) {
		var msg models.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warnf("room %s: undecodable broadcast: %v", s.room, err)
			return
		}
		if msg.SenderID == s.clientID {
			return
		}
		if !s.guard.Accept(msg.Timestamp) {
			s.logger.Debugf("room %s: stale %s from %s at %d", s.room, msg.Type, msg.SenderID, msg.Timestamp)
			return
		}
		if err := handler(msg); err != nil {
			s.logger.Warnf("room %s: apply %s from %s: %v", s.room, msg.Type, msg.SenderID, err)
		}
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeChannelUnavailable, fmt.Sprintf("subscribe %s", s.channel), err)
	}
	return unsub, nil
}
