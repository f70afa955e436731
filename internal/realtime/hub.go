package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

const writeWait = 10 * time.Second

// DocumentSource is the room document feed relayed to websocket clients.
type DocumentSource interface {
	Get(ctx context.Context, room string) (models.RoomDocument, error)
	Subscribe(room string, fn func(models.RoomDocument)) (unsubscribe func(), err error)
}

// Hub relays a Channel and a DocumentSource to websocket clients. Each
// connection is bound to one room: it receives a document frame on every
// change and a broadcast frame for every event it subscribed to, and may
// publish onto its room's channel.
type Hub struct {
	ch       Channel
	docs     DocumentSource
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*subscriber
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the logger.
func WithHubLogger(l *zap.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l.Sugar()
		}
	}
}

// NewHub returns a hub over ch and docs.
func NewHub(ch Channel, docs DocumentSource, opts ...HubOption) *Hub {
	h := &Hub{
		ch:       ch,
		docs:     docs,
		logger:   zap.NewNop().Sugar(),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		conns:    make(map[string]*subscriber),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type subscriber struct {
	id   string
	room string
	conn *websocket.Conn
	mu   sync.Mutex

	subsMu sync.Mutex
	unsubs []func()
	topics map[topic]bool
}

// writeJSON sends a frame guarded by the subscriber's mutex and write
// deadline.
func (s *subscriber) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

func (s *subscriber) track(t topic, unsub func()) bool {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.topics[t] {
		return false
	}
	s.topics[t] = true
	s.unsubs = append(s.unsubs, unsub)
	return true
}

func (s *subscriber) release() {
	s.subsMu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.subsMu.Unlock()
	for _, fn := range unsubs {
		fn()
	}
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// ServeRoom upgrades the request and serves room until the client leaves.
func (h *Hub) ServeRoom(w http.ResponseWriter, r *http.Request, room string) {
	room = strings.ToUpper(strings.TrimSpace(room))
	doc, err := h.docs.Get(r.Context(), room)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("ws: upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}
	sub := &subscriber{id: uuid.NewString(), room: room, conn: conn, topics: map[topic]bool{}}
	h.mu.Lock()
	h.conns[sub.id] = sub
	h.mu.Unlock()
	h.logger.Infof("ws: connect id=%s room=%s from=%s", sub.id, room, r.RemoteAddr)

	hello, _ := json.Marshal(map[string]string{"room": room, "connection": sub.id})
	if err := sub.writeJSON(models.WsMsg{Type: models.FrameHello, Channel: ChannelName(room), Data: hello}); err != nil {
		h.drop(sub, err)
		return
	}
	h.sendDocument(sub, doc)
	unsubDoc, err := h.docs.Subscribe(room, func(d models.RoomDocument) { h.sendDocument(sub, d) })
	if err != nil {
		h.drop(sub, err)
		return
	}
	sub.track(topic{event: "document"}, unsubDoc)

	go h.read(sub)
}

func (h *Hub) sendDocument(sub *subscriber, doc models.RoomDocument) {
	data, err := json.Marshal(doc)
	if err != nil {
		h.logger.Errorf("ws: encode document for room %s: %v", sub.room, err)
		return
	}
	if err := sub.writeJSON(models.WsMsg{Type: models.FrameDocument, Data: data}); err != nil {
		h.logger.Debugf("ws: write document to %s: %v", sub.id, err)
	}
}

func (h *Hub) read(sub *subscriber) {
	defer h.drop(sub, nil)
	for {
		var in models.WsMsg
		if err := sub.conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debugf("ws: read error id=%s: %v", sub.id, err)
			}
			return
		}
		if in.Channel == "" {
			in.Channel = ChannelName(sub.room)
		}
		if in.Channel != ChannelName(sub.room) {
			h.sendError(sub, fmt.Sprintf("channel %s is not open on this connection", in.Channel))
			continue
		}
		if in.Event == "" {
			in.Event = Event
		}

		switch in.Type {
		case models.FrameSubscribe:
			h.subscribe(sub, in.Channel, in.Event)
		case models.FramePublish:
			if err := h.ch.Publish(context.Background(), in.Channel, in.Event, in.Data); err != nil {
				h.sendError(sub, err.Error())
			}
		default:
			h.sendError(sub, fmt.Sprintf("unknown frame type %q", in.Type))
		}
	}
}

func (h *Hub) subscribe(sub *subscriber, channel, event string) {
	t := topic{channel, event}
	sub.subsMu.Lock()
	dup := sub.topics[t]
	sub.subsMu.Unlock()
	if dup {
		return
	}
	unsub, err := h.ch.Subscribe(channel, event, func(payload []byte) {
		err := sub.writeJSON(models.WsMsg{Type: models.FrameBroadcast, Channel: channel, Event: event, Data: payload})
		if err != nil {
			h.logger.Debugf("ws: relay to %s: %v", sub.id, err)
		}
	})
	if err != nil {
		h.sendError(sub, err.Error())
		return
	}
	if !sub.track(t, unsub) {
		unsub()
	}
}

func (h *Hub) sendError(sub *subscriber, msg string) {
	data, _ := json.Marshal(map[string]string{"message": msg})
	if err := sub.writeJSON(models.WsMsg{Type: models.FrameError, Data: data}); err != nil {
		h.logger.Debugf("ws: write error frame to %s: %v", sub.id, err)
	}
}

func (h *Hub) drop(sub *subscriber, cause error) {
	h.mu.Lock()
	_, ok := h.conns[sub.id]
	delete(h.conns, sub.id)
	h.mu.Unlock()
	if !ok {
		return
	}
	sub.release()
	_ = sub.conn.Close()
	if cause != nil && !errors.Is(cause, websocket.ErrCloseSent) {
		h.logger.Warnf("ws: closed id=%s room=%s: %v", sub.id, sub.room, cause)
		return
	}
	h.logger.Infof("ws: closed id=%s room=%s", sub.id, sub.room)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.conns))
	for _, s := range h.conns {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		h.drop(s, nil)
	}
}
