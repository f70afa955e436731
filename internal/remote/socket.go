package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

const writeWait = 10 * time.Second

type subject struct {
	channel string
	event   string
}

// Socket is a websocket connection to one room. It carries broadcasts in
// both directions and delivers document change frames.
type Socket struct {
	conn    *websocket.Conn
	room    string
	channel string
	logger  *zap.SugaredLogger

	writeMu sync.Mutex

	mu       sync.Mutex
	nextID   int
	handlers map[subject]map[int]func([]byte)
	docSubs  map[int]func(models.RoomDocument)

	done    chan struct{}
	doneErr error
}

// SocketOption configures a Socket.
type SocketOption func(*Socket)

// WithSocketLogger sets the logger.
func WithSocketLogger(l *zap.Logger) SocketOption {
	return func(s *Socket) {
		if l != nil {
			s.logger = l.Sugar()
		}
	}
}

// Dial opens the room socket on the server at serverURL and waits for the
// hello frame.
func Dial(ctx context.Context, serverURL, room string, opts ...SocketOption) (*Socket, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "parse server url", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	room = strings.ToUpper(strings.TrimSpace(room))
	u.Path += "/ws/rooms/" + url.PathEscape(room)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeChannelUnavailable, fmt.Sprintf("dial %s", u), err)
	}
	var hello models.WsMsg
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != models.FrameHello {
		_ = conn.Close()
		if err == nil {
			err = fmt.Errorf("expected hello frame, got %q", hello.Type)
		}
		return nil, apperrors.Wrap(apperrors.CodeChannelUnavailable, "handshake", err)
	}

	s := &Socket{
		conn:     conn,
		room:     room,
		channel:  hello.Channel,
		logger:   zap.NewNop().Sugar(),
		handlers: make(map[subject]map[int]func([]byte)),
		docSubs:  make(map[int]func(models.RoomDocument)),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.read()
	return s, nil
}

// Channel returns the broadcast channel the server opened for the room.
func (s *Socket) Channel() string { return s.channel }

// Done is closed when the connection ends.
func (s *Socket) Done() <-chan struct{} { return s.done }

// Err returns why the connection ended, once Done is closed.
func (s *Socket) Err() error {
	<-s.done
	return s.doneErr
}

// Close ends the connection.
func (s *Socket) Close() error {
	s.writeMu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	return s.conn.Close()
}

func (s *Socket) write(msg models.WsMsg) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(msg)
}

// Publish sends payload on the room channel.
func (s *Socket) Publish(ctx context.Context, channel, event string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if channel != s.channel {
		return apperrors.New(apperrors.CodeChannelUnavailable, fmt.Sprintf("channel %s is not open on this socket", channel))
	}
	select {
	case <-s.done:
		return apperrors.Wrap(apperrors.CodeChannelUnavailable, "socket closed", s.doneErr)
	default:
	}
	return s.write(models.WsMsg{Type: models.FramePublish, Channel: channel, Event: event, Data: payload})
}

// Subscribe registers handler for broadcasts on channel and event.
func (s *Socket) Subscribe(channel, event string, handler func([]byte)) (func(), error) {
	if channel != s.channel {
		return nil, apperrors.New(apperrors.CodeChannelUnavailable, fmt.Sprintf("channel %s is not open on this socket", channel))
	}
	key := subject{channel, event}
	s.mu.Lock()
	first := len(s.handlers[key]) == 0
	if s.handlers[key] == nil {
		s.handlers[key] = make(map[int]func([]byte))
	}
	id := s.nextID
	s.nextID++
	s.handlers[key][id] = handler
	s.mu.Unlock()

	if first {
		if err := s.write(models.WsMsg{Type: models.FrameSubscribe, Channel: channel, Event: event}); err != nil {
			s.mu.Lock()
			delete(s.handlers[key], id)
			s.mu.Unlock()
			return nil, apperrors.Wrap(apperrors.CodeChannelUnavailable, "subscribe", err)
		}
	}
	return func() {
		s.mu.Lock()
		delete(s.handlers[key], id)
		s.mu.Unlock()
	}, nil
}

// SubscribeDocument registers fn for document frames of room.
func (s *Socket) SubscribeDocument(room string, fn func(models.RoomDocument)) (func(), error) {
	if strings.ToUpper(strings.TrimSpace(room)) != s.room {
		return nil, apperrors.New(apperrors.CodeChannelUnavailable, fmt.Sprintf("socket is bound to room %s", s.room))
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.docSubs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.docSubs, id)
		s.mu.Unlock()
	}, nil
}

func (s *Socket) read() {
	defer close(s.done)
	for {
		var in models.WsMsg
		if err := s.conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.doneErr = err
				s.logger.Debugf("room %s: socket read: %v", s.room, err)
			}
			return
		}
		switch in.Type {
		case models.FrameDocument:
			var doc models.RoomDocument
			if err := json.Unmarshal(in.Data, &doc); err != nil {
				s.logger.Warnf("room %s: undecodable document frame: %v", s.room, err)
				continue
			}
			s.mu.Lock()
			fns := make([]func(models.RoomDocument), 0, len(s.docSubs))
			for _, fn := range s.docSubs {
				fns = append(fns, fn)
			}
			s.mu.Unlock()
			for _, fn := range fns {
				fn(doc)
			}
		case models.FrameBroadcast:
			s.mu.Lock()
			subs := s.handlers[subject{in.Channel, in.Event}]
			fns := make([]func([]byte), 0, len(subs))
			for _, fn := range subs {
				fns = append(fns, fn)
			}
			s.mu.Unlock()
			for _, fn := range fns {
				fn(in.Data)
			}
		case models.FrameError:
			var p struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(in.Data, &p)
			s.logger.Warnf("room %s: server error: %s", s.room, p.Message)
		}
	}
}
