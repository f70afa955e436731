// Package realtime carries combat broadcasts between the clients of a room.
//
// A Channel moves opaque payloads between named channels; a Session wraps
// one room channel for one client, stamps outgoing messages with the
// client id and a timestamp, and drops its own and stale messages on the
// way in.
package realtime

import (
	"context"
	"strings"
	"sync"
)

// Event is the broadcast event name used for combat messages.
const Event = "space-combat"

// ChannelName returns the broadcast channel of a room.
func ChannelName(room string) string {
	return "space-combat:" + strings.ToUpper(strings.TrimSpace(room))
}

// Channel is a named publish/subscribe transport.
type Channel interface {
	Publish(ctx context.Context, channel, event string, payload []byte) error
	Subscribe(channel, event string, handler func(payload []byte)) (unsubscribe func(), err error)
}

type topic struct {
	channel string
	event   string
}

// Bus is an in-process Channel. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   map[topic][]*busSub
	nextID uint64
}

type busSub struct {
	id uint64
	fn func([]byte)
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[topic][]*busSub)}
}

// Publish delivers payload to every subscriber of channel and event.
func (b *Bus) Publish(ctx context.Context, channel, event string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	subs := append([]*busSub(nil), b.subs[topic{channel, event}]...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn(append([]byte(nil), payload...))
	}
	return nil
}

// Subscribe registers handler for channel and event.
func (b *Bus) Subscribe(channel, event string, handler func([]byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &busSub{id: b.nextID, fn: handler}
	t := topic{channel, event}
	b.subs[t] = append(b.subs[t], s)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[t]
			for i, other := range list {
				if other.id == s.id {
					b.subs[t] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(b.subs[t]) == 0 {
				delete(b.subs, t)
			}
		})
	}, nil
}

// Subscribers returns the number of handlers on channel and event.
func (b *Bus) Subscribers(channel, event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic{channel, event}])
}
