// Package combat owns the space combat state of one room for one client.
//
// A Store applies every mutation to its local state first, fans a partial
// update out over the realtime channel and then writes the whole
// spaceCombat object through to the room document. Broadcast patches and
// document snapshots both arrive through Apply, which feeds one reducer.
package combat

import (
	"context"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

// Document is the persisted room document and its change feed.
type Document interface {
	Get(ctx context.Context, room string) (models.RoomDocument, error)
	Update(ctx context.Context, room string, patch models.DocumentPatch) error
	Subscribe(room string, fn func(models.RoomDocument)) (unsubscribe func(), err error)
}

// Publisher sends a broadcast message for the store's room.
type Publisher interface {
	Publish(ctx context.Context, msgType models.MessageType, data any) error
}

// EventKind names a fire-and-forget UI event.
type EventKind string

const (
	EventShieldHit        EventKind = "shield-hit"
	EventShieldUp         EventKind = "shield-up"
	EventEnemySpawn       EventKind = "enemy-spawn"
	EventDreadnoughtSpawn EventKind = "dreadnought-spawn"
	EventEnemyAttack      EventKind = "enemy-attack"
	EventEnemyHit         EventKind = "enemy-hit"
	EventEnemyDestroyed   EventKind = "enemy-destroyed"
	EventEnemyFlee        EventKind = "enemy-flee"
	EventEnemySurrender   EventKind = "enemy-surrender"
	EventCritical         EventKind = "critical"
	EventBlunder          EventKind = "blunder"
	EventTorpedoFired     EventKind = "torpedo-fired"
	EventSyncIssue        EventKind = "sync-issue"
)

// Event is delivered to a Notifier after the state change it describes.
type Event struct {
	Kind    EventKind
	Room    string
	EnemyID string
	Value   int
	Err     error
}

// Notifier receives UI events. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}

// Notifiers fans an event out to several notifiers in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(e Event) {
	for _, n := range ns {
		if n != nil {
			n.Notify(e)
		}
	}
}
