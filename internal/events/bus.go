// Package events is the in-process change notification bus. The record
// store and the settings store publish on it; views subscribe to refresh.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/logging"
)

// Type of change. Soft deletes are upserts of a tombstone.
type Type string

const TypeUpsert Type = "upsert"

// SettingsCollection names the collection carried by settings saves.
const SettingsCollection = "settings"

// Event describes one successful mutation.
type Event struct {
	Type       Type
	Collection string
	// Record is nil for settings events.
	Record *models.Record
}

// Handler receives events. Handlers should be idempotent: the bus gives no
// guarantee beyond one delivery per publish.
type Handler func(Event)

type subscriber struct {
	id int
	fn Handler
}

// Bus delivers events synchronously to subscribers in registration order.
// Nothing is persisted, so late subscribers miss earlier events.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID int
	log    logging.Logger
}

func NewBus(log logging.Logger) *Bus {
	if log == nil {
		log = logging.Nop()
	}
	return &Bus{log: log}
}

// Subscribe registers fn and returns a function removing it. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every current subscriber with ev. A panicking subscriber is
// logged and skipped; the rest still receive the event.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, ev)
	}
}

func (b *Bus) deliver(s subscriber, ev Event) {
	defer func() {
		if p := recover(); p != nil {
			b.log.Error(context.Background(), "event subscriber panicked",
				"collection", ev.Collection, "panic", fmt.Sprint(p))
		}
	}()
	s.fn(ev)
}

// Len reports the number of live subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
