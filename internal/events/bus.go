// Package events provides a lightweight in-process event bus that carries
// state, entity and config entry changes to subscribers (WebSocket hub, MQTT
// state stream).
package events

import (
	"encoding/json"
	"sync"
	"time"
)

// EventType identifies the kind of event.
type EventType string

const (
	// State events
	StateChanged EventType = "state.changed"
	StateRemoved EventType = "state.removed"

	// Entity registry events
	EntityRegistered EventType = "entity.registered"
	EntityRemoved    EventType = "entity.removed"

	// Config entry events
	EntryAdded       EventType = "entry.added"
	EntryLoaded      EventType = "entry.loaded"
	EntryUnloaded    EventType = "entry.unloaded"
	EntryRemoved     EventType = "entry.removed"
	EntrySetupFailed EventType = "entry.setup_failed"

	// Discovery events
	DeviceDiscovered EventType = "device.discovered"
)

// Event is a single event emitted by a producer.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent creates an Event, marshaling data to JSON.
// If marshaling fails the Data field is set to null.
func NewEvent(t EventType, data any) Event {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("null")
	}
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Data:      raw,
	}
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// SubscriberFunc is a callback invoked for each event.
// Implementations must not block; slow subscribers should buffer internally.
type SubscriberFunc func(Event)

// Bus is a simple synchronous fan-out event bus.
// Publishing blocks until all subscribers have been called.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]SubscriberFunc
	nextID      int
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int]SubscriberFunc),
	}
}

// Subscribe registers a callback and returns an unsubscribe function.
func (b *Bus) Subscribe(fn SubscriberFunc) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// Publish sends an event to all current subscribers. A nil bus is a no-op so
// producers can run without one.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := make([]SubscriberFunc, 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}

// Emit builds and publishes an event in one call.
func (b *Bus) Emit(t EventType, data any) {
	if b == nil {
		return
	}
	b.Publish(NewEvent(t, data))
}
