// Package service contains backend business logic: session parcel
// extraction, saved view state, the configured layer set and the change
// event bus shared with the map core.
package service

import "sync"

// Event represents a map state mutation the panel UI may need to reflect:
// layer registration, base selection, overlay toggles, dynamic catalog
// add/remove, selection changes.
type Event struct {
	Resource string // e.g. "layers", "selection"
	Action   string // e.g. "registered", "base-selected", "dynamic-added"
	ID       string // layer id or remote name
	Session  string // originating map session; empty means global
}

// EventBus is a simple fan-out pub/sub for map change events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
