// Package panel contains the Datastar SSE handlers for the map panel UI.
// Each browser session gets its own map controller; handlers look the
// controller up by session id and patch fragments back over SSE.
package panel

import (
	"context"
	"sync"

	"github.com/joeblew999/plat-parcel/internal/maps"
	"github.com/joeblew999/plat-parcel/internal/service"
)

// Sessions owns the per-session map controllers. Controllers are created on
// first use and torn down explicitly or all at once on shutdown.
type Sessions struct {
	client maps.BackendClient
	bus    *service.EventBus
	opts   []maps.Option

	mu   sync.Mutex
	byID map[string]*maps.Controller
}

// NewSessions creates the session table. All controllers share the backend
// client and publish registry changes on bus.
func NewSessions(client maps.BackendClient, bus *service.EventBus, opts ...maps.Option) *Sessions {
	return &Sessions{
		client: client,
		bus:    bus,
		opts:   append([]maps.Option{maps.WithBus(bus)}, opts...),
		byID:   make(map[string]*maps.Controller),
	}
}

// Get returns the controller for a session, creating it on first use.
func (s *Sessions) Get(ctx context.Context, sessionID string) *maps.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byID[sessionID]; ok {
		return c
	}
	c := maps.NewController(ctx, s.client, sessionID, s.opts...)
	s.byID[sessionID] = c
	return c
}

// Bus returns the shared event bus.
func (s *Sessions) Bus() *service.EventBus { return s.bus }

// Close tears one session down.
func (s *Sessions) Close(sessionID string) {
	s.mu.Lock()
	c, ok := s.byID[sessionID]
	delete(s.byID, sessionID)
	s.mu.Unlock()
	if ok {
		c.Close()
	}
}

// CloseAll tears every session down.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	all := s.byID
	s.byID = make(map[string]*maps.Controller)
	s.mu.Unlock()
	for _, c := range all {
		c.Close()
	}
}
