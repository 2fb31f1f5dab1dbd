package panel

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-parcel/internal/humastar"
	"github.com/joeblew999/plat-parcel/internal/service"
)

// EventsHandler streams registry change events to the panel via SSE, so a
// second tab on the same session sees layer changes without polling.
type EventsHandler struct {
	humastar.Handler
	sessions *Sessions
	controls *ControlsHandler
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(sessions *Sessions, controls *ControlsHandler, renderer *humastar.Renderer) *EventsHandler {
	return &EventsHandler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
		controls: controls,
	}
}

func (h *EventsHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/panel/{session_id}/events", h.Events, huma.OperationTags("panel"))
}

func (h *EventsHandler) Events(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	c := h.sessions.Get(ctx, input.SessionID)
	bus := h.sessions.Bus()

	return h.Stream(func(sse humastar.SSE) {
		ch := bus.Subscribe()
		defer bus.Unsubscribe(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if !eventForSession(ev, c.SessionID) {
					continue
				}
				if ev.Resource == "layers" {
					h.controls.patchControls(sse, c)
				}
				sse.DispatchCustomEvent("resource-changed", map[string]any{
					"resource": ev.Resource,
					"action":   ev.Action,
					"id":       ev.ID,
				})
			}
		}
	}), nil
}

// eventForSession reports whether an event belongs on this session's stream.
// Untagged events are global and go to everyone.
func eventForSession(ev service.Event, sessionID string) bool {
	return ev.Session == "" || ev.Session == sessionID
}
