package panel

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-parcel/internal/humastar"
	"github.com/joeblew999/plat-parcel/internal/maps"
)

// ControlsHandler serves the layer control panel: the base layer selector
// and the overlay toggle list.
type ControlsHandler struct {
	humastar.Handler
	sessions *Sessions
}

// NewControlsHandler creates a new controls handler.
func NewControlsHandler(sessions *Sessions, renderer *humastar.Renderer) *ControlsHandler {
	return &ControlsHandler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
	}
}

func (h *ControlsHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/panel/{session_id}/controls", h.ListControls, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/{session_id}/base", h.SelectBase, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/{session_id}/overlay/{id}", h.ToggleOverlay, huma.OperationTags("panel"))
}

// SessionInput identifies the session whose map the handler operates on.
type SessionInput struct {
	SessionID string `path:"session_id" doc:"Map session ID"`
}

func (h *ControlsHandler) ListControls(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	c := h.sessions.Get(ctx, input.SessionID)
	return h.Stream(func(sse humastar.SSE) {
		h.patchControls(sse, c)
	}), nil
}

type SelectBaseInput struct {
	SessionInput
	humastar.SignalsInput
}

func (h *ControlsHandler) SelectBase(ctx context.Context, input *SelectBaseInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	id := signals.String("baselayer")
	if id == "" {
		return nil, huma.Error400BadRequest("baselayer signal is required")
	}

	c := h.sessions.Get(ctx, input.SessionID)
	return h.Stream(func(sse humastar.SSE) {
		c.Controls().SelectBase(id)
		h.patchControls(sse, c)
		sse.DispatchCustomEvent("layers-changed", map[string]any{"base": id})
	}), nil
}

type ToggleOverlayInput struct {
	SessionInput
	ID string `path:"id" doc:"Overlay layer ID to toggle"`
}

func (h *ControlsHandler) ToggleOverlay(ctx context.Context, input *ToggleOverlayInput) (*huma.StreamResponse, error) {
	c := h.sessions.Get(ctx, input.SessionID)
	return h.Stream(func(sse humastar.SSE) {
		c.Controls().ToggleOverlay(input.ID)
		h.patchControls(sse, c)
		sse.DispatchCustomEvent("layers-changed", map[string]any{"overlay": input.ID})
	}), nil
}

func (h *ControlsHandler) patchControls(sse humastar.SSE, c *maps.Controller) {
	bases, overlays := c.Controls().Controls()

	var options []humastar.SelectOptionData
	for _, b := range bases {
		options = append(options, humastar.SelectOptionData{
			Value:    b.ID,
			Label:    b.Title,
			Selected: b.Selected,
		})
	}
	sse.Patch(h.RenderSelect("Izberi podlago", options), "#base-select")

	items := make([]any, 0, len(overlays))
	for _, o := range overlays {
		items = append(items, o)
	}
	sse.Patch(h.RenderList("overlay-control", items, "Ni slojev", "Noben sloj ni na voljo"), "#overlay-list")

	// The map page mirrors this signal into Leaflet WMS layers.
	sse.Signals(map[string]any{"tilelayers": c.Registry().TileLayerStates()})
}
