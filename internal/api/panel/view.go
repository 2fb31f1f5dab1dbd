package panel

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-parcel/internal/humastar"
)

// ViewHandler receives pan/zoom updates from the client. Applying them to
// the session view triggers the debounced state persister.
type ViewHandler struct {
	humastar.Handler
	sessions *Sessions
}

// NewViewHandler creates a new view handler.
func NewViewHandler(sessions *Sessions, renderer *humastar.Renderer) *ViewHandler {
	return &ViewHandler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
	}
}

func (h *ViewHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/panel/{session_id}/view", h.ViewChanged, huma.OperationTags("panel"))
}

type ViewChangedInput struct {
	SessionInput
	humastar.SignalsInput
}

func (h *ViewHandler) ViewChanged(ctx context.Context, input *ViewChangedInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("centerlon") || !signals.Has("centerlat") || !signals.Has("zoom") {
		return nil, huma.Error400BadRequest("centerlon, centerlat and zoom signals are required")
	}

	c := h.sessions.Get(ctx, input.SessionID)
	return h.Stream(func(sse humastar.SSE) {
		c.View().SetView(signals.Float("centerlon"), signals.Float("centerlat"), signals.Int("zoom"))
	}), nil
}
