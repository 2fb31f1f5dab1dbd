package panel

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-parcel/internal/humastar"
	"github.com/joeblew999/plat-parcel/internal/maps"
)

// CatalogHandler serves the dynamic layer catalog: listing discoverable
// layers and adding/removing them on the session's map.
type CatalogHandler struct {
	humastar.Handler
	sessions *Sessions
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(sessions *Sessions, renderer *humastar.Renderer) *CatalogHandler {
	return &CatalogHandler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
	}
}

func (h *CatalogHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/panel/{session_id}/catalog", h.ListCatalog, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/{session_id}/catalog", h.AddLayer, huma.OperationTags("panel"))
	huma.Delete(api, "/api/v1/panel/{session_id}/catalog/{name}", h.RemoveLayer, huma.OperationTags("panel"))
}

func (h *CatalogHandler) ListCatalog(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	c := h.sessions.Get(ctx, input.SessionID)
	return h.Stream(func(sse humastar.SSE) {
		h.patchCatalog(ctx, sse, c)
	}), nil
}

type AddLayerInput struct {
	SessionInput
	humastar.SignalsInput
}

func (h *CatalogHandler) AddLayer(ctx context.Context, input *AddLayerInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	name := signals.String("cataloglayer")
	if name == "" {
		return nil, huma.Error400BadRequest("cataloglayer signal is required")
	}

	c := h.sessions.Get(ctx, input.SessionID)
	return h.Stream(func(sse humastar.SSE) {
		if err := c.Catalog().AddDynamic(name); err != nil {
			sse.Error("Sloja ni bilo mogoče dodati: " + name)
			return
		}
		h.patchCatalog(ctx, sse, c)
		sse.Signals(map[string]any{"tilelayers": c.Registry().TileLayerStates()})
		sse.DispatchCustomEvent("layers-changed", map[string]any{"added": name})
	}), nil
}

type RemoveLayerInput struct {
	SessionInput
	Name string `path:"name" doc:"Catalog layer name to remove"`
}

func (h *CatalogHandler) RemoveLayer(ctx context.Context, input *RemoveLayerInput) (*huma.StreamResponse, error) {
	c := h.sessions.Get(ctx, input.SessionID)
	return h.Stream(func(sse humastar.SSE) {
		if !c.Catalog().RemoveDynamic(input.Name) {
			sse.Error("Sloj ni dodan: " + input.Name)
			return
		}
		h.patchCatalog(ctx, sse, c)
		sse.Signals(map[string]any{"tilelayers": c.Registry().TileLayerStates()})
		sse.DispatchCustomEvent("layers-changed", map[string]any{"removed": input.Name})
	}), nil
}

func (h *CatalogHandler) patchCatalog(ctx context.Context, sse humastar.SSE, c *maps.Controller) {
	entries, err := c.Catalog().ListCapabilities(ctx)
	if err != nil {
		if errors.Is(err, maps.ErrNoLayersAvailable) {
			sse.Patch(h.RenderList("catalog-entry", nil,
				"Ni dodatnih slojev", "Katalog slojev trenutno ni na voljo"), "#catalog-list")
			return
		}
		sse.Error("Kataloga ni bilo mogoče naložiti")
		return
	}

	items := make([]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, e)
	}
	sse.Patch(h.RenderList("catalog-entry", items,
		"Ni dodatnih slojev", "Vsi sloji so že na zemljevidu"), "#catalog-list")
}
