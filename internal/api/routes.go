// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"log"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-parcel/internal/service"
	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Layers  *service.LayerSetService
	Session *service.SessionService
	State   *service.StateService
	Search  *service.SearchService
}

// Types

type SessionIDInput struct {
	SessionID string `path:"session_id" doc:"Analysis session ID" example:"b7f1e0c2-5a3d-4f7e-9c1b-2d8e4a6f0c13"`
}

type MapConfigOutput struct {
	Body struct {
		Success bool                 `json:"success" doc:"Whether the config was assembled"`
		Config  gursclient.MapConfig `json:"config" doc:"Layer configuration and saved view state"`
	}
}

type ParcelsBody struct {
	Success bool                `json:"success" doc:"Whether the lookup ran"`
	Parcels []gursclient.Parcel `json:"parcels" doc:"Matching parcels"`
	Message string              `json:"message,omitempty" doc:"User-facing note for empty results"`
}

type SaveStateBody struct {
	Success bool `json:"success" doc:"Whether the state was stored"`
}

type CapabilitiesBody struct {
	Success bool                         `json:"success" doc:"Whether the catalog was assembled"`
	WMSURL  string                       `json:"wms_url" doc:"WMS endpoint serving the listed layers"`
	Layers  []gursclient.CapabilityEntry `json:"layers" doc:"Layers available for dynamic addition"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterMap registers the map configuration and state routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/map-config", h.GetMapConfig, huma.OperationTags("map"))
	huma.Post(api, "/map-state/{session_id}", h.SaveMapState, huma.OperationTags("map"))
	huma.Get(api, "/wms-capabilities", h.GetCapabilities, huma.OperationTags("map"))
}

// RegisterParcels registers parcel lookup routes.
func (h *APIHandler) RegisterParcels(api huma.API) {
	huma.Get(api, "/session-parcels/{session_id}", h.GetSessionParcels, huma.OperationTags("parcels"))
	huma.Get(api, "/search-parcel", h.SearchParcel, huma.OperationTags("parcels"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetMapConfig(ctx context.Context, input *struct {
	SessionID string `query:"session_id" doc:"Optional session whose saved view state to include"`
}) (*MapConfigOutput, error) {
	if h.svc == nil || h.svc.Layers == nil {
		return nil, huma.Error503ServiceUnavailable("layer service not available")
	}

	base, overlays := h.svc.Layers.Config()
	cfg := gursclient.MapConfig{BaseLayers: base, OverlayLayers: overlays}

	if input.SessionID != "" && h.svc.State != nil {
		saved, err := h.svc.State.Get(ctx, input.SessionID)
		if err != nil {
			// A broken state store must not take the map down with it.
			log.Printf("[api] load state for %s: %v", input.SessionID, err)
		} else {
			cfg.SavedState = saved
		}
	}

	out := &MapConfigOutput{}
	out.Body.Success = true
	out.Body.Config = cfg
	return out, nil
}

func (h *APIHandler) GetSessionParcels(ctx context.Context, input *SessionIDInput) (*struct{ Body ParcelsBody }, error) {
	if h.svc == nil || h.svc.Session == nil {
		return nil, huma.Error503ServiceUnavailable("session service not available")
	}

	parcels, ok := h.svc.Session.Parcels(input.SessionID)
	if !ok {
		return nil, huma.Error404NotFound("session not found")
	}

	body := ParcelsBody{Success: true, Parcels: parcels}
	if len(parcels) == 0 {
		body.Parcels = []gursclient.Parcel{}
		body.Message = "Ni najdenih parcel v projektu"
	}
	return &struct{ Body ParcelsBody }{Body: body}, nil
}

func (h *APIHandler) SearchParcel(ctx context.Context, input *struct {
	Query string `query:"query" required:"true" doc:"Parcel number, optionally with cadastral unit" example:"940/1 k.o. Litija"`
}) (*struct{ Body ParcelsBody }, error) {
	if h.svc == nil || h.svc.Search == nil {
		return nil, huma.Error503ServiceUnavailable("search service not available")
	}
	if strings.TrimSpace(input.Query) == "" {
		return nil, huma.Error400BadRequest("query is required")
	}

	parcels, err := h.svc.Search.Search(ctx, input.Query)
	if err != nil {
		return nil, huma.Error500InternalServerError("parcel search failed", err)
	}

	body := ParcelsBody{Success: true, Parcels: parcels}
	if len(parcels) == 0 {
		body.Parcels = []gursclient.Parcel{}
		body.Message = "Ni zadetkov"
	}
	return &struct{ Body ParcelsBody }{Body: body}, nil
}

func (h *APIHandler) SaveMapState(ctx context.Context, input *struct {
	SessionIDInput
	Body gursclient.ViewState
}) (*struct{ Body SaveStateBody }, error) {
	if h.svc == nil || h.svc.State == nil {
		return nil, huma.Error503ServiceUnavailable("state service not available")
	}
	if input.Body.Zoom < 0 || input.Body.Zoom > 22 {
		return nil, huma.Error400BadRequest("zoom out of range")
	}

	if err := h.svc.State.Save(ctx, input.SessionID, input.Body); err != nil {
		return nil, huma.Error500InternalServerError("failed to save map state", err)
	}
	return &struct{ Body SaveStateBody }{Body: SaveStateBody{Success: true}}, nil
}

func (h *APIHandler) GetCapabilities(ctx context.Context, input *struct{}) (*struct{ Body CapabilitiesBody }, error) {
	if h.svc == nil || h.svc.Layers == nil {
		return nil, huma.Error503ServiceUnavailable("layer service not available")
	}
	caps := h.svc.Layers.Capabilities()
	return &struct{ Body CapabilitiesBody }{Body: CapabilitiesBody{
		Success: true,
		WMSURL:  caps.WMSURL,
		Layers:  caps.Layers,
	}}, nil
}
