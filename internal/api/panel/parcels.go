package panel

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-parcel/internal/humastar"
	"github.com/joeblew999/plat-parcel/internal/maps"
)

// ParcelHandler resolves map clicks, parcel searches and session parcel
// loads into info-panel fragments and marker signals.
type ParcelHandler struct {
	humastar.Handler
	sessions *Sessions
}

// NewParcelHandler creates a new parcel handler.
func NewParcelHandler(sessions *Sessions, renderer *humastar.Renderer) *ParcelHandler {
	return &ParcelHandler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
	}
}

func (h *ParcelHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/panel/{session_id}/click", h.Click, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/{session_id}/search", h.Search, huma.OperationTags("panel"))
	huma.Get(api, "/api/v1/panel/{session_id}/parcels", h.LoadParcels, huma.OperationTags("panel"))
}

// ParcelInfoData feeds the parcel info fragment. Area is preformatted so
// the template stays dumb.
type ParcelInfoData struct {
	Stevilka         string
	KatastrskaObcina string
	Povrsina         string
	NamenskaRaba     string
}

type ClickInput struct {
	SessionInput
	humastar.SignalsInput
}

func (h *ParcelHandler) Click(ctx context.Context, input *ClickInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("lon") || !signals.Has("lat") {
		return nil, huma.Error400BadRequest("lon and lat signals are required")
	}
	lon := signals.Float("lon")
	lat := signals.Float("lat")

	c := h.sessions.Get(ctx, input.SessionID)
	return h.Stream(func(sse humastar.SSE) {
		sel, applied := c.Click(ctx, lon, lat)
		if !applied {
			// Superseded by a newer click; that click's response will patch.
			return
		}
		h.patchSelection(sse, sel)
	}), nil
}

type SearchInput struct {
	SessionInput
	humastar.SignalsInput
}

func (h *ParcelHandler) Search(ctx context.Context, input *SearchInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	query := signals.String("searchquery")

	c := h.sessions.Get(ctx, input.SessionID)
	if c.Searching() {
		return h.Stream(func(sse humastar.SSE) {
			sse.Signals(map[string]any{"searching": true})
		}), nil
	}

	return h.Stream(func(sse humastar.SSE) {
		sse.Signals(map[string]any{"searching": true})
		msg := c.SearchParcel(ctx, query)
		if msg != "" {
			sse.Signals(map[string]any{"searching": false, "error": msg})
			return
		}
		sse.Signals(map[string]any{"searching": false, "error": ""})
		h.patchSelection(sse, c.Selection())
		h.patchMarkers(sse, c)
	}), nil
}

func (h *ParcelHandler) LoadParcels(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	c := h.sessions.Get(ctx, input.SessionID)
	return h.Stream(func(sse humastar.SSE) {
		msg, err := c.LoadSessionParcels(ctx)
		if err != nil {
			sse.Error("Parcel ni bilo mogoče naložiti")
			return
		}
		if msg != "" {
			sse.Signals(map[string]any{"info": msg})
			return
		}
		h.patchMarkers(sse, c)
	}), nil
}

// patchSelection renders the parcel info fragment, or the empty state when
// the click hit nothing.
func (h *ParcelHandler) patchSelection(sse humastar.SSE, sel *maps.ParcelSelection) {
	if sel == nil {
		html, _ := h.Renderer.Render("empty-state", map[string]string{
			"Title": "Ni parcele", "Message": "Na tej točki ni podatkov o parceli",
		})
		sse.Patch(html, "#parcel-info")
		return
	}

	area := maps.NoData
	if sel.AreaSquareMeters > 0 {
		area = fmt.Sprintf("%.0f m²", sel.AreaSquareMeters)
	}
	html, _ := h.Renderer.Render("parcel-info", ParcelInfoData{
		Stevilka:         sel.ParcelNumber,
		KatastrskaObcina: sel.CadastralUnitName,
		Povrsina:         area,
		NamenskaRaba:     sel.LandUseDescription,
	})
	sse.Patch(html, "#parcel-info")
}

// patchMarkers pushes the marker set and the fitted view to the client as
// signals; the map itself lives in the browser.
func (h *ParcelHandler) patchMarkers(sse humastar.SSE, c *maps.Controller) {
	var markers []map[string]any
	for _, m := range c.View().Markers() {
		markers = append(markers, map[string]any{
			"lon":      m.Point[0],
			"lat":      m.Point[1],
			"stevilka": m.Parcel.Stevilka,
			"ko":       m.Parcel.KatastrskaObcina,
		})
	}
	state := c.View().State()
	sse.Signals(map[string]any{
		"markers":   markers,
		"centerlon": state.CenterLon,
		"centerlat": state.CenterLat,
		"zoom":      state.Zoom,
	})
}
