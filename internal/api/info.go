package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// ServiceStatus is the wiring snapshot the server assembles at startup:
// which optional pieces actually came up and how many layers are configured.
type ServiceStatus struct {
	DataDir    string
	DB         bool
	Panel      bool
	LayerCount int
}

// InfoHandler reports what this deployment runs, derived from ServiceStatus
// rather than a hardcoded feature list.
type InfoHandler struct {
	status ServiceStatus
}

func NewInfoHandler(status ServiceStatus) *InfoHandler {
	return &InfoHandler{status: status}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name       string   `json:"name" doc:"Service name"`
	Version    string   `json:"version" doc:"Service version"`
	DataDir    string   `json:"data_dir" doc:"Data directory path"`
	DB         bool     `json:"db" doc:"Whether the state store is available"`
	LayerCount int      `json:"layer_count" doc:"Number of configured map layers"`
	Features   []string `json:"features" doc:"Features enabled in this deployment"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"gurs-wms", "parcel-search", "session-parcels"}
	if h.status.DB {
		features = append(features, "state-store")
	}
	if h.status.Panel {
		features = append(features, "panel")
	}

	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:       "plat-parcel",
		Version:    "0.1.0",
		DataDir:    h.status.DataDir,
		DB:         h.status.DB,
		LayerCount: h.status.LayerCount,
		Features:   features,
	}}, nil
}
