package maps

import (
	"context"
	"log"

	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

// Default GURS WMS endpoints, used when the backend supplies no
// configuration of its own.
const (
	defaultKNWMS     = "https://ipi.eprostor.gov.si/wms-si-gurs-kn/wms"
	defaultRasterWMS = "https://ipi.eprostor.gov.si/wms-si-gurs-dts/wms"
	defaultRPEWMS    = "https://ipi.eprostor.gov.si/wms-si-gurs-rpe/wms"
)

// DefaultView centers the map on Litija.
func DefaultView() gursclient.ViewState {
	return gursclient.ViewState{CenterLon: 14.8267, CenterLat: 46.0569, Zoom: 14}
}

// Config is the resolved layer configuration plus the initial view state.
type Config struct {
	Base     []LayerDescriptor
	Overlays []LayerDescriptor
	View     gursclient.ViewState
}

// ConfigClient fetches the authoritative layer configuration for a session.
type ConfigClient interface {
	MapConfig(ctx context.Context, sessionID string) (*gursclient.MapConfig, error)
}

// LoadConfiguration fetches layer descriptors and saved view state for a
// session. On any failure it logs a warning and returns the built-in
// defaults so the map is always renderable. It never returns an error.
func LoadConfiguration(ctx context.Context, client ConfigClient, sessionID string) Config {
	if client == nil {
		return DefaultConfig()
	}
	remote, err := client.MapConfig(ctx, sessionID)
	if err != nil {
		log.Printf("[loader] map-config unavailable, using defaults: %v", err)
		return DefaultConfig()
	}

	cfg := Config{View: DefaultView()}
	for _, lc := range remote.BaseLayers {
		cfg.Base = append(cfg.Base, fromWire(lc, CategoryBase))
	}
	for _, lc := range remote.OverlayLayers {
		cfg.Overlays = append(cfg.Overlays, fromWire(lc, CategoryOverlay))
	}
	if len(cfg.Base) == 0 && len(cfg.Overlays) == 0 {
		log.Printf("[loader] map-config returned no layers, using defaults")
		return DefaultConfig()
	}
	if remote.SavedState != nil {
		cfg.View = *remote.SavedState
	}
	return cfg
}

// fromWire converts a wire layer entry, forcing the category it arrived
// under so a mislabeled entry cannot break base exclusivity.
func fromWire(lc gursclient.LayerConfig, c Category) LayerDescriptor {
	return LayerDescriptor{
		ID:             lc.ID,
		RemoteName:     lc.Name,
		Title:          lc.Title,
		URL:            lc.URL,
		Format:         lc.Format,
		Transparent:    lc.Transparent,
		Category:       c,
		Kind:           LayerKind(lc.Kind),
		DefaultVisible: lc.DefaultVisible,
		Opacity:        lc.Opacity,
		AlwaysOn:       lc.AlwaysOn,
		ZHint:          lc.ZHint,
	}
}

// DefaultConfig is the built-in layer set, kept renderable without any
// backend: one base orthophoto and the always-on parcel boundary overlay,
// plus the standard cadastre overlays.
func DefaultConfig() Config {
	return Config{
		Base: []LayerDescriptor{
			{
				ID:             "ortofoto",
				RemoteName:     "SI.GURS.ZPDZ:DOF025",
				Title:          "Digitalni ortofoto",
				URL:            defaultRasterWMS,
				Format:         "image/jpeg",
				Category:       CategoryBase,
				DefaultVisible: true,
			},
		},
		Overlays: []LayerDescriptor{
			{
				ID:             "katastr",
				RemoteName:     "SI.GURS.KN:PARCELE",
				Title:          "Parcelne meje",
				URL:            defaultKNWMS,
				Transparent:    true,
				Category:       CategoryOverlay,
				Kind:           KindBoundary,
				DefaultVisible: true,
				AlwaysOn:       true,
			},
			{
				ID:             "katastr_stevilke",
				RemoteName:     "SI.GURS.KN:PARCELNE_STEVILKE",
				Title:          "Parcelne številke",
				URL:            defaultKNWMS,
				Transparent:    true,
				Category:       CategoryOverlay,
				Kind:           KindLabel,
				DefaultVisible: true,
			},
			{
				ID:          "namenska_raba",
				RemoteName:  "RPE:RPE_PO",
				Title:       "Namenska raba (RPE)",
				URL:         defaultRPEWMS,
				Transparent: true,
				Category:    CategoryOverlay,
				Kind:        KindClassification,
				Opacity:     0.6,
			},
			{
				ID:          "stavbe",
				RemoteName:  "SI.GURS.KN:STAVBE",
				Title:       "Stavbni kataster",
				URL:         defaultKNWMS,
				Transparent: true,
				Category:    CategoryOverlay,
			},
			{
				ID:          "hisne_stevilke",
				RemoteName:  "SI.GURS.KN:HS_STEVILKE",
				Title:       "Hišne številke",
				URL:         defaultKNWMS,
				Transparent: true,
				Category:    CategoryOverlay,
				Kind:        KindLabel,
			},
		},
		View: DefaultView(),
	}
}
