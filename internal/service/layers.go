package service

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

// Default GURS service endpoints served to clients.
const (
	defaultKNWMS      = "https://ipi.eprostor.gov.si/wms-si-gurs-kn/wms"
	defaultRasterWMS  = "https://ipi.eprostor.gov.si/wms-si-gurs-dts/wms"
	defaultRPEWMS     = "https://ipi.eprostor.gov.si/wms-si-gurs-rpe/wms"
	defaultCatalogWMS = "https://prostor.gov.si/wms"
)

// LayerSetService serves the configured layer set for /map-config and the
// capability catalog for /wms-capabilities. The built-in set can be
// replaced by an operator-supplied YAML file.
type LayerSetService struct {
	base     []gursclient.LayerConfig
	overlays []gursclient.LayerConfig
	catalog  gursclient.Capabilities
}

// NewLayerSetService creates the service. An empty path keeps the built-in
// layer set; a bad file is an error so a typo cannot silently serve an
// empty map.
func NewLayerSetService(path string) (*LayerSetService, error) {
	s := &LayerSetService{
		base:     builtinBaseLayers(),
		overlays: builtinOverlayLayers(),
		catalog:  builtinCatalog(),
	}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read layer set file")
	}
	var file layerFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(err, "parse layer set file")
	}

	if len(file.BaseLayers) > 0 {
		s.base = toWire(file.BaseLayers, "base")
	}
	if len(file.OverlayLayers) > 0 {
		s.overlays = toWire(file.OverlayLayers, "overlay")
	}
	if file.Catalog.WMSURL != "" {
		s.catalog = gursclient.Capabilities{WMSURL: file.Catalog.WMSURL}
		for _, e := range file.Catalog.Layers {
			s.catalog.Layers = append(s.catalog.Layers, gursclient.CapabilityEntry{
				Name: e.Name, Title: e.Title, Description: e.Description,
			})
		}
	}
	return s, nil
}

// Config returns the base and overlay layer sets.
func (s *LayerSetService) Config() (base, overlays []gursclient.LayerConfig) {
	return s.base, s.overlays
}

// Capabilities returns the dynamic layer catalog.
func (s *LayerSetService) Capabilities() gursclient.Capabilities {
	return s.catalog
}

type layerYAML struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	Title          string  `yaml:"title"`
	URL            string  `yaml:"url"`
	Format         string  `yaml:"format"`
	Transparent    bool    `yaml:"transparent"`
	Kind           string  `yaml:"kind"`
	DefaultVisible bool    `yaml:"default_visible"`
	Opacity        float64 `yaml:"opacity"`
	AlwaysOn       bool    `yaml:"always_on"`
	ZHint          int     `yaml:"z_hint"`
}

type layerFile struct {
	BaseLayers    []layerYAML `yaml:"base_layers"`
	OverlayLayers []layerYAML `yaml:"overlay_layers"`
	Catalog       struct {
		WMSURL string `yaml:"wms_url"`
		Layers []struct {
			Name        string `yaml:"name"`
			Title       string `yaml:"title"`
			Description string `yaml:"description"`
		} `yaml:"layers"`
	} `yaml:"catalog"`
}

func toWire(in []layerYAML, category string) []gursclient.LayerConfig {
	out := make([]gursclient.LayerConfig, 0, len(in))
	for _, l := range in {
		out = append(out, gursclient.LayerConfig{
			ID:             l.ID,
			Name:           l.Name,
			Title:          l.Title,
			URL:            l.URL,
			Format:         l.Format,
			Transparent:    l.Transparent,
			Category:       category,
			Kind:           l.Kind,
			DefaultVisible: l.DefaultVisible,
			Opacity:        l.Opacity,
			AlwaysOn:       l.AlwaysOn,
			ZHint:          l.ZHint,
		})
	}
	return out
}

func builtinBaseLayers() []gursclient.LayerConfig {
	return []gursclient.LayerConfig{
		{
			ID:             "ortofoto",
			Name:           "SI.GURS.ZPDZ:DOF025",
			Title:          "Digitalni ortofoto",
			Description:    "Ortofoto posnetek Slovenije",
			URL:            defaultRasterWMS,
			Format:         "image/jpeg",
			Category:       "base",
			DefaultVisible: true,
		},
	}
}

func builtinOverlayLayers() []gursclient.LayerConfig {
	return []gursclient.LayerConfig{
		{
			ID:             "katastr",
			Name:           "SI.GURS.KN:PARCELE",
			Title:          "Parcelne meje",
			Description:    "Meje parcel iz katastra nepremičnin",
			URL:            defaultKNWMS,
			Format:         "image/png",
			Transparent:    true,
			Category:       "overlay",
			Kind:           "boundary",
			DefaultVisible: true,
			AlwaysOn:       true,
		},
		{
			ID:             "katastr_stevilke",
			Name:           "SI.GURS.KN:PARCELNE_STEVILKE",
			Title:          "Parcelne številke",
			Description:    "Prikaz številk parcel iz katastra",
			URL:            defaultKNWMS,
			Format:         "image/png",
			Transparent:    true,
			Category:       "overlay",
			Kind:           "label",
			DefaultVisible: true,
		},
		{
			ID:          "namenska_raba",
			Name:        "RPE:RPE_PO",
			Title:       "Namenska raba (RPE)",
			Description: "Namenska raba prostora iz registra prostorskih enot",
			URL:         defaultRPEWMS,
			Format:      "image/png",
			Transparent: true,
			Category:    "overlay",
			Kind:        "classification",
			Opacity:     0.6,
		},
		{
			ID:          "stavbe",
			Name:        "SI.GURS.KN:STAVBE",
			Title:       "Stavbni kataster",
			Description: "Stavbe iz katastra nepremičnin",
			URL:         defaultKNWMS,
			Format:      "image/png",
			Transparent: true,
			Category:    "overlay",
		},
		{
			ID:          "hisne_stevilke",
			Name:        "SI.GURS.KN:HS_STEVILKE",
			Title:       "Hišne številke",
			Description: "Prikaz hišnih številk",
			URL:         defaultKNWMS,
			Format:      "image/png",
			Transparent: true,
			Category:    "overlay",
			Kind:        "label",
		},
	}
}

func builtinCatalog() gursclient.Capabilities {
	return gursclient.Capabilities{
		WMSURL: defaultCatalogWMS,
		Layers: []gursclient.CapabilityEntry{
			{Name: "DOF", Title: "Digitalni ortofoto", Description: "Ortofoto posnetek Slovenije"},
			{Name: "KN_ZK", Title: "Zemljiški kataster", Description: "Parcelne meje in številke"},
			{Name: "KN_SN", Title: "Stavbni kataster", Description: "Stavbe in objekti"},
			{Name: "OPN_RABA", Title: "Namenska raba", Description: "Prostorski načrt - namenska raba"},
			{Name: "DTM", Title: "Digitalni model terena", Description: "Višinski podatki"},
			{Name: "POP", Title: "Poplavna območja", Description: "Območja ogrožena s poplavami"},
		},
	}
}
