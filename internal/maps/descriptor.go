// Package maps implements the headless map session core: layer registry,
// tiled layer construction, dynamic catalog, feature queries and view state
// persistence. One Controller instance owns all state for one map session;
// HTTP/SSE handlers drive it and never touch live layers directly.
package maps

import (
	"fmt"
	"strings"
)

// Category classifies a layer within the registry.
type Category string

const (
	// CategoryBase is mutually-exclusive background imagery.
	CategoryBase Category = "base"
	// CategoryOverlay is drawn atop the base and toggles independently.
	CategoryOverlay Category = "overlay"
)

// LayerKind refines overlays for z-ordering and feature queries.
type LayerKind string

const (
	// KindBoundary depicts parcel boundaries; source of identity queries.
	KindBoundary LayerKind = "boundary"
	// KindLabel depicts parcel numbers / house numbers drawn above boundaries.
	KindLabel LayerKind = "label"
	// KindClassification depicts land-use categories; source of supplementary queries.
	KindClassification LayerKind = "classification"
	// KindGeneric is any other overlay.
	KindGeneric LayerKind = "generic"
)

// LayerDescriptor is the server- or built-in-supplied configuration for one
// layer. JSON field names match the map-config wire format.
type LayerDescriptor struct {
	ID             string    `json:"id" yaml:"id"`
	RemoteName     string    `json:"name" yaml:"name" doc:"Layer identifier sent to the WMS service"`
	Title          string    `json:"title,omitempty" yaml:"title"`
	URL            string    `json:"url" yaml:"url" doc:"WMS query endpoint"`
	Format         string    `json:"format,omitempty" yaml:"format" doc:"Tile image format" example:"image/png"`
	Transparent    bool      `json:"transparent" yaml:"transparent"`
	Category       Category  `json:"category" yaml:"category"`
	Kind           LayerKind `json:"kind,omitempty" yaml:"kind"`
	DefaultVisible bool      `json:"default_visible" yaml:"default_visible"`
	Opacity        float64   `json:"opacity,omitempty" yaml:"opacity" doc:"0..1, defaulted from transparency when zero"`
	AlwaysOn       bool      `json:"always_on,omitempty" yaml:"always_on" doc:"Overlay can never be hidden"`
	ZHint          int       `json:"z_hint,omitempty" yaml:"z_hint"`
}

// Validate reports the first missing required field.
func (d LayerDescriptor) Validate() error {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return fmt.Errorf("layer descriptor: missing id")
	case strings.TrimSpace(d.RemoteName) == "":
		return fmt.Errorf("layer descriptor %q: missing remote name", d.ID)
	case strings.TrimSpace(d.URL) == "":
		return fmt.Errorf("layer descriptor %q: missing url", d.ID)
	}
	if d.AlwaysOn && d.Category != CategoryOverlay {
		return fmt.Errorf("layer descriptor %q: always_on requires overlay category", d.ID)
	}
	return nil
}

// EffectiveOpacity returns the configured opacity, defaulting to 1.0 for
// opaque layers and 0.8 for transparent ones.
func (d LayerDescriptor) EffectiveOpacity() float64 {
	if d.Opacity > 0 {
		return d.Opacity
	}
	if d.Transparent {
		return 0.8
	}
	return 1.0
}

// EffectiveFormat returns the tile format, defaulting by transparency.
func (d LayerDescriptor) EffectiveFormat() string {
	if d.Format != "" {
		return d.Format
	}
	if d.Transparent {
		return "image/png"
	}
	return "image/jpeg"
}

// EffectiveKind classifies an overlay that carries no explicit kind by
// inspecting its remote name. Upstream naming is not consistent enough to
// rely on exact matches, so this checks fragments.
func (d LayerDescriptor) EffectiveKind() LayerKind {
	if d.Kind != "" {
		return d.Kind
	}
	name := strings.ToUpper(d.RemoteName)
	switch {
	case strings.Contains(name, "STEVILKE") || strings.Contains(name, "CENTROID"):
		return KindLabel
	case strings.Contains(name, "PARCELE"):
		return KindBoundary
	case strings.Contains(name, "RABA"):
		return KindClassification
	}
	return KindGeneric
}
