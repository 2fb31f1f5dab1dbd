package maps

import (
	"context"
	"errors"
	"testing"

	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

type fakeConfigClient struct {
	cfg *gursclient.MapConfig
	err error
}

func (f *fakeConfigClient) MapConfig(ctx context.Context, sessionID string) (*gursclient.MapConfig, error) {
	return f.cfg, f.err
}

func TestLoadConfigurationNilClientUsesDefaults(t *testing.T) {
	cfg := LoadConfiguration(context.Background(), nil, "s1")
	if len(cfg.Base) == 0 || len(cfg.Overlays) == 0 {
		t.Fatal("defaults missing layers")
	}
	if cfg.View != DefaultView() {
		t.Fatalf("view=%+v, want default", cfg.View)
	}
}

func TestLoadConfigurationErrorUsesDefaults(t *testing.T) {
	client := &fakeConfigClient{err: errors.New("backend down")}
	cfg := LoadConfiguration(context.Background(), client, "s1")
	if len(cfg.Base) != 1 || cfg.Base[0].ID != "ortofoto" {
		t.Fatalf("base=%+v, want built-in ortofoto", cfg.Base)
	}
}

func TestLoadConfigurationEmptyLayerSetUsesDefaults(t *testing.T) {
	client := &fakeConfigClient{cfg: &gursclient.MapConfig{}}
	cfg := LoadConfiguration(context.Background(), client, "s1")
	if len(cfg.Overlays) == 0 {
		t.Fatal("empty remote config did not fall back to defaults")
	}
}

func TestLoadConfigurationAppliesRemoteConfigAndSavedState(t *testing.T) {
	client := &fakeConfigClient{cfg: &gursclient.MapConfig{
		BaseLayers: []gursclient.LayerConfig{
			{ID: "dof", Name: "DOF", URL: "https://example.test/wms", Category: "overlay"},
		},
		OverlayLayers: []gursclient.LayerConfig{
			{ID: "kn", Name: "KN:PARCELE", URL: "https://example.test/wms", AlwaysOn: true},
		},
		SavedState: &gursclient.ViewState{CenterLon: 15.0, CenterLat: 46.2, Zoom: 17},
	}}
	cfg := LoadConfiguration(context.Background(), client, "s1")

	if len(cfg.Base) != 1 || cfg.Base[0].ID != "dof" {
		t.Fatalf("base=%+v", cfg.Base)
	}
	// categories follow the list the entry arrived in, not the wire field
	if cfg.Base[0].Category != CategoryBase {
		t.Fatalf("category=%q, want base", cfg.Base[0].Category)
	}
	if cfg.Overlays[0].Category != CategoryOverlay {
		t.Fatalf("category=%q, want overlay", cfg.Overlays[0].Category)
	}
	if cfg.View.Zoom != 17 || cfg.View.CenterLon != 15.0 {
		t.Fatalf("view=%+v, want saved state", cfg.View)
	}
}

func TestDefaultConfigIsRegistrable(t *testing.T) {
	cfg := DefaultConfig()
	r := NewRegistry(nil, "")
	f := NewFactory(nil, nil)
	for _, d := range append(append([]LayerDescriptor{}, cfg.Base...), cfg.Overlays...) {
		l, err := f.Create(d)
		if err != nil {
			t.Fatalf("create %s: %v", d.ID, err)
		}
		if err := r.Register(l); err != nil {
			t.Fatalf("register %s: %v", d.ID, err)
		}
	}
	if _, ok := r.VisibleOverlayOfKind(KindBoundary); !ok {
		t.Fatal("default config has no visible boundary overlay")
	}
}
