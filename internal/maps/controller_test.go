package maps

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

// fakeBackend is a full BackendClient with programmable responses.
type fakeBackend struct {
	cfg        *gursclient.MapConfig
	cfgErr     error
	searchRes  []gursclient.Parcel
	searchErr  error
	sessionRes []gursclient.Parcel
	sessionMsg string
	sessionErr error
	saved      []gursclient.ViewState
}

func (f *fakeBackend) MapConfig(ctx context.Context, sessionID string) (*gursclient.MapConfig, error) {
	return f.cfg, f.cfgErr
}

func (f *fakeBackend) WMSCapabilities(ctx context.Context) (*gursclient.Capabilities, error) {
	return &gursclient.Capabilities{WMSURL: "https://example.test/wms"}, nil
}

func (f *fakeBackend) SaveMapState(ctx context.Context, sessionID string, state gursclient.ViewState) error {
	f.saved = append(f.saved, state)
	return nil
}

func (f *fakeBackend) GeoGet(ctx context.Context, rawURL string) (*gursclient.GeoResponse, error) {
	return emptyFeatureCollection(), nil
}

func (f *fakeBackend) SearchParcel(ctx context.Context, query string) ([]gursclient.Parcel, string, error) {
	return f.searchRes, "", f.searchErr
}

func (f *fakeBackend) SessionParcels(ctx context.Context, sessionID string) ([]gursclient.Parcel, string, error) {
	return f.sessionRes, f.sessionMsg, f.sessionErr
}

func TestNewControllerFallsBackToDefaults(t *testing.T) {
	backend := &fakeBackend{cfgErr: errors.New("backend down")}
	c := NewController(context.Background(), backend, "s1")
	defer c.Close()

	if c.Registry().Len() == 0 {
		t.Fatal("no layers registered from defaults")
	}
	bases, overlays := c.Controls().Controls()
	if len(bases) == 0 || len(overlays) == 0 {
		t.Fatal("controls missing")
	}
	selected := 0
	for _, b := range bases {
		if b.Selected {
			selected++
		}
	}
	if selected != 1 {
		t.Fatalf("selected bases=%d, want exactly 1", selected)
	}
}

func TestNewControllerSkipsInvalidDescriptors(t *testing.T) {
	backend := &fakeBackend{cfg: &gursclient.MapConfig{
		BaseLayers: []gursclient.LayerConfig{
			{ID: "ok", Name: "OK", URL: "https://example.test/wms", DefaultVisible: true},
			{ID: "broken"}, // missing name and url
		},
	}}
	c := NewController(context.Background(), backend, "s1")
	defer c.Close()

	if c.Registry().Len() != 1 {
		t.Fatalf("len=%d, want 1 (invalid skipped)", c.Registry().Len())
	}
}

func TestSearchParcelMessages(t *testing.T) {
	backend := &fakeBackend{cfgErr: errors.New("down")}
	c := NewController(context.Background(), backend, "s1")
	defer c.Close()
	ctx := context.Background()

	if msg := c.SearchParcel(ctx, "   "); msg != "Vnesite številko parcele." {
		t.Fatalf("empty query msg=%q", msg)
	}

	backend.searchErr = errors.New("boom")
	if msg := c.SearchParcel(ctx, "940/1"); msg != "Iskanje ni uspelo. Poskusite znova." {
		t.Fatalf("error msg=%q", msg)
	}

	backend.searchErr = nil
	backend.searchRes = nil
	msg := c.SearchParcel(ctx, "940/1")
	if !strings.Contains(msg, "k.o. Litija") {
		t.Fatalf("bare-number msg=%q, want cadastral unit hint", msg)
	}
	if msg := c.SearchParcel(ctx, "940/1 k.o. Moste"); !strings.Contains(msg, "Ni zadetkov") {
		t.Fatalf("qualified miss msg=%q", msg)
	}

	if c.Searching() {
		t.Fatal("busy flag stuck after searches")
	}
}

func TestSearchParcelSuccessPlotsAndSelects(t *testing.T) {
	backend := &fakeBackend{cfgErr: errors.New("down")}
	c := NewController(context.Background(), backend, "s1")
	defer c.Close()

	backend.searchRes = []gursclient.Parcel{{
		Stevilka:         "940/1",
		KatastrskaObcina: "Litija",
		Povrsina:         1250,
		Coordinates:      []any{14.83, 46.06},
	}}
	if msg := c.SearchParcel(context.Background(), "940/1"); msg != "" {
		t.Fatalf("msg=%q, want empty on success", msg)
	}
	if len(c.View().Markers()) != 1 {
		t.Fatalf("markers=%d, want 1", len(c.View().Markers()))
	}

	sel := c.Selection()
	if sel == nil || sel.ParcelNumber != "940/1" {
		t.Fatalf("selection=%+v", sel)
	}
	if sel.LandUseDescription != NoData {
		t.Fatalf("land use=%q, want %q for missing value", sel.LandUseDescription, NoData)
	}
}

func TestLoadSessionParcels(t *testing.T) {
	backend := &fakeBackend{cfgErr: errors.New("down")}
	c := NewController(context.Background(), backend, "s1")
	defer c.Close()
	ctx := context.Background()

	msg, err := c.LoadSessionParcels(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Ni najdenih parcel v projektu" {
		t.Fatalf("msg=%q", msg)
	}

	backend.sessionRes = []gursclient.Parcel{{Stevilka: "12", Coordinates: []any{14.8, 46.05}}}
	msg, err = c.LoadSessionParcels(ctx)
	if err != nil || msg != "" {
		t.Fatalf("msg=%q err=%v, want plotted silently", msg, err)
	}
	if len(c.View().Markers()) != 1 {
		t.Fatalf("markers=%d, want 1", len(c.View().Markers()))
	}

	backend.sessionRes = nil
	backend.sessionErr = errors.New("boom")
	if _, err := c.LoadSessionParcels(ctx); err == nil {
		t.Fatal("expected error")
	}
}

func TestViewChangesReachPersister(t *testing.T) {
	backend := &fakeBackend{cfgErr: errors.New("down")}
	c := NewController(context.Background(), backend, "s1", WithDebounce(10*time.Millisecond))

	c.View().SetView(14.9, 46.1, 15)
	c.View().SetView(14.91, 46.11, 16)
	time.Sleep(50 * time.Millisecond)
	c.Close()

	if len(backend.saved) != 1 {
		t.Fatalf("saves=%d, want burst collapsed to 1", len(backend.saved))
	}
	if backend.saved[0].Zoom != 16 {
		t.Fatalf("zoom=%d, want newest 16", backend.saved[0].Zoom)
	}
}
