package gursclient

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMapConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/map-config" {
			t.Fatalf("path=%q", r.URL.Path)
		}
		if got := r.URL.Query().Get("session_id"); got != "s1" {
			t.Fatalf("session_id=%q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"config": map[string]any{
				"base_layers":    []map[string]any{{"id": "ortofoto", "name": "DOF", "url": "https://x/wms", "category": "base"}},
				"overlay_layers": []map[string]any{},
				"saved_state":    map[string]any{"center_lon": 14.8, "center_lat": 46.05, "zoom": 15},
			},
		})
	}))
	defer srv.Close()

	cfg, err := New(srv.URL).MapConfig(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.BaseLayers) != 1 || cfg.BaseLayers[0].ID != "ortofoto" {
		t.Fatalf("base=%+v", cfg.BaseLayers)
	}
	if cfg.SavedState == nil || cfg.SavedState.Zoom != 15 {
		t.Fatalf("saved=%+v", cfg.SavedState)
	}
}

func TestMapConfigMissingSuccessIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer srv.Close()

	if _, err := New(srv.URL).MapConfig(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearchParcel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search-parcel" {
			t.Fatalf("path=%q", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "940/1 k.o. Litija" {
			t.Fatalf("query=%q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"parcels": []map[string]any{{
				"stevilka":          "940/1",
				"katastrska_obcina": "Litija",
				"povrsina":          1250.0,
				"coordinates":       []any{14.83, 46.06},
			}},
		})
	}))
	defer srv.Close()

	parcels, _, err := New(srv.URL).SearchParcel(context.Background(), "940/1 k.o. Litija")
	if err != nil {
		t.Fatal(err)
	}
	if len(parcels) != 1 || parcels[0].Stevilka != "940/1" {
		t.Fatalf("parcels=%+v", parcels)
	}
	lon, lat, ok := parcels[0].LonLat()
	if !ok || lon != 14.83 || lat != 46.06 {
		t.Fatalf("lonlat=%v/%v ok=%v", lon, lat, ok)
	}
}

func TestSessionParcelsMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// session ids are path-escaped
		if got := r.URL.EscapedPath(); got != "/session-parcels/s%2F1" {
			t.Fatalf("path=%q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"parcels": []any{},
			"message": "Ni najdenih parcel v projektu",
		})
	}))
	defer srv.Close()

	parcels, msg, err := New(srv.URL).SessionParcels(context.Background(), "s/1")
	if err != nil {
		t.Fatal(err)
	}
	if len(parcels) != 0 || msg != "Ni najdenih parcel v projektu" {
		t.Fatalf("parcels=%v msg=%q", parcels, msg)
	}
}

func TestSaveMapState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/map-state/s1" {
			t.Fatalf("%s %s", r.Method, r.URL.Path)
		}
		var state ViewState
		if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
			t.Fatal(err)
		}
		if state.Zoom != 14 || state.CenterLon != 14.8267 {
			t.Fatalf("state=%+v", state)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	err := New(srv.URL).SaveMapState(context.Background(), "s1",
		ViewState{CenterLon: 14.8267, CenterLat: 46.0569, Zoom: 14})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWMSCapabilities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"wms_url": "https://prostor.gov.si/wms",
			"layers":  []map[string]any{{"name": "DTM", "title": "Teren"}},
		})
	}))
	defer srv.Close()

	caps, err := New(srv.URL).WMSCapabilities(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if caps.WMSURL != "https://prostor.gov.si/wms" || len(caps.Layers) != 1 {
		t.Fatalf("caps=%+v", caps)
	}
}

func TestGeoGetRoutesCrossOriginThroughProxy(t *testing.T) {
	var proxied string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gurs/proxy":
			proxied = r.URL.Query().Get("url")
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("tile"))
		case "/local":
			w.Write([]byte("direct"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, WithProxyPath("/gurs/proxy"))

	resp, err := c.GeoGet(context.Background(), "https://ipi.eprostor.gov.si/wms-si-gurs-kn/wms?REQUEST=GetMap")
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "tile" || resp.ContentType != "image/png" {
		t.Fatalf("resp=%+v", resp)
	}
	if proxied != "https://ipi.eprostor.gov.si/wms-si-gurs-kn/wms?REQUEST=GetMap" {
		t.Fatalf("proxied url=%q", proxied)
	}

	// same-origin requests go direct
	resp, err = c.GeoGet(context.Background(), srv.URL+"/local")
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "direct" {
		t.Fatalf("body=%q", resp.Body)
	}
}

func TestGeoGetReturnsNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	resp, err := New(srv.URL).GeoGet(context.Background(), srv.URL+"/x")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502 surfaced, not an error", resp.Status)
	}
}

func TestParcelLonLat(t *testing.T) {
	tests := []struct {
		name   string
		coords []any
		ok     bool
	}{
		{"floats", []any{14.8, 46.05}, true},
		{"json numbers", []any{json.Number("14.8"), json.Number("46.05")}, true},
		{"strings", []any{"14.8", "46.05"}, true},
		{"nan", []any{math.NaN(), 46.05}, false},
		{"short", []any{14.8}, false},
		{"nil", nil, false},
		{"garbage", []any{"x", "y"}, false},
	}
	for _, tt := range tests {
		p := Parcel{Coordinates: tt.coords}
		if _, _, ok := p.LonLat(); ok != tt.ok {
			t.Fatalf("%s: ok=%v, want %v", tt.name, ok, tt.ok)
		}
	}
}
