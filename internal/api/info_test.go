package api

import (
	"context"
	"testing"
)

func TestGetInfoReflectsWiring(t *testing.T) {
	h := NewInfoHandler(ServiceStatus{DataDir: ".data", DB: true, Panel: true, LayerCount: 6})

	out, err := h.GetInfo(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	body := out.Body
	if body.Name != "plat-parcel" || body.DataDir != ".data" || !body.DB || body.LayerCount != 6 {
		t.Fatalf("body=%+v", body)
	}

	features := map[string]bool{}
	for _, f := range body.Features {
		features[f] = true
	}
	for _, want := range []string{"gurs-wms", "parcel-search", "session-parcels", "state-store", "panel"} {
		if !features[want] {
			t.Fatalf("features=%v, missing %q", body.Features, want)
		}
	}
}

func TestGetInfoOmitsUnwiredFeatures(t *testing.T) {
	h := NewInfoHandler(ServiceStatus{DataDir: ".data"})

	out, err := h.GetInfo(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range out.Body.Features {
		if f == "state-store" || f == "panel" {
			t.Fatalf("features=%v, %q reported without backing wiring", out.Body.Features, f)
		}
	}
	if out.Body.DB {
		t.Fatal("db reported available without a store")
	}
}
