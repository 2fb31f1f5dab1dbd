package service

import (
	"math"
	"testing"
	"time"
)

func TestParcelsSplitsListAndArea(t *testing.T) {
	s := NewSessionService(time.Minute)
	id := s.Create(SessionData{
		KeyData: map[string]string{
			"stevilke_parcel_ko": "940/1, 940/2 k.o. Moste",
			"velikost_parcel":    "2400 m2",
		},
		AIDetails: map[string][]string{
			"namenska_raba": {"SSe - stanovanjske povrsine"},
		},
	})

	parcels, ok := s.Parcels(id)
	if !ok {
		t.Fatal("session not found")
	}
	if len(parcels) != 2 {
		t.Fatalf("parcels=%d, want 2", len(parcels))
	}
	if parcels[0].Stevilka != "940/1" || parcels[1].Stevilka != "940/2" {
		t.Fatalf("numbers=%q/%q", parcels[0].Stevilka, parcels[1].Stevilka)
	}
	for _, p := range parcels {
		if p.KatastrskaObcina != "Moste" {
			t.Fatalf("ko=%q, want Moste", p.KatastrskaObcina)
		}
		if p.Povrsina != 1200 {
			t.Fatalf("povrsina=%v, want size split evenly", p.Povrsina)
		}
		if p.NamenskaRaba != "SSe - stanovanjske povrsine" {
			t.Fatalf("raba=%q", p.NamenskaRaba)
		}
		if _, _, ok := p.LonLat(); !ok {
			t.Fatal("parcel missing coordinates")
		}
	}
}

func TestParcelsFallsBackToBuildingParcel(t *testing.T) {
	s := NewSessionService(time.Minute)
	id := s.Create(SessionData{
		KeyData: map[string]string{"parcela_objekta": "123/4"},
	})

	parcels, ok := s.Parcels(id)
	if !ok || len(parcels) != 1 {
		t.Fatalf("parcels=%v ok=%v, want single building parcel", parcels, ok)
	}
	p := parcels[0]
	if p.Stevilka != "123/4" || p.KatastrskaObcina != "Litija" {
		t.Fatalf("parcel=%+v", p)
	}
	if p.Povrsina != 1000 {
		t.Fatalf("povrsina=%v, want default 1000", p.Povrsina)
	}
	if p.NamenskaRaba != NoLandUse {
		t.Fatalf("raba=%q, want %q", p.NamenskaRaba, NoLandUse)
	}
}

func TestParcelsDecimalCommaSize(t *testing.T) {
	s := NewSessionService(time.Minute)
	id := s.Create(SessionData{
		KeyData: map[string]string{
			"stevilke_parcel_ko": "55 k.o. Litija",
			"velikost_parcel":    "850,5 m2",
		},
	})
	parcels, _ := s.Parcels(id)
	if len(parcels) != 1 || parcels[0].Povrsina != 850 {
		t.Fatalf("parcels=%+v, want area 850", parcels)
	}
}

func TestParcelsEmptySession(t *testing.T) {
	s := NewSessionService(time.Minute)
	id := s.Create(SessionData{})
	parcels, ok := s.Parcels(id)
	if !ok {
		t.Fatal("session not found")
	}
	if len(parcels) != 0 {
		t.Fatalf("parcels=%v, want none", parcels)
	}

	if _, ok := s.Parcels("no-such-session"); ok {
		t.Fatal("unknown session reported found")
	}
}

func TestPutOverwritesSession(t *testing.T) {
	s := NewSessionService(time.Minute)
	id := s.Create(SessionData{KeyData: map[string]string{"parcela_objekta": "1"}})
	s.Put(id, SessionData{KeyData: map[string]string{"parcela_objekta": "2"}})
	parcels, _ := s.Parcels(id)
	if len(parcels) != 1 || parcels[0].Stevilka != "2" {
		t.Fatalf("parcels=%+v, want overwritten", parcels)
	}
}

func TestMockCoordinatesDeterministicAndNearLitija(t *testing.T) {
	lon1, lat1 := MockCoordinates("940/1")
	lon2, lat2 := MockCoordinates("940/1")
	if lon1 != lon2 || lat1 != lat2 {
		t.Fatal("coordinates not deterministic")
	}

	lon3, _ := MockCoordinates("940/2")
	if lon3 == lon1 {
		t.Fatal("different parcels map to the same point")
	}

	if math.Abs(lon1-litijaLon) > 0.011 || math.Abs(lat1-litijaLat) > 0.011 {
		t.Fatalf("point %v/%v too far from Litija", lon1, lat1)
	}
}
