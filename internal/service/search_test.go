package service

import (
	"context"
	"testing"
)

func TestSearchBareNumber(t *testing.T) {
	s := NewSearchService()
	parcels, err := s.Search(context.Background(), "940/1")
	if err != nil {
		t.Fatal(err)
	}
	if len(parcels) != 1 {
		t.Fatalf("parcels=%d, want 1", len(parcels))
	}
	p := parcels[0]
	if p.Stevilka != "940/1" || p.KatastrskaObcina != "Litija" {
		t.Fatalf("parcel=%+v", p)
	}
	if p.Povrsina < 500 || p.Povrsina >= 2500 {
		t.Fatalf("povrsina=%v, want within [500,2500)", p.Povrsina)
	}
	if _, _, ok := p.LonLat(); !ok {
		t.Fatal("parcel missing coordinates")
	}
}

func TestSearchWithCadastralUnit(t *testing.T) {
	s := NewSearchService()
	parcels, err := s.Search(context.Background(), "  55 k.o. Moste ")
	if err != nil {
		t.Fatal(err)
	}
	if len(parcels) != 1 || parcels[0].KatastrskaObcina != "Moste" {
		t.Fatalf("parcels=%+v", parcels)
	}
}

func TestSearchRejectsNonParcelQueries(t *testing.T) {
	s := NewSearchService()
	for _, q := range []string{"", "hello", "940/1/2", "k.o. Litija"} {
		parcels, err := s.Search(context.Background(), q)
		if err != nil {
			t.Fatalf("%q: %v", q, err)
		}
		if len(parcels) != 0 {
			t.Fatalf("%q: parcels=%v, want none", q, parcels)
		}
	}
}

func TestSearchDeterministic(t *testing.T) {
	s := NewSearchService()
	a, _ := s.Search(context.Background(), "77")
	b, _ := s.Search(context.Background(), "77")
	if a[0].Povrsina != b[0].Povrsina {
		t.Fatal("area not deterministic")
	}
}
