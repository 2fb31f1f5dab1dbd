package service

import (
	"context"
	"hash/fnv"
	"log"
	"regexp"
	"strings"

	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

var parcelQueryRe = regexp.MustCompile(`^(\d+(?:/\d+)?)(?:\s+k\.o\.\s*(\w+))?$`)

// SearchService answers parcel number lookups. The real GURS lookup service
// needs a contract; until then results are deterministic placeholders so
// the map flow can be exercised end to end.
type SearchService struct{}

// NewSearchService creates the service.
func NewSearchService() *SearchService {
	return &SearchService{}
}

// Search resolves a parcel query like "940/1" or "940/1 k.o. Litija" into
// parcel records. Queries that do not look like a parcel number return an
// empty result, not an error.
func (s *SearchService) Search(ctx context.Context, query string) ([]gursclient.Parcel, error) {
	query = strings.TrimSpace(query)
	log.Printf("[search] parcel lookup %q", query)

	m := parcelQueryRe.FindStringSubmatch(query)
	if m == nil {
		return nil, nil
	}
	number := m[1]
	ko := m[2]
	if ko == "" {
		ko = "Litija"
	}

	lon, lat := MockCoordinates(number)
	return []gursclient.Parcel{{
		Stevilka:         number,
		KatastrskaObcina: ko,
		Povrsina:         float64(mockArea(number)),
		NamenskaRaba:     "SSe - Površine podeželskega naselja",
		Coordinates:      []any{lon, lat},
	}}, nil
}

// mockArea derives a stable parcel area in the 500..2499 m2 range.
func mockArea(parcelNumber string) int {
	h := fnv.New64a()
	h.Write([]byte(parcelNumber))
	return int(h.Sum64()%2000) + 500
}
