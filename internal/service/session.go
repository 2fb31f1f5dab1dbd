package service

import (
	"hash/fnv"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

// Litija town center, the default locus for sessions without geocoded
// parcels.
const (
	litijaLon = 14.8267
	litijaLat = 46.0569
)

// SessionData is the slice of an analysis session the map cares about:
// extracted key/value pairs plus list-valued AI details.
type SessionData struct {
	KeyData   map[string]string
	AIDetails map[string][]string
}

// SessionService keeps per-session extraction data in a TTL cache and turns
// it into parcel records with deterministic placeholder coordinates.
type SessionService struct {
	store *cache.Cache
}

// NewSessionService creates a service whose sessions expire after ttl.
func NewSessionService(ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionService{store: cache.New(ttl, 2*ttl)}
}

// Create stores data under a fresh session id and returns the id.
func (s *SessionService) Create(data SessionData) string {
	id := uuid.NewString()
	s.store.Set(id, data, cache.DefaultExpiration)
	return id
}

// Put stores data under an existing session id.
func (s *SessionService) Put(sessionID string, data SessionData) {
	s.store.Set(sessionID, data, cache.DefaultExpiration)
}

// Parcels returns the parcels extracted for a session with coordinates
// attached. The second return is false when the session does not exist or
// has expired.
func (s *SessionService) Parcels(sessionID string) ([]gursclient.Parcel, bool) {
	v, ok := s.store.Get(sessionID)
	if !ok {
		return nil, false
	}
	data, ok := v.(SessionData)
	if !ok {
		return nil, false
	}

	parcels := extractParcels(data)
	for i := range parcels {
		lon, lat := MockCoordinates(parcels[i].Stevilka)
		parcels[i].Coordinates = []any{lon, lat}
	}
	return parcels, true
}

var (
	koRe      = regexp.MustCompile(`(?i)k\.o\.\s*(\w+)`)
	stripKORe = regexp.MustCompile(`(?i)k\.o\..*`)
	sizeRe    = regexp.MustCompile(`(\d+[.,]?\d*)`)
	splitRe   = regexp.MustCompile(`[,;\n]`)
)

// extractParcels pulls parcel records out of session extraction data. The
// parcel list field holds free text like "940/1, 940/2 k.o. Litija"; the
// cadastral unit is sniffed from the "k.o." suffix and the total parcel
// size is split evenly across the listed parcels. When no parcel list was
// extracted, the single building parcel is used instead.
func extractParcels(data SessionData) []gursclient.Parcel {
	keyData := data.KeyData

	buildingParcel := strings.TrimSpace(keyData["parcela_objekta"])
	allParcels := keyData["stevilke_parcel_ko"]
	sizeRaw := keyData["velikost_parcel"]

	ko := "Litija"
	if m := koRe.FindStringSubmatch(allParcels); m != nil {
		ko = m[1]
	}

	landUse := NoLandUse
	if uses := data.AIDetails["namenska_raba"]; len(uses) > 0 && uses[0] != "" {
		landUse = uses[0]
	}

	size := 1000.0
	if m := sizeRe.FindStringSubmatch(sizeRaw); m != nil {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			size = f
		} else {
			log.Printf("[session] unparseable parcel size %q", sizeRaw)
		}
	}

	var numbers []string
	if strings.TrimSpace(allParcels) != "" {
		listed := stripKORe.ReplaceAllString(allParcels, "")
		for _, part := range splitRe.Split(listed, -1) {
			part = strings.TrimSpace(part)
			if part == "" || strings.EqualFold(part, "k.o.") {
				continue
			}
			numbers = append(numbers, part)
		}
	}

	var parcels []gursclient.Parcel
	if len(numbers) > 0 {
		per := size / float64(len(numbers))
		for _, n := range numbers {
			parcels = append(parcels, gursclient.Parcel{
				Stevilka:         n,
				KatastrskaObcina: ko,
				Povrsina:         float64(int(per)),
				NamenskaRaba:     landUse,
			})
		}
		return parcels
	}

	if buildingParcel != "" {
		parcels = append(parcels, gursclient.Parcel{
			Stevilka:         buildingParcel,
			KatastrskaObcina: ko,
			Povrsina:         size,
			NamenskaRaba:     landUse,
		})
	}
	return parcels
}

// NoLandUse is the placeholder land-use description.
const NoLandUse = "Ni podatka"

// MockCoordinates generates consistent placeholder coordinates for a
// parcel within roughly a kilometer of the Litija town center. The same
// parcel number always maps to the same point.
func MockCoordinates(parcelNumber string) (lon, lat float64) {
	h := fnv.New64a()
	h.Write([]byte(parcelNumber))
	v := h.Sum64()

	offsetLon := float64(int64(v%2000)-1000) * 0.00001
	offsetLat := float64(int64((v/2000)%2000)-1000) * 0.00001
	return litijaLon + offsetLon, litijaLat + offsetLat
}
