package maps

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"
	"github.com/pkg/errors"

	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

const tileSize = 256

// GeoFetcher performs outbound geospatial GETs, routing cross-origin
// requests through the same-origin proxy. *gursclient.Client satisfies it.
type GeoFetcher interface {
	GeoGet(ctx context.Context, rawURL string) (*gursclient.GeoResponse, error)
}

// TileSource builds and fetches WMS GetMap tiles for one layer. Tiles are
// addressed in the usual z/x/y scheme and translated to an EPSG:3857 BBOX.
type TileSource struct {
	layerID     string
	remoteName  string
	baseURL     string
	format      string
	transparent bool
	fetcher     GeoFetcher
	errs        *TileErrorLog
}

// TileURL returns the GetMap request URL for one z/x/y tile.
func (s *TileSource) TileURL(z, x, y uint32) string {
	bound := maptile.New(x, y, maptile.Zoom(z)).Bound()
	min := project.WGS84.ToMercator(bound.Min)
	max := project.WGS84.ToMercator(bound.Max)

	q := url.Values{}
	q.Set("SERVICE", "WMS")
	q.Set("VERSION", "1.3.0")
	q.Set("REQUEST", "GetMap")
	q.Set("LAYERS", s.remoteName)
	q.Set("STYLES", "")
	q.Set("CRS", "EPSG:3857")
	q.Set("BBOX", fmt.Sprintf("%f,%f,%f,%f", min[0], min[1], max[0], max[1]))
	q.Set("WIDTH", fmt.Sprintf("%d", tileSize))
	q.Set("HEIGHT", fmt.Sprintf("%d", tileSize))
	q.Set("FORMAT", s.format)
	if s.transparent {
		q.Set("TRANSPARENT", "TRUE")
	}

	sep := "?"
	if len(s.baseURL) > 0 && (s.baseURL[len(s.baseURL)-1] == '?' || s.baseURL[len(s.baseURL)-1] == '&') {
		sep = ""
	}
	return s.baseURL + sep + q.Encode()
}

// FetchTile performs a single GET for one tile. Failures are recorded in the
// source's error log, tagged with the owning layer id, and returned; the
// layer itself stays registered regardless.
func (s *TileSource) FetchTile(ctx context.Context, z, x, y uint32) ([]byte, error) {
	resp, err := s.fetcher.GeoGet(ctx, s.TileURL(z, x, y))
	if err != nil {
		s.errs.Record(s.layerID, z, x, y, err)
		return nil, errors.Wrapf(err, "fetch tile %d/%d/%d for layer %s", z, x, y, s.layerID)
	}
	if resp.Status != http.StatusOK {
		err := fmt.Errorf("tile %d/%d/%d for layer %s: status %d", z, x, y, s.layerID, resp.Status)
		s.errs.Record(s.layerID, z, x, y, err)
		return nil, err
	}
	return resp.Body, nil
}

// TileError is one recorded tile fetch failure.
type TileError struct {
	LayerID string
	Z, X, Y uint32
	Err     string
	At      time.Time
}

// TileErrorLog keeps the most recent tile fetch failures for diagnostics.
// Recording never fails and never panics the owning layer.
type TileErrorLog struct {
	mu      sync.Mutex
	entries []TileError
	limit   int
}

// NewTileErrorLog creates a log keeping up to limit entries.
func NewTileErrorLog(limit int) *TileErrorLog {
	if limit <= 0 {
		limit = 64
	}
	return &TileErrorLog{limit: limit}
}

// Record appends a failure, evicting the oldest entry when full.
func (l *TileErrorLog) Record(layerID string, z, x, y uint32, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, TileError{
		LayerID: layerID, Z: z, X: x, Y: y,
		Err: err.Error(), At: time.Now(),
	})
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

// Recent returns a copy of the recorded failures, oldest first.
func (l *TileErrorLog) Recent() []TileError {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TileError, len(l.entries))
	copy(out, l.entries)
	return out
}

// CountFor returns the number of recorded failures for one layer.
func (l *TileErrorLog) CountFor(layerID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.LayerID == layerID {
			n++
		}
	}
	return n
}
