package maps

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

// ParcelSelection is the transient result of a feature query. All fields are
// best-effort; a zero AreaSquareMeters renders as "no data".
type ParcelSelection struct {
	ParcelNumber       string
	CadastralUnitName  string
	AreaSquareMeters   float64
	LandUseDescription string
}

// Coordinator resolves map clicks into federated attribute queries. Each
// click runs the boundary and classification queries concurrently, merges
// the results under the tolerant field table, and becomes the displayed
// selection. Clicks are sequenced: a result whose click is no longer the
// newest is discarded, so a slow early query can never overwrite a later
// click (last-click-wins).
type Coordinator struct {
	reg     *Registry
	fetcher GeoFetcher

	mu        sync.Mutex
	seq       uint64
	selection *ParcelSelection
}

// NewCoordinator creates a coordinator reading layer visibility from reg.
func NewCoordinator(reg *Registry, fetcher GeoFetcher) *Coordinator {
	return &Coordinator{reg: reg, fetcher: fetcher}
}

// Selection returns the currently displayed selection, or nil when the info
// panel is cleared.
func (c *Coordinator) Selection() *ParcelSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection == nil {
		return nil
	}
	sel := *c.selection
	return &sel
}

// setSelection replaces the displayed selection directly (search results).
// It also supersedes any in-flight click so a slow query cannot overwrite
// the search result.
func (c *Coordinator) setSelection(sel *ParcelSelection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.selection = sel
}

// QueryAt handles one click at lon/lat (WGS84) with the view's current
// ground resolution in meters per pixel. It returns the new selection (nil
// when the boundary query found nothing) and whether the result was applied
// or discarded as stale.
func (c *Coordinator) QueryAt(ctx context.Context, lon, lat, resolution float64) (*ParcelSelection, bool) {
	c.mu.Lock()
	c.seq++
	click := c.seq
	c.mu.Unlock()

	boundary, haveBoundary := c.reg.VisibleOverlayOfKind(KindBoundary)
	classification, haveClassification := c.reg.VisibleOverlayOfKind(KindClassification)

	var (
		wg                       sync.WaitGroup
		boundaryProps, classProps map[string]any
	)
	if haveBoundary {
		wg.Add(1)
		go func() {
			defer wg.Done()
			boundaryProps = c.featureProps(ctx, boundary, lon, lat, resolution)
		}()
	}
	if haveClassification {
		wg.Add(1)
		go func() {
			defer wg.Done()
			classProps = c.featureProps(ctx, classification, lon, lat, resolution)
		}()
	}
	wg.Wait()

	sel := mergeSelection(boundaryProps, classProps)

	c.mu.Lock()
	defer c.mu.Unlock()
	if click != c.seq {
		log.Printf("[query] discarding stale result for click %d (newest %d)", click, c.seq)
		return nil, false
	}
	c.selection = sel
	return sel, true
}

// mergeSelection builds the displayed selection. No boundary feature means
// no selection at all: classification data is never displayed alone.
func mergeSelection(boundaryProps, classProps map[string]any) *ParcelSelection {
	if boundaryProps == nil {
		return nil
	}

	sel := &ParcelSelection{
		ParcelNumber:       NoData,
		CadastralUnitName:  NoData,
		LandUseDescription: NoData,
	}
	if v, ok := ResolveField(boundaryProps, FieldParcelNumber); ok {
		sel.ParcelNumber = v
	}
	if v, ok := ResolveField(boundaryProps, FieldCadastralUnit); ok {
		sel.CadastralUnitName = v
	}
	sel.AreaSquareMeters = ResolveArea(boundaryProps)
	if v, ok := ResolveField(classProps, FieldLandUse); ok {
		sel.LandUseDescription = v
	}
	return sel
}

// featureProps issues one GetFeatureInfo request for one layer and returns
// the first feature's properties. Any failure — transport, status, or a
// body that is not GeoJSON — is treated as "no data" for that layer only.
func (c *Coordinator) featureProps(ctx context.Context, layer LiveLayer, lon, lat, resolution float64) map[string]any {
	u := featureInfoURL(layer, lon, lat, resolution)

	resp, err := c.fetcher.GeoGet(ctx, u)
	if err != nil {
		log.Printf("[query] layer %s: feature query failed: %v", layer.Descriptor.ID, err)
		return nil
	}
	if resp.Status != http.StatusOK {
		log.Printf("[query] layer %s: feature query status %d", layer.Descriptor.ID, resp.Status)
		return nil
	}

	fc, err := geojson.UnmarshalFeatureCollection(resp.Body)
	if err != nil {
		// WMS servers answer errors with XML or HTML bodies; treat as empty.
		log.Printf("[query] layer %s: unparseable feature response", layer.Descriptor.ID)
		return nil
	}
	if len(fc.Features) == 0 {
		return nil
	}
	return fc.Features[0].Properties
}

// featureInfoURL builds a WMS 1.3.0 GetFeatureInfo request asking for one
// feature as GeoJSON at the clicked point, using a 101x101 px window at the
// view's resolution centered on the click.
func featureInfoURL(layer LiveLayer, lon, lat, resolution float64) string {
	const window = 101
	merc := project.WGS84.ToMercator(orb.Point{lon, lat})
	half := resolution * window / 2

	q := url.Values{}
	q.Set("SERVICE", "WMS")
	q.Set("VERSION", "1.3.0")
	q.Set("REQUEST", "GetFeatureInfo")
	q.Set("LAYERS", layer.Descriptor.RemoteName)
	q.Set("QUERY_LAYERS", layer.Descriptor.RemoteName)
	q.Set("STYLES", "")
	q.Set("CRS", "EPSG:3857")
	q.Set("BBOX", fmt.Sprintf("%f,%f,%f,%f", merc[0]-half, merc[1]-half, merc[0]+half, merc[1]+half))
	q.Set("WIDTH", fmt.Sprintf("%d", window))
	q.Set("HEIGHT", fmt.Sprintf("%d", window))
	q.Set("I", fmt.Sprintf("%d", window/2))
	q.Set("J", fmt.Sprintf("%d", window/2))
	q.Set("INFO_FORMAT", "application/json")
	q.Set("FEATURE_COUNT", "1")

	sep := "?"
	base := layer.Descriptor.URL
	if len(base) > 0 && (base[len(base)-1] == '?' || base[len(base)-1] == '&') {
		sep = ""
	}
	return base + sep + q.Encode()
}
