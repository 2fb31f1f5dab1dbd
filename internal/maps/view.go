package maps

import (
	"log"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

// Headless viewport used for extent fitting and feature query windows.
const (
	viewportWidth  = 800
	viewportHeight = 600
	fitPadding     = 40
	maxFitZoom     = 18
)

// webMercatorTopResolution is meters per pixel at zoom 0 for 256px tiles.
const webMercatorTopResolution = 156543.03392804097

// Marker is one plotted search or session result.
type Marker struct {
	Parcel gursclient.Parcel
	Point  orb.Point // WGS84 lon/lat
}

// MapView tracks center, zoom and the current marker set. View changes are
// fanned out to observers (the persister registers one); observers must not
// block.
type MapView struct {
	mu          sync.Mutex
	center      orb.Point
	zoom        int
	markers     []Marker
	listed      []gursclient.Parcel
	defaultView gursclient.ViewState
	observers   []func(gursclient.ViewState)
}

// NewMapView creates a view positioned at the initial state.
func NewMapView(initial gursclient.ViewState) *MapView {
	return &MapView{
		center:      orb.Point{initial.CenterLon, initial.CenterLat},
		zoom:        initial.Zoom,
		defaultView: initial,
	}
}

// Observe registers a view-change callback, invoked after every pan/zoom.
func (v *MapView) Observe(fn func(gursclient.ViewState)) {
	v.mu.Lock()
	v.observers = append(v.observers, fn)
	v.mu.Unlock()
}

// State returns the current view state.
func (v *MapView) State() gursclient.ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

func (v *MapView) stateLocked() gursclient.ViewState {
	return gursclient.ViewState{
		CenterLon: v.center[0],
		CenterLat: v.center[1],
		Zoom:      v.zoom,
	}
}

// SetView applies a pan/zoom and notifies observers.
func (v *MapView) SetView(lon, lat float64, zoom int) {
	v.mu.Lock()
	v.center = orb.Point{lon, lat}
	if zoom < 0 {
		zoom = 0
	}
	v.zoom = zoom
	state := v.stateLocked()
	observers := append([]func(gursclient.ViewState){}, v.observers...)
	v.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

// Resolution returns the view's ground resolution in meters per pixel.
func (v *MapView) Resolution() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return webMercatorTopResolution / math.Pow(2, float64(v.zoom))
}

// Markers returns the current marker set.
func (v *MapView) Markers() []Marker {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Marker, len(v.markers))
	copy(out, v.markers)
	return out
}

// Listed returns all parcels from the last result set, including those
// dropped from the marker set for invalid coordinates.
func (v *MapView) Listed() []gursclient.Parcel {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]gursclient.Parcel, len(v.listed))
	copy(out, v.listed)
	return out
}

// SetMarkers replaces the marker set with one marker per parcel that has
// valid finite coordinates; the rest stay in the textual list only. The
// view is then fit to the combined marker extent, or falls back to the
// default view when no valid markers remain.
func (v *MapView) SetMarkers(parcels []gursclient.Parcel) {
	var markers []Marker
	for _, p := range parcels {
		lon, lat, ok := p.LonLat()
		if !ok {
			log.Printf("[view] parcel %q has no usable coordinates, list only", p.Stevilka)
			continue
		}
		markers = append(markers, Marker{Parcel: p, Point: orb.Point{lon, lat}})
	}

	v.mu.Lock()
	v.markers = markers
	v.listed = append([]gursclient.Parcel{}, parcels...)
	v.mu.Unlock()

	v.fitToMarkers()
}

// fitToMarkers pans/zooms so the marker extent is visible with padding,
// capped at the max fit zoom. A degenerate extent falls back to the
// default view.
func (v *MapView) fitToMarkers() {
	v.mu.Lock()
	markers := v.markers
	fallback := v.defaultView
	v.mu.Unlock()

	if len(markers) == 0 {
		v.SetView(fallback.CenterLon, fallback.CenterLat, fallback.Zoom)
		return
	}

	bound := orb.Bound{Min: markers[0].Point, Max: markers[0].Point}
	for _, m := range markers[1:] {
		bound = bound.Extend(m.Point)
	}

	center := bound.Center()
	min := project.WGS84.ToMercator(bound.Min)
	max := project.WGS84.ToMercator(bound.Max)
	width := max[0] - min[0]
	height := max[1] - min[1]

	zoom := maxFitZoom
	if width > 0 || height > 0 {
		needed := math.Max(
			width/float64(viewportWidth-2*fitPadding),
			height/float64(viewportHeight-2*fitPadding),
		)
		if needed > 0 {
			z := int(math.Floor(math.Log2(webMercatorTopResolution / needed)))
			if z < zoom {
				zoom = z
			}
			if zoom < 0 {
				zoom = 0
			}
		}
	}

	v.SetView(center[0], center[1], zoom)
}

// Extent returns the bound of the current markers and whether it is usable.
func (v *MapView) Extent() (orb.Bound, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.markers) == 0 {
		return orb.Bound{}, false
	}
	bound := orb.Bound{Min: v.markers[0].Point, Max: v.markers[0].Point}
	for _, m := range v.markers[1:] {
		bound = bound.Extend(m.Point)
	}
	return bound, true
}
