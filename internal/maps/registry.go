package maps

import (
	"log"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/joeblew999/plat-parcel/internal/service"
)

// Z-order bands. Base imagery stacks lowest in registration order; boundary
// overlays sit below label overlays so parcel numbers render above parcel
// boundaries; catalog layers added at runtime always render on top.
const (
	zBandBase     = 0
	zBandBoundary = 100
	zBandLabel    = 200
	zBandGeneric  = 300
	zBandDynamic  = 1000
)

// ErrLockedOverlay is reported when a caller asks to hide an always-on overlay.
var ErrLockedOverlay = errors.New("overlay is always on and cannot be hidden")

// ErrDuplicateLayer is reported when a descriptor id is already registered.
var ErrDuplicateLayer = errors.New("layer id already registered")

// LiveLayer is the runtime instance bound to one descriptor. It is owned
// exclusively by the Registry; other components read snapshots and request
// mutations through Registry operations.
type LiveLayer struct {
	Descriptor LayerDescriptor
	Visible    bool
	Opacity    float64
	ZIndex     int
	Tiles      *TileSource
}

// Registry is the single owner of all live layer state for one map session.
// Configured base and overlay layers are keyed by descriptor id; dynamic
// catalog layers are tracked separately, keyed by remote name, since they
// are ephemeral and never persisted.
type Registry struct {
	mu       sync.RWMutex
	layers   map[string]*LiveLayer
	order    []string // configured ids in registration order
	dynamics map[string]*LiveLayer
	dynNext  int
	bands    map[int]int // next offset per z band
	bus      *service.EventBus
	session  string
}

// NewRegistry creates an empty registry publishing changes on bus, tagged
// with the owning session. A nil bus disables notifications.
func NewRegistry(bus *service.EventBus, session string) *Registry {
	return &Registry{
		layers:   make(map[string]*LiveLayer),
		dynamics: make(map[string]*LiveLayer),
		bands:    make(map[int]int),
		bus:      bus,
		session:  session,
	}
}

func (r *Registry) publish(action, id string) {
	if r.bus != nil {
		r.bus.Publish(service.Event{Resource: "layers", Action: action, ID: id, Session: r.session})
	}
}

// Register inserts a configured layer and assigns its z-index. Descriptors
// missing required fields and duplicate ids are rejected without inserting.
func (r *Registry) Register(l *LiveLayer) error {
	if err := l.Descriptor.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := l.Descriptor.ID
	if _, exists := r.layers[id]; exists {
		return errors.Wrap(ErrDuplicateLayer, id)
	}

	band := zBandBase
	if l.Descriptor.Category == CategoryOverlay {
		switch l.Descriptor.EffectiveKind() {
		case KindBoundary:
			band = zBandBoundary
		case KindLabel:
			band = zBandLabel
		default:
			band = zBandGeneric
		}
	}
	if l.Descriptor.ZHint > 0 {
		l.ZIndex = l.Descriptor.ZHint
	} else {
		l.ZIndex = band + r.bands[band]
		r.bands[band]++
	}

	r.layers[id] = l
	r.order = append(r.order, id)
	r.publish("registered", id)
	return nil
}

// InitBaseSelection makes exactly one base layer visible: the first
// registered with default_visible, else the first registered. No-op when no
// base layers exist.
func (r *Registry) InitBaseSelection() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first, chosen string
	for _, id := range r.order {
		l := r.layers[id]
		if l.Descriptor.Category != CategoryBase {
			continue
		}
		if first == "" {
			first = id
		}
		if chosen == "" && l.Descriptor.DefaultVisible {
			chosen = id
		}
	}
	if chosen == "" {
		chosen = first
	}
	if chosen == "" {
		return
	}
	r.setBaseLocked(chosen)
}

func (r *Registry) setBaseLocked(id string) {
	for _, other := range r.layers {
		if other.Descriptor.Category == CategoryBase {
			other.Visible = other.Descriptor.ID == id
		}
	}
}

// SetBaseVisible makes the named base layer visible and hides all others.
// Unknown ids are logged and ignored.
func (r *Registry) SetBaseVisible(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.layers[id]
	if !ok || l.Descriptor.Category != CategoryBase {
		log.Printf("[registry] ignoring base selection for unknown layer %q", id)
		return
	}
	r.setBaseLocked(id)
	r.publish("base-selected", id)
}

// SetOverlayVisible applies the requested visibility to an overlay. Hiding
// an always-on overlay is refused with ErrLockedOverlay and nothing changes.
func (r *Registry) SetOverlayVisible(id string, visible bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.layers[id]
	if !ok || l.Descriptor.Category != CategoryOverlay {
		log.Printf("[registry] ignoring overlay toggle for unknown layer %q", id)
		return nil
	}
	if l.Descriptor.AlwaysOn && !visible {
		return errors.Wrap(ErrLockedOverlay, id)
	}
	l.Visible = visible
	r.publish("overlay-toggled", id)
	return nil
}

// CurrentlyVisible returns the ids of all visible configured layers in a
// category, ordered by z-index.
func (r *Registry) CurrentlyVisible(c Category) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for _, id := range r.order {
		l := r.layers[id]
		if l.Descriptor.Category == c && l.Visible {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.layers[ids[i]].ZIndex < r.layers[ids[j]].ZIndex
	})
	return ids
}

// VisibleOverlayOfKind returns the lowest-z visible overlay of the given
// kind, for deciding which layers are queryable right now.
func (r *Registry) VisibleOverlayOfKind(k LayerKind) (LiveLayer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *LiveLayer
	for _, l := range r.layers {
		if l.Descriptor.Category != CategoryOverlay || !l.Visible {
			continue
		}
		if l.Descriptor.EffectiveKind() != k {
			continue
		}
		if best == nil || l.ZIndex < best.ZIndex {
			best = l
		}
	}
	if best == nil {
		return LiveLayer{}, false
	}
	return *best, true
}

// Get returns a snapshot of one configured layer.
func (r *Registry) Get(id string) (LiveLayer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.layers[id]
	if !ok {
		return LiveLayer{}, false
	}
	return *l, true
}

// Snapshot returns copies of all configured layers in registration order.
func (r *Registry) Snapshot() []LiveLayer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]LiveLayer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.layers[id])
	}
	return out
}

// Len returns the number of configured layers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.layers)
}

// KnownRemoteNames returns the remote names of all configured layers, used
// to filter the dynamic catalog listing.
func (r *Registry) KnownRemoteNames() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	known := make(map[string]bool, len(r.layers))
	for _, l := range r.layers {
		known[l.Descriptor.RemoteName] = true
	}
	return known
}

// AddDynamic tracks an ephemeral catalog layer keyed by remote name, placed
// above all configured layers. Re-adding an existing name is rejected so
// repeated catalog loads can detect "already added".
func (r *Registry) AddDynamic(l *LiveLayer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := l.Descriptor.RemoteName
	if _, exists := r.dynamics[name]; exists {
		return errors.Wrap(ErrDuplicateLayer, name)
	}
	l.ZIndex = zBandDynamic + r.dynNext
	r.dynNext++
	r.dynamics[name] = l
	r.publish("dynamic-added", name)
	return nil
}

// RemoveDynamic detaches a dynamic layer. Returns false when not tracked.
func (r *Registry) RemoveDynamic(remoteName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dynamics[remoteName]; !exists {
		return false
	}
	delete(r.dynamics, remoteName)
	r.publish("dynamic-removed", remoteName)
	return true
}

// HasDynamic reports whether a catalog layer is currently added.
func (r *Registry) HasDynamic(remoteName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.dynamics[remoteName]
	return ok
}

// DynamicSnapshot returns copies of all dynamic layers ordered by z-index.
func (r *Registry) DynamicSnapshot() []LiveLayer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]LiveLayer, 0, len(r.dynamics))
	for _, l := range r.dynamics {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// ClearDynamics detaches every dynamic layer, used at teardown.
func (r *Registry) ClearDynamics() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dynamics = make(map[string]*LiveLayer)
	r.dynNext = 0
}

// TileLayerState is the client-facing slice of one live layer. The browser
// mounts one Leaflet WMS layer per entry and routes tile requests through
// the same-origin proxy.
type TileLayerState struct {
	ID          string  `json:"id"`
	RemoteName  string  `json:"remote_name"`
	URL         string  `json:"url"`
	Format      string  `json:"format"`
	Transparent bool    `json:"transparent"`
	Visible     bool    `json:"visible"`
	Opacity     float64 `json:"opacity"`
	ZIndex      int     `json:"z_index"`
}

// TileLayerStates returns configured and dynamic layers as client layer
// state, ordered by z-index.
func (r *Registry) TileLayerStates() []TileLayerState {
	all := append(r.Snapshot(), r.DynamicSnapshot()...)
	sort.Slice(all, func(i, j int) bool { return all[i].ZIndex < all[j].ZIndex })

	out := make([]TileLayerState, 0, len(all))
	for _, l := range all {
		out = append(out, TileLayerState{
			ID:          l.Descriptor.ID,
			RemoteName:  l.Descriptor.RemoteName,
			URL:         l.Descriptor.URL,
			Format:      l.Descriptor.EffectiveFormat(),
			Transparent: l.Descriptor.Transparent,
			Visible:     l.Visible,
			Opacity:     l.Opacity,
			ZIndex:      l.ZIndex,
		})
	}
	return out
}
