package maps

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/joeblew999/plat-parcel/internal/service"
	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

// BackendClient is everything the controller needs from the backend and
// upstream services. *gursclient.Client satisfies it.
type BackendClient interface {
	ConfigClient
	CapabilitiesClient
	StateWriter
	GeoFetcher
	SearchParcel(ctx context.Context, query string) ([]gursclient.Parcel, string, error)
	SessionParcels(ctx context.Context, sessionID string) ([]gursclient.Parcel, string, error)
}

// Controller owns all map state for one session: registry, catalog,
// coordinator, view and persister. One instance per mounted map; torn down
// with Close. There are no package-level singletons.
type Controller struct {
	SessionID string

	client   BackendClient
	registry *Registry
	factory  *Factory
	binder   *ControlBinder
	catalog  *CatalogManager
	queries  *Coordinator
	view     *MapView
	persist  *Persister

	mu        sync.Mutex
	searching bool
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	debounce time.Duration
	bus      *service.EventBus
}

// WithDebounce overrides the view persistence debounce, mainly for tests.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithBus publishes registry and selection changes on bus.
func WithBus(bus *service.EventBus) Option {
	return func(o *options) { o.bus = bus }
}

// NewController loads the session's configuration (falling back to built-in
// defaults), registers the configured layers and wires up persistence.
// Construction never fails: invalid descriptors are skipped, a missing
// backend still yields a renderable map.
func NewController(ctx context.Context, client BackendClient, sessionID string, opts ...Option) *Controller {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := LoadConfiguration(ctx, client, sessionID)

	errs := NewTileErrorLog(0)
	factory := NewFactory(client, errs)
	registry := NewRegistry(o.bus, sessionID)

	for _, d := range append(append([]LayerDescriptor{}, cfg.Base...), cfg.Overlays...) {
		layer, err := factory.Create(d)
		if err != nil {
			log.Printf("[controller] skipping layer: %v", err)
			continue
		}
		if err := registry.Register(layer); err != nil {
			log.Printf("[controller] skipping layer %s: %v", d.ID, err)
		}
	}
	registry.InitBaseSelection()

	view := NewMapView(cfg.View)
	persist := NewPersister(client, sessionID, o.debounce)
	view.Observe(persist.ViewChanged)

	return &Controller{
		SessionID: sessionID,
		client:    client,
		registry:  registry,
		factory:   factory,
		binder:    NewControlBinder(registry),
		catalog:   NewCatalogManager(client, registry, factory),
		queries:   NewCoordinator(registry, client),
		view:      view,
		persist:   persist,
	}
}

// Registry exposes the layer registry for read-side callers.
func (c *Controller) Registry() *Registry { return c.registry }

// Controls exposes the selector/control binder.
func (c *Controller) Controls() *ControlBinder { return c.binder }

// Catalog exposes the dynamic catalog manager.
func (c *Controller) Catalog() *CatalogManager { return c.catalog }

// View exposes the map view.
func (c *Controller) View() *MapView { return c.view }

// TileErrors exposes the shared tile error log.
func (c *Controller) TileErrors() *TileErrorLog { return c.factory.Errors() }

// Selection returns the currently displayed parcel selection.
func (c *Controller) Selection() *ParcelSelection { return c.queries.Selection() }

// Click resolves a map click into the displayed selection, using the view's
// current resolution for the feature query window.
func (c *Controller) Click(ctx context.Context, lon, lat float64) (*ParcelSelection, bool) {
	return c.queries.QueryAt(ctx, lon, lat, c.view.Resolution())
}

// LoadSessionParcels fetches the parcels extracted for this session and
// plots them. Returns the user-facing message for an empty result.
func (c *Controller) LoadSessionParcels(ctx context.Context) (string, error) {
	parcels, message, err := c.client.SessionParcels(ctx, c.SessionID)
	if err != nil {
		return "", err
	}
	if len(parcels) == 0 {
		if message == "" {
			message = "Ni najdenih parcel v projektu"
		}
		return message, nil
	}
	c.view.SetMarkers(parcels)
	return "", nil
}

var bareParcelNumber = regexp.MustCompile(`^\d+(/\d+)?$`)

// Searching reports whether a search is in flight, so the panel can keep
// the search control disabled.
func (c *Controller) Searching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searching
}

// SearchParcel looks up parcels and, on success, replaces the marker set
// and selection with the results. The returned message is user-facing and
// empty on success. The busy flag is always cleared, whatever the outcome.
func (c *Controller) SearchParcel(ctx context.Context, query string) string {
	c.mu.Lock()
	c.searching = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.searching = false
		c.mu.Unlock()
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return "Vnesite številko parcele."
	}

	parcels, _, err := c.client.SearchParcel(ctx, query)
	if err != nil {
		log.Printf("[search] %q failed: %v", query, err)
		return "Iskanje ni uspelo. Poskusite znova."
	}
	if len(parcels) == 0 {
		if bareParcelNumber.MatchString(query) && !strings.Contains(strings.ToLower(query), "k.o.") {
			return fmt.Sprintf("Ni zadetkov za parcelo %q. Dodajte katastrsko občino, npr. %q.", query, query+" k.o. Litija")
		}
		return fmt.Sprintf("Ni zadetkov za %q.", query)
	}

	c.view.SetMarkers(parcels)

	first := parcels[0]
	sel := &ParcelSelection{
		ParcelNumber:       orNoData(first.Stevilka),
		CadastralUnitName:  orNoData(first.KatastrskaObcina),
		AreaSquareMeters:   first.Povrsina,
		LandUseDescription: orNoData(first.NamenskaRaba),
	}
	c.queries.setSelection(sel)
	return ""
}

func orNoData(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoData
	}
	return s
}

// Close tears the session down: pending persistence is cancelled and
// dynamic layers are detached.
func (c *Controller) Close() {
	c.persist.Close()
	c.registry.ClearDynamics()
}
