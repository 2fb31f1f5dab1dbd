package maps

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

// maxCatalogEntries bounds the displayed catalog so the panel stays
// responsive against services advertising hundreds of layers.
const maxCatalogEntries = 50

// ErrNoLayersAvailable is reported when the capability fetch fails or
// yields nothing usable. Previously added dynamic layers are untouched.
var ErrNoLayersAvailable = errors.New("no layers available")

// CatalogEntry is one listable catalog layer with its add/remove state.
type CatalogEntry struct {
	Name        string
	Title       string
	Description string
	Added       bool
}

// CapabilitiesClient fetches the dynamic layer catalog.
type CapabilitiesClient interface {
	WMSCapabilities(ctx context.Context) (*gursclient.Capabilities, error)
}

// CatalogManager discovers additional layers at runtime and lets the user
// add/remove them as ephemeral dynamic layers. The capability listing is
// fetched lazily on the first request, not at startup.
type CatalogManager struct {
	client  CapabilitiesClient
	reg     *Registry
	factory *Factory

	mu      sync.Mutex
	loaded  bool
	entries []gursclient.CapabilityEntry
	wmsURL  string
}

// NewCatalogManager creates a manager adding layers through factory into reg.
func NewCatalogManager(client CapabilitiesClient, reg *Registry, factory *Factory) *CatalogManager {
	return &CatalogManager{client: client, reg: reg, factory: factory}
}

// ListCapabilities returns the filtered catalog: entries whose name matches
// a configured layer are hidden, and the listing is capped. The fetch
// happens once; a failed fetch is retried on the next request. The lock is
// held across the fetch so concurrent first requests collapse into one
// upstream call.
func (m *CatalogManager) ListCapabilities(ctx context.Context) ([]CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		caps, err := m.client.WMSCapabilities(ctx)
		if err != nil {
			log.Printf("[catalog] capability fetch failed: %v", err)
			return nil, ErrNoLayersAvailable
		}
		m.entries = caps.Layers
		m.wmsURL = caps.WMSURL
		m.loaded = true
	}

	known := m.reg.KnownRemoteNames()

	var out []CatalogEntry
	for _, e := range m.entries {
		if e.Name == "" || known[e.Name] {
			continue
		}
		out = append(out, CatalogEntry{
			Name:        e.Name,
			Title:       e.Title,
			Description: e.Description,
			Added:       m.reg.HasDynamic(e.Name),
		})
		if len(out) == maxCatalogEntries {
			break
		}
	}
	if len(out) == 0 {
		return nil, ErrNoLayersAvailable
	}
	return out, nil
}

// AddDynamic creates an ephemeral layer for a catalog entry: transparent,
// partially opaque, rendered above all configured layers. Adding a name
// twice reports the duplicate so the panel can flip the control to
// "remove".
func (m *CatalogManager) AddDynamic(name string) error {
	m.mu.Lock()
	wmsURL := m.wmsURL
	var title string
	for _, e := range m.entries {
		if e.Name == name {
			title = e.Title
			break
		}
	}
	m.mu.Unlock()

	if wmsURL == "" {
		return errors.New("catalog not loaded")
	}
	if title == "" {
		title = name
	}

	layer, err := m.factory.Create(LayerDescriptor{
		ID:             "dynamic-" + slug(name),
		RemoteName:     name,
		Title:          title,
		URL:            wmsURL,
		Transparent:    true,
		Category:       CategoryOverlay,
		DefaultVisible: true,
		Opacity:        0.7,
	})
	if err != nil {
		return errors.Wrapf(err, "create dynamic layer %s", name)
	}
	return m.reg.AddDynamic(layer)
}

// RemoveDynamic detaches a dynamic layer from the map.
func (m *CatalogManager) RemoveDynamic(name string) bool {
	return m.reg.RemoveDynamic(name)
}

// slug turns a remote layer name into a registry-safe id fragment.
func slug(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
