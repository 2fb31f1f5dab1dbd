// Package gursclient is the typed HTTP client for the plat-parcel backend
// and for upstream GURS map services. Every call is a single attempt with
// context support; callers decide what a failure means.
package gursclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// LayerConfig is one layer entry in the map-config wire format.
type LayerConfig struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Title          string  `json:"title,omitempty"`
	Description    string  `json:"description,omitempty"`
	URL            string  `json:"url"`
	Format         string  `json:"format,omitempty"`
	Transparent    bool    `json:"transparent"`
	Category       string  `json:"category"`
	Kind           string  `json:"kind,omitempty"`
	DefaultVisible bool    `json:"default_visible"`
	Opacity        float64 `json:"opacity,omitempty"`
	AlwaysOn       bool    `json:"always_on,omitempty"`
	ZHint          int     `json:"z_hint,omitempty"`
}

// ViewState is the persisted map view: rounded center and integer zoom.
type ViewState struct {
	CenterLon float64 `json:"center_lon"`
	CenterLat float64 `json:"center_lat"`
	Zoom      int     `json:"zoom"`
}

// MapConfig is the authoritative layer configuration for one session.
type MapConfig struct {
	BaseLayers    []LayerConfig `json:"base_layers"`
	OverlayLayers []LayerConfig `json:"overlay_layers"`
	SavedState    *ViewState    `json:"saved_state,omitempty"`
}

// Parcel is one parcel record from search or session extraction. Coordinates
// come from an upstream that sometimes emits garbage, so they are kept raw
// and validated through LonLat.
type Parcel struct {
	Stevilka         string  `json:"stevilka"`
	KatastrskaObcina string  `json:"katastrska_obcina"`
	Povrsina         float64 `json:"povrsina"`
	NamenskaRaba     string  `json:"namenska_raba,omitempty"`
	Coordinates      []any   `json:"coordinates,omitempty"`
}

// LonLat returns the parcel's coordinates when they are a finite [lon, lat]
// pair, in any of the numeric encodings the upstream has been seen to use.
func (p Parcel) LonLat() (lon, lat float64, ok bool) {
	if len(p.Coordinates) != 2 {
		return 0, 0, false
	}
	lon, ok = toFinite(p.Coordinates[0])
	if !ok {
		return 0, 0, false
	}
	lat, ok = toFinite(p.Coordinates[1])
	if !ok {
		return 0, 0, false
	}
	return lon, lat, true
}

func toFinite(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CapabilityEntry is one layer advertised by the WMS capability listing.
type CapabilityEntry struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Capabilities is the catalog of additional layers discoverable at runtime.
type Capabilities struct {
	Layers []CapabilityEntry `json:"layers"`
	WMSURL string            `json:"wms_url"`
}

// GeoResponse is the raw result of an outbound geospatial GET.
type GeoResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// Client talks to the plat-parcel backend at Base and proxies cross-origin
// geospatial requests through ProxyPath on the same origin.
type Client struct {
	base      string
	proxyPath string
	http      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithProxyPath sets the same-origin proxy path used for cross-origin
// geospatial GETs, e.g. "/gurs/proxy".
func WithProxyPath(p string) Option {
	return func(c *Client) { c.proxyPath = p }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: baseURL,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}

// MapConfig fetches the layer configuration and saved view state for a
// session. A response without success or config is an error; the caller
// falls back to defaults.
func (c *Client) MapConfig(ctx context.Context, sessionID string) (*MapConfig, error) {
	q := url.Values{}
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	var body struct {
		Success bool       `json:"success"`
		Config  *MapConfig `json:"config"`
	}
	if err := c.getJSON(ctx, "/map-config", q, &body); err != nil {
		return nil, err
	}
	if !body.Success || body.Config == nil {
		return nil, errors.New("map-config: missing success or config")
	}
	return body.Config, nil
}

type parcelsResponse struct {
	Success bool     `json:"success"`
	Parcels []Parcel `json:"parcels"`
	Message string   `json:"message,omitempty"`
}

// SessionParcels fetches the parcels extracted for a session. The message
// accompanies an empty result, e.g. "no parcels found in project".
func (c *Client) SessionParcels(ctx context.Context, sessionID string) ([]Parcel, string, error) {
	var body parcelsResponse
	if err := c.getJSON(ctx, "/session-parcels/"+url.PathEscape(sessionID), nil, &body); err != nil {
		return nil, "", err
	}
	if !body.Success {
		return nil, body.Message, errors.New("session-parcels: not successful")
	}
	return body.Parcels, body.Message, nil
}

// SearchParcel looks a parcel up by number, optionally qualified with a
// cadastral unit ("940/1 k.o. Litija").
func (c *Client) SearchParcel(ctx context.Context, query string) ([]Parcel, string, error) {
	q := url.Values{}
	q.Set("query", query)
	var body parcelsResponse
	if err := c.getJSON(ctx, "/search-parcel", q, &body); err != nil {
		return nil, "", err
	}
	if !body.Success {
		return nil, body.Message, errors.New("search-parcel: not successful")
	}
	return body.Parcels, body.Message, nil
}

// SaveMapState writes the view state for a session. Best effort: the caller
// logs and drops any error.
func (c *Client) SaveMapState(ctx context.Context, sessionID string, state ViewState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encode map state")
	}
	u := c.base + "/map-state/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "POST map-state")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("POST map-state: status %d", resp.StatusCode)
	}
	return nil
}

// WMSCapabilities fetches the dynamic layer catalog.
func (c *Client) WMSCapabilities(ctx context.Context) (*Capabilities, error) {
	var body struct {
		Success bool              `json:"success"`
		Layers  []CapabilityEntry `json:"layers"`
		WMSURL  string            `json:"wms_url"`
	}
	if err := c.getJSON(ctx, "/wms-capabilities", nil, &body); err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, errors.New("wms-capabilities: not successful")
	}
	return &Capabilities{Layers: body.Layers, WMSURL: body.WMSURL}, nil
}

// GeoGet performs one outbound geospatial GET (tile or feature query).
// When the target host differs from the backend origin and a proxy path is
// configured, the request is routed through the same-origin proxy with the
// encoded target URL; otherwise it goes direct. Non-2xx statuses are
// returned to the caller, not treated as transport errors.
func (c *Client) GeoGet(ctx context.Context, rawURL string) (*GeoResponse, error) {
	target := rawURL
	if c.proxyPath != "" && c.crossOrigin(rawURL) {
		target = c.base + c.proxyPath + "?url=" + url.QueryEscape(rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build geo request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "geo GET")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read geo response")
	}
	return &GeoResponse{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) crossOrigin(rawURL string) bool {
	target, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	base, err := url.Parse(c.base)
	if err != nil {
		return false
	}
	return target.Host != "" && target.Host != base.Host
}

