// Package server wires the HTTP surface: the Huma REST API, the Datastar
// panel, the same-origin GURS proxy and static assets.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-parcel/internal/api"
	"github.com/joeblew999/plat-parcel/internal/api/panel"
	"github.com/joeblew999/plat-parcel/internal/db"
	"github.com/joeblew999/plat-parcel/internal/proxy"
	"github.com/joeblew999/plat-parcel/internal/service"
	"github.com/joeblew999/plat-parcel/internal/templates"
	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

// proxyPath is the same-origin path browsers and the map core use to reach
// upstream GURS services.
const proxyPath = "/gurs/proxy"

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	DataDir    string
	WebDir     string // Path to web/ directory for static files and templates
	LayersFile string // Optional YAML layer set override
}

// Server is the parcel map HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	services *api.Services
	renderer *templates.Renderer
	sessions *panel.Sessions
	closers  []func() error
}

// New creates a new parcel map server.
func New(cfg Config) *Server {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("plat-parcel API", "1.0.0")
	humaConfig.Info.Description = "Map layer orchestration and parcel lookup for GURS geospatial services."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humaAPI,
	}

	conn, err := db.Open(db.Config{DataDir: cfg.DataDir, DBName: "parcelmap"})
	if err != nil {
		log.Printf("duckdb unavailable, map state will not persist: %v", err)
		conn = nil
	}
	if conn != nil {
		s.closers = append(s.closers, conn.Close)
	}

	layers, err := service.NewLayerSetService(cfg.LayersFile)
	if err != nil {
		log.Printf("layer set file rejected, using built-in set: %v", err)
		layers, _ = service.NewLayerSetService("")
	}
	state, err := service.NewStateService(conn)
	if err != nil {
		log.Printf("state store init failed, map state will not persist: %v", err)
		state, _ = service.NewStateService(nil)
	}

	s.services = &api.Services{
		Layers:  layers,
		Session: service.NewSessionService(2 * time.Hour),
		State:   state,
		Search:  service.NewSearchService(),
	}

	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		if r, err := templates.New(fragmentsDir); err == nil {
			s.renderer = r
		} else {
			log.Printf("fragment templates unavailable, panel disabled: %v", err)
		}
	}

	// The map core talks to this server's own API, with cross-origin GURS
	// requests routed back through the proxy.
	self := gursclient.New(
		fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port),
		gursclient.WithProxyPath(proxyPath),
	)
	s.sessions = panel.NewSessions(self, service.NewEventBus())

	s.routes()
	return s
}

// OpenAPI returns the generated API description for the spec subcommand.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close closes server resources.
func (s *Server) Close() error {
	s.sessions.CloseAll()
	var first error
	for _, fn := range s.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Server) routes() {
	// REST API (OpenAPI-documented JSON endpoints)
	handler := api.NewAPIHandler(s.services)
	handler.RegisterHealth(s.humaAPI)
	handler.RegisterMap(s.humaAPI)
	handler.RegisterParcels(s.humaAPI)
	base, overlays := s.services.Layers.Config()
	api.NewInfoHandler(api.ServiceStatus{
		DataDir:    s.config.DataDir,
		DB:         len(s.closers) > 0,
		Panel:      s.renderer != nil,
		LayerCount: len(base) + len(overlays),
	}).RegisterRoutes(s.humaAPI)

	// Datastar panel SSE routes
	if s.renderer != nil {
		controls := panel.NewControlsHandler(s.sessions, s.renderer)
		controls.RegisterRoutes(s.humaAPI)
		panel.NewCatalogHandler(s.sessions, s.renderer).RegisterRoutes(s.humaAPI)
		panel.NewParcelHandler(s.sessions, s.renderer).RegisterRoutes(s.humaAPI)
		panel.NewViewHandler(s.sessions, s.renderer).RegisterRoutes(s.humaAPI)
		panel.NewEventsHandler(s.sessions, controls, s.renderer).RegisterRoutes(s.humaAPI)
	}

	// Same-origin proxy for upstream GURS requests
	s.mux.Handle(proxyPath, proxy.New(s.allowedUpstreams()))

	// Static files and pages
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
		s.mux.HandleFunc("/map", s.handleMap)
	}
	s.mux.HandleFunc("/", s.handleRoot)
}

// allowedUpstreams lists every base URL the proxy may forward to: the
// configured layer endpoints plus the catalog WMS.
func (s *Server) allowedUpstreams() []string {
	seen := map[string]bool{}
	var out []string
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	base, overlays := s.services.Layers.Config()
	for _, l := range append(base, overlays...) {
		add(l.URL)
	}
	add(s.services.Layers.Capabilities().WMSURL)
	return out
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-parcel",
		"status":  "running",
	})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	templatePath := filepath.Join(s.config.WebDir, "templates", "map.html")
	http.ServeFile(w, r, templatePath)
}
