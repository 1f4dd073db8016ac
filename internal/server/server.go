// Package server assembles the propmap HTTP server: the Huma REST API, the
// Datastar viewer handlers, the map page and static assets.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"go.uber.org/zap"

	"github.com/joeblew999/propmap/internal/api"
	"github.com/joeblew999/propmap/internal/api/viewer"
	"github.com/joeblew999/propmap/internal/config"
	"github.com/joeblew999/propmap/internal/db"
	"github.com/joeblew999/propmap/internal/geodata"
	"github.com/joeblew999/propmap/internal/humastar"
	"github.com/joeblew999/propmap/internal/logger"
	"github.com/joeblew999/propmap/internal/service"
	"github.com/joeblew999/propmap/internal/templates"
)

const (
	pruneInterval  = time.Minute
	sessionMaxIdle = 30 * time.Minute
)

// Config holds the server configuration.
type Config struct {
	Host        string
	Port        string
	DataDir     string
	WebDir      string // Path to web/ directory for static files and template overrides
	PresetsFile string // optional YAML merged over the built-in presets
	Strict      bool   // fail dataset loads when the point layer is unavailable
	NoDB        bool   // skip DuckDB attribute tables
	Log         *zap.SugaredLogger
}

// Server is the propmap HTTP server.
type Server struct {
	config   Config
	log      *zap.SugaredLogger
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	services *api.Services
	renderer *templates.Renderer
	stop     context.CancelFunc
}

// New creates a new propmap server.
func New(cfg Config) (*Server, error) {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}

	presets, err := config.Load(cfg.PresetsFile)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("propmap API", "1.0.0")
	humaConfig.Info.Description = "Proportional symbol maps: presets, map sessions, temporal sequencing and legends."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		config:  cfg,
		log:     log,
		mux:     mux,
		humaAPI: humaAPI,
	}

	var sink service.AttributeSink
	if !cfg.NoDB {
		conn, err := db.Get(db.Config{
			DataDir: cfg.DataDir,
			DBName:  "propmap",
		})
		if err != nil {
			log.Warnw("duckdb unavailable, attribute tables disabled", "err", err)
		} else {
			s.db = conn
			sink = db.NewStore(conn)
		}
	}

	catalog := service.NewCatalog(service.CatalogConfig{
		Presets: presets,
		Loader:  geodata.NewLoader(cfg.DataDir, log.Named("geodata")),
		Sink:    sink,
		Strict:  cfg.Strict,
		Log:     log.Named("catalog"),
	})
	s.services = &api.Services{
		Catalog:  catalog,
		Sessions: service.NewSessionService(catalog, service.NewEventBus(), log.Named("sessions")),
		Source:   service.NewSourceService(cfg.DataDir),
	}

	s.renderer, err = newRenderer(cfg.WebDir, log)
	if err != nil {
		return nil, err
	}

	ctx, stop := context.WithCancel(context.Background())
	s.stop = stop
	go s.services.Sessions.RunPruner(ctx, pruneInterval, sessionMaxIdle)

	s.routes()
	return s, nil
}

// newRenderer prefers fragments under webDir/templates/fragments and falls
// back to the embedded set.
func newRenderer(webDir string, log *zap.SugaredLogger) (*templates.Renderer, error) {
	if webDir != "" {
		fragmentsDir := filepath.Join(webDir, "templates", "fragments")
		if _, err := os.Stat(fragmentsDir); err == nil {
			r, err := templates.New(fragmentsDir)
			if err != nil {
				return nil, fmt.Errorf("loading fragments from %s: %w", fragmentsDir, err)
			}
			log.Infow("loaded fragment templates", "dir", fragmentsDir)
			return r, nil
		}
	}
	return templates.New("")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services returns the services backing the API.
func (s *Server) Services() *api.Services {
	return s.services
}

// Close stops the session pruner and closes server resources.
func (s *Server) Close() error {
	s.stop()
	if s.db != nil {
		return db.Close()
	}
	return nil
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.config.DataDir, s.db != nil, s.services.Sessions).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Register viewer SSE routes using Huma + Datastar SDK
	viewer.NewHandler(humastar.Handler{Renderer: s.renderer}, s.services.Sessions).RegisterRoutes(s.humaAPI)

	// Static files
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	// Page routes
	s.mux.HandleFunc("/map", s.handleMap)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/map", http.StatusFound)
}

// mapPage is the data the map-page template renders.
type mapPage struct {
	State   service.SessionState
	Signals string
	Legend  viewer.LegendView
}

// handleMap bootstraps a session for ?preset= and renders the map page.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	preset := r.URL.Query().Get("preset")
	if preset == "" {
		preset = s.services.Catalog.Presets().Default()
	}

	sess, err := s.services.Sessions.Create(r.Context(), preset)
	if err != nil {
		switch {
		case errors.Is(err, config.ErrPresetNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, service.ErrPointsUnavailable):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			s.log.Errorw("map session failed", "preset", preset, "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	state := sess.State()
	html, err := s.renderer.Render("map-page", mapPage{
		State:   state,
		Signals: viewer.SignalsJSON(state),
		Legend:  viewer.NewLegendView(state),
	})
	if err != nil {
		s.log.Errorw("map page render failed", "err", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}
