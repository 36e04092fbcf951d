package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-survey/internal/api"
	"github.com/joeblew999/plat-survey/internal/api/viewer"
	"github.com/joeblew999/plat-survey/internal/config"
	"github.com/joeblew999/plat-survey/internal/db"
	"github.com/joeblew999/plat-survey/internal/mapview"
	"github.com/joeblew999/plat-survey/internal/service"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	// ConfigFile is the YAML settings file; empty means ./surveymap.yaml if present.
	ConfigFile string
	Logger     *slog.Logger
}

// Server is the survey map HTTP server.
type Server struct {
	config   Config
	settings *config.Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	store    service.Store
	services *api.Services
	logger   *slog.Logger
}

// New creates a new survey map server.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	settings, err := config.Load(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-survey API", "1.0.0")
	humaConfig.Info.Description = "Survey map API: layer pipelines, visibility toggles and map view sessions."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	s := &Server{
		config:   cfg,
		settings: settings,
		mux:      mux,
		humaAPI:  humago.New(mux, humaConfig),
		logger:   logger,
	}

	if err := s.openStore(); err != nil {
		return nil, err
	}

	styles, err := api.NewStyleCache(settings.Cache.MaxCost, settings.Cache.TTL)
	if err != nil {
		s.Close()
		return nil, err
	}
	surveys := service.NewSurveyService(s.store, logger)
	s.services = &api.Services{
		Surveys: surveys,
		Views:   service.NewViewService(surveys, mapview.StyleDocumentFactory, settings.Map, service.NewEventBus(), logger),
		Styles:  styles,
		Map:     settings.Map,
	}

	s.routes()
	return s, nil
}

// openStore selects the survey store from the settings.
func (s *Server) openStore() error {
	st := s.settings.Store
	if st.Driver == config.DriverFile {
		fs, err := service.NewFileStore(s.config.DataDir)
		if err != nil {
			return err
		}
		s.store = fs
		return nil
	}
	conn, err := db.Open(context.Background(), db.Config{
		Driver:  st.Driver,
		DSN:     st.DSN,
		DataDir: s.config.DataDir,
		DBName:  "survey",
	})
	if err != nil {
		return fmt.Errorf("open %s store: %w", st.Driver, err)
	}
	s.db = conn
	s.store = service.NewSQLStore(conn)
	return nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Settings returns the loaded settings.
func (s *Server) Settings() *config.Config {
	return s.settings
}

// Store returns the survey store the server reads from.
func (s *Server) Store() service.Store {
	return s.store
}

// Close closes every open view and the server resources.
func (s *Server) Close() error {
	var errs []error
	if s.services != nil {
		for _, snap := range s.services.Views.List() {
			errs = append(errs, s.services.Views.Close(snap.ID))
		}
		s.services.Styles.Close()
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)

	views := s.services.Views
	api.NewInfoHandler(s.settings.Store.Driver, s.config.DataDir, func() int {
		return len(views.List())
	}).RegisterRoutes(s.humaAPI)

	// Datastar SSE routes for the map viewer
	viewer.New(views, s.logger).RegisterRoutes(s.humaAPI)

	if s.db != nil {
		api.NewDBHandler(s.db, s.settings.Store.Driver).RegisterRoutes(s.humaAPI)
	}

	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-survey",
		"status":  "running",
	})
}
