package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/overlay-backend/internal/api"
	"github.com/ethpandaops/overlay-backend/internal/config"
	"github.com/ethpandaops/overlay-backend/internal/gameinfo"
	"github.com/ethpandaops/overlay-backend/internal/handlers"
	"github.com/ethpandaops/overlay-backend/internal/middleware"
)

// Dependencies are the services the HTTP routes serve. GameInfo, Inputs and
// Panel are optional; their routes answer 503 when nil.
type Dependencies struct {
	Session  api.Session
	Hotkeys  api.Bindings
	GameInfo gameinfo.Provider
	Inputs   api.InputLister
	Panel    api.PanelSource
	Checks   []handlers.Check
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	logger     logrus.FieldLogger
}

// New creates a new HTTP server with all routes and middleware.
func New(logger logrus.FieldLogger, cfg *config.Config, deps Dependencies) *Server {
	mux := http.NewServeMux()

	register := func(route string, handler http.Handler) {
		mux.Handle(route, handler)
		logger.WithField("route", route).Info("Registered route")
	}

	// Health endpoint
	register("GET /health", handlers.Health(deps.Checks...))

	// Metrics endpoint (Prometheus format)
	register("GET /metrics", promhttp.Handler())

	// Counter and command dispatch
	register("GET /api/v1/counter", api.NewCounterHandler(deps.Session, logger))
	register("POST /api/v1/commands/{command}", api.NewCommandHandler(deps.Session, logger))

	// Hotkey bindings
	hotkeysHandler := api.NewHotkeysHandler(deps.Hotkeys, logger)
	register("GET /api/v1/hotkeys", http.HandlerFunc(hotkeysHandler.List))
	register("PUT /api/v1/hotkeys/{trigger}", http.HandlerFunc(hotkeysHandler.Bind))
	register("DELETE /api/v1/hotkeys/{trigger}", http.HandlerFunc(hotkeysHandler.Unbind))
	register("POST /api/v1/hotkeys/{trigger}", http.HandlerFunc(hotkeysHandler.Fire))

	// Game info
	register("GET /api/v1/gameinfo", api.NewGameInfoHandler(deps.GameInfo, logger))
	register("POST /api/v1/gameinfo/refresh", api.NewGameInfoRefreshHandler(deps.GameInfo, logger))

	// OBS inputs, for picking text_source and browser_source
	register("GET /api/v1/sources", api.NewSourcesHandler(deps.Inputs, logger))

	// Rendered game info panel for OBS browser sources
	register("GET /overlay/gameinfo", api.NewOverlayHandler(deps.Panel, logger))

	// Apply middleware chain: Logging → Metrics → CORS → RateLimit → Recovery
	handler := middleware.RateLimit(logger, cfg.Server.RateLimit)(mux)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Metrics()(handler)
	handler = middleware.CORS()(handler)
	handler = middleware.Recovery(logger)(handler)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		logger:     logger,
	}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server (blocking call).
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	return s.httpServer.Shutdown(ctx)
}
