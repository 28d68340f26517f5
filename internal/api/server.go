package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/api/handlers"
	"vigil-worker-go/internal/api/middleware"
	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/store"
)

// Deps are the services the HTTP surface is built on
type Deps struct {
	Store      store.Store
	State      handlers.ThreatState
	Activator  handlers.Activator
	Model      handlers.ModelStatus
	Vocabulary handlers.VocabularyConfig
	Stream     http.Handler
	Metrics    http.Handler
	Clock      func() time.Time
}

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	metrics http.Handler

	healthHandler *handlers.HealthHandler
	cameraHandler *handlers.CameraHandler
	alertHandler  *handlers.AlertHandler
	systemHandler *handlers.SystemHandler
	videoHandler  *handlers.VideoHandler
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	if cfg.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	clock := handlers.Clock(deps.Clock)
	if deps.Clock == nil {
		clock = time.Now
	}

	s := &Server{
		config:        cfg,
		router:        gin.New(),
		metrics:       deps.Metrics,
		healthHandler: handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, deps.State, deps.Model, deps.Store, clock),
		cameraHandler: handlers.NewCameraHandler(deps.Store, deps.Activator, clock),
		alertHandler:  handlers.NewAlertHandler(deps.Store, clock),
		systemHandler: handlers.NewSystemHandler(deps.Store, deps.State, deps.Vocabulary, clock),
		videoHandler:  handlers.NewVideoHandler(deps.Activator, deps.Stream),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Identity())
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting Vigil Worker API")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping Vigil Worker API")
	return s.server.Shutdown(ctx)
}
