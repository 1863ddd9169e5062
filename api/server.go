package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/workforce-ml/api/handlers"
	"github.com/OldStager01/workforce-ml/api/middleware"
	"github.com/OldStager01/workforce-ml/api/websocket"
	"github.com/OldStager01/workforce-ml/internal/auth"
	"github.com/OldStager01/workforce-ml/internal/metrics"
	"github.com/OldStager01/workforce-ml/pkg/config"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

// Deps are the components the API adapts. Scheduler, Runs and Events may
// be nil; the matching routes then report the feature as unavailable.
type Deps struct {
	Catalog   handlers.ModelCatalog
	Scheduler handlers.ScheduleManager
	Runs      handlers.RunLog
	Metrics   *metrics.Metrics
	Health    map[string]handlers.Checker
	Events    <-chan *models.Event
}

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      config.APIConfig
	deps        Deps
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
	cancelHub   context.CancelFunc
}

func NewServer(cfg config.APIConfig, wsCfg config.WebSocketConfig, deps Deps) *Server {
	if cfg.JWTSecret == "" || cfg.JWTSecret == "change-me-in-production" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	duration := cfg.JWTDuration
	if duration <= 0 {
		duration = 24 * time.Hour
	}

	s := &Server{
		router:      gin.New(),
		config:      cfg,
		deps:        deps,
		authService: auth.NewService(cfg.JWTSecret, duration, cfg.JWTIssuer),
		wsHub:       websocket.NewHub(&wsCfg),
	}

	s.setupMiddleware()
	s.setupRoutes()

	hubCtx, cancel := context.WithCancel(context.Background())
	s.cancelHub = cancel
	go s.wsHub.Run(hubCtx)

	if deps.Events != nil {
		s.wsBridge = websocket.NewEventBridge(s.wsHub, deps.Events)
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	if s.config.MaxBodyBytes > 0 {
		s.router.Use(middleware.RequestSizeLimit(s.config.MaxBodyBytes))
	}
	if s.config.RateLimit > 0 {
		s.router.Use(middleware.RateLimit(middleware.NewRateLimiter(s.config.RateLimit, time.Minute)))
	}
}

func (s *Server) setupRoutes() {
	limits := handlers.LimitsFromConfig(&s.config)

	healthHandler := handlers.NewHealthHandler(s.deps.Health)
	authHandler := handlers.NewAuthHandler(s.authService, auth.Credentials{
		Username:     s.config.AdminUser,
		PasswordHash: s.config.AdminPasswordHash,
	}, gin.Mode() == gin.ReleaseMode)
	modelHandler := handlers.NewModelHandler(s.deps.Catalog, s.deps.Scheduler, limits)
	scheduleHandler := handlers.NewScheduleHandler(s.deps.Catalog, s.deps.Scheduler)
	runHandler := handlers.NewRunHandler(s.deps.Catalog, s.deps.Runs, limits)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)
	if s.deps.Metrics != nil {
		s.router.GET("/metrics", handlers.NewMetricsHandler(s.deps.Metrics).Prometheus)
	}

	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)

	// Protected routes
	endpointLimits := middleware.NewEndpointRateLimiter()
	endpointLimits.Limit("/models/:id/train", s.config.TrainRateLimit, time.Minute)

	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.authService))
	protected.Use(endpointLimits.Middleware())
	{
		protected.GET("/ws", websocket.ServeWebSocket(s.wsHub))

		protected.GET("/models", modelHandler.List)
		protected.GET("/models/:id", modelHandler.Get)
		protected.POST("/models/:id/train", modelHandler.Train)
		protected.GET("/models/:id/latest", modelHandler.Latest)
		protected.GET("/models/:id/history", modelHandler.History)
		protected.GET("/models/:id/history/:name", modelHandler.HistoryDocument)
		protected.GET("/models/:id/runs", runHandler.List)
		protected.GET("/models/:id/runs/:run_id", runHandler.Get)

		protected.GET("/schedules", scheduleHandler.List)
		protected.PUT("/models/:id/schedule", scheduleHandler.Put)
		protected.DELETE("/models/:id/schedule", scheduleHandler.Delete)
	}
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	defer s.cancelHub()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}

// AuthService is exposed for issuing tokens in tests and tooling.
func (s *Server) AuthService() *auth.Service {
	return s.authService
}
