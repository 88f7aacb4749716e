// Package server assembles the HTTP server and its dependencies.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/InstallOS/backend/internal/api/http"
	"github.com/GriffinCanCode/InstallOS/backend/internal/api/middleware"
	"github.com/GriffinCanCode/InstallOS/backend/internal/api/ws"
	"github.com/GriffinCanCode/InstallOS/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/InstallOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/InstallOS/backend/internal/install"
	"github.com/GriffinCanCode/InstallOS/backend/internal/logging"
	"github.com/GriffinCanCode/InstallOS/backend/internal/planner"
	"github.com/GriffinCanCode/InstallOS/backend/internal/terminal"
)

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	terminal   *terminal.Manager
	install    *install.Manager
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
	stop       chan struct{}
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing InstallOS backend",
		zap.String("port", cfg.Server.Port),
		zap.String("planner_url", cfg.Planner.BaseURL),
		zap.String("install_transport", cfg.Install.Transport),
	)

	metrics := monitoring.NewMetrics()

	plannerClient := planner.NewClient(cfg.Planner.BaseURL, cfg.Planner.Timeout).WithMetrics(metrics)
	terminalMgr := terminal.NewManager(logger)
	installMgr := install.NewManager(cfg.Install, cfg.Terminal, plannerClient, terminalMgr, logger, metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(installMgr, terminalMgr, logger)
	wsHandler := ws.NewHandler(terminalMgr, logger, metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Installation runs
	router.POST("/v1/install/runs", handlers.StartRun)
	router.GET("/v1/install/runs", handlers.ListRuns)
	router.GET("/v1/install/runs/:id", handlers.GetRun)
	router.DELETE("/v1/install/runs/:id", handlers.AbandonRun)

	// Terminal sessions
	router.POST("/v1/terminal/sessions", handlers.CreateTerminalSession)
	router.GET("/v1/terminal/sessions", handlers.ListTerminalSessions)
	router.GET("/v1/terminal/sessions/:id", handlers.GetTerminalSession)
	router.POST("/v1/terminal/sessions/:id/resize", handlers.ResizeTerminalSession)
	router.DELETE("/v1/terminal/sessions/:id", handlers.KillTerminalSession)

	// WebSocket attach
	router.GET("/ws/terminal/:session_id", wsHandler.HandleSession)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
			Handler: router,
		},
		router:   router,
		terminal: terminalMgr,
		install:  installMgr,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		stop:     make(chan struct{}),
	}, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	go s.trackUptime()

	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) trackUptime() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.metrics.UpdateUptime()
		case <-s.stop:
			return
		}
	}
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	close(s.stop)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	// Abandon active runs before killing their sessions.
	s.install.Close()
	for _, info := range s.terminal.ListSessions() {
		if err := s.terminal.Kill(info.ID); err != nil {
			s.logger.Warn("Failed to kill session",
				zap.String("session_id", info.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Sync()
	return nil
}
