package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natheelic/iot-device-hub/internal/api/websocket"
	"github.com/natheelic/iot-device-hub/internal/codegen"
	"github.com/natheelic/iot-device-hub/internal/config"
	"github.com/natheelic/iot-device-hub/internal/interfaces"
	"go.uber.org/zap"
)

type Server struct {
	router    *gin.Engine
	cfg       *config.Config
	store     Store
	generator *codegen.Generator
	lm        interfaces.LifecycleManager
	logger    *zap.Logger
	server    *http.Server
	wsHub     *websocket.Hub
	validator *ProfileValidator
}

func NewServer(cfg *config.Config, store Store, generator *codegen.Generator, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	validator, err := NewProfileValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create profile validator: %w", err)
	}

	s := &Server{
		router:    gin.New(),
		cfg:       cfg,
		store:     store,
		generator: generator,
		lm:        lm,
		logger:    logger,
		wsHub:     wsHub,
		validator: validator,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	// Public health probe
	s.router.GET("/health", s.healthCheck)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// ==================== TELEMETRY ====================
		telemetry := v1.Group("/telemetry")
		{
			telemetry.POST("", s.submitTelemetry)
			telemetry.GET("", s.listTelemetry)
			telemetry.GET("/latest", s.latestTelemetry)
		}

		// ==================== SUBMISSIONS ====================
		v1.POST("/submissions", s.submitText)

		// ==================== DEVICE PROFILES ====================
		devices := v1.Group("/devices")
		{
			devices.POST("", s.createProfile)
			devices.GET("", s.listProfiles)
			devices.GET("/by-name/:name", s.getProfileByName)
			devices.GET("/:id", s.getProfile)
			devices.PATCH("/:id", s.updateProfile)
			devices.DELETE("/:id", s.deleteProfile)

			// Generated artifacts
			devices.GET("/:id/code", s.generateCode)
			devices.GET("/:id/uploader", s.generateUploader)
		}

		// ==================== TEMPLATES ====================
		v1.GET("/templates", s.listTemplates)

		// ==================== SYSTEM ====================
		v1.GET("/system/status", s.getSystemStatus)

		// ==================== WEBSOCKET ====================
		v1.GET("/ws/telemetry", s.wsTelemetry)
	}

	// Legacy routes matching the URLs baked into generated firmware.
	legacy := s.router.Group("/api")
	{
		legacy.POST("/esp32/data", s.submitTelemetry)
		legacy.GET("/esp32/data", s.listTelemetry)
		legacy.GET("/esp32/latest", s.latestTelemetry)
		legacy.GET("/health", s.healthCheck)
	}
}

// WebSocket handler: live telemetry stream
func (s *Server) wsTelemetry(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}
