// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"workhub_backend/internal/config"
	"workhub_backend/internal/device"
	"workhub_backend/internal/hub"
	"workhub_backend/internal/jobs"
	"workhub_backend/internal/kafka"
	"workhub_backend/internal/metrics"
	"workhub_backend/internal/middleware"
	"workhub_backend/internal/notification"
	platformES "workhub_backend/internal/platform/elasticsearch"
	"workhub_backend/internal/shared"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server holds the assembled HTTP server plus the background components it
// owns: the retention job and the optional Kafka consumer.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	notificationHandler *notification.Handler
	deviceHandler       *device.Handler
	hubHandler          *hub.Handler

	retentionJob  *jobs.RetentionJob
	kafkaConsumer *kafka.Consumer

	consumerCancel context.CancelFunc

	// Exposed for startup tasks in main (index creation, logging).
	ESClient  *platformES.ESClientWrapper
	AppLogger *zap.Logger
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	tokenService shared.TokenService,
	notificationHandler *notification.Handler,
	deviceHandler *device.Handler,
	hubHandler *hub.Handler,
	retentionJob *jobs.RetentionJob,
	kafkaConsumer *kafka.Consumer,
	esClient *platformES.ESClientWrapper,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	metrics.Register()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Metrics())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(tokenService, logger.Named("AuthMiddleware"))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "WorkHub API is healthy!"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	notificationGroup := v1.Group("/notifications", authMW)
	notificationHandler.RegisterRoutes(notificationGroup)
	hubHandler.RegisterRoutes(notificationGroup)

	deviceGroup := v1.Group("/devices", authMW)
	deviceHandler.RegisterRoutes(deviceGroup)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
		// No WriteTimeout: the SSE stream endpoint holds its response open
		// indefinitely and a server-level write deadline would sever it.
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	return &Server{
		httpServer:          httpServer,
		router:              router,
		cfg:                 cfg,
		logger:              logger,
		notificationHandler: notificationHandler,
		deviceHandler:       deviceHandler,
		hubHandler:          hubHandler,
		retentionJob:        retentionJob,
		kafkaConsumer:       kafkaConsumer,
		ESClient:            esClient,
		AppLogger:           logger,
	}, nil
}

func (s *Server) Start() error {
	if s.retentionJob != nil {
		if err := s.retentionJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start notification retention job", zap.Error(err))
		}
	}

	if s.kafkaConsumer != nil {
		var consumerCtx context.Context
		consumerCtx, s.consumerCancel = context.WithCancel(context.Background())
		go func() {
			if err := s.kafkaConsumer.Start(consumerCtx); err != nil && consumerCtx.Err() == nil {
				s.logger.Error("Kafka consumer stopped unexpectedly", zap.Error(err))
			}
		}()
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped gracefully or an error occurred")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.retentionJob != nil {
		s.retentionJob.Stop()
	}
	if s.consumerCancel != nil {
		s.consumerCancel()
	}
	return s.httpServer.Shutdown(ctx)
}
