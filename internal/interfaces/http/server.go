// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to workflow service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/benefits-portal/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MetricsPath is where MetricsHandler is mounted, when one is given
	MetricsPath string

	// MaxUploadBytes bounds multipart uploads
	MaxUploadBytes int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MetricsPath:    "/metrics",
		MaxUploadBytes: 12 << 20,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config         ServerConfig
	httpServer     *http.Server
	router         *gin.Engine
	workflow       service.WorkflowService
	metricsHandler http.Handler
	logger         Logger
}

// NewServer creates a new HTTP server. metricsHandler may be nil.
func NewServer(
	config ServerConfig,
	workflow service.WorkflowService,
	metricsHandler http.Handler,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}

	router := gin.New()
	if config.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = config.MaxUploadBytes
	}

	server := &Server{
		config:         config,
		router:         router,
		workflow:       workflow,
		metricsHandler: metricsHandler,
		logger:         logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.workflow, s.config.MaxUploadBytes, s.logger)

	s.router.GET("/health", h.HealthCheck)
	if s.metricsHandler != nil && s.config.MetricsPath != "" {
		s.router.GET(s.config.MetricsPath, gin.WrapH(s.metricsHandler))
	}

	api := s.router.Group("/api", actorMiddleware())
	{
		// Submission wizard
		api.POST("/wizard/steps/:step/validate", h.ValidateStep)
		api.POST("/wizard/navigate", h.NavigateWizard)
		api.POST("/wizard/submit-check", h.CheckSubmit)
		api.POST("/attachments", h.UploadAttachment)

		// Applications
		api.POST("/applications", h.SubmitApplication)
		api.POST("/applications/drafts", h.SaveDraft)
		api.GET("/applications/:id", h.GetApplication)
		api.PUT("/applications/:id", h.UpdateApplicationFields)
		api.DELETE("/applications/:id", h.DeleteApplication)
		api.POST("/applications/:id/attachments", h.AddApplicationAttachments)
		api.POST("/applications/:id/transitions", h.TransitionApplication)
		api.GET("/applications/:id/history", h.history(entityApplication))

		// Payout batches
		api.POST("/payout-batches", h.CreatePayoutBatch)
		api.GET("/payout-batches/:id", h.GetPayoutBatch)
		api.POST("/payout-batches/:id/eligible", h.AddEligibleApplications)
		api.POST("/payout-batches/:id/details", h.AddPayoutDetail)
		api.POST("/payout-batches/:id/start", h.StartPayoutBatch)
		api.POST("/payout-batches/:id/cancel", h.CancelPayoutBatch)
		api.POST("/payout-batches/:id/complete", h.CompletePayoutBatch)
		api.GET("/payout-batches/:id/history", h.history(entityPayoutBatch))
		api.PUT("/payout-details/:id/status", h.SetPayoutDetailStatus)
		api.POST("/payout-imports", h.ImportPayoutFile)
		api.POST("/payout-imports/rows", h.ImportPayoutRows)

		// Complaints
		api.POST("/complaints", h.SubmitComplaint)
		api.GET("/complaints/:id", h.GetComplaint)
		api.PUT("/complaints/:id", h.UpdateComplaint)
		api.DELETE("/complaints/:id", h.DeleteComplaint)
		api.POST("/complaints/:id/actions", h.TransitionComplaint)
		api.GET("/complaints/:id/history", h.history(entityComplaint))
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
