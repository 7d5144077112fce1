// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/reportdesk/internal/application/service"
	"github.com/garyjia/reportdesk/internal/domain/entity"
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

	// Environment "production" hides internal error messages
	Environment    string
	AllowedOrigins []string
	// MaxUploadBytes caps the submit request body; zero disables the cap
	MaxUploadBytes int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           5000,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		Environment:    "development",
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 20 << 20,
	}
}

// Services bundles the application services the routes call
type Services struct {
	Workflow      service.WorkflowService
	Queries       service.QueryService
	Notifications service.NotificationService
	// Health is optional; without it /health only reports liveness
	Health HealthChecker
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	auth       *Authenticator
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, auth *Authenticator, logger Logger) *Server {
	if config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		auth:     auth,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(s.corsMiddleware())

	hide := s.config.Environment == "production"
	s.router.Use(func(c *gin.Context) {
		c.Set(hideInternalKey, hide)
		c.Next()
	})
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if status >= http.StatusInternalServerError {
			s.logger.Error("HTTP request",
				"method", method,
				"path", path,
				"status", status,
				"latency", latency.String(),
				"client_ip", c.ClientIP(),
				"errors", c.Errors.String(),
			)
			return
		}

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// corsMiddleware answers preflight requests and tags responses for the
// configured origins
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := ""
		for _, o := range s.config.AllowedOrigins {
			if o == "*" || o == origin {
				allowed = o
				break
			}
		}

		if origin != "" && allowed != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allowed)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept")
			h.Set("Access-Control-Expose-Headers", "Content-Disposition")
			if allowed != "*" {
				h.Add("Vary", "Origin")
			}

			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}

		c.Next()
	}
}

// limitBody makes reads past n bytes of the request body fail with
// *http.MaxBytesError
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.logger)
	authed := s.auth.RequireAuth()

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")

	reports := api.Group("/reports")
	{
		reports.GET("", h.ListReports)
		reports.POST("/submit", authed, RequireRoles(entity.RoleEmployee, entity.RoleAdmin), limitBody(s.config.MaxUploadBytes), h.SubmitReport)
		reports.GET("/export", authed, RequireRoles(entity.RoleReviewer, entity.RoleApprover, entity.RoleAdmin), h.ExportReports)
		reports.GET("/review-queue", authed, RequireRoles(entity.RoleReviewer, entity.RoleAdmin), h.ReviewQueue)
		reports.GET("/approval-queue", authed, RequireRoles(entity.RoleApprover, entity.RoleAdmin), h.ApprovalQueue)
		reports.GET("/:id", h.GetReport)
		reports.GET("/:id/download", h.DownloadReport)
		reports.PUT("/:id", authed, RequireRoles(entity.RoleEmployee, entity.RoleAdmin), h.UpdateReport)
		reports.DELETE("/:id", authed, RequireRoles(entity.RoleAdmin), h.DeleteReport)
		reports.POST("/:id/review", authed, RequireRoles(entity.RoleReviewer, entity.RoleAdmin), h.ReviewReport)
		reports.POST("/:id/approve", authed, RequireRoles(entity.RoleApprover, entity.RoleAdmin), h.ApproveReport)
	}

	notifications := api.Group("/notifications", s.auth.OptionalAuth())
	{
		notifications.GET("", h.ListNotifications)
		notifications.POST("/mark-read", h.MarkNotificationsRead)
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

	s.logger.Info("Starting HTTP server", "address", addr, "environment", s.config.Environment)

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
	host := strings.TrimSpace(s.config.Host)
	return fmt.Sprintf("%s:%d", host, s.config.Port)
}
