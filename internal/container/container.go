package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/reportdesk/internal/application/dispatcher"
	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/application/service"
	"github.com/garyjia/reportdesk/internal/domain/event"
	"github.com/garyjia/reportdesk/internal/infrastructure/persistence/sqldb"
	httpapi "github.com/garyjia/reportdesk/internal/interfaces/http"
	"github.com/garyjia/reportdesk/pkg/database"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// It follows Clean Architecture principles with ordered initialization
// and reverse-order teardown.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	txManager    *sqldb.DB
	repositories *RepositoryBundle

	// Infrastructure - Storage and delivery
	fileStorage port.FileStorage
	senders     []port.MessageSender

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Interfaces
	auth       *httpapi.Authenticator
	httpServer *httpapi.Server

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Report       port.ReportRepository
	History      port.HistoryRepository
	Directory    port.DirectoryRepository
	Notification port.NotificationRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Workflow     service.WorkflowService
	Query        service.QueryService
	Notification service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus = httpapi.HealthStatus

// ComponentHealth represents health of a single component.
type ComponentHealth = httpapi.ComponentHealth

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database, migrations and repositories
// 2. File storage
// 3. Delivery channels and event dispatcher
// 4. Application services and their event handlers
// 5. Authenticator and HTTP server
//
// The HTTP server is built but not listening; call HTTPServer().Start.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("dialect", string(c.db.Dialect)))

	// Step 2: Initialize storage
	storage, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.fileStorage = storage
	c.logger.Info("Storage initialized", zap.String("upload_dir", c.config.Storage.UploadDir))

	// Step 3: Initialize delivery channels and dispatcher
	c.senders = ProvideSenders(&c.config.Notifications, c.logger)
	c.dispatcher = ProvideDispatcher(c.logger)
	c.logger.Info("Dispatcher initialized", zap.Int("delivery_channels", len(c.senders)))

	// Step 4: Initialize application services
	if err := c.initServices(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 5: Initialize HTTP layer
	c.initHTTP()
	c.logger.Info("HTTP server initialized", zap.String("address", c.httpServer.Address()))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Step 1: Stop HTTP server (reverse of step 5)
	if c.httpServer != nil {
		if err := c.httpServer.Stop(); err != nil {
			c.logger.Error("Failed to stop HTTP server", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop http server: %w", err))
		}
	}

	// Step 2: Close dispatcher (reverse of step 3)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 3: Close database (reverse of step 1)
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	// Check database
	if c.db != nil {
		if err := c.db.Ping(); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check dispatcher
	if c.dispatcher != nil {
		handlers := 0
		for _, t := range event.Types() {
			handlers += len(c.dispatcher.ListHandlers(t))
		}
		status.Components["dispatcher"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("handlers: %d", handlers),
		}
	} else {
		status.Components["dispatcher"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Delivery channels are optional
	status.Components["delivery"] = ComponentHealth{
		Healthy: true,
		Message: fmt.Sprintf("channels: %d", len(c.senders)),
	}

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase(ctx context.Context) error {
	dbBundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.db = dbBundle.DB
	c.txManager = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}

	c.repositories = repos
	return nil
}

// initServices initializes all application services using providers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Storage:    c.fileStorage,
		Senders:    c.senders,
		Dispatcher: c.dispatcher,
		Scope:      c.config.Notifications.Scope,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

func (c *Container) initHTTP() {
	log := NewLoggerAdapter(c.logger)
	server := c.config.Server

	c.auth = httpapi.NewAuthenticator(c.config.Auth.JWTSecret, c.repositories.Directory, log)
	c.httpServer = httpapi.NewServer(httpapi.ServerConfig{
		Host:           server.Host,
		Port:           server.Port,
		ReadTimeout:    server.ReadTimeout,
		WriteTimeout:   server.WriteTimeout,
		Environment:    server.Environment,
		AllowedOrigins: server.AllowedOrigins,
		MaxUploadBytes: c.config.Storage.MaxUploadBytes,
	}, httpapi.Services{
		Workflow:      c.services.Workflow,
		Queries:       c.services.Query,
		Notifications: c.services.Notification,
		Health:        c,
	}, c.auth, log)
}

func (c *Container) closeDatabase() {
	if c.db == nil {
		return
	}
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	}
	c.db = nil
}

// Getters for accessing container components

// DB returns the database handle.
func (c *Container) DB() *database.DB {
	return c.db
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() port.TransactionManager {
	return c.txManager
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// FileStorage returns the upload store.
func (c *Container) FileStorage() port.FileStorage {
	return c.fileStorage
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Authenticator returns the bearer token authenticator.
func (c *Container) Authenticator() *httpapi.Authenticator {
	return c.auth
}

// HTTPServer returns the HTTP server.
func (c *Container) HTTPServer() *httpapi.Server {
	return c.httpServer
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the Info/Error logger interfaces
// of the service, dispatcher and http packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

// NewLoggerAdapter wraps logger for packages taking the Info/Error
// key-value logger interface.
func NewLoggerAdapter(logger *zap.Logger) *zapLoggerAdapter {
	return &zapLoggerAdapter{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
