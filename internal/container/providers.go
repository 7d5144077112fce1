package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/garyjia/reportdesk/internal/application/dispatcher"
	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/application/service"
	"github.com/garyjia/reportdesk/internal/infrastructure/document"
	infraLark "github.com/garyjia/reportdesk/internal/infrastructure/external/lark"
	"github.com/garyjia/reportdesk/internal/infrastructure/external/mail"
	"github.com/garyjia/reportdesk/internal/infrastructure/persistence/repository"
	"github.com/garyjia/reportdesk/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/reportdesk/internal/infrastructure/storage"
	"github.com/garyjia/reportdesk/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqldb.DB
}

// ProvideDatabase opens the configured database, waits for it to answer
// and applies the embedded migrations for its dialect.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	dialect, err := database.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if dialect == database.DialectSQLite {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := database.Open(database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.WaitForDB(ctx, db, cfg.ConnectAttempts, cfg.ConnectBackoff); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not reachable: %w", err)
	}

	migrator, err := database.NewMigrator(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := migrator.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqldb.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Report:       repository.NewReportRepository(db, logger),
		History:      repository.NewHistoryRepository(db, logger),
		Directory:    repository.NewDirectoryRepository(db, logger),
		Notification: repository.NewNotificationRepository(db, logger),
	}, nil
}

// ProvideStorage creates the upload store rooted at cfg.UploadDir.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil || cfg.UploadDir == "" {
		return nil, fmt.Errorf("storage upload dir is required")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return storage.NewLocalFileStorage(cfg.UploadDir, logger), nil
}

// ProvideSenders creates the enabled outbound notification channels.
// An empty slice means notifications are stored in-app only.
func ProvideSenders(cfg *NotificationsConfig, logger *zap.Logger) []port.MessageSender {
	var senders []port.MessageSender

	if cfg.Email.Enabled {
		senders = append(senders, mail.NewSMTPSender(mail.Config{
			Host:     cfg.Email.Host,
			Port:     strconv.Itoa(cfg.Email.Port),
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			Timeout:  cfg.Email.Timeout,
		}, logger))
		logger.Info("Email delivery enabled", zap.String("host", cfg.Email.Host))
	}

	if cfg.Lark.Enabled {
		client := infraLark.NewSDKClient(infraLark.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
			BaseURL:   cfg.Lark.BaseURL,
		}, logger)
		senders = append(senders, infraLark.NewMessenger(client, logger))
		logger.Info("Lark delivery enabled")
	}

	return senders
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(NewLoggerAdapter(logger)))
}

// ServiceDeps holds dependencies for creating application services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Storage    port.FileStorage
	Senders    []port.MessageSender
	Dispatcher dispatcher.Dispatcher
	Scope      string
	Logger     *zap.Logger
}

// ProvideServices creates all application services and registers their
// event handlers on the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	scope, err := service.ParseNotificationScope(deps.Scope)
	if err != nil {
		return nil, err
	}

	log := NewLoggerAdapter(deps.Logger)
	repos := deps.Repos

	notifications := service.NewNotificationService(
		repos.Report, repos.Notification, repos.Directory, deps.Senders, scope, log)
	notifications.Register(deps.Dispatcher)
	service.RegisterUploadCleanup(deps.Dispatcher, deps.Storage, log)

	return &ServiceBundle{
		Workflow: service.NewWorkflowService(
			repos.Report, repos.History, repos.Directory, deps.Storage, deps.TxManager, deps.Dispatcher, log),
		Query: service.NewQueryService(
			repos.Report, repos.Directory, document.NewPDFRenderer(), document.NewXLSXExporter(), log),
		Notification: notifications,
	}, nil
}
