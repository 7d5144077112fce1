// Package container provides dependency injection and lifecycle management
// for the ReportDesk service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/reportdesk/internal/application/service"
	"github.com/garyjia/reportdesk/pkg/database"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Auth configuration
	Auth AuthConfig

	// Storage configuration
	Storage StorageConfig

	// Notification delivery configuration
	Notifications NotificationsConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is sqlite or postgres
	Driver string

	// Path to SQLite database file
	Path string

	// DSN is the Postgres connection string
	DSN string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// ConnectAttempts bounds the startup ping loop
	ConnectAttempts int

	// ConnectBackoff is the first delay between pings
	ConnectBackoff time.Duration
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	// JWTSecret signs and verifies HS256 tokens
	JWTSecret string
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// UploadDir is the base directory for uploaded report files
	UploadDir string

	// MaxUploadBytes caps the size of a submit request body
	MaxUploadBytes int64
}

// NotificationsConfig holds in-app listing scope and outbound channels.
type NotificationsConfig struct {
	// Scope is "all" or "recipient", see service.ParseNotificationScope
	Scope string

	Email EmailConfig
	Lark  LarkConfig
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// LarkConfig holds Lark IM delivery settings.
type LarkConfig struct {
	Enabled   bool
	AppID     string
	AppSecret string
	BaseURL   string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// Environment "production" hides internal error messages
	Environment string

	// AllowedOrigins for CORS
	AllowedOrigins []string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite",
			Path:            "data/reportdesk.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectAttempts: 10,
			ConnectBackoff:  time.Second,
		},
		Storage: StorageConfig{
			UploadDir:      "uploads",
			MaxUploadBytes: 20 << 20,
		},
		Notifications: NotificationsConfig{
			Scope: string(service.ScopeAll),
			Email: EmailConfig{
				Port:    587,
				Timeout: 10 * time.Second,
			},
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           5000,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			Environment:    "development",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	dialect, err := database.ParseDialect(c.Database.Driver)
	if err != nil {
		return fmt.Errorf("database.driver: %w", err)
	}
	if dialect == database.DialectPostgres && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for postgres")
	}
	if dialect == database.DialectSQLite && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for sqlite")
	}

	if c.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required")
	}

	if _, err := service.ParseNotificationScope(c.Notifications.Scope); err != nil {
		return fmt.Errorf("notifications.scope: %w", err)
	}

	if email := c.Notifications.Email; email.Enabled {
		if email.Host == "" {
			return fmt.Errorf("notifications.email.host is required when email is enabled")
		}
		if email.From == "" {
			return fmt.Errorf("notifications.email.from is required when email is enabled")
		}
	}

	if lark := c.Notifications.Lark; lark.Enabled {
		if lark.AppID == "" {
			return fmt.Errorf("notifications.lark.app_id is required when lark is enabled")
		}
		if lark.AppSecret == "" {
			return fmt.Errorf("notifications.lark.app_secret is required when lark is enabled")
		}
	}

	return nil
}
