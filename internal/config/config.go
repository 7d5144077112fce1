package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/reportdesk/internal/application/service"
	"github.com/garyjia/reportdesk/pkg/database"
)

// EnvPrefix is prepended to every automatically bound environment variable,
// e.g. REPORTDESK_SERVER_PORT for server.port.
const EnvPrefix = "REPORTDESK"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Logger        LoggerConfig        `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectAttempts int           `mapstructure:"connect_attempts"`
	ConnectBackoff  time.Duration `mapstructure:"connect_backoff"`
}

// AuthConfig holds token verification configuration
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// StorageConfig holds upload storage configuration
type StorageConfig struct {
	UploadDir      string `mapstructure:"upload_dir"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// NotificationsConfig holds notification scope and delivery channels
type NotificationsConfig struct {
	Scope string      `mapstructure:"scope"`
	Email EmailConfig `mapstructure:"email"`
	Lark  LarkConfig  `mapstructure:"lark"`
}

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
// A .env file in the working directory is applied first when present.
// An empty configPath skips the file and uses defaults plus environment.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/reportdesk.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.connect_attempts", 10)
	v.SetDefault("database.connect_backoff", time.Second)

	// Storage defaults
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.max_upload_bytes", 20<<20)

	// Notification defaults
	v.SetDefault("notifications.scope", string(service.ScopeAll))
	v.SetDefault("notifications.email.enabled", false)
	v.SetDefault("notifications.email.port", 587)
	v.SetDefault("notifications.email.timeout", 10*time.Second)
	v.SetDefault("notifications.lark.enabled", false)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the unprefixed environment names used by deployments
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"auth.jwt_secret":               "JWT_SECRET",
		"database.dsn":                  "DATABASE_DSN",
		"server.port":                   "PORT",
		"notifications.email.password":  "SMTP_PASSWORD",
		"notifications.lark.app_id":     "LARK_APP_ID",
		"notifications.lark.app_secret": "LARK_APP_SECRET",
	}
	for key, env := range bindings {
		// keep the prefixed name working alongside the plain one
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	dialect, err := database.ParseDialect(c.Database.Driver)
	if err != nil {
		return fmt.Errorf("database.driver: %w", err)
	}
	switch {
	case dialect == database.DialectPostgres && c.Database.DSN == "":
		return fmt.Errorf("database.dsn is required for postgres")
	case dialect == database.DialectSQLite && c.Database.Path == "":
		return fmt.Errorf("database.path is required for sqlite")
	}

	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}

	if _, err := service.ParseNotificationScope(c.Notifications.Scope); err != nil {
		return fmt.Errorf("notifications.scope: %w", err)
	}

	if c.Notifications.Email.Enabled {
		if c.Notifications.Email.Host == "" {
			return fmt.Errorf("notifications.email.host is required")
		}
		if c.Notifications.Email.From == "" {
			return fmt.Errorf("notifications.email.from is required")
		}
	}

	if c.Notifications.Lark.Enabled {
		if c.Notifications.Lark.AppID == "" {
			return fmt.Errorf("notifications.lark.app_id is required")
		}
		if c.Notifications.Lark.AppSecret == "" {
			return fmt.Errorf("notifications.lark.app_secret is required")
		}
	}

	return nil
}
