package config

import (
	"github.com/garyjia/reportdesk/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			DSN:             c.Database.DSN,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			ConnectAttempts: c.Database.ConnectAttempts,
			ConnectBackoff:  c.Database.ConnectBackoff,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
		},
		Storage: container.StorageConfig{
			UploadDir:      c.Storage.UploadDir,
			MaxUploadBytes: c.Storage.MaxUploadBytes,
		},
		Notifications: container.NotificationsConfig{
			Scope: c.Notifications.Scope,
			Email: container.EmailConfig{
				Enabled:  c.Notifications.Email.Enabled,
				Host:     c.Notifications.Email.Host,
				Port:     c.Notifications.Email.Port,
				Username: c.Notifications.Email.Username,
				Password: c.Notifications.Email.Password,
				From:     c.Notifications.Email.From,
				Timeout:  c.Notifications.Email.Timeout,
			},
			Lark: container.LarkConfig{
				Enabled:   c.Notifications.Lark.Enabled,
				AppID:     c.Notifications.Lark.AppID,
				AppSecret: c.Notifications.Lark.AppSecret,
				BaseURL:   c.Notifications.Lark.BaseURL,
			},
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			Environment:    c.Server.Environment,
			AllowedOrigins: c.Server.AllowedOrigins,
		},
	}
}
