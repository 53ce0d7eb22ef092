package config

import (
	"github.com/garyjia/benefits-portal/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Storage: container.StorageConfig{
			BlobDir:        c.Storage.BlobDir,
			MaxUploadBytes: c.Storage.MaxUploadBytes,
		},
		Notification: container.NotificationConfig{
			Sink:          c.Notification.Sink,
			LarkAppID:     c.Notification.Lark.AppID,
			LarkAppSecret: c.Notification.Lark.AppSecret,
			LarkChatID:    c.Notification.Lark.ChatID,
		},
		Metrics: container.MetricsConfig{
			Enabled: c.Metrics.Enabled,
			Path:    c.Metrics.Path,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
	}
}
