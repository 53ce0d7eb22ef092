// Package container provides dependency injection and lifecycle management
// for the benefits portal following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database     DatabaseConfig
	Storage      StorageConfig
	Notification NotificationConfig
	Metrics      MetricsConfig
	Server       ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file, or ":memory:"
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// StorageConfig holds attachment storage settings.
type StorageConfig struct {
	// BlobDir is the base directory for uploaded attachment content
	BlobDir string

	// MaxUploadBytes bounds a single multipart upload
	MaxUploadBytes int64
}

// NotificationConfig selects the notification sink.
type NotificationConfig struct {
	// Sink is "log" or "lark"
	Sink string

	LarkAppID     string
	LarkAppSecret string
	LarkChatID    string
}

// MetricsConfig holds prometheus settings.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/benefits.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			BlobDir:        "data/blobs",
			MaxUploadBytes: 12 << 20,
		},
		Notification: NotificationConfig{
			Sink: "log",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.BlobDir == "" {
		return fmt.Errorf("storage.blob_dir is required")
	}

	switch c.Notification.Sink {
	case "log":
	case "lark":
		if c.Notification.LarkAppID == "" || c.Notification.LarkAppSecret == "" {
			return fmt.Errorf("lark app id and secret are required for the lark sink")
		}
		if c.Notification.LarkChatID == "" {
			return fmt.Errorf("lark chat id is required for the lark sink")
		}
	default:
		return fmt.Errorf("unknown notification sink %q", c.Notification.Sink)
	}

	return nil
}
