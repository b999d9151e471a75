// Package config loads layered application configuration: defaults, an
// optional YAML config file, BLOBSTREAM_* environment variables, and
// runtime overrides, in increasing order of precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Download DownloadConfig `mapstructure:"download"`
	S3       S3Config       `mapstructure:"s3"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// ServerConfig controls the HTTP gateway.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DownloadConfig carries engine tuning shared by the CLI and the server.
type DownloadConfig struct {
	MaxSingleGetSize int64 `mapstructure:"max_single_get_size"`
	MaxChunkGetSize  int64 `mapstructure:"max_chunk_get_size"`
	Concurrency      int   `mapstructure:"concurrency"`
	ValidateContent  bool  `mapstructure:"validate_content"`
}

// S3Config carries store connection settings.
type S3Config struct {
	Region         string `mapstructure:"region"`
	Endpoint       string `mapstructure:"endpoint"`
	Profile        string `mapstructure:"profile"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

// Validate checks cross-field constraints that the type system cannot.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Download.Concurrency < 0 {
		return fmt.Errorf("download.concurrency must be >= 0, got %d", c.Download.Concurrency)
	}
	if c.Download.MaxChunkGetSize < 0 || c.Download.MaxSingleGetSize < 0 {
		return fmt.Errorf("download sizes must be >= 0")
	}
	return nil
}
