// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside the valid range.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidMaxUpload is returned when MAX_UPLOAD_MB is not positive.
	ErrInvalidMaxUpload = errors.New("config: MAX_UPLOAD_MB must be positive")
	// ErrIncompleteCloudinary is returned when only some of the Cloudinary
	// credentials are set.
	ErrIncompleteCloudinary = errors.New("config: CLOUDINARY_NAME, CLOUDINARY_KEY and CLOUDINARY_SECRET must be set together")
)

// DefaultImgbbAPIKey is the image host key the service ships with.
// The upstream deployment bakes this value in; it can be overridden
// via IMGBB_API_KEY.
const DefaultImgbbAPIKey = "8f2c4a1d9e6b7c3f5a0d8e2b4c6f1a9d"

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=3000" json:"port"`

	// Staging settings
	StagingDir  string `env:"STAGING_DIR, default=uploads" json:"staging_dir"`
	MaxUploadMB int64  `env:"MAX_UPLOAD_MB, default=200" json:"max_upload_mb"`

	// Transform settings
	FFmpegPath       string        `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"`
	TransformTimeout time.Duration `env:"TRANSFORM_TIMEOUT, default=5m" json:"transform_timeout"`

	// Cloudinary settings (video backend)
	CloudinaryName   string `env:"CLOUDINARY_NAME" json:"cloudinary_name,omitempty"`
	CloudinaryKey    string `env:"CLOUDINARY_KEY" json:"-"`    // Masked in JSON
	CloudinarySecret string `env:"CLOUDINARY_SECRET" json:"-"` // Masked in JSON
	CloudinaryFolder string `env:"CLOUDINARY_FOLDER, default=seami_compressed" json:"cloudinary_folder"`

	// imgbb settings (image backend)
	ImgbbAPIKey string `env:"IMGBB_API_KEY, default=8f2c4a1d9e6b7c3f5a0d8e2b4c6f1a9d" json:"-"` // Masked in JSON

	// Optional S3 settings (video backend fallback)
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3KeyPrefix        string `env:"S3_KEY_PREFIX, default=seami_compressed" json:"s3_key_prefix"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// CloudinaryEnabled returns true if the full Cloudinary credential set is provided.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryKey != "" && c.CloudinarySecret != ""
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the loaded configuration is coherent.
// Missing backend credentials are not an error here: the service boots
// without them and reports the gap via the health endpoint.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.MaxUploadMB <= 0 {
		return ErrInvalidMaxUpload
	}
	partial := c.CloudinaryName != "" || c.CloudinaryKey != "" || c.CloudinarySecret != ""
	if partial && !c.CloudinaryEnabled() {
		return ErrIncompleteCloudinary
	}
	return nil
}

// MaxUploadBytes returns the request body size cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, StagingDir: %s, MaxUploadMB: %d, TransformTimeout: %s, CloudinaryName: %s, CloudinaryFolder: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.StagingDir,
		c.MaxUploadMB,
		c.TransformTimeout,
		c.CloudinaryName,
		c.CloudinaryFolder,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
