package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the duet server.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"duet-server"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"DUET_API_PORT" envDefault:"8290"`
	LogLevel        string        `env:"DUET_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database (required, no default)
	DatabaseDSN string `env:"DB_POSTGRESQL_DSN,notEmpty"`

	// Database Connection Pool
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Blob Backend Selection
	BlobBackend string `env:"DUET_BLOB_BACKEND" envDefault:"local"` // Options: "local" or "s3"

	// Local Blob Configuration
	LocalBlobPath string `env:"DUET_LOCAL_BLOB_PATH" envDefault:"./blob-data"`

	// S3 Blob Configuration
	S3Endpoint     string `env:"DUET_S3_ENDPOINT"`
	S3Region       string `env:"DUET_S3_REGION" envDefault:"us-west-2"`
	S3Bucket       string `env:"DUET_S3_BUCKET"`
	S3AccessKeyID  string `env:"DUET_S3_ACCESS_KEY_ID"`
	S3SecretKey    string `env:"DUET_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool   `env:"DUET_S3_USE_PATH_STYLE" envDefault:"true"`

	// Media Configuration
	MaxMediaBytes  int64 `env:"DUET_MEDIA_MAX_BYTES" envDefault:"20971520"`
	ThumbnailMaxPx int   `env:"DUET_THUMBNAIL_MAX_PX" envDefault:"320"`

	// Moment Configuration
	MomentTTL             time.Duration `env:"DUET_MOMENT_TTL" envDefault:"24h"`
	CompositeRetries      int           `env:"DUET_COMPOSITE_RETRIES" envDefault:"3"`
	CompositeRetryBackoff time.Duration `env:"DUET_COMPOSITE_RETRY_BACKOFF" envDefault:"100ms"`

	// Resumable Upload Configuration
	UploadStagingPath string        `env:"DUET_UPLOAD_STAGING_PATH" envDefault:"./upload-staging"`
	UploadSessionTTL  time.Duration `env:"DUET_UPLOAD_SESSION_TTL" envDefault:"24h"`

	// Sweeper Configuration
	SweepInterval time.Duration `env:"DUET_SWEEP_INTERVAL" envDefault:"10m"`
	SweepEnabled  bool          `env:"DUET_SWEEP_ENABLED" envDefault:"true"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)
	if cfg.MaxMediaBytes <= 0 {
		cfg.MaxMediaBytes = 20 * 1024 * 1024
	}
	if cfg.CompositeRetries < 1 {
		cfg.CompositeRetries = 1
	}
	if cfg.IsS3Blob() && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("DUET_S3_BUCKET is required when DUET_BLOB_BACKEND is s3")
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsLocalBlob returns true if the local filesystem backend is configured.
func (c *Config) IsLocalBlob() bool {
	backend := strings.ToLower(strings.TrimSpace(c.BlobBackend))
	return backend == "" || backend == "local"
}

// IsS3Blob returns true if the S3 backend is configured.
func (c *Config) IsS3Blob() bool {
	return strings.ToLower(strings.TrimSpace(c.BlobBackend)) == "s3"
}
