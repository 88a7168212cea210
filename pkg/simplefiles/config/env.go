package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envVars is the environment surface read by WithEnv. Unset variables keep
// whatever value the config already holds.
type envVars struct {
	Port        string `env:"PORT"`
	Environment string `env:"ENVIRONMENT"`

	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DB_DATABASE"`
	AutoMigrate  string `env:"DB_AUTO_MIGRATE"`

	CacheURL string `env:"CACHE_URL"`
	QueueURL string `env:"QUEUE_URL"`

	StorageURL string `env:"STORAGE_URL"`
	FolderPath string `env:"FOLDER_PATH"`

	S3Region          string `env:"S3_REGION,AWS_REGION"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID,AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY,AWS_SECRET_ACCESS_KEY"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3UsePathStyle    string `env:"S3_USE_PATH_STYLE"`
	S3EnableSSE       string `env:"S3_ENABLE_SSE"`
	S3SSEAlgorithm    string `env:"S3_SSE_ALGORITHM"`
	S3SSEKMSKeyID     string `env:"S3_SSE_KMS_KEY_ID"`
	S3CreateBucket    string `env:"S3_CREATE_BUCKET"`

	SessionTTL             time.Duration `env:"SESSION_TTL"`
	PasswordCost           int           `env:"PASSWORD_COST"`
	MaxBodyBytes           int64         `env:"MAX_BODY_BYTES"`
	WorkerConcurrency      int           `env:"WORKER_CONCURRENCY"`
	QueueMaxAttempts       int           `env:"QUEUE_MAX_ATTEMPTS"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT"`
	ThumbnailMaxPixels     int           `env:"THUMBNAIL_MAX_PIXELS"`
}

// WithEnv applies environment variable overrides.
//
// Server:
//
//	PORT - Server port (default: "5000")
//	ENVIRONMENT - Runtime environment (default: "development")
//
// Document store:
//
//	DATABASE_URL - "memory" (default), "mongodb://..." or "postgresql://..."
//	DB_DATABASE - Mongo database name (default: "files_manager")
//	DB_AUTO_MIGRATE - Apply Postgres migrations on startup
//
// Sessions and jobs:
//
//	CACHE_URL, QUEUE_URL - "memory" (default) or "redis://..."
//	SESSION_TTL - Session lifetime (default: 24h)
//	WORKER_CONCURRENCY - Consumers per topic (default: 4)
//	QUEUE_MAX_ATTEMPTS, QUEUE_VISIBILITY_TIMEOUT - Retry policy (default: 5, 5m)
//	THUMBNAIL_MAX_PIXELS - Largest original the worker decodes (default: 40000000)
//
// Storage:
//
//	STORAGE_URL - "memory://", "file:///path/to/data" or "s3://bucket?region=us-east-1"
//	FOLDER_PATH - Filesystem root used when STORAGE_URL is unset (default: /tmp/files_manager)
//	S3_* / AWS_* - Credentials and encryption settings for S3
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var vars envVars
		if err := cleanenv.ReadEnv(&vars); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return vars.apply(c)
	}
}

func (v envVars) apply(c *ServerConfig) error {
	setString(&c.Port, v.Port)
	setString(&c.Environment, v.Environment)
	setString(&c.DatabaseURL, v.DatabaseURL)
	setString(&c.DatabaseName, v.DatabaseName)
	setString(&c.CacheURL, v.CacheURL)
	setString(&c.QueueURL, v.QueueURL)
	setString(&c.StorageURL, v.StorageURL)
	setString(&c.FolderPath, v.FolderPath)

	setString(&c.S3.Region, v.S3Region)
	setString(&c.S3.AccessKeyID, v.S3AccessKeyID)
	setString(&c.S3.SecretAccessKey, v.S3SecretAccessKey)
	setString(&c.S3.Endpoint, v.S3Endpoint)
	setString(&c.S3.SSEAlgorithm, v.S3SSEAlgorithm)
	setString(&c.S3.SSEKMSKeyID, v.S3SSEKMSKeyID)

	bools := []struct {
		key string
		raw string
		dst *bool
	}{
		{"DB_AUTO_MIGRATE", v.AutoMigrate, &c.AutoMigrate},
		{"S3_USE_PATH_STYLE", v.S3UsePathStyle, &c.S3.UsePathStyle},
		{"S3_ENABLE_SSE", v.S3EnableSSE, &c.S3.EnableSSE},
		{"S3_CREATE_BUCKET", v.S3CreateBucket, &c.S3.CreateBucketIfNotExist},
	}
	for _, b := range bools {
		if b.raw == "" {
			continue
		}
		parsed, err := strconv.ParseBool(b.raw)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %w", b.key, err)
		}
		*b.dst = parsed
	}

	if v.SessionTTL != 0 {
		c.SessionTTL = v.SessionTTL
	}
	if v.PasswordCost != 0 {
		c.PasswordCost = v.PasswordCost
	}
	if v.MaxBodyBytes != 0 {
		c.MaxBodyBytes = v.MaxBodyBytes
	}
	if v.WorkerConcurrency != 0 {
		c.WorkerConcurrency = v.WorkerConcurrency
	}
	if v.QueueMaxAttempts != 0 {
		c.QueueMaxAttempts = v.QueueMaxAttempts
	}
	if v.QueueVisibilityTimeout != 0 {
		c.QueueVisibilityTimeout = v.QueueVisibilityTimeout
	}
	if v.ThumbnailMaxPixels != 0 {
		c.ThumbnailMaxPixels = v.ThumbnailMaxPixels
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
