package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/simple-files/pkg/simplefiles/session"
	"github.com/tendant/simple-files/pkg/simplefiles/thumbnail"
)

// Backend kinds derived from the connection URLs.
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendFS       = "fs"
	BackendS3       = "s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                   "5000",
		Environment:            "development",
		DatabaseURL:            BackendMemory,
		DatabaseName:           "files_manager",
		CacheURL:               BackendMemory,
		QueueURL:               BackendMemory,
		FolderPath:             "/tmp/files_manager",
		SessionTTL:             session.DefaultTTL,
		WorkerConcurrency:      4,
		QueueMaxAttempts:       5,
		QueueVisibilityTimeout: 5 * time.Minute,
		MaxBodyBytes:           32 << 20,
		ThumbnailMaxPixels:     thumbnail.DefaultMaxPixels,
		S3: S3Config{
			Region:       "us-east-1",
			SSEAlgorithm: "AES256",
		},
	}
}

// ServerConfig represents configuration for the files service and its worker
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Document store: "memory", "mongodb://...", "postgres://..."
	DatabaseURL  string
	DatabaseName string // Mongo database name
	AutoMigrate  bool   // Apply Postgres migrations on startup

	// Session cache and job queue: "memory" or "redis://..."
	CacheURL string
	QueueURL string

	// Blob storage: "memory://", "file:///path", "s3://bucket?region=...".
	// When empty, files are written under FolderPath.
	StorageURL string
	FolderPath string
	S3         S3Config

	SessionTTL             time.Duration
	PasswordCost           int // 0 keeps the bcrypt default
	MaxBodyBytes           int64
	WorkerConcurrency      int
	QueueMaxAttempts       int
	QueueVisibilityTimeout time.Duration
	ThumbnailMaxPixels     int // decoded size limit for thumbnail originals
}

// S3Config holds the S3 settings that do not fit in STORAGE_URL
type S3Config struct {
	Region                 string
	AccessKeyID            string
	SecretAccessKey        string
	Endpoint               string
	UsePathStyle           bool
	EnableSSE              bool
	SSEAlgorithm           string
	SSEKMSKeyID            string
	CreateBucketIfNotExist bool
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if _, err := c.DatabaseType(); err != nil {
		return err
	}
	if c.DatabaseName == "" {
		if t, _ := c.DatabaseType(); t == BackendMongo {
			return errors.New("database name is required when using mongo")
		}
	}

	if _, err := keyValueType("CACHE_URL", c.CacheURL); err != nil {
		return err
	}
	if _, err := keyValueType("QUEUE_URL", c.QueueURL); err != nil {
		return err
	}

	storageType, err := c.StorageType()
	if err != nil {
		return err
	}
	if storageType == BackendFS && c.storagePath() == "" {
		return errors.New("filesystem path cannot be empty")
	}
	if storageType == BackendS3 {
		if _, err := c.s3Bucket(); err != nil {
			return err
		}
		if c.S3.EnableSSE && c.S3.SSEAlgorithm != "AES256" && c.S3.SSEAlgorithm != "aws:kms" {
			return fmt.Errorf("unsupported sse algorithm: %s", c.S3.SSEAlgorithm)
		}
	}

	if c.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be positive")
	}
	if c.WorkerConcurrency < 1 {
		return errors.New("worker concurrency must be at least 1")
	}
	if c.QueueMaxAttempts < 1 {
		return errors.New("queue max attempts must be at least 1")
	}
	if c.QueueVisibilityTimeout <= 0 {
		return errors.New("queue visibility timeout must be positive")
	}
	if c.ThumbnailMaxPixels < 1 {
		return errors.New("thumbnail max pixels must be at least 1")
	}

	return nil
}

// DatabaseType returns the document store kind selected by DatabaseURL
func (c *ServerConfig) DatabaseType() (string, error) {
	switch {
	case c.DatabaseURL == "" || c.DatabaseURL == BackendMemory:
		return BackendMemory, nil
	case strings.HasPrefix(c.DatabaseURL, "mongodb://"), strings.HasPrefix(c.DatabaseURL, "mongodb+srv://"):
		return BackendMongo, nil
	case strings.HasPrefix(c.DatabaseURL, "postgres://"), strings.HasPrefix(c.DatabaseURL, "postgresql://"):
		return BackendPostgres, nil
	}
	return "", fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'mongodb://...' or 'postgresql://...')", redact(c.DatabaseURL))
}

// CacheType returns the session cache kind selected by CacheURL
func (c *ServerConfig) CacheType() string {
	t, _ := keyValueType("CACHE_URL", c.CacheURL)
	return t
}

// QueueType returns the job queue kind selected by QueueURL
func (c *ServerConfig) QueueType() string {
	t, _ := keyValueType("QUEUE_URL", c.QueueURL)
	return t
}

// StorageType returns the blob store kind selected by StorageURL
func (c *ServerConfig) StorageType() (string, error) {
	switch {
	case c.StorageURL == "":
		return BackendFS, nil
	case c.StorageURL == BackendMemory || c.StorageURL == "memory://":
		return BackendMemory, nil
	case strings.HasPrefix(c.StorageURL, "file://"):
		return BackendFS, nil
	case strings.HasPrefix(c.StorageURL, "s3://"):
		return BackendS3, nil
	}
	return "", fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", c.StorageURL)
}

// storagePath is the base directory of the filesystem backend
func (c *ServerConfig) storagePath() string {
	if c.StorageURL == "" {
		return c.FolderPath
	}
	return strings.TrimPrefix(c.StorageURL, "file://")
}

// s3Bucket extracts the bucket from STORAGE_URL and folds its query
// parameters into c.S3.
func (c *ServerConfig) s3Bucket() (string, error) {
	u, err := url.Parse(c.StorageURL)
	if err != nil {
		return "", fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return "", errors.New("S3 bucket name cannot be empty in STORAGE_URL")
	}
	return u.Host, nil
}

func (c *ServerConfig) s3Settings() (S3Config, string, error) {
	bucket, err := c.s3Bucket()
	if err != nil {
		return S3Config{}, "", err
	}
	s3cfg := c.S3
	u, _ := url.Parse(c.StorageURL)
	q := u.Query()
	if v := q.Get("region"); v != "" {
		s3cfg.Region = v
	}
	if v := q.Get("endpoint"); v != "" {
		s3cfg.Endpoint = v
	}
	if v := q.Get("path_style"); v == "true" || v == "1" {
		s3cfg.UsePathStyle = true
	}
	if v := q.Get("create_bucket"); v == "true" || v == "1" {
		s3cfg.CreateBucketIfNotExist = true
	}
	return s3cfg, bucket, nil
}

func keyValueType(name, raw string) (string, error) {
	switch {
	case raw == "" || raw == BackendMemory:
		return BackendMemory, nil
	case strings.HasPrefix(raw, "redis://"), strings.HasPrefix(raw, "rediss://"):
		return BackendRedis, nil
	}
	return "", fmt.Errorf("unsupported %s format: %s (use 'memory' or 'redis://...')", name, redact(raw))
}

// redact strips credentials from a connection URL before it is printed
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
