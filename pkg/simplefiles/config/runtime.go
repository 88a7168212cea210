package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tendant/simple-files/pkg/simplefiles"
	"github.com/tendant/simple-files/pkg/simplefiles/api"
	memorycache "github.com/tendant/simple-files/pkg/simplefiles/cache/memory"
	rediscache "github.com/tendant/simple-files/pkg/simplefiles/cache/redis"
	"github.com/tendant/simple-files/pkg/simplefiles/objectkey"
	"github.com/tendant/simple-files/pkg/simplefiles/placement"
	memoryqueue "github.com/tendant/simple-files/pkg/simplefiles/queue/memory"
	redisqueue "github.com/tendant/simple-files/pkg/simplefiles/queue/redis"
	"github.com/tendant/simple-files/pkg/simplefiles/repo/memory"
	repomongo "github.com/tendant/simple-files/pkg/simplefiles/repo/mongo"
	repopg "github.com/tendant/simple-files/pkg/simplefiles/repo/postgres"
	"github.com/tendant/simple-files/pkg/simplefiles/session"
	fsstorage "github.com/tendant/simple-files/pkg/simplefiles/storage/fs"
	memorystorage "github.com/tendant/simple-files/pkg/simplefiles/storage/memory"
	s3storage "github.com/tendant/simple-files/pkg/simplefiles/storage/s3"
	"github.com/tendant/simple-files/pkg/simplefiles/thumbnail"
)

// Runtime holds every handle built from a ServerConfig. Nothing here is
// process-global; Close releases all of it.
type Runtime struct {
	Config     *ServerConfig
	Repository simplefiles.Repository
	Cache      simplefiles.Cache
	Queue      simplefiles.JobQueue
	Blobs      simplefiles.BlobStore
	Placement  *placement.Placement
	Service    simplefiles.Service
	Logger     *slog.Logger
}

// Build connects to the configured collaborators and assembles the service.
// On failure every handle opened so far is closed.
func (c *ServerConfig) Build(ctx context.Context, logger *slog.Logger) (_ *Runtime, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{Config: c, Logger: logger}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()

	if rt.Repository, err = c.buildRepository(ctx); err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	if rt.Cache, err = c.buildCache(ctx); err != nil {
		return nil, fmt.Errorf("failed to build cache: %w", err)
	}
	if rt.Queue, err = c.buildQueue(ctx); err != nil {
		return nil, fmt.Errorf("failed to build queue: %w", err)
	}
	if rt.Blobs, err = c.buildStorageBackend(ctx); err != nil {
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}

	rt.Placement = placement.New(rt.Blobs,
		placement.WithKeyGenerator(objectkey.NewRecommendedGenerator()),
		placement.WithLogger(logger),
	)

	opts := []simplefiles.Option{
		simplefiles.WithRepository(rt.Repository),
		simplefiles.WithSessionStore(session.New(rt.Cache, session.WithTTL(c.SessionTTL))),
		simplefiles.WithPlacement(rt.Placement),
		simplefiles.WithJobQueue(rt.Queue),
		simplefiles.WithLogger(logger),
	}
	if c.PasswordCost > 0 {
		opts = append(opts, simplefiles.WithPasswordCost(c.PasswordCost))
	}
	if rt.Service, err = simplefiles.New(opts...); err != nil {
		return nil, err
	}

	return rt, nil
}

// Handler returns the HTTP routes of the service
func (rt *Runtime) Handler() http.Handler {
	return api.NewHandler(rt.Service, api.WithMaxBodyBytes(rt.Config.MaxBodyBytes)).Routes()
}

// NewWorker returns a worker consuming the thumbnail and user topics
func (rt *Runtime) NewWorker() (*thumbnail.Worker, error) {
	return thumbnail.NewWorker(rt.Queue,
		thumbnail.WithConcurrency(rt.Config.WorkerConcurrency),
		thumbnail.WithLogger(rt.Logger),
		thumbnail.WithProcessor(simplefiles.TopicThumbnails, thumbnail.NewGenerator(rt.Repository, rt.Placement,
			thumbnail.WithMaxPixels(rt.Config.ThumbnailMaxPixels))),
		thumbnail.WithProcessor(simplefiles.TopicUsers, thumbnail.NewWelcomer(rt.Repository, rt.Logger)),
	)
}

// Close releases the queue, cache and document store
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Queue != nil {
		errs = append(errs, rt.Queue.Close())
	}
	if rt.Cache != nil {
		errs = append(errs, rt.Cache.Close())
	}
	if rt.Repository != nil {
		errs = append(errs, rt.Repository.Close(ctx))
	}
	return errors.Join(errs...)
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context) (simplefiles.Repository, error) {
	dbType, err := c.DatabaseType()
	if err != nil {
		return nil, err
	}
	switch dbType {
	case BackendMemory:
		return memory.New(), nil
	case BackendMongo:
		repo, err := repomongo.Connect(ctx, c.DatabaseURL, c.DatabaseName)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case BackendPostgres:
		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, c.DatabaseURL); err != nil {
				return nil, err
			}
		}
		repo, err := repopg.Connect(ctx, c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

func (c *ServerConfig) buildCache(ctx context.Context) (simplefiles.Cache, error) {
	if c.CacheType() == BackendRedis {
		cache, err := rediscache.New(ctx, rediscache.Config{URL: c.CacheURL})
		if err != nil {
			return nil, err
		}
		return cache, nil
	}
	return memorycache.New(), nil
}

func (c *ServerConfig) buildQueue(ctx context.Context) (simplefiles.JobQueue, error) {
	if c.QueueType() == BackendRedis {
		queue, err := redisqueue.New(ctx, redisqueue.Config{
			URL:               c.QueueURL,
			MaxAttempts:       c.QueueMaxAttempts,
			VisibilityTimeout: c.QueueVisibilityTimeout,
		})
		if err != nil {
			return nil, err
		}
		return queue, nil
	}
	return memoryqueue.New(
		memoryqueue.WithMaxAttempts(c.QueueMaxAttempts),
		memoryqueue.WithVisibilityTimeout(c.QueueVisibilityTimeout),
	), nil
}

// buildStorageBackend creates a BlobStore based on STORAGE_URL
func (c *ServerConfig) buildStorageBackend(ctx context.Context) (simplefiles.BlobStore, error) {
	storageType, err := c.StorageType()
	if err != nil {
		return nil, err
	}
	switch storageType {
	case BackendMemory:
		return memorystorage.New(), nil

	case BackendFS:
		store, err := fsstorage.New(fsstorage.Config{BaseDir: c.storagePath()})
		if err != nil {
			return nil, err
		}
		return store, nil

	case BackendS3:
		s3cfg, bucket, err := c.s3Settings()
		if err != nil {
			return nil, err
		}
		store, err := s3storage.New(ctx, s3storage.Config{
			Region:                 s3cfg.Region,
			Bucket:                 bucket,
			AccessKeyID:            s3cfg.AccessKeyID,
			SecretAccessKey:        s3cfg.SecretAccessKey,
			Endpoint:               s3cfg.Endpoint,
			UsePathStyle:           s3cfg.UsePathStyle,
			EnableSSE:              s3cfg.EnableSSE,
			SSEAlgorithm:           s3cfg.SSEAlgorithm,
			SSEKMSKeyID:            s3cfg.SSEKMSKeyID,
			CreateBucketIfNotExist: s3cfg.CreateBucketIfNotExist,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", storageType)
	}
}
