package simplefiles

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Repository defines the document store holding users and object metadata
type Repository interface {
	// User operations
	InsertUser(ctx context.Context, user *User) error
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	CountUsers(ctx context.Context) (int64, error)

	// Object operations
	InsertObject(ctx context.Context, object *Object) error
	// FindObject returns the object matching q, or ErrNotFound when it does
	// not exist or q's access rule rejects it.
	FindObject(ctx context.Context, q ObjectQuery) (*Object, error)
	// UpdateObjectVisibility sets IsPublic on the object matching q in a
	// single atomic update and returns the updated object.
	UpdateObjectVisibility(ctx context.Context, q ObjectQuery, isPublic bool) (*Object, error)
	// ListObjects returns objects of ownerID under parentID in insertion order.
	ListObjects(ctx context.Context, ownerID, parentID uuid.UUID, offset, limit int) ([]*Object, error)
	// ScanObjects returns objects of kind across all owners in insertion order.
	ScanObjects(ctx context.Context, kind Kind, offset, limit int) ([]*Object, error)
	CountObjects(ctx context.Context) (int64, error)

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
	// Close releases the underlying connection
	Close(ctx context.Context) error
}

// Cache defines the key-value store with expiry used for sessions
type Cache interface {
	// Get returns the value for key or ErrCacheMiss
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key for ttl
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// Ping verifies the cache is reachable
	Ping(ctx context.Context) error

	// Close releases the underlying connection
	Close() error
}

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload writes content under objectKey, replacing any previous content
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download opens content stored under objectKey or returns ErrBlobNotFound
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Exists reports whether content is stored under objectKey
	Exists(ctx context.Context, objectKey string) (bool, error)

	// Delete removes content; deleting an absent key returns ErrBlobNotFound
	Delete(ctx context.Context, objectKey string) error
}

// JobQueue defines the at-least-once job transport
type JobQueue interface {
	// Enqueue appends payload to topic
	Enqueue(ctx context.Context, topic string, payload []byte) error

	// Receive waits up to wait for the next job on topic. It returns ErrNoJob
	// when nothing arrived in time.
	Receive(ctx context.Context, topic string, wait time.Duration) (Delivery, error)

	// Close releases the underlying connection
	Close() error
}

// Delivery is one received job. Exactly one of Ack or Fail must be called.
type Delivery interface {
	// ID identifies the job across redeliveries
	ID() string

	// Payload is the enqueued body
	Payload() []byte

	// Attempt is the 1-based delivery count
	Attempt() int

	// Ack marks the job completed
	Ack(ctx context.Context) error

	// Fail marks the job failed. When retry is true the queue redelivers it
	// according to its own policy; otherwise the job is dead-lettered.
	Fail(ctx context.Context, cause error, retry bool) error
}

// Queue topics
const (
	TopicThumbnails = "thumbnails"
	TopicUsers      = "users"
)

// ThumbnailJob is the payload enqueued for every new image.
type ThumbnailJob struct {
	UserID string `json:"userId"`
	FileID string `json:"fileId"`
}

// WelcomeJob is the payload enqueued for every new user.
type WelcomeJob struct {
	UserID string `json:"userId"`
}

// SessionStore issues and resolves opaque session tokens
type SessionStore interface {
	// Issue creates a new session for userID and returns its token
	Issue(ctx context.Context, userID uuid.UUID) (string, error)

	// Resolve returns the user owning token. It returns ErrUnauthenticated for
	// unknown or expired tokens and ErrStoreUnavailable when the cache fails.
	Resolve(ctx context.Context, token string) (uuid.UUID, error)

	// Revoke ends a session; revoking an unknown token succeeds
	Revoke(ctx context.Context, token string) error

	// Ping verifies the backing cache is reachable
	Ping(ctx context.Context) error
}

// ContentPlacement maps object payloads and their derivatives to blob keys
type ContentPlacement interface {
	// Store persists data under a freshly generated location and returns its reference
	Store(ctx context.Context, ownerID uuid.UUID, data []byte) (string, error)

	// Read returns the original bytes behind ref or ErrContentNotFound
	Read(ctx context.Context, ref string) ([]byte, error)

	// StoreVariant writes the derivative of ref for width, replacing any previous one
	StoreVariant(ctx context.Context, ref string, width int, data []byte) error

	// ReadVariant returns the derivative of ref for width or ErrContentNotFound
	ReadVariant(ctx context.Context, ref string, width int) ([]byte, error)

	// Locate resolves the blob key of the original (width 0) or of a derivative
	Locate(ref string, width int) string

	// Discard removes the original behind ref
	Discard(ctx context.Context, ref string) error
}
