package simplefiles

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrUnauthenticated indicates a missing, invalid or expired session token
	ErrUnauthenticated = errors.New("unauthorized")

	// ErrValidation indicates malformed input
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates an object does not exist or is not visible to the requester.
	// Callers must not be able to tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrParentNotFound indicates the parent of a new object does not exist for the requester
	ErrParentNotFound = fmt.Errorf("parent %w", ErrNotFound)

	// ErrConflict indicates a uniqueness violation such as a duplicate email
	ErrConflict = errors.New("already exist")

	// ErrContentNotFound indicates metadata exists but its stored bytes do not
	ErrContentNotFound = errors.New("content not found")

	// ErrNoContent indicates a folder was asked for content
	ErrNoContent = errors.New("a folder doesn't have content")

	// ErrStoreUnavailable indicates a cache, database or queue could not be reached
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrIO indicates reading or writing stored bytes failed
	ErrIO = errors.New("io error")

	// ErrCacheMiss is returned by Cache implementations when a key is absent or expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrBlobNotFound is returned by BlobStore implementations when a key is absent
	ErrBlobNotFound = errors.New("blob not found")

	// ErrNoJob is returned by JobQueue.Receive when no job arrived before the wait elapsed
	ErrNoJob = errors.New("no job available")
)

// ValidationError carries the client-facing reason an input was rejected.
type ValidationError struct {
	Message string
}

// NewValidationError creates a validation error with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ObjectError represents an error related to object operations
type ObjectError struct {
	ObjectID uuid.UUID
	Op       string
	Err      error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("object operation %s failed for object %s: %v", e.Op, e.ObjectID, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err so that it matches ErrStoreUnavailable while keeping
// the underlying cause for logs.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// IsInfrastructure reports whether err stems from a collaborator failure
// rather than from the request itself.
func IsInfrastructure(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrContentNotFound),
		errors.Is(err, ErrNoContent):
		return false
	}
	return true
}
