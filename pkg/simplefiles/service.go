package simplefiles

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface of the object store. Every method that
// acts on behalf of a user receives the user id already resolved from a
// session token with Authenticate.
type Service interface {
	// Account operations
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)

	// Object operations
	CreateObject(ctx context.Context, ownerID uuid.UUID, req CreateObjectRequest) (*Object, error)
	GetObject(ctx context.Context, requesterID, id uuid.UUID) (*Object, error)
	GetPublicOrOwned(ctx context.Context, requesterID, id uuid.UUID) (*Object, error)
	ListObjects(ctx context.Context, requesterID, parentID uuid.UUID, page int) ([]*Object, error)
	SetVisibility(ctx context.Context, requesterID, id uuid.UUID, isPublic bool) (*Object, error)

	// Content operations; width 0 selects the original
	FetchContent(ctx context.Context, requesterID, id uuid.UUID, width int) (*Content, error)

	// Operational
	Status(ctx context.Context) Status
	Stats(ctx context.Context) (*Stats, error)
}
