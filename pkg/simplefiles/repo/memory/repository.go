package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-files/pkg/simplefiles"
)

// Repository implements simplefiles.Repository using in-memory storage
type Repository struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]*simplefiles.User
	usersByEmail map[string]uuid.UUID
	objects      map[uuid.UUID]*simplefiles.Object
	order        []uuid.UUID // object ids in insertion order
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		users:        make(map[uuid.UUID]*simplefiles.User),
		usersByEmail: make(map[string]uuid.UUID),
		objects:      make(map[uuid.UUID]*simplefiles.Object),
	}
}

var _ simplefiles.Repository = (*Repository)(nil)

// User operations

func (r *Repository) InsertUser(ctx context.Context, user *simplefiles.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usersByEmail[user.Email]; exists {
		return simplefiles.ErrConflict
	}

	// Create a copy to avoid external modifications
	userCopy := *user
	r.users[user.ID] = &userCopy
	r.usersByEmail[user.Email] = user.ID
	return nil
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*simplefiles.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.usersByEmail[email]
	if !exists {
		return nil, simplefiles.ErrNotFound
	}
	userCopy := *r.users[id]
	return &userCopy, nil
}

func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (*simplefiles.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, simplefiles.ErrNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.users)), nil
}

// Object operations

func (r *Repository) InsertObject(ctx context.Context, object *simplefiles.Object) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.objects[object.ID]; exists {
		return simplefiles.ErrConflict
	}

	objectCopy := *object
	r.objects[object.ID] = &objectCopy
	r.order = append(r.order, object.ID)
	return nil
}

func (r *Repository) FindObject(ctx context.Context, q simplefiles.ObjectQuery) (*simplefiles.Object, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	object, exists := r.objects[q.ID]
	if !exists || !q.Matches(object) {
		return nil, simplefiles.ErrNotFound
	}
	objectCopy := *object
	return &objectCopy, nil
}

func (r *Repository) UpdateObjectVisibility(ctx context.Context, q simplefiles.ObjectQuery, isPublic bool) (*simplefiles.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	object, exists := r.objects[q.ID]
	if !exists || !q.Matches(object) {
		return nil, simplefiles.ErrNotFound
	}
	object.IsPublic = isPublic
	objectCopy := *object
	return &objectCopy, nil
}

func (r *Repository) ListObjects(ctx context.Context, ownerID, parentID uuid.UUID, offset, limit int) ([]*simplefiles.Object, error) {
	return r.filter(func(o *simplefiles.Object) bool {
		return o.OwnerID == ownerID && o.ParentID == parentID
	}, offset, limit), nil
}

func (r *Repository) ScanObjects(ctx context.Context, kind simplefiles.Kind, offset, limit int) ([]*simplefiles.Object, error) {
	return r.filter(func(o *simplefiles.Object) bool {
		return o.Kind == kind
	}, offset, limit), nil
}

// filter returns copies of the matching objects in insertion order
func (r *Repository) filter(match func(*simplefiles.Object) bool, offset, limit int) []*simplefiles.Object {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simplefiles.Object, 0, limit)
	skipped := 0
	for _, id := range r.order {
		object := r.objects[id]
		if !match(object) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(result) == limit {
			break
		}
		objectCopy := *object
		result = append(result, &objectCopy)
	}
	return result
}

func (r *Repository) CountObjects(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.objects)), nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return nil
}

func (r *Repository) Close(ctx context.Context) error {
	return nil
}
