package simplefiles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Object operations

func (s *service) CreateObject(ctx context.Context, ownerID uuid.UUID, req CreateObjectRequest) (*Object, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.ParentID != RootID {
		parent, err := s.repository.FindObject(ctx, ObjectQuery{
			ID:          req.ParentID,
			RequesterID: ownerID,
			Access:      AccessOwner,
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		if parent.Kind != KindFolder {
			return nil, NewValidationError("Parent is not a folder")
		}
	}

	object := &Object{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      req.Name,
		Kind:      req.Kind,
		ParentID:  req.ParentID,
		IsPublic:  req.IsPublic,
		CreatedAt: time.Now().UTC(),
	}

	if req.Kind.HasContent() {
		ref, err := s.placement.Store(ctx, ownerID, req.Data)
		if err != nil {
			return nil, &ObjectError{ObjectID: object.ID, Op: "place_content", Err: err}
		}
		object.ContentRef = ref
	}

	if err := s.repository.InsertObject(ctx, object); err != nil {
		if object.ContentRef != "" {
			if derr := s.placement.Discard(ctx, object.ContentRef); derr != nil {
				s.logger.WarnContext(ctx, "Failed to discard orphaned content", "object_id", object.ID, "error", derr)
			}
		}
		return nil, &ObjectError{ObjectID: object.ID, Op: "create", Err: err}
	}

	if object.Kind == KindImage {
		s.enqueue(ctx, TopicThumbnails, ThumbnailJob{
			UserID: ownerID.String(),
			FileID: object.ID.String(),
		})
	}

	return object, nil
}

func (s *service) GetObject(ctx context.Context, requesterID, id uuid.UUID) (*Object, error) {
	if requesterID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.GetPublicOrOwned(ctx, requesterID, id)
}

func (s *service) GetPublicOrOwned(ctx context.Context, requesterID, id uuid.UUID) (*Object, error) {
	return s.repository.FindObject(ctx, ObjectQuery{
		ID:          id,
		RequesterID: requesterID,
		Access:      AccessViewer,
	})
}

func (s *service) ListObjects(ctx context.Context, requesterID, parentID uuid.UUID, page int) ([]*Object, error) {
	if requesterID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if page < 0 {
		page = 0
	}
	objects, err := s.repository.ListObjects(ctx, requesterID, parentID, page*PageSize, PageSize)
	if err != nil {
		return nil, err
	}
	if objects == nil {
		objects = []*Object{}
	}
	return objects, nil
}

func (s *service) SetVisibility(ctx context.Context, requesterID, id uuid.UUID, isPublic bool) (*Object, error) {
	if requesterID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.repository.UpdateObjectVisibility(ctx, ObjectQuery{
		ID:          id,
		RequesterID: requesterID,
		Access:      AccessOwner,
	}, isPublic)
}
