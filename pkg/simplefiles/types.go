package simplefiles

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the immutable type of an object.
type Kind string

// Object kinds.
const (
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
	KindImage  Kind = "image"
)

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindFolder, KindFile, KindImage:
		return true
	}
	return false
}

// HasContent reports whether objects of this kind carry a payload.
func (k Kind) HasContent() bool {
	return k == KindFile || k == KindImage
}

// RootID is the parent sentinel for top-level objects. It is never the ID of
// a stored object.
var RootID = uuid.Nil

// PageSize is the fixed number of objects returned by one listing page.
const PageSize = 20

// ThumbnailWidths are the derivative widths generated for every image.
var ThumbnailWidths = []int{500, 250, 100}

// IsThumbnailWidth reports whether width is one of ThumbnailWidths.
func IsThumbnailWidth(width int) bool {
	for _, w := range ThumbnailWidths {
		if w == width {
			return true
		}
	}
	return false
}

// User is a registered account. The password is only ever stored as a
// one-way digest.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Object is the metadata of a folder, file or image.
//
// ContentRef is set only for kinds that carry content; it is an opaque
// handle produced by content placement and is never exposed to clients.
type Object struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"userId"`
	Name       string    `json:"name"`
	Kind       Kind      `json:"type"`
	ParentID   uuid.UUID `json:"parentId"`
	IsPublic   bool      `json:"isPublic"`
	ContentRef string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsRoot reports whether the object sits at the top level.
func (o *Object) IsRoot() bool {
	return o.ParentID == RootID
}

// Access selects which objects a lookup may return.
type Access int

const (
	// AccessOwner matches only objects owned by the requester.
	AccessOwner Access = iota
	// AccessViewer matches public objects and objects owned by the requester.
	// A uuid.Nil requester sees public objects only.
	AccessViewer
)

// ObjectQuery identifies one object together with the access rule the
// lookup must satisfy. Repositories apply the rule as part of the lookup.
type ObjectQuery struct {
	ID          uuid.UUID
	RequesterID uuid.UUID
	Access      Access
}

// Matches reports whether o satisfies q. Repositories that cannot push the
// rule into their native filter use it directly.
func (q ObjectQuery) Matches(o *Object) bool {
	if o == nil || o.ID != q.ID {
		return false
	}
	owned := q.RequesterID != uuid.Nil && o.OwnerID == q.RequesterID
	switch q.Access {
	case AccessOwner:
		return owned
	case AccessViewer:
		return owned || o.IsPublic
	}
	return false
}

// Content is a resolved payload ready to be served.
type Content struct {
	Data     []byte
	MimeType string
}

// Status reports liveness of the external collaborators.
type Status struct {
	Cache bool `json:"redis"`
	DB    bool `json:"db"`
}

// Stats reports collection sizes.
type Stats struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}
