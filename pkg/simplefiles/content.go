package simplefiles

import (
	"context"
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const defaultMimeType = "application/octet-stream"

// FetchContent returns the original payload (width 0) or one of the image
// derivatives. Visibility follows GetPublicOrOwned; requesterID may be uuid.Nil.
func (s *service) FetchContent(ctx context.Context, requesterID, id uuid.UUID, width int) (*Content, error) {
	object, err := s.GetPublicOrOwned(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}
	if !object.Kind.HasContent() {
		return nil, ErrNoContent
	}
	if object.ContentRef == "" {
		return nil, ErrContentNotFound
	}

	if width == 0 {
		data, err := s.placement.Read(ctx, object.ContentRef)
		if err != nil {
			return nil, err
		}
		return &Content{Data: data, MimeType: mimeTypeFor(object.Name, data)}, nil
	}

	if object.Kind != KindImage || !IsThumbnailWidth(width) {
		return nil, ErrContentNotFound
	}
	data, err := s.placement.ReadVariant(ctx, object.ContentRef, width)
	if err != nil {
		return nil, err
	}
	// Derivatives may be re-encoded, so their type comes from the bytes.
	return &Content{Data: data, MimeType: mimetype.Detect(data).String()}, nil
}

// mimeTypeFor resolves the content type from the object name and falls back
// to sniffing the payload.
func mimeTypeFor(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	if len(data) == 0 {
		return defaultMimeType
	}
	return mimetype.Detect(data).String()
}
