// Package placement maps object payloads and their derivatives onto a
// simplefiles.BlobStore.
package placement

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tendant/simple-files/pkg/simplefiles"
	"github.com/tendant/simple-files/pkg/simplefiles/objectkey"
)

// Option configures a Placement
type Option func(*Placement)

// WithKeyGenerator overrides the layout of original payload keys
func WithKeyGenerator(g objectkey.Generator) Option {
	return func(p *Placement) { p.keys = g }
}

// WithLogger sets the logger used for best-effort cleanup failures
func WithLogger(l *slog.Logger) Option {
	return func(p *Placement) { p.logger = l }
}

// Placement implements simplefiles.ContentPlacement
type Placement struct {
	blobs  simplefiles.BlobStore
	keys   objectkey.Generator
	logger *slog.Logger
}

var _ simplefiles.ContentPlacement = (*Placement)(nil)

// New creates a Placement over blobs
func New(blobs simplefiles.BlobStore, opts ...Option) *Placement {
	p := &Placement{
		blobs:  blobs,
		keys:   objectkey.NewRecommendedGenerator(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Placement) Store(ctx context.Context, ownerID uuid.UUID, data []byte) (string, error) {
	ref := p.keys.GenerateKey(ownerID, uuid.New())
	if err := p.blobs.Upload(ctx, ref, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: %w", simplefiles.ErrIO, err)
	}
	return ref, nil
}

func (p *Placement) Read(ctx context.Context, ref string) ([]byte, error) {
	return p.read(ctx, p.Locate(ref, 0))
}

func (p *Placement) StoreVariant(ctx context.Context, ref string, width int, data []byte) error {
	if err := p.blobs.Upload(ctx, p.Locate(ref, width), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %w", simplefiles.ErrIO, err)
	}
	return nil
}

func (p *Placement) ReadVariant(ctx context.Context, ref string, width int) ([]byte, error) {
	return p.read(ctx, p.Locate(ref, width))
}

func (p *Placement) Locate(ref string, width int) string {
	if width <= 0 {
		return ref
	}
	return objectkey.VariantKey(ref, width)
}

// Discard removes the original and any derivatives already written
func (p *Placement) Discard(ctx context.Context, ref string) error {
	err := p.blobs.Delete(ctx, ref)
	if err != nil && !errors.Is(err, simplefiles.ErrBlobNotFound) {
		return fmt.Errorf("%w: %w", simplefiles.ErrIO, err)
	}
	for _, width := range simplefiles.ThumbnailWidths {
		if err := p.blobs.Delete(ctx, p.Locate(ref, width)); err != nil && !errors.Is(err, simplefiles.ErrBlobNotFound) {
			p.logger.Warn("failed to discard variant", "ref", ref, "width", width, "err", err)
		}
	}
	return nil
}

func (p *Placement) read(ctx context.Context, key string) ([]byte, error) {
	rc, err := p.blobs.Download(ctx, key)
	if errors.Is(err, simplefiles.ErrBlobNotFound) {
		return nil, simplefiles.ErrContentNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", simplefiles.ErrIO, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", simplefiles.ErrIO, err)
	}
	return data, nil
}
