// Package thumbnail generates image derivatives and runs the background
// workers that consume the job queue.
package thumbnail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tendant/simple-files/pkg/simplefiles"
	"golang.org/x/sync/errgroup"
)

// Processor handles one job payload. Returning an error matching
// ErrPermanent dead-letters the job; any other error lets the queue retry it.
type Processor interface {
	Process(ctx context.Context, payload []byte) error
}

// ProcessorFunc adapts a function to the Processor interface
type ProcessorFunc func(ctx context.Context, payload []byte) error

func (f ProcessorFunc) Process(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}

// Generator renders the derivatives of image objects
type Generator struct {
	repository simplefiles.Repository
	placement  simplefiles.ContentPlacement
	widths     []int
	maxPixels  int
}

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithMaxPixels bounds the decoded size of originals. Larger images are
// dead-lettered without being decoded.
func WithMaxPixels(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxPixels = n
		}
	}
}

// NewGenerator creates a Generator for simplefiles.ThumbnailWidths
func NewGenerator(repository simplefiles.Repository, placement simplefiles.ContentPlacement, opts ...GeneratorOption) *Generator {
	g := &Generator{
		repository: repository,
		placement:  placement,
		widths:     simplefiles.ThumbnailWidths,
		maxPixels:  DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Process decodes a simplefiles.ThumbnailJob and generates every derivative.
func (g *Generator) Process(ctx context.Context, payload []byte) error {
	var job simplefiles.ThumbnailJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return Permanent(fmt.Errorf("decode job: %w", err))
	}
	if job.FileID == "" {
		return Permanent(errors.New("missing fileId"))
	}
	if job.UserID == "" {
		return Permanent(errors.New("missing userId"))
	}
	fileID, err := uuid.Parse(job.FileID)
	if err != nil {
		return Permanent(fmt.Errorf("invalid fileId: %w", err))
	}
	userID, err := uuid.Parse(job.UserID)
	if err != nil {
		return Permanent(fmt.Errorf("invalid userId: %w", err))
	}
	return g.Generate(ctx, userID, fileID)
}

// Generate reads and decodes the original once and writes all derivatives.
// Rerunning it overwrites the same keys.
func (g *Generator) Generate(ctx context.Context, ownerID, fileID uuid.UUID) error {
	object, err := g.repository.FindObject(ctx, simplefiles.ObjectQuery{
		ID:          fileID,
		RequesterID: ownerID,
		Access:      simplefiles.AccessOwner,
	})
	if errors.Is(err, simplefiles.ErrNotFound) {
		return Permanent(fmt.Errorf("file not found: %w", err))
	} else if err != nil {
		return err
	}
	if object.Kind != simplefiles.KindImage {
		return Permanent(fmt.Errorf("object %s is a %s, not an image", object.ID, object.Kind))
	}

	original, err := g.placement.Read(ctx, object.ContentRef)
	if errors.Is(err, simplefiles.ErrContentNotFound) {
		return Permanent(err)
	} else if err != nil {
		return err
	}

	src, err := Decode(original, g.maxPixels)
	if err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, width := range g.widths {
		eg.Go(func() error {
			data, err := src.Scale(width)
			if err != nil {
				return err
			}
			return g.placement.StoreVariant(egCtx, object.ContentRef, width, data)
		})
	}
	return eg.Wait()
}

// Welcomer greets newly registered users
type Welcomer struct {
	repository simplefiles.Repository
	logger     *slog.Logger
}

// NewWelcomer creates a Welcomer logging through logger
func NewWelcomer(repository simplefiles.Repository, logger *slog.Logger) *Welcomer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Welcomer{repository: repository, logger: logger}
}

// Process decodes a simplefiles.WelcomeJob and greets the user
func (w *Welcomer) Process(ctx context.Context, payload []byte) error {
	var job simplefiles.WelcomeJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return Permanent(fmt.Errorf("decode job: %w", err))
	}
	if job.UserID == "" {
		return Permanent(errors.New("missing userId"))
	}
	userID, err := uuid.Parse(job.UserID)
	if err != nil {
		return Permanent(fmt.Errorf("invalid userId: %w", err))
	}

	user, err := w.repository.FindUserByID(ctx, userID)
	if errors.Is(err, simplefiles.ErrNotFound) {
		return Permanent(fmt.Errorf("user not found: %w", err))
	} else if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "welcome", "user_id", user.ID, "email", user.Email)
	return nil
}
