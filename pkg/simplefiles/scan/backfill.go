package scan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tendant/simple-files/pkg/simplefiles"
)

// ThumbnailBackfill re-enqueues a thumbnail job for every image that is
// missing at least one derivative. Images with all derivatives are skipped.
type ThumbnailBackfill struct {
	blobs     simplefiles.BlobStore
	placement simplefiles.ContentPlacement
	queue     simplefiles.JobQueue
}

// NewThumbnailBackfill creates the backfill processor
func NewThumbnailBackfill(blobs simplefiles.BlobStore, placement simplefiles.ContentPlacement, queue simplefiles.JobQueue) *ThumbnailBackfill {
	return &ThumbnailBackfill{blobs: blobs, placement: placement, queue: queue}
}

func (b *ThumbnailBackfill) Process(ctx context.Context, object *simplefiles.Object) error {
	if object.Kind != simplefiles.KindImage || object.ContentRef == "" {
		return ErrSkip
	}

	complete, err := b.hasAllVariants(ctx, object.ContentRef)
	if err != nil {
		return err
	}
	if complete {
		return ErrSkip
	}

	payload, err := json.Marshal(simplefiles.ThumbnailJob{
		UserID: object.OwnerID.String(),
		FileID: object.ID.String(),
	})
	if err != nil {
		return err
	}
	return b.queue.Enqueue(ctx, simplefiles.TopicThumbnails, payload)
}

func (b *ThumbnailBackfill) hasAllVariants(ctx context.Context, ref string) (bool, error) {
	for _, width := range simplefiles.ThumbnailWidths {
		ok, err := b.blobs.Exists(ctx, b.placement.Locate(ref, width))
		if err != nil {
			return false, fmt.Errorf("check variant %d: %w", width, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
