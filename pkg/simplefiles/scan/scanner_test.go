package scan_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-files/pkg/simplefiles"
	"github.com/tendant/simple-files/pkg/simplefiles/placement"
	queuememory "github.com/tendant/simple-files/pkg/simplefiles/queue/memory"
	"github.com/tendant/simple-files/pkg/simplefiles/repo/memory"
	"github.com/tendant/simple-files/pkg/simplefiles/scan"
	memorystorage "github.com/tendant/simple-files/pkg/simplefiles/storage/memory"
)

func insert(t *testing.T, repo *memory.Repository, kind simplefiles.Kind, ref string) *simplefiles.Object {
	t.Helper()
	o := &simplefiles.Object{
		ID:         uuid.New(),
		OwnerID:    uuid.New(),
		Name:       uuid.NewString(),
		Kind:       kind,
		ParentID:   simplefiles.RootID,
		ContentRef: ref,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, repo.InsertObject(context.Background(), o))
	return o
}

func TestScan_BatchesAndCounts(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	var images []uuid.UUID
	for i := 0; i < 7; i++ {
		images = append(images, insert(t, repo, simplefiles.KindImage, "ref").ID)
		insert(t, repo, simplefiles.KindFolder, "")
	}

	var seen []uuid.UUID
	var progress []int64
	result, err := scan.New(repo, nil).Scan(ctx, scan.Options{
		Kind:      simplefiles.KindImage,
		BatchSize: 3,
		Processor: scan.ProcessorFunc(func(_ context.Context, o *simplefiles.Object) error {
			seen = append(seen, o.ID)
			switch len(seen) {
			case 2:
				return errors.New("boom")
			case 4:
				return scan.ErrSkip
			}
			return nil
		}),
		OnProgress: func(processed, total int64) { progress = append(progress, processed) },
	})
	require.NoError(t, err)

	assert.Equal(t, images, seen)
	assert.Equal(t, int64(7), result.TotalFound)
	assert.Equal(t, int64(5), result.TotalProcessed)
	assert.Equal(t, int64(1), result.TotalFailed)
	assert.Equal(t, int64(1), result.TotalSkipped)
	assert.Equal(t, []string{images[1].String()}, result.FailedIDs)
	assert.Equal(t, []int64{3, 6, 7}, progress)
}

func TestScan_DryRunAndValidation(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	insert(t, repo, simplefiles.KindFile, "ref")

	s := scan.New(repo, nil)

	result, err := s.Scan(ctx, scan.Options{Kind: simplefiles.KindFile, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalProcessed)

	_, err = s.Scan(ctx, scan.Options{Kind: simplefiles.KindFile})
	assert.Error(t, err)

	_, err = s.Scan(ctx, scan.Options{Kind: "video", DryRun: true})
	assert.Error(t, err)
}

func TestThumbnailBackfill(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	blobs := memorystorage.New()
	p := placement.New(blobs)
	queue := queuememory.New()
	defer queue.Close()

	complete, err := p.Store(ctx, uuid.New(), []byte("img"))
	require.NoError(t, err)
	for _, w := range simplefiles.ThumbnailWidths {
		require.NoError(t, p.StoreVariant(ctx, complete, w, []byte("thumb")))
	}
	partial, err := p.Store(ctx, uuid.New(), []byte("img"))
	require.NoError(t, err)
	require.NoError(t, p.StoreVariant(ctx, partial, 500, []byte("thumb")))
	missing, err := p.Store(ctx, uuid.New(), []byte("img"))
	require.NoError(t, err)

	insert(t, repo, simplefiles.KindImage, complete)
	wantPartial := insert(t, repo, simplefiles.KindImage, partial)
	wantMissing := insert(t, repo, simplefiles.KindImage, missing)

	result, err := scan.New(repo, nil).Scan(ctx, scan.Options{
		Kind:      simplefiles.KindImage,
		Processor: scan.NewThumbnailBackfill(blobs, p, queue),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalProcessed)
	assert.Equal(t, int64(1), result.TotalSkipped)
	require.Equal(t, 2, queue.Pending(simplefiles.TopicThumbnails))

	var got []string
	for i := 0; i < 2; i++ {
		d, err := queue.Receive(ctx, simplefiles.TopicThumbnails, time.Second)
		require.NoError(t, err)
		var job simplefiles.ThumbnailJob
		require.NoError(t, json.Unmarshal(d.Payload(), &job))
		got = append(got, job.FileID)
		require.NoError(t, d.Ack(ctx))
	}
	assert.ElementsMatch(t, []string{wantPartial.ID.String(), wantMissing.ID.String()}, got)
}
