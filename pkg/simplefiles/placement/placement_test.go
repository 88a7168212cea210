package placement_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-files/pkg/simplefiles"
	"github.com/tendant/simple-files/pkg/simplefiles/objectkey"
	"github.com/tendant/simple-files/pkg/simplefiles/placement"
	memorystorage "github.com/tendant/simple-files/pkg/simplefiles/storage/memory"
)

type failingStore struct {
	simplefiles.BlobStore
}

func (failingStore) Upload(ctx context.Context, key string, r io.Reader) error {
	return errors.New("disk full")
}

func (failingStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("disk gone")
}

func TestStoreAndRead(t *testing.T) {
	ctx := context.Background()
	blobs := memorystorage.New()
	p := placement.New(blobs)
	owner := uuid.New()

	ref, err := p.Store(ctx, owner, []byte("payload"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "originals/"+owner.String()+"/"))

	data, err := p.Read(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	// Each payload lands at a fresh location
	ref2, err := p.Store(ctx, owner, []byte("payload"))
	require.NoError(t, err)
	assert.NotEqual(t, ref, ref2)
}

func TestVariants(t *testing.T) {
	ctx := context.Background()
	blobs := memorystorage.New()
	p := placement.New(blobs, placement.WithKeyGenerator(objectkey.NewFlatGenerator()))

	ref, err := p.Store(ctx, uuid.New(), []byte("orig"))
	require.NoError(t, err)

	assert.Equal(t, ref, p.Locate(ref, 0))
	assert.Equal(t, ref+"_250", p.Locate(ref, 250))

	_, err = p.ReadVariant(ctx, ref, 250)
	assert.ErrorIs(t, err, simplefiles.ErrContentNotFound)

	require.NoError(t, p.StoreVariant(ctx, ref, 250, []byte("small")))
	require.NoError(t, p.StoreVariant(ctx, ref, 250, []byte("small")))

	data, err := p.ReadVariant(ctx, ref, 250)
	require.NoError(t, err)
	assert.Equal(t, []byte("small"), data)
	assert.Len(t, blobs.Keys(), 2)
}

func TestReadMissingContent(t *testing.T) {
	p := placement.New(memorystorage.New())
	_, err := p.Read(context.Background(), "originals/gone")
	assert.ErrorIs(t, err, simplefiles.ErrContentNotFound)
	assert.NotErrorIs(t, err, simplefiles.ErrNotFound)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	blobs := memorystorage.New()
	p := placement.New(blobs)

	ref, err := p.Store(ctx, uuid.New(), []byte("orig"))
	require.NoError(t, err)
	require.NoError(t, p.StoreVariant(ctx, ref, 100, []byte("tiny")))

	require.NoError(t, p.Discard(ctx, ref))
	assert.Empty(t, blobs.Keys())

	// Discarding twice is harmless
	require.NoError(t, p.Discard(ctx, ref))
}

func TestWriteFailureIsIOError(t *testing.T) {
	ctx := context.Background()
	p := placement.New(failingStore{})

	_, err := p.Store(ctx, uuid.New(), []byte("x"))
	assert.ErrorIs(t, err, simplefiles.ErrIO)

	err = p.StoreVariant(ctx, "ref", 500, []byte("x"))
	assert.ErrorIs(t, err, simplefiles.ErrIO)

	_, err = p.Read(ctx, "ref")
	assert.ErrorIs(t, err, simplefiles.ErrIO)
}
