package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-files/pkg/simplefiles"
	"github.com/tendant/simple-files/pkg/simplefiles/repo/memory"
)

func newObject(owner, parent uuid.UUID, name string, public bool) *simplefiles.Object {
	return &simplefiles.Object{
		ID:        uuid.New(),
		OwnerID:   owner,
		Name:      name,
		Kind:      simplefiles.KindFolder,
		ParentID:  parent,
		IsPublic:  public,
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemoryRepository_UserOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	user := &simplefiles.User{ID: uuid.New(), Email: "bob@dylan.com", PasswordHash: "hash", CreatedAt: time.Now()}

	t.Run("InsertUser", func(t *testing.T) {
		require.NoError(t, repo.InsertUser(ctx, user))
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		dup := &simplefiles.User{ID: uuid.New(), Email: "bob@dylan.com"}
		assert.ErrorIs(t, repo.InsertUser(ctx, dup), simplefiles.ErrConflict)
	})

	t.Run("FindUser", func(t *testing.T) {
		byEmail, err := repo.FindUserByEmail(ctx, "bob@dylan.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		byID, err := repo.FindUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob@dylan.com", byID.Email)

		_, err = repo.FindUserByID(ctx, uuid.New())
		assert.ErrorIs(t, err, simplefiles.ErrNotFound)
	})

	t.Run("CountUsers", func(t *testing.T) {
		n, err := repo.CountUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("EmailIsCaseSensitive", func(t *testing.T) {
		upper := &simplefiles.User{ID: uuid.New(), Email: "Bob@Dylan.com"}
		require.NoError(t, repo.InsertUser(ctx, upper))

		found, err := repo.FindUserByEmail(ctx, "Bob@Dylan.com")
		require.NoError(t, err)
		assert.Equal(t, upper.ID, found.ID)

		found, err = repo.FindUserByEmail(ctx, "bob@dylan.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		_, err = repo.FindUserByEmail(ctx, "BOB@DYLAN.COM")
		assert.ErrorIs(t, err, simplefiles.ErrNotFound)
	})
}

func TestMemoryRepository_FindObjectAccess(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	private := newObject(owner, simplefiles.RootID, "private", false)
	public := newObject(owner, simplefiles.RootID, "public", true)
	require.NoError(t, repo.InsertObject(ctx, private))
	require.NoError(t, repo.InsertObject(ctx, public))

	tests := []struct {
		name      string
		q         simplefiles.ObjectQuery
		wantFound bool
	}{
		{"owner sees private", simplefiles.ObjectQuery{ID: private.ID, RequesterID: owner, Access: simplefiles.AccessViewer}, true},
		{"other cannot see private", simplefiles.ObjectQuery{ID: private.ID, RequesterID: other, Access: simplefiles.AccessViewer}, false},
		{"anonymous cannot see private", simplefiles.ObjectQuery{ID: private.ID, Access: simplefiles.AccessViewer}, false},
		{"other sees public", simplefiles.ObjectQuery{ID: public.ID, RequesterID: other, Access: simplefiles.AccessViewer}, true},
		{"anonymous sees public", simplefiles.ObjectQuery{ID: public.ID, Access: simplefiles.AccessViewer}, true},
		{"owner access rejects other on public", simplefiles.ObjectQuery{ID: public.ID, RequesterID: other, Access: simplefiles.AccessOwner}, false},
		{"unknown id", simplefiles.ObjectQuery{ID: uuid.New(), RequesterID: owner, Access: simplefiles.AccessViewer}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindObject(ctx, tt.q)
			if tt.wantFound {
				require.NoError(t, err)
				assert.Equal(t, tt.q.ID, got.ID)
			} else {
				assert.ErrorIs(t, err, simplefiles.ErrNotFound)
			}
		})
	}
}

func TestMemoryRepository_UpdateObjectVisibility(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	owner := uuid.New()

	object := newObject(owner, simplefiles.RootID, "doc", false)
	require.NoError(t, repo.InsertObject(ctx, object))

	updated, err := repo.UpdateObjectVisibility(ctx, simplefiles.ObjectQuery{ID: object.ID, RequesterID: owner, Access: simplefiles.AccessOwner}, true)
	require.NoError(t, err)
	assert.True(t, updated.IsPublic)

	// Non-owner cannot flip it back
	_, err = repo.UpdateObjectVisibility(ctx, simplefiles.ObjectQuery{ID: object.ID, RequesterID: uuid.New(), Access: simplefiles.AccessOwner}, false)
	assert.ErrorIs(t, err, simplefiles.ErrNotFound)

	got, err := repo.FindObject(ctx, simplefiles.ObjectQuery{ID: object.ID, Access: simplefiles.AccessViewer})
	require.NoError(t, err)
	assert.True(t, got.IsPublic)
}

func TestMemoryRepository_ConcurrentVisibility(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	owner := uuid.New()
	object := newObject(owner, simplefiles.RootID, "doc", false)
	require.NoError(t, repo.InsertObject(ctx, object))

	q := simplefiles.ObjectQuery{ID: object.ID, RequesterID: owner, Access: simplefiles.AccessOwner}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(public bool) {
			defer wg.Done()
			_, err := repo.UpdateObjectVisibility(ctx, q, public)
			assert.NoError(t, err)
		}(i%2 == 0)
	}
	wg.Wait()

	got, err := repo.FindObject(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "doc", got.Name)
	assert.Equal(t, owner, got.OwnerID)
}

func TestMemoryRepository_ListObjects(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 25; i++ {
		object := newObject(owner, simplefiles.RootID, fmt.Sprintf("obj-%d", i), false)
		require.NoError(t, repo.InsertObject(ctx, object))
		ids = append(ids, object.ID)
	}
	require.NoError(t, repo.InsertObject(ctx, newObject(other, simplefiles.RootID, "foreign", true)))
	require.NoError(t, repo.InsertObject(ctx, newObject(owner, uuid.New(), "nested", false)))

	page0, err := repo.ListObjects(ctx, owner, simplefiles.RootID, 0, simplefiles.PageSize)
	require.NoError(t, err)
	require.Len(t, page0, 20)
	for i, object := range page0 {
		assert.Equal(t, ids[i], object.ID)
	}

	page1, err := repo.ListObjects(ctx, owner, simplefiles.RootID, 20, simplefiles.PageSize)
	require.NoError(t, err)
	require.Len(t, page1, 5)
	assert.Equal(t, ids[20], page1[0].ID)

	page2, err := repo.ListObjects(ctx, owner, simplefiles.RootID, 40, simplefiles.PageSize)
	require.NoError(t, err)
	assert.NotNil(t, page2)
	assert.Empty(t, page2)

	n, err := repo.CountObjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(27), n)
}

func TestMemoryRepository_ScanObjects(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	var images []uuid.UUID
	for i := 0; i < 5; i++ {
		folder := newObject(uuid.New(), simplefiles.RootID, "dir", false)
		require.NoError(t, repo.InsertObject(ctx, folder))

		image := newObject(uuid.New(), simplefiles.RootID, "pic.png", false)
		image.Kind = simplefiles.KindImage
		require.NoError(t, repo.InsertObject(ctx, image))
		images = append(images, image.ID)
	}

	first, err := repo.ScanObjects(ctx, simplefiles.KindImage, 0, 3)
	require.NoError(t, err)
	second, err := repo.ScanObjects(ctx, simplefiles.KindImage, 3, 3)
	require.NoError(t, err)

	var got []uuid.UUID
	for _, o := range append(first, second...) {
		got = append(got, o.ID)
	}
	assert.Equal(t, images, got)

	files, err := repo.ScanObjects(ctx, simplefiles.KindFile, 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}
