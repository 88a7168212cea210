package mongo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-files/pkg/simplefiles"
	"github.com/tendant/simple-files/pkg/simplefiles/repo/mongo"
)

func setupRepository(t *testing.T) *mongo.Repository {
	uri := os.Getenv("TEST_MONGO_URL")
	if uri == "" {
		t.Skip("TEST_MONGO_URL not set, skipping MongoDB tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := fmt.Sprintf("simplefiles_test_%d", time.Now().UnixNano())
	repo, err := mongo.Connect(ctx, uri, dbName)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(context.Background()) })
	return repo
}

func TestMongoRepository_Users(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	user := &simplefiles.User{ID: uuid.New(), Email: "bob@dylan.com", PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.InsertUser(ctx, user))
	assert.ErrorIs(t, repo.InsertUser(ctx, &simplefiles.User{ID: uuid.New(), Email: "bob@dylan.com"}), simplefiles.ErrConflict)

	got, err := repo.FindUserByEmail(ctx, "bob@dylan.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = repo.FindUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, simplefiles.ErrNotFound)
}

func TestMongoRepository_Objects(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 22; i++ {
		object := &simplefiles.Object{
			ID:         uuid.New(),
			OwnerID:    owner,
			Name:       fmt.Sprintf("f%d", i),
			Kind:       simplefiles.KindFile,
			ParentID:   simplefiles.RootID,
			ContentRef: "ref",
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, repo.InsertObject(ctx, object))
		ids = append(ids, object.ID)
	}

	page, err := repo.ListObjects(ctx, owner, simplefiles.RootID, 20, simplefiles.PageSize)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[20], page[0].ID)
	assert.Equal(t, simplefiles.RootID, page[0].ParentID)
	assert.Equal(t, "ref", page[0].ContentRef)

	_, err = repo.FindObject(ctx, simplefiles.ObjectQuery{ID: ids[0], RequesterID: other, Access: simplefiles.AccessViewer})
	assert.ErrorIs(t, err, simplefiles.ErrNotFound)

	_, err = repo.UpdateObjectVisibility(ctx, simplefiles.ObjectQuery{ID: ids[0], RequesterID: other, Access: simplefiles.AccessOwner}, true)
	assert.ErrorIs(t, err, simplefiles.ErrNotFound)

	updated, err := repo.UpdateObjectVisibility(ctx, simplefiles.ObjectQuery{ID: ids[0], RequesterID: owner, Access: simplefiles.AccessOwner}, true)
	require.NoError(t, err)
	assert.True(t, updated.IsPublic)

	got, err := repo.FindObject(ctx, simplefiles.ObjectQuery{ID: ids[0], Access: simplefiles.AccessViewer})
	require.NoError(t, err)
	assert.Equal(t, "f0", got.Name)
}
