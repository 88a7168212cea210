package postgres_test

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
	"github.com/tendant/simple-files/pkg/simplefiles/repo/postgres"
)

// setupRepository connects to TEST_DATABASE_URL and applies migrations
func setupRepository(t *testing.T) *postgres.Repository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	require.NoError(t, postgres.Migrate(ctx, dsn), "Failed to migrate test database")

	repo, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(func() { _ = repo.Close(context.Background()) })
	return repo
}

func newUser(t *testing.T, repo *postgres.Repository) *simplefiles.User {
	user := &simplefiles.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.InsertUser(context.Background(), user))
	return user
}

func TestPostgresRepository_Users(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	user := newUser(t, repo)
	err := repo.InsertUser(ctx, &simplefiles.User{ID: uuid.New(), Email: user.Email, PasswordHash: "x", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, simplefiles.ErrConflict)

	got, err := repo.FindUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.FindUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, simplefiles.ErrNotFound)
}

func TestPostgresRepository_Objects(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	owner := newUser(t, repo)
	other := newUser(t, repo)

	folder := &simplefiles.Object{
		ID:        uuid.New(),
		OwnerID:   owner.ID,
		Name:      "images",
		Kind:      simplefiles.KindFolder,
		ParentID:  simplefiles.RootID,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.InsertObject(ctx, folder))

	var ids []uuid.UUID
	for i := 0; i < 21; i++ {
		object := &simplefiles.Object{
			ID:         uuid.New(),
			OwnerID:    owner.ID,
			Name:       fmt.Sprintf("img-%d.png", i),
			Kind:       simplefiles.KindImage,
			ParentID:   folder.ID,
			ContentRef: fmt.Sprintf("ref-%d", i),
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, repo.InsertObject(ctx, object))
		ids = append(ids, object.ID)
	}

	page0, err := repo.ListObjects(ctx, owner.ID, folder.ID, 0, simplefiles.PageSize)
	require.NoError(t, err)
	require.Len(t, page0, 20)
	assert.Equal(t, ids[0], page0[0].ID)
	assert.Equal(t, "ref-0", page0[0].ContentRef)

	page1, err := repo.ListObjects(ctx, owner.ID, folder.ID, 20, simplefiles.PageSize)
	require.NoError(t, err)
	require.Len(t, page1, 1)
	assert.Equal(t, ids[20], page1[0].ID)

	root, err := repo.FindObject(ctx, simplefiles.ObjectQuery{ID: folder.ID, RequesterID: owner.ID, Access: simplefiles.AccessOwner})
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.Empty(t, root.ContentRef)

	_, err = repo.FindObject(ctx, simplefiles.ObjectQuery{ID: folder.ID, RequesterID: other.ID, Access: simplefiles.AccessViewer})
	assert.ErrorIs(t, err, simplefiles.ErrNotFound)

	updated, err := repo.UpdateObjectVisibility(ctx, simplefiles.ObjectQuery{ID: folder.ID, RequesterID: owner.ID, Access: simplefiles.AccessOwner}, true)
	require.NoError(t, err)
	assert.True(t, updated.IsPublic)

	visible, err := repo.FindObject(ctx, simplefiles.ObjectQuery{ID: folder.ID, RequesterID: other.ID, Access: simplefiles.AccessViewer})
	require.NoError(t, err)
	assert.Equal(t, "images", visible.Name)
}
