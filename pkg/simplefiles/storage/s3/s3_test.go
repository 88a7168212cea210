package s3

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-files/pkg/simplefiles"
)

// TestBackendWithMinIO requires a running MinIO server:
// docker run -p 9000:9000 minio/minio server /data
func TestBackendWithMinIO(t *testing.T) {
	if os.Getenv("MINIO_INTEGRATION_TEST") == "" {
		t.Skip("Skipping MinIO integration test. Set MINIO_INTEGRATION_TEST=1 to run.")
	}

	ctx := context.Background()
	backend, err := New(ctx, Config{
		Region:                 "us-east-1",
		Bucket:                 "files-test-" + time.Now().Format("20060102150405"),
		AccessKeyID:            "minioadmin",
		SecretAccessKey:        "minioadmin",
		Endpoint:               "http://localhost:9000",
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	key := "originals/owner/ab/cdef"
	require.NoError(t, backend.Upload(ctx, key, strings.NewReader("Hello Webstack!")))

	exists, err := backend.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "Hello Webstack!", string(data))

	require.NoError(t, backend.Delete(ctx, key))

	exists, err = backend.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = backend.Download(ctx, key)
	assert.ErrorIs(t, err, simplefiles.ErrBlobNotFound)
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}
