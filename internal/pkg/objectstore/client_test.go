package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodHead:
		if r.URL.Path == "/pages" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if _, ok := b.objects[r.URL.Path]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		b.objects[r.URL.Path] = body
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(b.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: map[string][]byte{}}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), &Config{
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
		BucketName:      "pages",
		EndpointURL:     srv.URL,
		PathPrefix:      "coloring",
		Enabled:         true,
	})
	require.NoError(t, err)
	return client, bucket
}

func TestNewClientDisabled(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestUploadExistsDelete(t *testing.T) {
	client, bucket := newTestClient(t)
	ctx := context.Background()

	local := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, os.WriteFile(local, []byte("png-bytes"), 0o644))

	key := client.Config().ObjectKey("abc", "page.png", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "coloring/2026/03/abc/page.png", key)

	res, err := client.UploadFile(ctx, local, key)
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, int64(9), res.Size)
	assert.Equal(t, []byte("png-bytes"), bucket.objects["/pages/"+key])

	exists, err := client.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, client.DeleteFile(ctx, key))
	exists, err = client.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("S3_MIRROR_ENABLED", "true")
	t.Setenv("S3_ACCESS_KEY_ID", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("S3_MIRROR_ENABLED", "false")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.IsEnabled())
}
