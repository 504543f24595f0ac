package counter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/testutil"
)

func TestFlushAppliesPendingDownloads(t *testing.T) {
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	ctx := context.Background()

	first := &models.ColoringPage{UserID: 1, ShareSlug: "aaa", DownloadCount: 3}
	second := &models.ColoringPage{UserID: 1, ShareSlug: "bbb"}
	require.NoError(t, db.Create(first).Error)
	require.NoError(t, db.Create(second).Error)

	c := New(rdb, db)
	require.NoError(t, c.AddPageDownload(ctx, first.ID))
	require.NoError(t, c.AddPageDownload(ctx, first.ID))
	require.NoError(t, c.AddPageDownload(ctx, second.ID))

	pending, err := c.Pending(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	require.NoError(t, c.Flush(ctx))

	var got models.ColoringPage
	require.NoError(t, db.First(&got, first.ID).Error)
	assert.Equal(t, 5, got.DownloadCount)
	require.NoError(t, db.First(&got, second.ID).Error)
	assert.Equal(t, 1, got.DownloadCount)

	assert.False(t, mr.Exists(pageDownloadsKey))
	assert.Empty(t, mr.Keys())
}

func TestFlushWithoutPendingCounters(t *testing.T) {
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)

	c := New(rdb, db)
	assert.NoError(t, c.Flush(context.Background()))

	pending, err := c.Pending(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, pending)
}
