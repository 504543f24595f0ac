package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/testutil"
)

func TestStatistics(t *testing.T) {
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	ctx := context.Background()

	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	s := New(rdb, db)
	s.now = func() time.Time { return now }

	require.NoError(t, db.Create(&models.User{Name: "Ada", Email: "ada@example.com"}).Error)
	pages := []models.ColoringPage{
		{UserID: 1, ShareSlug: "s1", Status: models.ColoringStatusCompleted, CreatedAt: now.Add(-time.Hour)},
		{UserID: 1, ShareSlug: "s2", Status: models.ColoringStatusCompleted, CreatedAt: now.Add(-48 * time.Hour)},
		{UserID: 1, ShareSlug: "s3", Status: models.ColoringStatusFailed, CreatedAt: now},
	}
	require.NoError(t, db.Create(&pages).Error)

	data := s.Get(ctx)
	assert.Equal(t, StatisticsData{TodayPages: 1, TotalUsers: 1, TotalPages: 2}, data)
	assert.True(t, mr.Exists(CacheKeyPagesTotal))
	assert.True(t, mr.Exists("statistics:pages:daily:2026-06-10"))

	// cached values win until the next refresh
	require.NoError(t, db.Create(&models.User{Name: "Bob", Email: "bob@example.com"}).Error)
	assert.Equal(t, 1, s.Get(ctx).TotalUsers)

	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, 2, s.Get(ctx).TotalUsers)
}
