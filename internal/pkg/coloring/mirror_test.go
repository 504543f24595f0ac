package coloring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/jobqueue"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/objectstore"
)

type fakeUploader struct {
	keys  []string
	local []string
	err   error
}

func (u *fakeUploader) UploadFile(ctx context.Context, localFilePath, objectKey string) (*objectstore.UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.local = append(u.local, localFilePath)
	u.keys = append(u.keys, objectKey)
	return &objectstore.UploadResult{ObjectKey: objectKey}, nil
}

func TestHandleMirrorUploadsFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	page := &models.ColoringPage{UserID: 1, ShareSlug: "mirror01", CreatedAt: created}
	require.NoError(t, f.db.Create(page).Error)

	files := OutputFiles(page.UUID, created)
	uploader := &fakeUploader{}
	m := NewMirror(f.db, uploader, &objectstore.Config{PathPrefix: "coloring"}, f.root)

	job := &jobqueue.Job{Payload: jobqueue.ColoringMirrorJobPayload{PageID: page.ID, PageUUID: page.UUID, Files: files.All()}.ToMap()}
	require.NoError(t, m.HandleMirror(ctx, job))

	assert.Equal(t, []string{
		"coloring/2026/04/" + page.UUID + "/" + page.UUID + ".png",
		"coloring/2026/04/" + page.UUID + "/" + page.UUID + ".webp",
		"coloring/2026/04/" + page.UUID + "/" + page.UUID + "_thumb.webp",
	}, uploader.keys)

	var stored models.ColoringPage
	require.NoError(t, f.db.First(&stored, page.ID).Error)
	assert.NotNil(t, stored.MirroredAt)
}

func TestHandleMirrorRetriesOnUploadError(t *testing.T) {
	f := newFixture(t)
	page := &models.ColoringPage{UserID: 1, ShareSlug: "mirror02"}
	require.NoError(t, f.db.Create(page).Error)

	m := NewMirror(f.db, &fakeUploader{err: errors.New("timeout")}, &objectstore.Config{}, f.root)
	job := &jobqueue.Job{Payload: jobqueue.ColoringMirrorJobPayload{PageID: page.ID, Files: []string{"a.png"}}.ToMap()}

	err := m.HandleMirror(context.Background(), job)
	require.Error(t, err)
	assert.False(t, errors.Is(err, jobqueue.ErrPermanent))
}
