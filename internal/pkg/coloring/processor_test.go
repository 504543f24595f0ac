package coloring

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/jobqueue"
)

func createPending(t *testing.T, f *fixture, mirror bool) (*models.ColoringPage, *jobqueue.Job) {
	t.Helper()
	ctx := context.Background()
	_, err := f.ledger.GrantSignup(ctx, 7)
	require.NoError(t, err)

	f.service.mirror = mirror
	page, err := f.service.Create(ctx, CreateInput{UserID: 7, Detail: "bold", FileName: "photo.png", Data: pngBytes(t)})
	require.NoError(t, err)
	require.Len(t, f.queue.jobs, 1)
	return page, f.queue.jobs[0]
}

func TestHandleGenerationWritesOutputs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	page, job := createPending(t, f, true)

	p := NewProcessor(f.db, f.status, f.ledger, f.queue, f.root)
	require.NoError(t, p.HandleGeneration(ctx, job))

	var stored models.ColoringPage
	require.NoError(t, f.db.First(&stored, page.ID).Error)
	assert.Equal(t, models.ColoringStatusCompleted, stored.Status)
	assert.True(t, stored.IsReady())
	assert.Equal(t, 96, stored.Width)
	assert.Equal(t, 96, stored.Height)
	for _, rel := range []string{stored.LineArtPath, stored.PreviewPath, stored.ThumbnailPath} {
		assert.FileExists(t, filepath.Join(f.root, rel))
	}

	status, err := f.status.Get(ctx, page.UUID)
	require.NoError(t, err)
	assert.Equal(t, models.ColoringStatusCompleted, status)

	// mirror job follows the generation
	require.Len(t, f.queue.jobs, 2)
	assert.Equal(t, jobqueue.JobTypeColoringMirror, f.queue.jobs[1].Type)

	// a redelivered job is a no-op
	require.NoError(t, p.HandleGeneration(ctx, job))
	assert.Len(t, f.queue.jobs, 2)
}

func TestHandleGenerationCorruptUploadFailsPermanently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	page, job := createPending(t, f, false)

	require.NoError(t, os.WriteFile(filepath.Join(f.root, page.OriginalPath), []byte("\x89PNG\r\n\x1a\ngarbage"), 0o644))

	p := NewProcessor(f.db, f.status, f.ledger, f.queue, f.root)
	err := p.HandleGeneration(ctx, job)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jobqueue.ErrPermanent))

	p.HandleGenerationFailure(ctx, job, err)

	var stored models.ColoringPage
	require.NoError(t, f.db.First(&stored, page.ID).Error)
	assert.Equal(t, models.ColoringStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "decoding")

	balance, err := f.ledger.Balance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, balance, "credit is refunded")

	// a second failure notification does not refund twice
	p.HandleGenerationFailure(ctx, job, err)
	balance, err = f.ledger.Balance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
}

func TestHandleGenerationUnknownPage(t *testing.T) {
	f := newFixture(t)
	p := NewProcessor(f.db, f.status, f.ledger, f.queue, f.root)

	job := &jobqueue.Job{Type: jobqueue.JobTypeColoringGeneration, Payload: jobqueue.ColoringGenerationJobPayload{PageID: 99}.ToMap()}
	err := p.HandleGeneration(context.Background(), job)
	assert.ErrorIs(t, err, jobqueue.ErrPermanent)
	assert.ErrorIs(t, err, ErrPageNotFound)
}
