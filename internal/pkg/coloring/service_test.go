package coloring

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/credits"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/jobqueue"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/testutil"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/themes"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []*jobqueue.Job
	err  error
}

func (q *recordingQueue) EnqueueJobContext(ctx context.Context, jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	job := &jobqueue.Job{ID: "job-" + string(jobType), Type: jobType, Payload: payload, Status: jobqueue.JobStatusPending}
	q.jobs = append(q.jobs, job)
	return job, nil
}

type fixture struct {
	db      *gorm.DB
	ledger  *credits.Service
	queue   *recordingQueue
	status  *StatusStore
	service *Service
	root    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	f := &fixture{
		db:     db,
		ledger: credits.NewServiceFromDB(db),
		queue:  &recordingQueue{},
		status: NewStatusStore(rdb),
		root:   t.TempDir(),
	}
	f.service = NewService(db, f.ledger, f.queue, f.status, themes.Default(), Options{Root: f.root}).
		WithClock(func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) })
	return f
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, squarePhoto(96, 32, 64)))
	return buf.Bytes()
}

func TestCreateQueuesPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.GrantSignup(ctx, 7)
	require.NoError(t, err)

	theme := themes.Default().Categories()[0].Themes[0]
	page, err := f.service.Create(ctx, CreateInput{
		UserID:   7,
		ThemeID:  theme.ID,
		Title:    "  Garden  ",
		Detail:   "soft",
		FileName: "garden.png",
		Data:     pngBytes(t),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ColoringStatusPending, page.Status)
	assert.Equal(t, "Garden", page.Title)
	assert.Equal(t, "soft", page.Detail)
	assert.Len(t, page.ShareSlug, 8)
	assert.Equal(t, "uploads/original/2026/05/01/"+page.UUID+".png", page.OriginalPath)
	assert.FileExists(t, filepath.Join(f.root, page.OriginalPath))

	balance, err := f.ledger.Balance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, balance)

	require.Len(t, f.queue.jobs, 1)
	payload, err := jobqueue.ColoringGenerationJobPayloadFromMap(f.queue.jobs[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, page.ID, payload.PageID)
	assert.Equal(t, page.UUID, payload.PageUUID)

	status, err := f.service.Status(ctx, page.UUID)
	require.NoError(t, err)
	assert.Equal(t, models.ColoringStatusPending, status)

	bySlug, err := f.service.FindBySlug(ctx, page.ShareSlug)
	require.NoError(t, err)
	assert.Equal(t, page.ID, bySlug.ID)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.GrantSignup(ctx, 7)
	require.NoError(t, err)

	_, err = f.service.Create(ctx, CreateInput{UserID: 7, FileName: "a.gif", Data: []byte("GIF89a....")})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = f.service.Create(ctx, CreateInput{UserID: 7, ThemeID: "nope", FileName: "a.png", Data: pngBytes(t)})
	assert.ErrorIs(t, err, ErrUnknownTheme)

	_, err = f.service.Create(ctx, CreateInput{UserID: 7, Detail: "wild", FileName: "a.png", Data: pngBytes(t)})
	assert.ErrorIs(t, err, ErrInvalidDetail)

	// nothing was charged
	balance, err := f.ledger.Balance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
	assert.Empty(t, f.queue.jobs)
}

func TestCreateWithoutCredits(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), CreateInput{UserID: 9, FileName: "a.png", Data: pngBytes(t)})
	assert.ErrorIs(t, err, credits.ErrInsufficientCredits)

	var count int64
	require.NoError(t, f.db.Model(&models.ColoringPage{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateRefundsWhenQueueFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.GrantSignup(ctx, 7)
	require.NoError(t, err)
	f.queue.err = errors.New("redis down")

	_, err = f.service.Create(ctx, CreateInput{UserID: 7, FileName: "a.png", Data: pngBytes(t)})
	require.Error(t, err)

	balance, err := f.ledger.Balance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)

	var page models.ColoringPage
	require.NoError(t, f.db.First(&page).Error)
	assert.Equal(t, models.ColoringStatusFailed, page.Status)
}

func TestStatusFallsBackToDatabase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page := &models.ColoringPage{UserID: 1, ShareSlug: "abcdEFGH", Status: models.ColoringStatusCompleted}
	require.NoError(t, f.db.Create(page).Error)

	status, err := f.service.Status(ctx, page.UUID)
	require.NoError(t, err)
	assert.Equal(t, models.ColoringStatusCompleted, status)

	cached, err := f.status.Get(ctx, page.UUID)
	require.NoError(t, err)
	assert.Equal(t, models.ColoringStatusCompleted, cached)

	_, err = f.service.Status(ctx, "missing")
	assert.ErrorIs(t, err, ErrPageNotFound)

	_, err = f.service.FindBySlug(ctx, "bad!")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestListByUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, slug := range []string{"aaaaaaaa", "bbbbbbbb"} {
		require.NoError(t, f.db.Create(&models.ColoringPage{UserID: 3, ShareSlug: slug}).Error)
	}
	require.NoError(t, f.db.Create(&models.ColoringPage{UserID: 4, ShareSlug: "cccccccc"}).Error)

	pages, err := f.service.ListByUser(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}
