package jobqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/testutil"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	_, client := testutil.NewRedis(t)
	q := NewQueueWithClient(client, 1)
	q.SetRetryDelay(time.Millisecond)
	return q
}

// TestNewQueue tests the queue constructor
func TestNewQueue(t *testing.T) {
	_, client := testutil.NewRedis(t)
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueueWithClient(client, tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.stopCh)
			assert.False(t, queue.running)
		})
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "job:", JobKeyPrefix)
	assert.Equal(t, "job_queue", JobQueueKey)
	assert.Equal(t, "job_processing", JobProcessingKey)
	assert.Equal(t, "job_stats", JobStatsKey)
	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestEnqueueAndProcess(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	var got *ColoringGenerationJobPayload
	q.RegisterHandler(JobTypeColoringGeneration, func(ctx context.Context, job *Job) error {
		p, err := ColoringGenerationJobPayloadFromMap(job.Payload)
		got = p
		return err
	})

	job, err := q.EnqueueJob(JobTypeColoringGeneration, ColoringGenerationJobPayload{PageID: 4, PageUUID: "u4", Detail: "soft"}.ToMap())
	require.NoError(t, err)

	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, stored.Status)

	handled, err := q.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, handled)
	require.NotNil(t, got)
	assert.Equal(t, uint(4), got.PageID)
	assert.Equal(t, "soft", got.Detail)

	// completed jobs are removed entirely
	_, err = q.GetJob(ctx, job.ID)
	assert.Error(t, err)
	processing, err := q.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, processing)

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusCompleted])
}

func TestProcessNextOnEmptyQueue(t *testing.T) {
	q := newTestQueue(t)
	handled, err := q.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestFailedJobIsRetriedThenGivesUp(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	var attempts atomic.Int32
	var failed atomic.Bool
	q.RegisterHandler(JobTypeColoringMirror, func(ctx context.Context, job *Job) error {
		attempts.Add(1)
		return errors.New("bucket unavailable")
	})
	q.OnPermanentFailure(JobTypeColoringMirror, func(ctx context.Context, job *Job, err error) {
		failed.Store(true)
	})

	job, err := q.EnqueueJob(JobTypeColoringMirror, ColoringMirrorJobPayload{PageID: 1}.ToMap())
	require.NoError(t, err)

	for i := 0; i < DefaultMaxRetries; i++ {
		require.Eventually(t, func() bool {
			handled, err := q.ProcessNext(ctx)
			return err == nil && handled
		}, 5*time.Second, 5*time.Millisecond)
	}

	assert.Equal(t, int32(DefaultMaxRetries), attempts.Load())
	assert.True(t, failed.Load())

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, "bucket unavailable", stored.ErrorMsg)
}

func TestPermanentErrorSkipsRetries(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	var failures atomic.Int32
	q.RegisterHandler(JobTypeColoringGeneration, func(ctx context.Context, job *Job) error {
		return Permanent(errors.New("corrupt image"))
	})
	q.OnPermanentFailure(JobTypeColoringGeneration, func(ctx context.Context, job *Job, err error) {
		assert.ErrorIs(t, err, ErrPermanent)
		failures.Add(1)
	})

	_, err := q.EnqueueJob(JobTypeColoringGeneration, nil)
	require.NoError(t, err)

	handled, err := q.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, int32(1), failures.Load())

	time.Sleep(20 * time.Millisecond)
	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, size, "no retry is scheduled")
}

func TestUnknownJobTypeFailsPermanently(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job, err := q.EnqueueJob(JobType("unknown"), nil)
	require.NoError(t, err)

	_, err = q.ProcessNext(ctx)
	require.NoError(t, err)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMsg, "unknown job type")
}

func TestRecoverStuckJobs(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job, err := q.EnqueueJob(JobTypeColoringGeneration, nil)
	require.NoError(t, err)

	// simulate a worker that crashed after dequeuing
	_, err = q.dequeueJob(ctx)
	require.NoError(t, err)
	job.MarkAsProcessing()
	q.updateJob(ctx, job)

	assert.Zero(t, q.recoverStuckJobs(ctx, time.Hour, time.Now()))
	assert.Equal(t, 1, q.recoverStuckJobs(ctx, time.Hour, time.Now().Add(2*time.Hour)))

	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
	processing, err := q.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, processing)
}

func TestQueueStartStop(t *testing.T) {
	q := newTestQueue(t)
	done := make(chan struct{})
	q.RegisterHandler(JobTypeColoringGeneration, func(ctx context.Context, job *Job) error {
		close(done)
		return nil
	})

	q.Start()
	_, err := q.EnqueueJob(JobTypeColoringGeneration, nil)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not processed by the worker")
	}
	q.Stop()
}
