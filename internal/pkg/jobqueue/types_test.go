package jobqueue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	job := &Job{ID: "j1", Type: JobTypeColoringGeneration, Status: JobStatusPending, MaxRetries: 2}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, "boom", job.ErrorMsg)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)
	assert.False(t, job.IsRetryable())

	job.MarkAsFailed("boom again")
	assert.False(t, job.IsRetryable(), "max retries reached")

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	require.NotNil(t, job.CompletedAt)
}

func TestColoringGenerationPayloadSurvivesRedisRoundTrip(t *testing.T) {
	in := ColoringGenerationJobPayload{
		PageID:       12,
		PageUUID:     "0b9c2c1e-3f41-4a4b-8d9e-1f1f2e3d4c5b",
		UserID:       7,
		OriginalPath: "original/2026/03/01/0b9c.jpg",
		Detail:       "bold",
		Mirror:       true,
	}

	// jobs are stored as JSON, so numbers come back as float64
	raw, err := json.Marshal(in.ToMap())
	require.NoError(t, err)
	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &generic))

	out, err := ColoringGenerationJobPayloadFromMap(generic)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestColoringMirrorPayloadFromMap(t *testing.T) {
	out, err := ColoringMirrorJobPayloadFromMap(map[string]interface{}{
		"page_id":   float64(3),
		"page_uuid": "u",
		"files":     []interface{}{"a.png", "b.webp"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint(3), out.PageID)
	assert.Equal(t, []string{"a.png", "b.webp"}, out.Files)
}
