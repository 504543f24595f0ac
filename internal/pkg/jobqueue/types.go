package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeColoringGeneration JobType = "coloring_generation"
	JobTypeColoringMirror     JobType = "coloring_mirror"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// ColoringGenerationJobPayload contains the payload for line-art generation jobs
type ColoringGenerationJobPayload struct {
	PageID       uint   `json:"page_id"`
	PageUUID     string `json:"page_uuid"`
	UserID       uint   `json:"user_id"`
	OriginalPath string `json:"original_path"` // Relative path of the uploaded photo
	Detail       string `json:"detail"`        // soft, medium or bold
	Mirror       bool   `json:"mirror"`        // Whether to enqueue an S3 mirror job afterwards
}

// ToMap converts the payload to a map for storage
func (p ColoringGenerationJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"page_id":       p.PageID,
		"page_uuid":     p.PageUUID,
		"user_id":       p.UserID,
		"original_path": p.OriginalPath,
		"detail":        p.Detail,
		"mirror":        p.Mirror,
	}
}

// ColoringGenerationJobPayloadFromMap creates a payload from a map
func ColoringGenerationJobPayloadFromMap(data map[string]interface{}) (*ColoringGenerationJobPayload, error) {
	var payload ColoringGenerationJobPayload
	err := decodePayload(data, &payload)
	return &payload, err
}

// ColoringMirrorJobPayload contains the payload for copying generated files to object storage
type ColoringMirrorJobPayload struct {
	PageID   uint     `json:"page_id"`
	PageUUID string   `json:"page_uuid"`
	Files    []string `json:"files"` // Relative paths below the upload root
}

// ToMap converts the payload to a map for storage
func (p ColoringMirrorJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"page_id":   p.PageID,
		"page_uuid": p.PageUUID,
		"files":     p.Files,
	}
}

// ColoringMirrorJobPayloadFromMap creates a payload from a map
func ColoringMirrorJobPayloadFromMap(data map[string]interface{}) (*ColoringMirrorJobPayload, error) {
	var payload ColoringMirrorJobPayload
	err := decodePayload(data, &payload)
	return &payload, err
}

// decodePayload round-trips through JSON because payloads come back from
// Redis as generic maps with float64 numbers.
func decodePayload(data map[string]interface{}, out interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, out)
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
