package coloring

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/jobqueue"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/objectstore"
)

// Uploader stores a local file under an object key.
type Uploader interface {
	UploadFile(ctx context.Context, localFilePath, objectKey string) (*objectstore.UploadResult, error)
}

// Mirror copies generated pages to the S3 bucket.
type Mirror struct {
	db       *gorm.DB
	uploader Uploader
	config   *objectstore.Config
	root     string
	now      func() time.Time
}

func NewMirror(db *gorm.DB, uploader Uploader, cfg *objectstore.Config, root string) *Mirror {
	if root == "" {
		root = "."
	}
	return &Mirror{db: db, uploader: uploader, config: cfg, root: root, now: time.Now}
}

// Register wires the mirror handler into q.
func (m *Mirror) Register(q *jobqueue.Queue) {
	q.RegisterHandler(jobqueue.JobTypeColoringMirror, m.HandleMirror)
}

// HandleMirror is the coloring_mirror job handler. Uploads are idempotent so
// a retried job simply overwrites the objects.
func (m *Mirror) HandleMirror(ctx context.Context, job *jobqueue.Job) error {
	payload, err := jobqueue.ColoringMirrorJobPayloadFromMap(job.Payload)
	if err != nil {
		return jobqueue.Permanent(fmt.Errorf("invalid payload: %w", err))
	}

	var page models.ColoringPage
	if err := m.db.WithContext(ctx).First(&page, payload.PageID).Error; err != nil {
		return jobqueue.Permanent(fmt.Errorf("page %d: %w", payload.PageID, err))
	}

	for _, rel := range payload.Files {
		key := m.config.ObjectKey(page.UUID, path.Base(rel), page.CreatedAt)
		if _, err := m.uploader.UploadFile(ctx, filepath.Join(m.root, filepath.FromSlash(rel)), key); err != nil {
			return err
		}
	}

	now := m.now().UTC()
	if err := m.db.WithContext(ctx).Model(&models.ColoringPage{}).
		Where("id = ?", page.ID).
		Update("mirrored_at", now).Error; err != nil {
		return fmt.Errorf("update page %s: %w", page.UUID, err)
	}
	log.Infof("[Coloring] Mirrored %d files of page %s", len(payload.Files), page.UUID)
	return nil
}
