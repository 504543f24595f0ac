package coloring

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/jobqueue"
)

const (
	previewEdge    = 1200
	previewQuality = 80
)

// Processor turns queued uploads into printable pages.
type Processor struct {
	db      *gorm.DB
	status  *StatusStore
	credits CreditLedger
	queue   Enqueuer
	root    string
}

func NewProcessor(db *gorm.DB, status *StatusStore, ledger CreditLedger, queue Enqueuer, root string) *Processor {
	if root == "" {
		root = "."
	}
	return &Processor{db: db, status: status, credits: ledger, queue: queue, root: root}
}

// Register wires the generation handlers into q.
func (p *Processor) Register(q *jobqueue.Queue) {
	q.RegisterHandler(jobqueue.JobTypeColoringGeneration, p.HandleGeneration)
	q.OnPermanentFailure(jobqueue.JobTypeColoringGeneration, p.HandleGenerationFailure)
}

func (p *Processor) abs(rel string) string {
	return filepath.Join(p.root, filepath.FromSlash(rel))
}

func (p *Processor) loadPage(ctx context.Context, id uint) (*models.ColoringPage, error) {
	var page models.ColoringPage
	err := p.db.WithContext(ctx).First(&page, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, jobqueue.Permanent(fmt.Errorf("page %d: %w", id, ErrPageNotFound))
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// HandleGeneration is the coloring_generation job handler.
func (p *Processor) HandleGeneration(ctx context.Context, job *jobqueue.Job) error {
	payload, err := jobqueue.ColoringGenerationJobPayloadFromMap(job.Payload)
	if err != nil {
		return jobqueue.Permanent(fmt.Errorf("invalid payload: %w", err))
	}

	page, err := p.loadPage(ctx, payload.PageID)
	if err != nil {
		return err
	}
	if page.Status == models.ColoringStatusCompleted {
		log.Infof("[Coloring] Page %s already completed, skipping", page.UUID)
		return nil
	}

	p.setStatus(ctx, page, models.ColoringStatusProcessing)

	img, err := p.decode(p.abs(page.OriginalPath))
	if err != nil {
		return err
	}
	art := ToLineArt(img, Detail(page.Detail))

	files := OutputFiles(page.UUID, page.CreatedAt)
	if err := p.writeOutputs(art, files); err != nil {
		return err
	}

	bounds := art.Bounds()
	err = p.db.WithContext(ctx).Model(&models.ColoringPage{}).
		Where("id = ?", page.ID).
		Updates(map[string]interface{}{
			"status":         models.ColoringStatusCompleted,
			"line_art_path":  files.LineArt,
			"preview_path":   files.Preview,
			"thumbnail_path": files.Thumbnail,
			"width":          bounds.Dx(),
			"height":         bounds.Dy(),
			"error_message":  "",
		}).Error
	if err != nil {
		return fmt.Errorf("update page %s: %w", page.UUID, err)
	}
	if err := p.status.Set(ctx, page.UUID, models.ColoringStatusCompleted); err != nil {
		log.Warnf("[Coloring] Failed to cache status of %s: %v", page.UUID, err)
	}

	log.Infof("[Coloring] Page %s completed (%dx%d)", page.UUID, bounds.Dx(), bounds.Dy())

	if payload.Mirror && p.queue != nil {
		mirror := jobqueue.ColoringMirrorJobPayload{PageID: page.ID, PageUUID: page.UUID, Files: files.All()}
		if _, err := p.queue.EnqueueJobContext(ctx, jobqueue.JobTypeColoringMirror, mirror.ToMap()); err != nil {
			log.Errorf("[Coloring] Failed to enqueue mirror job for %s: %v", page.UUID, err)
		}
	}
	return nil
}

// HandleGenerationFailure marks the page failed and gives the credit back.
func (p *Processor) HandleGenerationFailure(ctx context.Context, job *jobqueue.Job, cause error) {
	payload, err := jobqueue.ColoringGenerationJobPayloadFromMap(job.Payload)
	if err != nil {
		log.Errorf("[Coloring] Job %s has an invalid payload: %v", job.ID, err)
		return
	}
	page, err := p.loadPage(ctx, payload.PageID)
	if err != nil {
		log.Errorf("[Coloring] Job %s: %v", job.ID, err)
		return
	}

	markFailed(ctx, p.db, p.status, page, failureReason(cause))
	if _, err := p.credits.Refund(ctx, page.UserID, CreditsPerPage, ChargeReference(page.UUID)); err != nil {
		log.Errorf("[Coloring] Refund for %s failed: %v", page.UUID, err)
		return
	}
	log.Infof("[Coloring] Page %s failed, credit refunded to user %d", page.UUID, page.UserID)
}

func failureReason(err error) string {
	if err == nil {
		return "generation failed"
	}
	msg := strings.TrimPrefix(err.Error(), jobqueue.ErrPermanent.Error()+": ")
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}

func (p *Processor) setStatus(ctx context.Context, page *models.ColoringPage, status string) {
	err := p.db.WithContext(ctx).Model(&models.ColoringPage{}).
		Where("id = ?", page.ID).
		Update("status", status).Error
	if err != nil {
		log.Errorf("[Coloring] Failed to set status of %s: %v", page.UUID, err)
	}
	if err := p.status.Set(ctx, page.UUID, status); err != nil {
		log.Warnf("[Coloring] Failed to cache status of %s: %v", page.UUID, err)
	}
}

// decode opens the original and applies its EXIF orientation. Unreadable
// files are permanent failures.
func (p *Processor) decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, jobqueue.Permanent(fmt.Errorf("error opening original image: %w", err))
	}
	defer f.Close()

	orientation := ReadOrientation(f)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek file: %w", err)
	}

	var img image.Image
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		img, err = webp.Decode(f, &decoder.Options{})
	} else {
		img, err = imaging.Decode(f)
	}
	if err != nil {
		return nil, jobqueue.Permanent(fmt.Errorf("error decoding original image: %w", err))
	}
	return ApplyOrientation(img, orientation), nil
}

func (p *Processor) writeOutputs(art *image.NRGBA, files Files) error {
	for _, rel := range files.All() {
		if err := os.MkdirAll(filepath.Dir(p.abs(rel)), 0755); err != nil {
			return fmt.Errorf("error creating directory: %w", err)
		}
	}

	if err := imaging.Save(art, p.abs(files.LineArt)); err != nil {
		return fmt.Errorf("error saving line art: %w", err)
	}

	preview := imaging.Fit(art, previewEdge, previewEdge, imaging.Lanczos)
	if err := saveWebP(preview, p.abs(files.Preview)); err != nil {
		return err
	}

	thumb := imaging.Resize(art, ThumbnailWidth, 0, imaging.Lanczos)
	return saveWebP(thumb, p.abs(files.Thumbnail))
}

// saveWebP saves an image in WebP format
func saveWebP(img image.Image, outputPath string) error {
	output, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("error creating WebP file: %w", err)
	}
	defer output.Close()

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDrawing, previewQuality)
	if err != nil {
		return fmt.Errorf("error creating encoder options: %w", err)
	}
	if err := webp.Encode(output, img, options); err != nil {
		return fmt.Errorf("error encoding WebP image: %w", err)
	}
	return nil
}
